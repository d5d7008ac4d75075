package depgraph

import "github.com/basket/murmur/internal/murmurerr"

func invalidDependencyRefsErr(refs []string) error {
	return murmurerr.InvalidDependencyRefs(refs)
}
