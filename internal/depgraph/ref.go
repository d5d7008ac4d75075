package depgraph

import (
	"strconv"
	"strings"
)

// IssueRef is a typed reference to an issue: local when both Owner and Repo
// are absent, cross-repository otherwise. Cross-repository refs are recorded
// but never resolved by the DAG engine — treated as unknowable and excluded
// from blocking.
type IssueRef struct {
	Owner  string // empty for same-repo refs
	Repo   string // empty for same-repo refs
	Number uint64
}

// LocalRef builds a same-repository reference.
func LocalRef(number uint64) IssueRef {
	return IssueRef{Number: number}
}

// ExternalRef builds a cross-repository reference.
func ExternalRef(owner, repo string, number uint64) IssueRef {
	return IssueRef{Owner: owner, Repo: repo, Number: number}
}

// IsLocal reports whether r refers to an issue in the same repository.
func (r IssueRef) IsLocal() bool {
	return r.Owner == "" && r.Repo == ""
}

func (r IssueRef) String() string {
	if r.IsLocal() {
		return "#" + strconv.FormatUint(r.Number, 10)
	}
	return r.Owner + "/" + r.Repo + "#" + strconv.FormatUint(r.Number, 10)
}

// IssueDependencies is the parsed result of scanning one issue body: the
// deduplicated, ordered reference lists extracted from free text and the
// optional metadata block.
type IssueDependencies struct {
	DependsOn []IssueRef
	BlockedBy []IssueRef
	Parent    *IssueRef
}

// HasDependencies reports whether any local or cross-repo dependency was
// recorded.
func (d IssueDependencies) HasDependencies() bool {
	return len(d.DependsOn) > 0 || len(d.BlockedBy) > 0
}

// LocalDeps returns the deduplicated local (same-repo) issue numbers from
// both DependsOn and BlockedBy, in the order first encountered.
func (d IssueDependencies) LocalDeps() []uint64 {
	seen := make(map[uint64]bool)
	var nums []uint64
	for _, r := range d.DependsOn {
		if r.IsLocal() && !seen[r.Number] {
			seen[r.Number] = true
			nums = append(nums, r.Number)
		}
	}
	for _, r := range d.BlockedBy {
		if r.IsLocal() && !seen[r.Number] {
			seen[r.Number] = true
			nums = append(nums, r.Number)
		}
	}
	return nums
}

var (
	keywordDependsOn = "depends on"
	keywordBlockedBy = "blocked by"
	keywordParent    = "parent:"
)

// ParseDependencies extracts dependency references from an issue body per
// the textual grammar (§6):
//
//	REF := '#' DIGIT+ | IDENT '/' IDENT '#' DIGIT+
//	LINE := KEYWORD REF (',' REF)*
//	KEYWORD := 'Depends on' | 'Blocked by' | 'Parent:'
//
// plus any `<!-- murmur:metadata ... -->` block, unioned in. Unlike the
// upstream tracker adapter this engine is modeled on, a textual segment that
// cannot be parsed as a REF is never silently dropped: it is collected and
// returned as a single InvalidDependencyRefs error covering every bad
// segment found in the body, never partial.
func ParseDependencies(body string) (IssueDependencies, error) {
	dependsOn, invalidDeps := extractRefs(body, keywordDependsOn)
	blockedBy, invalidBlocked := extractRefs(body, keywordBlockedBy)
	parentRefs, invalidParent := extractRefs(body, keywordParent)

	var invalid []string
	invalid = append(invalid, invalidDeps...)
	invalid = append(invalid, invalidBlocked...)
	invalid = append(invalid, invalidParent...)

	var parent *IssueRef
	if len(parentRefs) > 0 {
		p := parentRefs[0]
		parent = &p
	}

	if blocks := extractMetadataBlocks(body); len(blocks) > 0 {
		if meta, ok := parseMetadataBlock(blocks[0]); ok {
			for _, num := range meta.DependsOn {
				r := LocalRef(num)
				if !containsRef(dependsOn, r) {
					dependsOn = append(dependsOn, r)
				}
			}
			if parent == nil && meta.Parent != nil {
				r := LocalRef(*meta.Parent)
				parent = &r
			}
		}
	}

	if len(invalid) > 0 {
		return IssueDependencies{}, invalidDependencyRefsErr(invalid)
	}

	return IssueDependencies{
		DependsOn: dependsOn,
		BlockedBy: blockedBy,
		Parent:    parent,
	}, nil
}

// extractRefs scans body for every case-insensitive occurrence of keyword
// and parses the rest of that line as a comma-separated REF list. Segments
// that fail to parse as a REF are returned in invalid, verbatim.
func extractRefs(body, keyword string) (refs []IssueRef, invalid []string) {
	lower := strings.ToLower(body)
	searchFrom := 0
	for {
		idx := strings.Index(lower[searchFrom:], keyword)
		if idx < 0 {
			break
		}
		absIdx := searchFrom + idx + len(keyword)
		rest := body[absIdx:]
		line := rest
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			line = rest[:nl]
		}
		for _, seg := range strings.Split(line, ",") {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}
			if ref, ok := parseSingleRef(seg); ok {
				if !containsRef(refs, ref) {
					refs = append(refs, ref)
				}
			} else {
				invalid = append(invalid, seg)
			}
		}
		searchFrom = absIdx
	}
	return refs, invalid
}

// parseSingleRef parses "#123" or "owner/repo#123".
func parseSingleRef(s string) (IssueRef, bool) {
	s = strings.TrimSpace(s)
	hashPos := strings.IndexByte(s, '#')
	if hashPos < 0 {
		return IssueRef{}, false
	}
	before := s[:hashPos]
	after := s[hashPos+1:]

	digits := takeDigits(after)
	if digits == "" {
		return IssueRef{}, false
	}
	number, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return IssueRef{}, false
	}

	if before == "" {
		return LocalRef(number), true
	}

	slashPos := strings.IndexByte(before, '/')
	if slashPos < 0 {
		return IssueRef{}, false
	}
	owner := strings.TrimSpace(before[:slashPos])
	repo := strings.TrimSpace(before[slashPos+1:])
	if owner == "" || repo == "" {
		return IssueRef{}, false
	}
	return ExternalRef(owner, repo, number), true
}

func takeDigits(s string) string {
	for i, c := range s {
		if c < '0' || c > '9' {
			return s[:i]
		}
	}
	return s
}

func containsRef(refs []IssueRef, r IssueRef) bool {
	for _, existing := range refs {
		if existing == r {
			return true
		}
	}
	return false
}
