package orchestrator

import (
	"fmt"

	"github.com/basket/murmur/internal/depgraph"
)

// PromptBuilder turns an issue into the prompt string handed to the agent
// backend. Prompt templating proper is a host/collaborator concern (§1);
// this is the seam where a richer template engine plugs in.
type PromptBuilder func(issue depgraph.Issue) string

// DefaultPromptBuilder renders a minimal prompt from the issue's title and
// body, with no templating.
func DefaultPromptBuilder(issue depgraph.Issue) string {
	return fmt.Sprintf("Issue #%d: %s\n\n%s", issue.Number, issue.Title, issue.Body)
}
