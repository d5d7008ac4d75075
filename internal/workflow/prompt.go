package workflow

import (
	"fmt"
	"strings"
)

// ResolvePrompt substitutes every "{step_id.output}" placeholder in
// template with that step's recorded output, so a later subtask's prompt
// can reference an earlier one's result. Ported near-verbatim from the
// teacher's coordinator/executor.go resolvePrompt (SPEC_FULL.md §C.6),
// generalized from its ExecutionResult/StepResult map to SubTask outputs.
func ResolvePrompt(template string, outputs map[string]string) string {
	resolved := template
	for stepID, output := range outputs {
		placeholder := "{" + stepID + ".output}"
		resolved = strings.ReplaceAll(resolved, placeholder, output)
	}
	return resolved
}

// BuildRetryPrompt wraps originalPrompt with the previous attempt's error
// so a retried subtask can see what went wrong and adjust. Ported
// near-verbatim from the teacher's coordinator/retry.go buildRetryPrompt.
func BuildRetryPrompt(originalPrompt, errorMsg string, attempt int) string {
	var b strings.Builder
	b.WriteString("Your previous attempt at this task failed.\n\n")
	fmt.Fprintf(&b, "Original task: %s\n\n", originalPrompt)
	fmt.Fprintf(&b, "Error from attempt %d:\n%s\n\n", attempt-1, errorMsg)
	b.WriteString("Please analyze the error, adjust your approach, and try again.\n")
	b.WriteString("Be explicit about what you're changing and why.")
	return b.String()
}

// topoSortSubTasks groups subtasks into dependency waves (Kahn's
// algorithm), the same wave-grouping shape as the teacher's
// coordinator/executor.go topoSort, adapted from PlanStep.DependsOn to
// SubTask.DependsOn. Returns an error naming the first unknown dependency
// or, if every subtask remains unprocessed after a pass finds no ready
// subtask, the cycle it's stuck in.
func topoSortSubTasks(subtasks []SubTask) ([][]SubTask, error) {
	byID := make(map[string]SubTask, len(subtasks))
	for _, s := range subtasks {
		byID[s.ID] = s
	}
	for _, s := range subtasks {
		for _, dep := range s.DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, fmt.Errorf("subtask %s depends on nonexistent subtask %s", s.ID, dep)
			}
		}
	}

	var waves [][]SubTask
	processed := make(map[string]bool, len(subtasks))

	for len(processed) < len(subtasks) {
		var wave []SubTask
		for _, s := range subtasks {
			if processed[s.ID] {
				continue
			}
			ready := true
			for _, dep := range s.DependsOn {
				if !processed[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, s)
			}
		}
		if len(wave) == 0 {
			var stuck []string
			for _, s := range subtasks {
				if !processed[s.ID] {
					stuck = append(stuck, s.ID)
				}
			}
			return nil, fmt.Errorf("dependency cycle among subtasks: %v", stuck)
		}
		for _, s := range wave {
			processed[s.ID] = true
		}
		waves = append(waves, wave)
	}

	return waves, nil
}
