package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/basket/murmur/internal/agent"
)

// CoordinatorPhase is one stage of a SubTask-driven implementation run
// (spec.md §4.5).
type CoordinatorPhase int

const (
	CoordPlanning CoordinatorPhase = iota
	CoordSetupWorktree
	CoordImplementing
	CoordTesting
	CoordReviewing
	CoordCreatingPR
	CoordComplete
	CoordFailed
)

func (p CoordinatorPhase) String() string {
	switch p {
	case CoordPlanning:
		return "planning"
	case CoordSetupWorktree:
		return "setup_worktree"
	case CoordImplementing:
		return "implementing"
	case CoordTesting:
		return "testing"
	case CoordReviewing:
		return "reviewing"
	case CoordCreatingPR:
		return "creating_pr"
	case CoordComplete:
		return "complete"
	case CoordFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Next returns the linear next phase, or false at a terminal phase.
func (p CoordinatorPhase) Next() (CoordinatorPhase, bool) {
	switch p {
	case CoordPlanning:
		return CoordSetupWorktree, true
	case CoordSetupWorktree:
		return CoordImplementing, true
	case CoordImplementing:
		return CoordTesting, true
	case CoordTesting:
		return CoordReviewing, true
	case CoordReviewing:
		return CoordCreatingPR, true
	case CoordCreatingPR:
		return CoordComplete, true
	default:
		return 0, false
	}
}

// IsTerminal reports Complete or Failed.
func (p CoordinatorPhase) IsTerminal() bool {
	return p == CoordComplete || p == CoordFailed
}

// SubTaskStatus tracks one subtask's progress.
type SubTaskStatus int

const (
	SubTaskPending SubTaskStatus = iota
	SubTaskInProgress
	SubTaskComplete
	SubTaskFailed
)

func (s SubTaskStatus) String() string {
	switch s {
	case SubTaskPending:
		return "pending"
	case SubTaskInProgress:
		return "in_progress"
	case SubTaskComplete:
		return "complete"
	case SubTaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SubTask is one unit of work the coordinator delegates to an agent
// backend, with explicit dependencies on other subtasks by ID.
type SubTask struct {
	ID          string
	Description string
	Files       []string
	AgentType   string
	DependsOn   []string
	Status      SubTaskStatus
	Output      string
	Error       string
}

// NewSubTask builds a pending subtask.
func NewSubTask(id, description string) SubTask {
	return SubTask{ID: id, Description: description, Status: SubTaskPending}
}

// WithAgentType sets which backend name should run this subtask.
func (s SubTask) WithAgentType(agentType string) SubTask { s.AgentType = agentType; return s }

// WithFiles sets the files this subtask touches.
func (s SubTask) WithFiles(files []string) SubTask { s.Files = files; return s }

// WithDependencies sets the subtask IDs that must complete first.
func (s SubTask) WithDependencies(deps []string) SubTask { s.DependsOn = deps; return s }

// IsReady reports whether every dependency is present in completed.
func (s SubTask) IsReady(completed []string) bool {
	if s.Status != SubTaskPending {
		return false
	}
	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}
	for _, dep := range s.DependsOn {
		if !done[dep] {
			return false
		}
	}
	return true
}

// CoordinatorConfig toggles optional phases and bounds retries.
type CoordinatorConfig struct {
	UseTDD     bool
	RunReview  bool
	AutoPR     bool
	MaxRetries int
	Repo       string
	MainBranch string
}

// DefaultCoordinatorConfig mirrors the original's defaults: review on,
// TDD and auto-PR off, two retries, "main" as the base branch.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{RunReview: true, MaxRetries: 2, MainBranch: "main"}
}

// PhaseTransition records one coordinator phase change.
type PhaseTransition struct {
	From    CoordinatorPhase
	To      CoordinatorPhase
	Success bool
	Message string
}

// CoordinatorState tracks one task's progress through planning,
// implementation, testing, review, and PR creation.
type CoordinatorState struct {
	Phase             CoordinatorPhase
	Task              string
	ProjectDir        string
	WorktreePath      string
	BranchName        string
	SubTasks          []SubTask
	CompletedSubTasks []string
	History           []PhaseTransition
	Retries           int
	Config            CoordinatorConfig
	Error             string
}

// NewCoordinatorState starts a coordinator run at Planning with the
// default config.
func NewCoordinatorState(task, projectDir string) *CoordinatorState {
	return &CoordinatorState{Phase: CoordPlanning, Task: task, ProjectDir: projectDir, Config: DefaultCoordinatorConfig()}
}

// WithConfig overrides the default CoordinatorConfig.
func (s *CoordinatorState) WithConfig(cfg CoordinatorConfig) *CoordinatorState {
	s.Config = cfg
	return s
}

// Advance records the outcome of the current phase and moves on: the
// linear next phase on success, or unconditionally Failed on failure —
// any phase can fail the whole run, there's no per-phase recovery path
// other than Retry. Resets Retries to 0 on a successful advance.
func (s *CoordinatorState) Advance(success bool, message string) (CoordinatorPhase, bool) {
	from := s.Phase
	if !success {
		s.History = append(s.History, PhaseTransition{From: from, To: CoordFailed, Success: false, Message: message})
		s.Phase = CoordFailed
		s.Error = message
		return CoordFailed, true
	}

	next, ok := from.Next()
	if !ok {
		return from, false
	}
	s.Retries = 0
	s.History = append(s.History, PhaseTransition{From: from, To: next, Success: true, Message: message})
	s.Phase = next
	return next, true
}

// Retry increments the retry counter for the current phase if the
// configured budget allows it.
func (s *CoordinatorState) Retry() bool {
	if s.Retries >= s.Config.MaxRetries {
		return false
	}
	s.Retries++
	return true
}

// IsComplete reports the Complete terminal phase specifically.
func (s *CoordinatorState) IsComplete() bool { return s.Phase == CoordComplete }

// IsFailed reports the Failed terminal phase specifically.
func (s *CoordinatorState) IsFailed() bool { return s.Phase == CoordFailed }

// SetWorktree records the isolated worktree this run is using.
func (s *CoordinatorState) SetWorktree(path, branch string) {
	s.WorktreePath = path
	s.BranchName = branch
}

// SetSubTasks installs the plan produced by the Planning phase.
func (s *CoordinatorState) SetSubTasks(subtasks []SubTask) { s.SubTasks = subtasks }

// CompleteSubTask marks a subtask done by ID and records it as completed.
func (s *CoordinatorState) CompleteSubTask(id string) {
	for i := range s.SubTasks {
		if s.SubTasks[i].ID == id {
			s.SubTasks[i].Status = SubTaskComplete
			s.CompletedSubTasks = append(s.CompletedSubTasks, id)
			return
		}
	}
}

// NextSubTask returns the first pending subtask whose dependencies are
// all complete, or false if none is ready.
func (s *CoordinatorState) NextSubTask() (*SubTask, bool) {
	for i := range s.SubTasks {
		if s.SubTasks[i].IsReady(s.CompletedSubTasks) {
			return &s.SubTasks[i], true
		}
	}
	return nil, false
}

// AllSubTasksComplete reports whether every subtask reached Complete.
func (s *CoordinatorState) AllSubTasksComplete() bool {
	for _, t := range s.SubTasks {
		if t.Status != SubTaskComplete {
			return false
		}
	}
	return true
}

// CoordinatorWorkflow pairs a CoordinatorState with the prompt rendering
// and subtask execution that drive it.
type CoordinatorWorkflow struct {
	state    *CoordinatorState
	backends *agent.Registry
}

// NewCoordinatorWorkflow builds a workflow over task/projectDir with the
// default config, running subtasks through backends.
func NewCoordinatorWorkflow(task, projectDir string, backends *agent.Registry) *CoordinatorWorkflow {
	return &CoordinatorWorkflow{state: NewCoordinatorState(task, projectDir), backends: backends}
}

// WithConfig overrides the CoordinatorConfig in place.
func (w *CoordinatorWorkflow) WithConfig(cfg CoordinatorConfig) *CoordinatorWorkflow {
	w.state.WithConfig(cfg)
	return w
}

// State returns the underlying state for direct inspection.
func (w *CoordinatorWorkflow) State() *CoordinatorState { return w.state }

// Phase returns the current phase.
func (w *CoordinatorWorkflow) Phase() CoordinatorPhase { return w.state.Phase }

// CurrentPrompt renders the agent-facing prompt for the current phase.
func (w *CoordinatorWorkflow) CurrentPrompt() string {
	switch w.state.Phase {
	case CoordPlanning:
		return w.planningPrompt()
	case CoordSetupWorktree:
		return "Create a new git worktree for isolated development."
	case CoordImplementing:
		return w.implementPrompt()
	case CoordTesting:
		return "Run the test suite and verify all tests pass."
	case CoordReviewing:
		return "Review the code changes and provide feedback."
	case CoordCreatingPR:
		return w.prPrompt()
	case CoordComplete:
		return "Workflow complete."
	case CoordFailed:
		reason := w.state.Error
		if reason == "" {
			reason = "unknown error"
		}
		return fmt.Sprintf("Workflow failed: %s", reason)
	default:
		return ""
	}
}

func (w *CoordinatorWorkflow) planningPrompt() string {
	return fmt.Sprintf(
		"Analyze the following task and break it down into subtasks:\n\n%s\n\n"+
			"For each subtask, identify:\n"+
			"1. What needs to be done\n"+
			"2. Which files are involved\n"+
			"3. What type of work it is (implement, test, review)\n"+
			"4. Dependencies on other subtasks\n\n"+
			"Output your plan in a structured format.", w.state.Task)
}

func (w *CoordinatorWorkflow) implementPrompt() string {
	if next, ok := w.state.NextSubTask(); ok {
		return fmt.Sprintf("Implement the following subtask:\n\n%s\n\nFiles: %v", next.Description, next.Files)
	}
	return "Implementation phase - no subtasks remaining."
}

func (w *CoordinatorWorkflow) prPrompt() string {
	branch := w.state.BranchName
	if branch == "" {
		branch = "(unknown)"
	}
	return fmt.Sprintf("Create a pull request for the changes.\nBranch: %s\nTask: %s", branch, w.state.Task)
}

// Fail records error and moves straight to the Failed phase, bypassing
// the normal Advance bookkeeping for callers that already know they're
// done (e.g. an unrecoverable setup error before any phase transition
// would apply).
func (w *CoordinatorWorkflow) Fail(errMsg string) {
	w.state.Error = errMsg
	w.state.Phase = CoordFailed
}

// captureHandler is a StreamHandler that collects an agent run's
// assistant text, the subtask "output" later subtasks' prompts can
// reference via ResolvePrompt's "{step_id.output}" substitution.
type captureHandler struct {
	agent.NopHandler
	text strings.Builder
}

func (h *captureHandler) OnAssistantText(text string) {
	h.text.WriteString(text)
}

// RunSubTask spawns the configured backend for subtask, streams its
// output, waits for completion, and returns the captured text (or an
// error describing why the subtask failed). ctx cancellation kills the
// spawned process.
func (w *CoordinatorWorkflow) RunSubTask(ctx context.Context, subtask SubTask, prompt string) (string, error) {
	backendName := subtask.AgentType
	if backendName == "" {
		backendName = "claude"
	}
	backend, ok := w.backends.Get(backendName)
	if !ok {
		return "", fmt.Errorf("backend %q not registered", backendName)
	}

	proc, err := backend.Spawn(ctx, prompt, w.state.WorktreePath)
	if err != nil {
		return "", fmt.Errorf("spawn: %w", err)
	}

	var capture captureHandler
	done := make(chan struct{})
	go func() {
		defer close(done)
		streamer := agent.NewStreamer(proc.Stdout())
		_ = streamer.Stream(&capture)
	}()

	exitCode, waitErr := proc.Wait()
	<-done

	if waitErr != nil {
		return capture.text.String(), fmt.Errorf("subtask %s: %w", subtask.ID, waitErr)
	}
	if exitCode != 0 {
		return capture.text.String(), fmt.Errorf("subtask %s: exit code %d", subtask.ID, exitCode)
	}
	return capture.text.String(), nil
}

// subtaskOutcome pairs a subtask ID with its execution result, collected
// from a wave of concurrent RunSubTask calls.
type subtaskOutcome struct {
	id     string
	output string
	err    error
}

// RunWave executes every subtask in wave concurrently and waits for all
// of them, regardless of any individual failure — mirroring the
// teacher's coordinator/waiter.go WaitForAll (never abort early on one
// task's failure) and orchestrator.RunEpic's own bounded-parallelism
// wave loop, reimplemented here as direct backend calls since this
// package may not import internal/bus (spec.md §2: "workflow machines
// import only the supervisor and store"). outputs accumulates every
// completed subtask's text so later waves' prompts can resolve
// "{step_id.output}" placeholders via ResolvePrompt.
func (w *CoordinatorWorkflow) RunWave(ctx context.Context, wave []SubTask, outputs map[string]string) []error {
	var wg sync.WaitGroup
	results := make([]subtaskOutcome, len(wave))

	for i, subtask := range wave {
		i, subtask := i, subtask
		wg.Add(1)
		go func() {
			defer wg.Done()
			prompt := ResolvePrompt(fmt.Sprintf("Implement the following subtask:\n\n%s\n\nFiles: %v", subtask.Description, subtask.Files), outputs)
			output, err := w.RunSubTask(ctx, subtask, prompt)
			results[i] = subtaskOutcome{id: subtask.ID, output: output, err: err}
		}()
	}
	wg.Wait()

	var errs []error
	for _, r := range results {
		if r.err != nil {
			w.state.failSubTask(r.id, r.err.Error())
			errs = append(errs, r.err)
			continue
		}
		outputs[r.id] = r.output
		w.state.CompleteSubTask(r.id)
	}
	return errs
}

func (s *CoordinatorState) failSubTask(id, errMsg string) {
	for i := range s.SubTasks {
		if s.SubTasks[i].ID == id {
			s.SubTasks[i].Status = SubTaskFailed
			s.SubTasks[i].Error = errMsg
			return
		}
	}
}

// RunAllSubTasks groups SubTasks into dependency waves and runs each wave
// to completion before starting the next, returning every error
// encountered across every wave (it does not stop at the first failing
// wave, so a caller sees the full picture before deciding whether to
// retry or fail the coordinator phase).
func (w *CoordinatorWorkflow) RunAllSubTasks(ctx context.Context) ([]error, error) {
	waves, err := topoSortSubTasks(w.state.SubTasks)
	if err != nil {
		return nil, err
	}

	outputs := make(map[string]string)
	var allErrs []error
	for _, wave := range waves {
		if errs := w.RunWave(ctx, wave, outputs); len(errs) > 0 {
			allErrs = append(allErrs, errs...)
		}
	}
	return allErrs, nil
}
