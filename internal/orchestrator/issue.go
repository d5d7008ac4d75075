package orchestrator

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/codes"

	"github.com/basket/murmur/internal/agent"
	"github.com/basket/murmur/internal/bus"
	"github.com/basket/murmur/internal/depgraph"
	"github.com/basket/murmur/internal/store"
	"github.com/basket/murmur/internal/telemetry"
	"github.com/basket/murmur/internal/worktree"
)

const defaultAgentType = "implementer"

// processIssue provisions a worktree, spawns an agent, streams its output
// into the store, and records the terminal outcome. It never returns an
// error: every failure mode (bad backend, worktree creation failure, agent
// exit) is folded into the returned IssueResult so one issue's trouble
// never aborts the layer it belongs to.
func (o *Orchestrator) processIssue(ctx context.Context, issue depgraph.Issue, repoRoot, repoName string) IssueResult {
	ctx, runSpan := telemetry.StartSpan(ctx, o.tracer, "agent_run",
		telemetry.AttrIssueNumber.Int64(int64(issue.Number)),
	)
	defer runSpan.End()

	backendName := o.resolveBackendName(issue)
	runSpan.SetAttributes(telemetry.AttrBackend.String(backendName))
	backend, ok := o.backends.Get(backendName)
	if !ok {
		err := fmt.Sprintf("backend %q not registered", backendName)
		runSpan.SetStatus(codes.Error, err)
		return IssueResult{IssueNumber: issue.Number, Status: IssueFailed, Error: err}
	}

	branchName := fmt.Sprintf("murmur/issue-%d", issue.Number)
	info, err := o.createWorktreeTraced(ctx, repoRoot, repoName, issue.Number, branchName)
	if err != nil {
		runSpan.RecordError(err)
		runSpan.SetStatus(codes.Error, "worktree creation failed")
		return IssueResult{IssueNumber: issue.Number, Status: IssueFailed, Error: fmt.Sprintf("worktree: %v", err)}
	}
	runSpan.SetAttributes(telemetry.AttrWorktreePath.String(info.Path), telemetry.AttrWorktreeBranch.String(info.Branch))

	logger := telemetry.WithTraceID(ctx, o.logger)

	prompt := o.prompt(issue)
	issueNum := int64(issue.Number)
	run := store.NewAgentRun(backendName, prompt, info.Path, "").WithIssueNumber(issueNum)
	runID, err := o.runs.Insert(ctx, &run)
	if err != nil {
		return IssueResult{IssueNumber: issue.Number, Status: IssueFailed, Error: fmt.Sprintf("run insert: %v", err)}
	}
	run.ID = runID

	o.bus.Publish(bus.TopicRunStarted, bus.RunStateChangedEvent{
		RunID: runIDString(runID), IssueNumber: &issueNum, OldStatus: "", NewStatus: "running",
	})

	proc, err := backend.Spawn(ctx, prompt, info.Path)
	if err != nil {
		run.Complete(-1)
		_ = o.runs.Update(ctx, &run)
		o.releaseWorktreeTraced(ctx, info.Path, false)
		runSpan.RecordError(err)
		runSpan.SetStatus(codes.Error, "agent spawn failed")
		o.bus.Publish(bus.TopicRunFailed, bus.RunStateChangedEvent{
			RunID: runIDString(runID), IssueNumber: &issueNum, OldStatus: "running", NewStatus: "failed",
		})
		return IssueResult{IssueNumber: issue.Number, Status: IssueFailed, RunID: runID, Error: fmt.Sprintf("spawn: %v", err)}
	}

	run.PID = ptrInt(proc.PID())
	_ = o.runs.Update(ctx, &run)

	streamLogger, err := store.NewStreamLogger(ctx, o.conversations, runID, logger)
	if err != nil {
		logger.Warn("stream logger init failed", "run_id", runID, "error", err)
	}

	var handlers []agent.StreamHandler
	if streamLogger != nil {
		handlers = append(handlers, agent.NewDbLogger(runIDString(runID), streamLogger))
	}
	handlers = append(handlers, newBusHandler(o.bus, runIDString(runID)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		streamer := agent.NewStreamer(proc.Stdout())
		if err := streamer.Stream(newMultiHandler(handlers...)); err != nil && err != io.EOF {
			logger.Warn("stream read failed", "run_id", runID, "error", err)
		}
	}()

	exitCode, waitErr := proc.Wait()
	<-done

	succeeded := waitErr == nil && exitCode == 0
	run.Complete(exitCode)
	_ = o.runs.Update(ctx, &run)

	o.releaseWorktreeTraced(ctx, info.Path, succeeded)

	if succeeded {
		runSpan.SetStatus(codes.Ok, "")
		o.bus.Publish(bus.TopicRunCompleted, bus.RunStateChangedEvent{
			RunID: runIDString(runID), IssueNumber: &issueNum, OldStatus: "running", NewStatus: "completed",
		})
		return IssueResult{IssueNumber: issue.Number, Status: IssueSucceeded, RunID: runID, ExitCode: exitCode}
	}

	errMsg := ""
	if waitErr != nil {
		errMsg = waitErr.Error()
		runSpan.RecordError(waitErr)
	}
	runSpan.SetStatus(codes.Error, "agent run failed")
	o.bus.Publish(bus.TopicRunFailed, bus.RunStateChangedEvent{
		RunID: runIDString(runID), IssueNumber: &issueNum, OldStatus: "running", NewStatus: "failed",
	})
	return IssueResult{IssueNumber: issue.Number, Status: IssueFailed, RunID: runID, ExitCode: exitCode, Error: errMsg}
}

// createWorktreeTraced wraps worktree creation in its own span (spec.md §B:
// a span per worktree operation), distinct from the enclosing agent-run span
// so worktree latency is attributable on its own.
func (o *Orchestrator) createWorktreeTraced(ctx context.Context, repoRoot, repoName string, issueNumber uint64, branchName string) (worktree.Info, error) {
	_, span := telemetry.StartSpan(ctx, o.tracer, "worktree_create",
		telemetry.AttrWorktreeBranch.String(branchName),
	)
	defer span.End()

	info, err := o.manager.CreateCached(
		repoRoot, repoName, fmt.Sprintf("%d", issueNumber),
		worktree.BranchingOptions{Remote: o.config.DefaultRemote},
		worktree.CreateOptions{BranchName: branchName},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "worktree create failed")
		return worktree.Info{}, err
	}
	span.SetAttributes(telemetry.AttrWorktreePath.String(info.Path))
	return info, nil
}

func (o *Orchestrator) releaseWorktreeTraced(ctx context.Context, path string, succeeded bool) {
	_, span := telemetry.StartSpan(ctx, o.tracer, "worktree_release",
		telemetry.AttrWorktreePath.String(path),
	)
	defer span.End()

	if err := o.manager.Release(path, succeeded); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "worktree release failed")
		telemetry.WithTraceID(ctx, o.logger).Warn("worktree release failed", "path", path, "error", err)
	}
}

// resolveBackendName picks the backend named in the issue's embedded
// metadata, falling back to the first enabled backend in config, then
// "claude". The metadata's Type field names an agent role (e.g.
// "implementer"), not necessarily a registered backend, so it only
// overrides the default when it looks like one.
func (o *Orchestrator) resolveBackendName(issue depgraph.Issue) string {
	if meta, ok := depgraph.ParseMetadata(issue.Body); ok && meta.Type != "" && meta.Type != defaultAgentType {
		if _, ok := o.backends.Get(meta.Type); ok {
			return meta.Type
		}
	}
	return o.firstEnabledBackend()
}

func (o *Orchestrator) firstEnabledBackend() string {
	for _, b := range o.config.Backends {
		if b.Enabled {
			return b.Name
		}
	}
	return "claude"
}

func ptrInt(v int) *int {
	return &v
}
