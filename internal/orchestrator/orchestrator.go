// Package orchestrator composes the four leaf subsystems — dependency DAG
// engine, agent supervisor, worktree pool, durable run store — into the
// layered parallel driver described in spec.md §2: given an epic, resolve
// its children, build the DAG, walk it layer by layer with bounded
// parallelism, and for each ready issue provision a worktree, record a run,
// spawn an agent, stream events to the store, and await exit.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/basket/murmur/internal/agent"
	"github.com/basket/murmur/internal/bus"
	"github.com/basket/murmur/internal/config"
	"github.com/basket/murmur/internal/depgraph"
	"github.com/basket/murmur/internal/murmurerr"
	"github.com/basket/murmur/internal/store"
	"github.com/basket/murmur/internal/telemetry"
	"github.com/basket/murmur/internal/worktree"
)

// Orchestrator is the composition layer. It holds no mutable run state of
// its own beyond what a single RunEpic pass threads through its call stack;
// every durable fact lives in the store.
type Orchestrator struct {
	config config.OrchestratorConfig

	source   depgraph.Source
	backends *agent.Registry
	manager  *worktree.Manager

	runs          *store.AgentRunRepository
	conversations *store.ConversationRepository
	worktrees     *store.WorktreeRepository

	bus    *bus.Bus
	logger *slog.Logger
	tracer trace.Tracer

	prompt PromptBuilder
}

// New builds an Orchestrator. logger and prompt may be nil; they default to
// slog.Default() and DefaultPromptBuilder respectively.
func New(
	cfg config.OrchestratorConfig,
	source depgraph.Source,
	backends *agent.Registry,
	manager *worktree.Manager,
	st *store.Store,
	eventBus *bus.Bus,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		config:        cfg,
		source:        source,
		backends:      backends,
		manager:       manager,
		runs:          store.NewAgentRunRepository(st),
		conversations: store.NewConversationRepository(st),
		worktrees:     store.NewWorktreeRepository(st),
		bus:           eventBus,
		logger:        logger,
		tracer:        otel.GetTracerProvider().Tracer(telemetry.TracerName),
		prompt:        DefaultPromptBuilder,
	}
}

// WithPromptBuilder overrides the default prompt builder and returns o for
// chaining.
func (o *Orchestrator) WithPromptBuilder(p PromptBuilder) *Orchestrator {
	o.prompt = p
	return o
}

// WithTracer overrides the tracer used for per-run and per-worktree spans
// (e.g. with the Tracer from a telemetry.Provider built via
// telemetry.InitOtel). Without a call to this, spans go to whatever global
// tracer provider is registered — otel.GetTracerProvider's built-in no-op
// until something calls otel.SetTracerProvider.
func (o *Orchestrator) WithTracer(t trace.Tracer) *Orchestrator {
	o.tracer = t
	return o
}

// RunEpic resolves an epic's children, builds their dependency graph, and
// walks it layer by layer with bounded parallelism, provisioning a worktree
// rooted at repoRoot/repoName for each issue it spawns an agent for.
func (o *Orchestrator) RunEpic(ctx context.Context, epicNumber uint64, repoRoot, repoName string) (*Result, error) {
	epic, err := o.source.GetIssueWithTracking(epicNumber)
	if err != nil {
		return nil, err
	}

	children, err := resolveChildren(o.source, epic)
	if err != nil {
		return nil, err
	}

	result := &Result{EpicNumber: epicNumber, Issues: make(map[uint64]IssueResult)}
	if len(children) == 0 {
		return result, nil
	}

	byNumber := make(map[uint64]depgraph.Issue, len(children))
	for _, c := range children {
		byNumber[c.Number] = c
	}

	graph, err := depgraph.BuildGraph(children)
	if err != nil {
		return nil, err
	}
	if cycles := graph.FindCycles(); len(cycles) > 0 {
		return nil, murmurerr.Config(fmt.Sprintf("epic #%d: dependency cycle detected, refusing to schedule: %v", epicNumber, cycles))
	}
	layers, ok := graph.Layers()
	if !ok {
		return nil, murmurerr.Config(fmt.Sprintf("epic #%d: could not compute a layered order", epicNumber))
	}
	result.Layers = layers

	var mu sync.Mutex
	failed := make(map[uint64]bool)

	parallelism := o.config.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}

	for layerIdx, layer := range layers {
		o.bus.Publish(bus.TopicLayerStarted, bus.LayerEvent{LayerIndex: layerIdx, IssueNums: toInt64s(layer)})

		for _, chunk := range chunkUint64(layer, parallelism) {
			var wg sync.WaitGroup
			for _, num := range chunk {
				num := num
				deps := graph.Dependencies[num]

				mu.Lock()
				blocked := dependencyFailed(deps, failed)
				mu.Unlock()
				if blocked != 0 {
					mu.Lock()
					result.Issues[num] = IssueResult{
						IssueNumber: num,
						Status:      IssueSkippedDependency,
						Error:       fmt.Sprintf("dependency failed: #%d", blocked),
					}
					failed[num] = true
					mu.Unlock()
					continue
				}

				wg.Add(1)
				go func() {
					defer wg.Done()
					res := o.runIssueSafely(ctx, byNumber[num], repoRoot, repoName)

					mu.Lock()
					result.Issues[num] = res
					if res.Status != IssueSucceeded {
						failed[num] = true
					}
					mu.Unlock()
				}()
			}
			wg.Wait()
		}

		o.bus.Publish(bus.TopicLayerCompleted, bus.LayerEvent{LayerIndex: layerIdx, IssueNums: toInt64s(layer)})
	}

	return result, nil
}

// dependencyFailed returns the first failed dependency in deps, or 0 if
// none failed (issue numbers are never 0).
func dependencyFailed(deps []uint64, failed map[uint64]bool) uint64 {
	for _, d := range deps {
		if failed[d] {
			return d
		}
	}
	return 0
}

// runIssueSafely recovers a panic from a single issue's processing so one
// misbehaving task never takes down a whole layer; spec.md §5 requires the
// rest of the chunk to still complete.
func (o *Orchestrator) runIssueSafely(ctx context.Context, issue depgraph.Issue, repoRoot, repoName string) (res IssueResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("issue processing panicked", "issue", issue.Number, "recover", r)
			res = IssueResult{IssueNumber: issue.Number, Status: IssueFailed, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return o.processIssue(ctx, issue, repoRoot, repoName)
}

func toInt64s(nums []uint64) []int64 {
	out := make([]int64, len(nums))
	for i, n := range nums {
		out[i] = int64(n)
	}
	return out
}

// chunkUint64 splits nums into groups of at most size, preserving order.
func chunkUint64(nums []uint64, size int) [][]uint64 {
	if size <= 0 {
		size = len(nums)
	}
	var chunks [][]uint64
	for i := 0; i < len(nums); i += size {
		end := i + size
		if end > len(nums) {
			end = len(nums)
		}
		chunks = append(chunks, nums[i:end])
	}
	return chunks
}

func runIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}
