package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/redbco/templatedelta/pkg/config"
	"github.com/redbco/templatedelta/pkg/logger"
	"github.com/redbco/templatedelta/pkg/templatedelta"
	"github.com/redbco/templatedelta/pkg/templatemodel"
	"github.com/redbco/templatedelta/services/templatedelta/internal/comparison"
	"github.com/redbco/templatedelta/services/templatedelta/internal/policy"
)

// ErrEngineNotRunning is returned by comparisons requested before Start or after Stop
var ErrEngineNotRunning = errors.New("engine is not running")

// Result is the outcome of one comparison run
type Result struct {
	RunID    uuid.UUID
	Previous *templatemodel.Template
	Current  *templatemodel.Template
	Delta    *templatedelta.Delta
	Duration time.Duration
}

type Engine struct {
	config     *config.Config
	logger     *logger.Logger
	policy     *policy.DefaultPolicy
	comparator *comparison.TemplateSchemaComparator
	state      struct {
		sync.Mutex
		isRunning         bool
		ongoingOperations int32
	}
	metrics struct {
		comparisons int64
		destructive int64
		errors      int64
	}
}

func NewEngine(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.New()
	}
	return &Engine{
		config: cfg,
	}
}

// SetLogger sets the logger for the engine
func (e *Engine) SetLogger(logger *logger.Logger) {
	e.logger = logger
}

// Start builds the policy and comparator from the configuration
func (e *Engine) Start(ctx context.Context) error {
	e.state.Lock()
	defer e.state.Unlock()

	if e.state.isRunning {
		return fmt.Errorf("engine is already running")
	}

	var extra []policy.KindPair
	for _, entry := range e.config.GetStringSlice(config.KeyDestructiveTypeChanges) {
		pair, err := policy.ParseKindPair(entry)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", config.KeyDestructiveTypeChanges, err)
		}
		extra = append(extra, pair)
	}

	parallel := e.config.GetInt(config.KeyComparisonParallel)
	if parallel < 0 {
		return fmt.Errorf("invalid %s: %d", config.KeyComparisonParallel, parallel)
	}

	e.policy = policy.NewDefaultPolicy(extra...)
	e.comparator = comparison.NewTemplateSchemaComparator(e.policy, comparison.WithParallelism(parallel))
	e.state.isRunning = true

	if e.logger != nil {
		e.logger.Debugf("engine started with %d extra destructive type changes, parallelism %d", len(extra), parallel)
	}
	return nil
}

func (e *Engine) Stop(ctx context.Context) error {
	e.state.Lock()
	defer e.state.Unlock()

	if !e.state.isRunning {
		return nil
	}

	e.state.isRunning = false
	return nil
}

// Policy returns the effective destructiveness policy, nil before Start
func (e *Engine) Policy() *policy.DefaultPolicy {
	e.state.Lock()
	defer e.state.Unlock()
	return e.policy
}

// CompareTemplates compares two parsed templates and returns the classified delta
func (e *Engine) CompareTemplates(ctx context.Context, previous, current *templatemodel.Template) (*Result, error) {
	comparator, err := e.acquire()
	if err != nil {
		return nil, err
	}
	defer e.UntrackOperation()

	if err := ctx.Err(); err != nil {
		atomic.AddInt64(&e.metrics.errors, 1)
		return nil, fmt.Errorf("comparison cancelled: %w", err)
	}

	result := &Result{
		RunID:    uuid.New(),
		Previous: previous,
		Current:  current,
	}

	prevRoot, currRoot := rootOf(previous), rootOf(current)
	start := time.Now()
	result.Delta = comparator.Compare(prevRoot, currRoot)
	result.Duration = time.Since(start)

	if result.Delta.HasDestructiveChanges() {
		atomic.AddInt64(&e.metrics.destructive, 1)
	}

	if e.logger != nil {
		e.logger.WithFields(map[string]string{
			"run_id":          result.RunID.String(),
			"destructive":     fmt.Sprint(len(result.Delta.DestructiveChanges())),
			"non_destructive": fmt.Sprint(len(result.Delta.NonDestructiveChanges())),
			"duration":        result.Duration.String(),
			"previous_fields": fmt.Sprint(prevRoot.FieldCount()),
			"current_fields":  fmt.Sprint(currRoot.FieldCount()),
			"depth":           fmt.Sprint(max(prevRoot.Depth(), currRoot.Depth())),
		}).Info("template comparison finished")
	}
	return result, nil
}

// CompareFiles reads both template documents and compares them
func (e *Engine) CompareFiles(ctx context.Context, previousPath, currentPath string) (*Result, error) {
	previous, err := templatemodel.ReadTemplateFile(previousPath)
	if err != nil {
		atomic.AddInt64(&e.metrics.errors, 1)
		return nil, fmt.Errorf("failed to load previous template: %w", err)
	}
	current, err := templatemodel.ReadTemplateFile(currentPath)
	if err != nil {
		atomic.AddInt64(&e.metrics.errors, 1)
		return nil, fmt.Errorf("failed to load current template: %w", err)
	}
	return e.CompareTemplates(ctx, previous, current)
}

func (e *Engine) acquire() (*comparison.TemplateSchemaComparator, error) {
	e.state.Lock()
	defer e.state.Unlock()

	if !e.state.isRunning {
		atomic.AddInt64(&e.metrics.errors, 1)
		return nil, ErrEngineNotRunning
	}
	e.TrackOperation()
	return e.comparator, nil
}

func rootOf(t *templatemodel.Template) *templatemodel.Node {
	if t == nil {
		return nil
	}
	return &t.Node
}

func (e *Engine) GetMetrics() map[string]int64 {
	return map[string]int64{
		"comparisons_run":     atomic.LoadInt64(&e.metrics.comparisons),
		"destructive_deltas":  atomic.LoadInt64(&e.metrics.destructive),
		"errors":              atomic.LoadInt64(&e.metrics.errors),
		"ongoing_comparisons": int64(atomic.LoadInt32(&e.state.ongoingOperations)),
	}
}

func (e *Engine) CheckHealth() error {
	e.state.Lock()
	defer e.state.Unlock()

	if !e.state.isRunning {
		return ErrEngineNotRunning
	}

	return nil
}

func (e *Engine) TrackOperation() {
	atomic.AddInt32(&e.state.ongoingOperations, 1)
	atomic.AddInt64(&e.metrics.comparisons, 1)
}

func (e *Engine) UntrackOperation() {
	atomic.AddInt32(&e.state.ongoingOperations, -1)
}
