package provision

import (
	"context"
	"fmt"
	"sync"

	"github.com/alitto/pond"
	"github.com/klothoplatform/stackplan/pkg/construct"
	"github.com/klothoplatform/stackplan/pkg/logging"
	"github.com/klothoplatform/stackplan/pkg/plan"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const DefaultConcurrency = 4

type (
	// Applier hands a plan to a Backend one provisioning level at a time. Steps within a level do not
	// depend on each other and are issued concurrently; a level only starts once the previous level
	// has completed successfully.
	Applier struct {
		Backend     Backend
		Target      Target
		Concurrency int
		// OnStep, if set, is called after each step completes (successfully or not). It may be called
		// concurrently.
		OnStep func(StepEvent)
	}

	StepEvent struct {
		Step  string
		Kind  construct.Kind
		Err   error
		Done  int
		Total int
	}

	// Result records what an Apply or Destroy accomplished, including when it failed part way.
	Result struct {
		// Outputs of every created step.
		Outputs map[string]Outputs
		// Completed lists the steps that succeeded, in the order they were processed.
		Completed []string
	}

	StepError struct {
		Step string
		Op   string
		Err  error
	}
)

func (e *StepError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Apply creates every step of the plan. Placeholders in a step's attributes are bound to the
// outputs of the steps it depends on before it is handed to the backend.
func (a *Applier) Apply(ctx context.Context, p *plan.Plan) (*Result, error) {
	levels, err := p.Levels()
	if err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	result := &Result{Outputs: make(map[string]Outputs, len(p.Steps))}
	lookup := func(ref construct.PropertyRef) (any, bool) {
		v, ok := result.Outputs[ref.Resource][ref.Property]
		return v, ok
	}

	err = a.run(ctx, "create", levels, len(p.Steps), result, func(ctx context.Context, step *plan.Step) (Outputs, error) {
		attrs, err := step.Bind(lookup)
		if err != nil {
			return nil, err
		}
		bound := &plan.Step{ID: step.ID, Kind: step.Kind, DependsOn: step.DependsOn, Attributes: attrs}
		out, err := a.Backend.Create(ctx, a.Target, bound)
		if out == nil && err == nil {
			out = Outputs{}
		}
		return out, err
	})
	return result, err
}

// Destroy deletes every step of the plan in reverse provisioning order: a step is only deleted once
// every step that depends on it has been deleted.
func (a *Applier) Destroy(ctx context.Context, p *plan.Plan) (*Result, error) {
	levels, err := p.Levels()
	if err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	reversed := make([][]*plan.Step, len(levels))
	for i, lvl := range levels {
		steps := make([]*plan.Step, len(lvl))
		for j, s := range lvl {
			steps[len(lvl)-1-j] = s
		}
		reversed[len(levels)-1-i] = steps
	}

	result := &Result{}
	err = a.run(ctx, "delete", reversed, len(p.Steps), result, func(ctx context.Context, step *plan.Step) (Outputs, error) {
		return nil, a.Backend.Delete(ctx, a.Target, step)
	})
	return result, err
}

func (a *Applier) run(
	ctx context.Context,
	op string,
	levels [][]*plan.Step,
	total int,
	result *Result,
	do func(ctx context.Context, step *plan.Step) (Outputs, error),
) error {
	log := logging.GetLogger(ctx).Named("provision").With(zap.String("op", op), zap.Stringer("target", a.Target))

	concurrency := a.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	pool := pond.New(concurrency, 0, pond.Strategy(pond.Lazy()))
	defer pool.StopAndWait()

	var done atomic.Int64
	for i, lvl := range levels {
		if err := ctx.Err(); err != nil {
			log.Warn("stopping before level", zap.Int("level", i), zap.Error(err))
			return err
		}
		log.Debug("starting level", zap.Int("level", i), zap.Int("steps", len(lvl)))

		var (
			mu       sync.Mutex
			outputs  = make(map[string]Outputs, len(lvl))
			firstErr error
		)
		lctx, cancel := context.WithCancel(ctx)
		group := pool.Group()
		for _, step := range lvl {
			step := step
			group.Submit(func() {
				if lctx.Err() != nil {
					return
				}
				stepLog := log.With(zap.String("step", step.ID), zap.String("kind", string(step.Kind)))
				stepLog.Debug("starting step")

				out, err := do(lctx, step)
				n := int(done.Inc())
				if err != nil {
					stepLog.Error("step failed", zap.Error(err))
					err = &StepError{Step: step.ID, Op: op, Err: err}
				}
				mu.Lock()
				if err == nil {
					outputs[step.ID] = out
				} else if firstErr == nil {
					firstErr = err
					cancel()
				}
				mu.Unlock()
				if err == nil {
					stepLog.Info("step complete")
				}
				if a.OnStep != nil {
					a.OnStep(StepEvent{Step: step.ID, Kind: step.Kind, Err: err, Done: n, Total: total})
				}
			})
		}
		group.Wait()
		cancel()

		for _, step := range lvl {
			out, ok := outputs[step.ID]
			if !ok {
				continue
			}
			result.Completed = append(result.Completed, step.ID)
			if result.Outputs != nil {
				result.Outputs[step.ID] = out
			}
		}
		if firstErr != nil {
			return firstErr
		}
	}
	return nil
}
