package provision

import (
	"context"
	"fmt"
	"sync"

	"github.com/klothoplatform/stackplan/pkg/knowledgebase"
	"github.com/klothoplatform/stackplan/pkg/logging"
	"github.com/klothoplatform/stackplan/pkg/plan"
	"go.uber.org/zap"
)

// DryRunBackend provisions nothing. It logs each call and reports, for every attribute the step's
// kind exposes, either the step's own value for that attribute or a generated stand-in value, so
// that the steps depending on it can still be bound.
type DryRunBackend struct {
	KB *knowledgebase.KnowledgeBase

	mu      sync.Mutex
	created []string
	deleted []string
}

func (b *DryRunBackend) Create(ctx context.Context, target Target, step *plan.Step) (Outputs, error) {
	tmpl, err := b.KB.GetKindTemplate(step.Kind)
	if err != nil {
		return nil, err
	}
	out := make(Outputs, len(tmpl.Exposes))
	for _, attr := range tmpl.Exposes {
		if v, ok := step.Attributes[attr]; ok {
			out[attr] = v
		} else {
			out[attr] = StandIn(target, step.ID, attr)
		}
	}
	logging.GetLogger(ctx).Info("would create",
		zap.String("step", step.ID),
		zap.String("kind", string(step.Kind)),
		zap.Any("attributes", step.Attributes),
	)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, step.ID)
	return out, nil
}

func (b *DryRunBackend) Delete(ctx context.Context, target Target, step *plan.Step) error {
	logging.GetLogger(ctx).Info("would delete", zap.String("step", step.ID), zap.String("kind", string(step.Kind)))

	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, step.ID)
	return nil
}

// Created returns the ids passed to Create, in call order.
func (b *DryRunBackend) Created() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.created...)
}

func (b *DryRunBackend) Deleted() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.deleted...)
}

// StandIn is the value a dry run reports for an output attribute.
func StandIn(target Target, id, attr string) string {
	return fmt.Sprintf("dryrun:%s:%s:%s#%s", target.Region, target.Account, id, attr)
}
