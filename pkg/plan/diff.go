package plan

import (
	"fmt"
	"strings"

	"github.com/klothoplatform/stackplan/pkg/construct"
	"github.com/r3labs/diff"
	"go.uber.org/zap"
)

type (
	// StepChange describes how one step differs between two plans. Type is one of diff.CREATE,
	// diff.UPDATE or diff.DELETE. Changes holds the field level changes of an update.
	StepChange struct {
		Type    string
		Step    string
		Kind    construct.Kind
		Changes diff.Changelog
	}

	Changes []StepChange
)

// Diff compares a previously applied plan with a new one. Created and updated steps are listed in
// the new plan's order, followed by deleted steps in teardown order.
func Diff(prev, next *Plan) (Changes, error) {
	differ, err := diff.NewDiffer(diff.SliceOrdering(false))
	if err != nil {
		return nil, err
	}

	var changes Changes
	for _, s := range next.Steps {
		old, ok := prev.Step(s.ID)
		if !ok {
			changes = append(changes, StepChange{Type: diff.CREATE, Step: s.ID, Kind: s.Kind})
			continue
		}
		a, b := diffable(old), diffable(s)
		cl, err := differ.Diff(a, b)
		if err != nil {
			// The differ refuses to compare values whose types changed (eg. a literal that became a
			// list), so report the attributes as replaced wholesale.
			zap.S().Debugf("falling back to whole attribute diff for %s: %v", s.ID, err)
			cl = diff.Changelog{{
				Type: diff.UPDATE,
				Path: []string{"attributes"},
				From: a.Attributes,
				To:   b.Attributes,
			}}
		}
		if len(cl) > 0 {
			changes = append(changes, StepChange{Type: diff.UPDATE, Step: s.ID, Kind: s.Kind, Changes: cl})
		}
	}
	for _, s := range prev.Reverse() {
		if _, ok := next.Step(s.ID); !ok {
			changes = append(changes, StepChange{Type: diff.DELETE, Step: s.ID, Kind: s.Kind})
		}
	}
	return changes, nil
}

// diffable returns a copy of the step whose placeholders are in their text form, so that a
// changed reference shows up as a single value change.
func diffable(s *Step) *Step {
	attrs := make(construct.Properties, len(s.Attributes))
	for k, v := range s.Attributes {
		attrs[k], _ = construct.ReplaceRefs(v, func(ref construct.PropertyRef) (any, error) {
			text, err := ref.MarshalText()
			return string(text), err
		})
	}
	return &Step{ID: s.ID, Kind: s.Kind, DependsOn: s.DependsOn, Attributes: attrs}
}

func (c Changes) HasChanges() bool {
	return len(c) > 0
}

// Count returns the number of changes of the given type.
func (c Changes) Count(changeType string) int {
	n := 0
	for _, sc := range c {
		if sc.Type == changeType {
			n++
		}
	}
	return n
}

func (sc StepChange) String() string {
	sb := new(strings.Builder)
	fmt.Fprintf(sb, "%s %s (%s)", sc.Type, sc.Step, sc.Kind)
	for _, c := range sc.Changes {
		fmt.Fprintf(sb, "\n  %s: %v -> %v", strings.Join(c.Path, "."), c.From, c.To)
	}
	return sb.String()
}
