package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/klothoplatform/stackplan/pkg/construct"
)

var (
	// ErrGraphResolved is returned by mutations of a graph that has already been resolved.
	ErrGraphResolved = errors.New("graph is already resolved")
	// ErrGraphOpen is returned when reading the result of a graph that has not been resolved yet.
	ErrGraphOpen = errors.New("graph has not been resolved")
)

type (
	DuplicateIdError struct {
		ID string
	}

	// UnknownNodeError reports a reference (or a reference source) naming a node that was never
	// added to the graph.
	UnknownNodeError struct {
		ID string
		// Reference is the reference that led to the unknown node, zero when the node was named
		// directly.
		Reference construct.Reference
	}

	// InvalidAttributeError reports a reference to an attribute that the target's kind does not
	// expose.
	InvalidAttributeError struct {
		ID        string
		Kind      construct.Kind
		Attribute string
		Reference construct.Reference
	}

	CycleDetectedError struct {
		// Cycle lists the nodes of the cycle in the order the references were followed: each node
		// references the next, and the last references the first.
		Cycle []string
	}

	UnknownKindError struct {
		ID   string
		Kind construct.Kind
	}

	// AttributeConflictError is returned by AddReference when the attribute already holds a
	// different value.
	AttributeConflictError struct {
		Attribute construct.PropertyRef
		Existing  any
	}
)

func (e *DuplicateIdError) Error() string {
	return fmt.Sprintf("node %s already exists", e.ID)
}

func (e *UnknownNodeError) Error() string {
	if e.Reference.Target.IsZero() {
		return fmt.Sprintf("unknown node %s", e.ID)
	}
	return fmt.Sprintf("unknown node %s (referenced by %s)", e.ID, e.Reference.Source)
}

func (e *InvalidAttributeError) Error() string {
	return fmt.Sprintf("%s (%s) does not expose attribute %s (referenced by %s)",
		e.ID, e.Kind, e.Attribute, e.Reference.Source)
}

func (e *CycleDetectedError) Error() string {
	if len(e.Cycle) == 0 {
		return "cycle detected"
	}
	path := append(append([]string(nil), e.Cycle...), e.Cycle[0])
	return fmt.Sprintf("cycle detected: %s", strings.Join(path, " -> "))
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("node %s has unknown kind '%s'", e.ID, e.Kind)
}

func (e *AttributeConflictError) Error() string {
	return fmt.Sprintf("attribute %s is already set to %v", e.Attribute, e.Existing)
}
