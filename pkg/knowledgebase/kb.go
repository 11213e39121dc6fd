package knowledgebase

import (
	"errors"
	"fmt"
	"sort"

	"github.com/klothoplatform/stackplan/pkg/construct"
)

var ErrKindNotFound = errors.New("kind not found")

// KnowledgeBase holds the kind table used to validate resources and references.
type KnowledgeBase struct {
	templates map[construct.Kind]*KindTemplate
}

func NewKB() *KnowledgeBase {
	return &KnowledgeBase{
		templates: make(map[construct.Kind]*KindTemplate),
	}
}

// AddKindTemplate adds a template, failing if the kind is already present.
func (kb *KnowledgeBase) AddKindTemplate(template *KindTemplate) error {
	if err := template.Validate(); err != nil {
		return fmt.Errorf("invalid template for kind %q: %w", template.Kind, err)
	}
	if _, ok := kb.templates[template.Kind]; ok {
		return fmt.Errorf("duplicate template for kind %s", template.Kind)
	}
	kb.templates[template.Kind] = template
	return nil
}

// SetKindTemplate adds or replaces the template for its kind.
func (kb *KnowledgeBase) SetKindTemplate(template *KindTemplate) error {
	if err := template.Validate(); err != nil {
		return fmt.Errorf("invalid template for kind %q: %w", template.Kind, err)
	}
	kb.templates[template.Kind] = template
	return nil
}

func (kb *KnowledgeBase) GetKindTemplate(kind construct.Kind) (*KindTemplate, error) {
	t, ok := kb.templates[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKindNotFound, kind)
	}
	return t, nil
}

// ListKinds returns all templates sorted by kind.
func (kb *KnowledgeBase) ListKinds() []*KindTemplate {
	result := make([]*KindTemplate, 0, len(kb.templates))
	for _, t := range kb.templates {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Kind < result[j].Kind
	})
	return result
}

// Exposes reports whether resources of `kind` expose `attr` for reference. Unknown kinds expose
// nothing.
func (kb *KnowledgeBase) Exposes(kind construct.Kind, attr string) bool {
	t, ok := kb.templates[kind]
	if !ok {
		return false
	}
	return t.ExposesAttribute(attr)
}
