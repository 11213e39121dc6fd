package knowledgebase

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/klothoplatform/stackplan/pkg/construct"
	"gopkg.in/yaml.v3"
)

type (
	// KindTemplate is one row of the kind table: which attributes a kind exposes for reference by
	// other resources and which input properties it accepts.
	KindTemplate struct {
		Kind        construct.Kind `json:"kind" yaml:"kind"`
		Description string         `json:"description,omitempty" yaml:"description,omitempty"`
		// Exposes lists the attribute names other resources may reference.
		Exposes    []string   `json:"exposes" yaml:"exposes"`
		Properties Properties `json:"properties,omitempty" yaml:"properties,omitempty"`
	}

	Properties map[string]*Property

	Property struct {
		Name        string       `json:"-" yaml:"-"`
		Type        PropertyType `json:"type" yaml:"type"`
		Required    bool         `json:"required,omitempty" yaml:"required,omitempty"`
		Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	}

	PropertyType string
)

const (
	StringType   PropertyType = "string"
	NumberType   PropertyType = "number"
	BoolType     PropertyType = "bool"
	DurationType PropertyType = "duration"
	ListType     PropertyType = "list"
	MapType      PropertyType = "map"
	IngressType  PropertyType = "ingress"
	AnyType      PropertyType = "any"
)

func (p *Properties) UnmarshalYAML(n *yaml.Node) error {
	type h map[string]*Property
	var props h
	if err := n.Decode(&props); err != nil {
		return err
	}
	for name, prop := range props {
		if prop == nil {
			prop = &Property{Type: AnyType}
			props[name] = prop
		}
		prop.Name = name
		if prop.Type == "" {
			prop.Type = AnyType
		}
	}
	*p = Properties(props)
	return nil
}

func (t *KindTemplate) ExposesAttribute(attr string) bool {
	for _, e := range t.Exposes {
		if e == attr {
			return true
		}
	}
	return false
}

// Validate checks the template itself, as loaded from a kind table file.
func (t *KindTemplate) Validate() error {
	if t.Kind == "" {
		return errors.New("kind is empty")
	}
	var errs error
	seen := make(map[string]struct{}, len(t.Exposes))
	for _, e := range t.Exposes {
		if e == "" {
			errs = errors.Join(errs, errors.New("empty exposed attribute"))
			continue
		}
		if _, ok := seen[e]; ok {
			errs = errors.Join(errs, fmt.Errorf("attribute %s exposed more than once", e))
		}
		seen[e] = struct{}{}
	}
	for name, prop := range t.Properties {
		switch prop.Type {
		case StringType, NumberType, BoolType, DurationType, ListType, MapType, IngressType, AnyType:
		default:
			errs = errors.Join(errs, fmt.Errorf("property %s has unknown type '%s'", name, prop.Type))
		}
	}
	return errs
}

// ValidateProperties checks a resource's properties against the template. Properties that are not
// declared are accepted as-is, references are accepted for any declared type since their value is
// only known once the referenced resource is provisioned.
func (t *KindTemplate) ValidateProperties(props construct.Properties) error {
	names := make([]string, 0, len(t.Properties))
	for name := range t.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs error
	for _, name := range names {
		prop := t.Properties[name]
		v, ok := props[name]
		if !ok || v == nil {
			if prop.Required {
				errs = errors.Join(errs, &construct.PropertyTypeError{
					Path:  []string{name},
					Cause: errors.New("required property is missing"),
				})
			}
			continue
		}
		if err := prop.ValidateValue(v); err != nil {
			errs = errors.Join(errs, &construct.PropertyTypeError{Path: []string{name}, Cause: err})
		}
	}
	return errs
}

func (p *Property) ValidateValue(v any) error {
	if _, ok := v.(construct.PropertyRef); ok {
		return nil
	}
	if p.Type == AnyType {
		return nil
	}
	if v == nil {
		return fmt.Errorf("expected %s, got nil", p.Type)
	}
	switch p.Type {

	case StringType:
		if _, ok := v.(string); ok {
			return nil
		}

	case NumberType:
		switch v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			return nil
		}

	case BoolType:
		if _, ok := v.(bool); ok {
			return nil
		}

	case DurationType:
		switch v := v.(type) {
		case time.Duration:
			return nil
		case string:
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			return nil
		}

	case ListType:
		switch reflect.TypeOf(v).Kind() {
		case reflect.Slice, reflect.Array:
			return nil
		}

	case MapType:
		if t := reflect.TypeOf(v); t.Kind() == reflect.Map && t.Key().Kind() == reflect.String {
			return nil
		}

	case IngressType:
		_, err := construct.DecodeIngressRules(v)
		return err
	}
	return fmt.Errorf("expected %s, got %T", p.Type, v)
}
