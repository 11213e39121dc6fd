package construct

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// PropertyRef points at an attribute of another resource in the same graph.
type PropertyRef struct {
	Resource string
	Property string
}

// Reference records that Source's attribute is computed from Target.
type Reference struct {
	Source PropertyRef
	Target PropertyRef
}

func (v PropertyRef) String() string {
	return v.Resource + "#" + v.Property
}

func (v PropertyRef) IsZero() bool {
	return v.Resource == "" && v.Property == ""
}

// MarshalText renders the reference in its interpolation form, `${id#attr}`, so that it survives
// a round trip through the YAML and JSON plan files.
func (v PropertyRef) MarshalText() ([]byte, error) {
	return []byte("${" + v.String() + "}"), nil
}

// UnmarshalText accepts both `id#attr` and `${id#attr}`.
func (v *PropertyRef) UnmarshalText(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.HasPrefix(b, []byte("${")) && bytes.HasSuffix(b, []byte("}")) {
		b = b[2 : len(b)-1]
	}
	parts := bytes.SplitN(b, []byte("#"), 2)
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[1]) == 0 {
		return fmt.Errorf("invalid PropertyRef format: %s", string(b))
	}
	if err := ValidateId(string(parts[0])); err != nil {
		return fmt.Errorf("invalid PropertyRef %s: %w", string(b), err)
	}
	v.Resource = string(parts[0])
	v.Property = string(parts[1])
	return nil
}

func (r Reference) String() string {
	return fmt.Sprintf("%s -> %s", r.Source, r.Target)
}

var interpolationPattern = regexp.MustCompile(`^\$\{[^{}#]+#[^{}]+\}$`)

// ParseValue converts every string of the form `${id#attr}` within v (recursing into lists and
// maps) into a PropertyRef. Values decoded from YAML or JSON go through this so that references
// written in files become first-class references.
func ParseValue(v any) (any, error) {
	switch v := v.(type) {
	case string:
		if !interpolationPattern.MatchString(strings.TrimSpace(v)) {
			return v, nil
		}
		var ref PropertyRef
		if err := ref.UnmarshalText([]byte(v)); err != nil {
			return nil, err
		}
		return ref, nil

	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			pv, err := ParseValue(e)
			if err != nil {
				return nil, &PropertyTypeError{Path: []string{fmt.Sprintf("[%d]", i)}, Cause: err}
			}
			out[i] = pv
		}
		return out, nil

	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			pv, err := ParseValue(e)
			if err != nil {
				return nil, &PropertyTypeError{Path: []string{"." + k}, Cause: err}
			}
			out[k] = pv
		}
		return out, nil
	}
	return v, nil
}

// ParseProperties applies ParseValue to every property.
func ParseProperties(props map[string]any) (Properties, error) {
	out := make(Properties, len(props))
	for k, v := range props {
		pv, err := ParseValue(v)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", k, err)
		}
		out[k] = pv
	}
	return out, nil
}

// CollectRefs returns the PropertyRefs found in v in traversal order. Map entries are visited in
// key order so the result is deterministic.
func CollectRefs(v any) []PropertyRef {
	var refs []PropertyRef
	visitRefs(v, func(ref PropertyRef) {
		refs = append(refs, ref)
	})
	return refs
}

func visitRefs(v any, visit func(ref PropertyRef)) {
	// The walk cannot fail: the callback never returns an error.
	_, _ = walkValue(v, func(ref PropertyRef) (any, error) {
		visit(ref)
		return ref, nil
	})
}
