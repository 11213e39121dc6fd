package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/coreos/go-semver/semver"
	"github.com/klothoplatform/stackplan/pkg/closenicely"
	"github.com/klothoplatform/stackplan/pkg/construct"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case YAML, "yml":
		return YAML, nil
	case JSON:
		return JSON, nil
	}
	return "", fmt.Errorf("unsupported plan format '%s' (expected yaml or json)", s)
}

// FormatForPath picks the format from a file extension, defaulting to YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSON
	}
	return YAML
}

func (p *Plan) Write(w io.Writer, f Format) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)

	case YAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported plan format '%s'", f)
}

func (p *Plan) WriteFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closenicely.Join(&err, f)
	return p.Write(f, FormatForPath(path))
}

// Read decodes a plan, converting `${id#attr}` placeholders back into references and checking
// that the file's schema version is compatible.
func Read(r io.Reader, f Format) (*Plan, error) {
	p := &Plan{}
	switch f {
	case JSON:
		dec := json.NewDecoder(r)
		dec.UseNumber()
		if err := dec.Decode(p); err != nil {
			return nil, fmt.Errorf("could not decode plan: %w", err)
		}
	case YAML, "":
		if err := yaml.NewDecoder(r).Decode(p); err != nil {
			return nil, fmt.Errorf("could not decode plan: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported plan format '%s'", f)
	}

	if err := checkSchemaVersion(p.SchemaVersion); err != nil {
		return nil, err
	}

	var errs error
	for _, s := range p.Steps {
		if s == nil {
			continue
		}
		attrs, err := construct.ParseProperties(normalizeNumbers(s.Attributes))
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("step %s: %w", s.ID, err))
			continue
		}
		s.Attributes = attrs
	}
	if errs != nil {
		return nil, errs
	}
	return p, p.Validate()
}

func ReadFile(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer closenicely.OrDebug(f)
	zap.S().Debugf("reading plan from %s", path)
	return Read(f, FormatForPath(path))
}

func checkSchemaVersion(v string) error {
	if v == "" {
		return errors.New("plan has no schema version")
	}
	fileVersion, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("invalid plan schema version '%s': %w", v, err)
	}
	current := semver.New(SchemaVersion)
	if fileVersion.Major != current.Major {
		return fmt.Errorf("plan schema version %s is not compatible with %s", fileVersion, current)
	}
	if current.LessThan(*fileVersion) {
		zap.S().Warnf("plan schema version %s is newer than %s, some fields may be ignored", fileVersion, current)
	}
	return nil
}

// normalizeNumbers converts json.Number values into int or float64 so that plans read from JSON
// hold the same value types as plans read from YAML.
func normalizeNumbers(props construct.Properties) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = normalizeNumber(v)
	}
	return out
}

func normalizeNumber(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
		f, _ := v.Float64()
		return f
	case []any:
		for i, e := range v {
			v[i] = normalizeNumber(e)
		}
	case map[string]any:
		for k, e := range v {
			v[k] = normalizeNumber(e)
		}
	}
	return v
}
