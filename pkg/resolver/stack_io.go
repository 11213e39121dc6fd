package resolver

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/klothoplatform/stackplan/pkg/closenicely"
	"github.com/klothoplatform/stackplan/pkg/construct"
	"gopkg.in/yaml.v3"
)

type (
	// StackFile is the YAML form of a set of declarations. Attribute values that are strings of the
	// form `${id#attr}` are references.
	StackFile struct {
		Nodes      []NodeDecl      `yaml:"nodes"`
		References []ReferenceDecl `yaml:"references,omitempty"`
	}

	NodeDecl struct {
		ID         string         `yaml:"id"`
		Kind       construct.Kind `yaml:"kind"`
		Attributes map[string]any `yaml:"attributes,omitempty"`
	}

	// ReferenceDecl is an explicit reference, written `from: lt#roleArn` and `to: role#arn`.
	ReferenceDecl struct {
		From construct.PropertyRef `yaml:"from"`
		To   construct.PropertyRef `yaml:"to"`
	}
)

func ReadStack(r io.Reader) (*StackFile, error) {
	var sf StackFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("could not decode stack: %w", err)
	}
	return &sf, nil
}

// ReadStackFile reads a stack from the given path of fsys, or from the OS file system when fsys is
// nil.
func ReadStackFile(fsys fs.FS, path string) (*StackFile, error) {
	var (
		f   io.ReadCloser
		err error
	)
	if fsys == nil {
		f, err = os.Open(path)
	} else {
		f, err = fsys.Open(path)
	}
	if err != nil {
		return nil, err
	}
	defer closenicely.OrDebug(f)
	sf, err := ReadStack(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sf, nil
}

// Declare adds the stack's nodes, then its explicit references, to g.
func (sf *StackFile) Declare(g *Graph) error {
	var errs error
	for _, n := range sf.Nodes {
		props, err := construct.ParseProperties(n.Attributes)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("node %s: %w", n.ID, err))
			continue
		}
		err = g.AddNode(&construct.Resource{ID: n.ID, Kind: n.Kind, Properties: props})
		if err != nil {
			errs = errors.Join(errs, err)
		}
	}
	if errs != nil {
		return errs
	}
	for _, r := range sf.References {
		if err := g.AddReference(r.From.Resource, r.From.Property, r.To.Resource, r.To.Property); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}
