package knowledgebase

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klothoplatform/stackplan/pkg/closenicely"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// TemplatePattern selects kind table files within a file system.
const TemplatePattern = "**/*.{yaml,yml}"

// NewKBFromFs loads the kind table from each file system in order. A kind defined in a later file
// system replaces the one from an earlier file system; duplicates within one file system are an
// error.
func NewKBFromFs(dirs ...fs.FS) (*KnowledgeBase, error) {
	kb := NewKB()
	var errs error
	for _, dir := range dirs {
		templates, err := TemplatesFromFs(dir)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		for _, t := range templates {
			if err := kb.SetKindTemplate(t); err != nil {
				errs = errors.Join(errs, err)
			}
		}
	}
	return kb, errs
}

func TemplatesFromFs(dir fs.FS) ([]*KindTemplate, error) {
	paths, err := doublestar.Glob(dir, TemplatePattern)
	if err != nil {
		return nil, fmt.Errorf("could not list kind templates: %w", err)
	}
	sort.Strings(paths)

	var templates []*KindTemplate
	byKind := make(map[string]string, len(paths))
	var errs error
	for _, path := range paths {
		t, err := readTemplate(dir, path)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("error reading kind template %s: %w", path, err))
			continue
		}
		if prev, ok := byKind[string(t.Kind)]; ok {
			errs = errors.Join(errs, fmt.Errorf("duplicate template for kind %s in %s and %s", t.Kind, prev, path))
			continue
		}
		byKind[string(t.Kind)] = path
		zap.S().Debugf("loaded kind template %s from %s", t.Kind, path)
		templates = append(templates, t)
	}
	return templates, errs
}

func readTemplate(dir fs.FS, path string) (*KindTemplate, error) {
	f, err := dir.Open(path)
	if err != nil {
		return nil, err
	}
	defer closenicely.OrDebug(f)

	t := &KindTemplate{}
	if err := yaml.NewDecoder(f).Decode(t); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
