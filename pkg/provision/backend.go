package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/klothoplatform/stackplan/pkg/plan"
)

//go:generate mockgen -source=./backend.go --destination=./backend_mock_test.go --package=provision

type (
	// Target identifies where a plan is provisioned. It is passed explicitly to every backend call
	// rather than being read from the environment by the backend.
	Target struct {
		Account string `json:"account" yaml:"account"`
		Region  string `json:"region" yaml:"region"`
	}

	// Outputs are the attribute values a backend reports for a created resource, keyed by the
	// attribute names the resource's kind exposes.
	Outputs map[string]any

	// Backend creates and deletes the resources described by plan steps. The steps passed to
	// Create have their placeholders bound to the outputs of the steps they depend on.
	Backend interface {
		Create(ctx context.Context, target Target, step *plan.Step) (Outputs, error)
		Delete(ctx context.Context, target Target, step *plan.Step) error
	}
)

func (t Target) String() string {
	return fmt.Sprintf("%s/%s", t.Account, t.Region)
}

func (t Target) Validate() error {
	var errs error
	if t.Account == "" {
		errs = errors.Join(errs, errors.New("target account is empty"))
	}
	if t.Region == "" {
		errs = errors.Join(errs, errors.New("target region is empty"))
	}
	return errs
}
