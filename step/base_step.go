package step

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmsync/runtime"
)

// BaseStep provides common fields and default method implementations for steps.
type BaseStep struct {
	NameField        string
	DescriptionField string
	Logger           *logrus.Entry
}

// NewBaseStep is a helper constructor for initializing common BaseStep fields.
func NewBaseStep(name, description string) BaseStep {
	return BaseStep{
		NameField:        name,
		DescriptionField: description,
	}
}

func (bs *BaseStep) Name() string {
	return bs.NameField
}

func (bs *BaseStep) Description() string {
	return bs.DescriptionField
}

// Init stores the logger. Concrete steps call it before their own checks.
func (bs *BaseStep) Init(rt runtime.Runtime, logger *logrus.Entry) error {
	if rt == nil {
		return fmt.Errorf("runtime cannot be nil for step '%s'", bs.NameField)
	}
	if logger == nil {
		logger = rt.Logger()
	}
	bs.Logger = logger
	return nil
}

// Execute is overridden by concrete steps.
func (bs *BaseStep) Execute(ctx context.Context, rt runtime.Runtime, logger *logrus.Entry) (string, error) {
	return "", fmt.Errorf("execute not implemented for step '%s'", bs.NameField)
}

// Post is a no-op by default.
func (bs *BaseStep) Post(rt runtime.Runtime, logger *logrus.Entry, executeErr error) error {
	return nil
}

// RequireSession fails when the runtime has no live session.
func RequireSession(rt runtime.Runtime, name string) error {
	if rt.Runner() == nil {
		return fmt.Errorf("step '%s' needs a connected session", name)
	}
	return nil
}
