package cli

import (
	"errors"

	"github.com/klothoplatform/stackplan/pkg/resolver"
	"go.uber.org/zap"
)

type ErrorHandler struct {
	Log           *zap.Logger
	Verbose       bool
	PostPrintHook func()
}

func (h ErrorHandler) PrintErr(err error) {
	h.printErr(err, 0)
	if h.PostPrintHook != nil {
		h.PostPrintHook()
	}
}

// printErr logs err, splitting errors joined with errors.Join into one numbered entry each.
func (h ErrorHandler) printErr(err error, num int) (nextNum int) {
	log := h.Log
	if log == nil {
		log = zap.L()
	}

	errFmt := "%v"
	if h.Verbose {
		errFmt = "%+v"
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs := joined.Unwrap()
		switch len(errs) {
		case 0:
			return num
		case 1:
			err = errs[0]
		default:
			log.Sugar().Errorf("%d errors:", len(errs))
			for _, err := range errs {
				num = h.printErr(err, num+1)
			}
			return num
		}
	}

	var (
		cycle   *resolver.CycleDetectedError
		unknown *resolver.UnknownNodeError
		attr    *resolver.InvalidAttributeError
	)
	switch {
	case errors.As(err, &cycle):
		log = log.With(zap.Strings("cycle", cycle.Cycle))
	case errors.As(err, &unknown):
		log = log.With(zap.String("node", unknown.ID))
	case errors.As(err, &attr):
		log = log.With(zap.String("node", attr.ID), zap.String("attribute", attr.Attribute))
	}

	log.Sugar().Errorf("[err %d] "+errFmt, num, err)
	return num
}
