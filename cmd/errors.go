package cmd

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	codeInvalidInput = "MDMEND_INVALID_INPUT"
	codeNeedsFix     = "MDMEND_NEEDS_FIX"
	codeCanceled     = "MDMEND_CANCELED"
	codeRunFailed    = "MDMEND_RUN_FAILED"
)

// ErrNeedsFix is returned by `fix --check` when a document would change.
var ErrNeedsFix = errors.New("documents need fixing")

func wrapValidationError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid input: "+err.Error()).
		WithTextCode(codeInvalidInput)
}

func wrapRunError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	switch {
	case errors.Is(err, ErrNeedsFix):
		return goerrors.Wrap(err, goerrors.CategoryCommand, err.Error()).
			WithTextCode(codeNeedsFix)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "interrupted: "+err.Error()).
			WithTextCode(codeCanceled)
	default:
		return goerrors.Wrap(err, goerrors.CategoryCommand, err.Error()).
			WithTextCode(codeRunFailed)
	}
}

// exitCode is 2 for invalid input, 1 otherwise.
func exitCode(err error) int {
	if goerrors.IsCategory(err, goerrors.CategoryValidation) {
		return 2
	}
	return 1
}
