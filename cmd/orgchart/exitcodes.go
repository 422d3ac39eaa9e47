package main

import (
	"io/fs"

	"github.com/pkg/errors"

	"github.com/iota-uz/orgchart/modules/hierarchy/infrastructure/export"
	"github.com/iota-uz/orgchart/modules/hierarchy/infrastructure/seed"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitValidation = 2
	exitUsage      = 3
	exitIO         = 4
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return 1
}

// classify picks an exit code for seed, store and export errors. Bad input files and
// structural rejections (not found, cycle, validation) exit with exitValidation.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, seed.ErrUnsupportedFormat) || errors.Is(err, export.ErrUnsupportedFormat) || errors.Is(err, fs.ErrNotExist) {
		return withCode(exitUsage, err)
	}
	return withCode(exitValidation, err)
}
