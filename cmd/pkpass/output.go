package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	coreerrors "github.com/davidahmann/pkpass/core/errors"
)

// ExitError carries the process exit code out of a RunE handler.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

type errorOutput struct {
	OK            bool   `json:"ok"`
	Error         string `json:"error"`
	ErrorCode     string `json:"error_code"`
	ErrorCategory string `json:"error_category"`
	Retryable     bool   `json:"retryable"`
	Hint          string `json:"hint,omitempty"`
}

// finish writes a command result and converts a non-zero exit code into an
// ExitError that fang does not print again.
func (a *app) finish(cmd *cobra.Command, output any, text func(io.Writer), exitCode int) error {
	if a.jsonOutput {
		if err := writeJSONOutput(cmd.OutOrStdout(), output); err != nil {
			return a.fail(cmd, err, exitInternalFailure)
		}
	} else if text != nil {
		text(cmd.OutOrStdout())
	}
	if exitCode == exitOK {
		return nil
	}
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return &ExitError{Code: exitCode}
}

func (a *app) fail(cmd *cobra.Command, err error, fallbackExit int) error {
	exitCode := exitCodeForError(err, fallbackExit)
	if a.jsonOutput {
		_ = writeJSONOutput(cmd.OutOrStdout(), newErrorOutput(err, exitCode))
	} else if a.logger != nil {
		a.logger.Error(err.Error())
		if hint := hintFor(err, exitCode); hint != "" {
			a.logger.Info(hint)
		}
	}
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return &ExitError{Code: exitCode, Err: err}
}

func newErrorOutput(err error, exitCode int) errorOutput {
	category := coreerrors.CategoryOf(err)
	if category == "" {
		category = defaultErrorCategory(exitCode)
	}
	code := coreerrors.CodeOf(err)
	if strings.TrimSpace(code) == "" {
		code = defaultErrorCode(exitCode)
	}
	return errorOutput{
		OK:            false,
		Error:         err.Error(),
		ErrorCode:     code,
		ErrorCategory: string(category),
		Retryable:     coreerrors.RetryableOf(err),
		Hint:          hintFor(err, exitCode),
	}
}

func writeJSONOutput(w io.Writer, output any) error {
	encoded, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(encoded))
	return err
}

func exitCodeForError(err error, fallbackExit int) int {
	if err == nil {
		return exitOK
	}
	switch coreerrors.CategoryOf(err) {
	case coreerrors.CategoryInvalidInput:
		return exitInvalidInput
	case coreerrors.CategoryVerification:
		return exitVerifyFailed
	case coreerrors.CategoryDependencyMissing:
		return exitMissingDependency
	case coreerrors.CategoryIOFailure, coreerrors.CategoryInternalFailure:
		return exitInternalFailure
	}
	return fallbackExit
}

func defaultErrorCategory(exitCode int) coreerrors.Category {
	switch exitCode {
	case exitInvalidInput:
		return coreerrors.CategoryInvalidInput
	case exitVerifyFailed:
		return coreerrors.CategoryVerification
	case exitMissingDependency:
		return coreerrors.CategoryDependencyMissing
	default:
		return coreerrors.CategoryInternalFailure
	}
}

func defaultErrorCode(exitCode int) string {
	return string(defaultErrorCategory(exitCode))
}

func hintFor(err error, exitCode int) string {
	if hint := strings.TrimSpace(coreerrors.HintOf(err)); hint != "" {
		return hint
	}
	switch exitCode {
	case exitInvalidInput:
		return "check command usage and input files"
	case exitVerifyFailed:
		return "rebuild the archive from its source directory"
	case exitMissingDependency:
		return "configure the missing certificate and retry"
	default:
		return "retry after checking local environment and logs"
	}
}

func invalidInput(err error, code string, hint string) error {
	return coreerrors.Wrap(err, coreerrors.CategoryInvalidInput, code, hint, false)
}

func ioFailure(err error, code string, hint string) error {
	return coreerrors.Wrap(err, coreerrors.CategoryIOFailure, code, hint, false)
}
