// Package main provides the folio CLI: headless editing sessions against the
// local portfolio content store.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mesh-intelligence/folio/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorText(err))
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode maps user mistakes to 1 and everything else to 2.
func exitCode(err error) int {
	switch {
	case errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrUnknownField),
		errors.Is(err, types.ErrUnknownEntityType),
		errors.Is(err, types.ErrUnknownSection),
		errors.Is(err, types.ErrUnknownCollection),
		errors.Is(err, types.ErrInvalidOption),
		errors.Is(err, types.ErrReorderMismatch),
		errors.Is(err, types.ErrUploadTooLarge),
		errors.Is(err, types.ErrUploadType),
		errors.Is(err, types.ErrUploadEmpty),
		errors.Is(err, errUsage):
		return exitUserError
	default:
		return exitSysError
	}
}
