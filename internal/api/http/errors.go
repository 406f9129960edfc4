package http

import (
	"errors"
	"net/http"

	"github.com/GriffinCanCode/ptyhost/internal/service"
	"github.com/GriffinCanCode/ptyhost/internal/shared/types"
	"github.com/GriffinCanCode/ptyhost/internal/terminal"
)

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, types.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, terminal.ErrNotFound), errors.Is(err, service.ErrServiceNotFound):
		return http.StatusNotFound
	case errors.Is(err, terminal.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, terminal.ErrExternalCommandFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorKind names the error kind for response bodies.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, types.ErrInvalidParams):
		return "invalid_params"
	case errors.Is(err, terminal.ErrNotFound), errors.Is(err, service.ErrServiceNotFound):
		return "not_found"
	case errors.Is(err, terminal.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, terminal.ErrExternalCommandFailed):
		return "external_command_failed"
	case errors.Is(err, terminal.ErrSpawnFailed):
		return "spawn_failed"
	case errors.Is(err, terminal.ErrIO):
		return "io_failure"
	default:
		return "internal"
	}
}
