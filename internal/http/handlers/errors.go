package handlers

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/yeelightd/internal/errors"
)

// toHumaError maps domain errors onto HTTP statuses
func toHumaError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.IsNotFound(err):
		return huma.Error404NotFound(err.Error())
	case errors.IsAlreadyConfigured(err):
		return huma.Error409Conflict(err.Error())
	case errors.IsInvalidInput(err):
		return huma.Error400BadRequest(err.Error())
	case errors.IsNotReady(err):
		return huma.Error503ServiceUnavailable(err.Error())
	case errors.IsDeviceUnavailable(err):
		return huma.Error502BadGateway(err.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}
