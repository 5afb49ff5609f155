package application

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"github.com/oem-ev-warranty/parts-service/pkg/errors"
	"github.com/oem-ev-warranty/parts-service/pkg/resilience"
)

// toAppError maps domain errors raised inside a unit of work onto the API
// taxonomy. The original error stays reachable through Unwrap.
func toAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.IsAppError(err) {
		return err
	}

	var (
		notFound     *domain.NotFoundError
		invalid      *domain.InvalidTransitionError
		insufficient *domain.InsufficientStockError
		conflict     *domain.ConflictError
		fault        *domain.ConsistencyFaultError
		validation   *domain.ValidationError
		forbidden    *domain.ForbiddenError
	)

	switch {
	case stderrors.As(err, &notFound):
		return errors.ErrNotFoundWithID(notFound.Entity, notFound.ID).Wrap(err)
	case stderrors.As(err, &invalid):
		appErr := errors.ErrConflict(invalid.Message).
			WithDetail("currentStatus", invalid.Current).
			WithDetail("requiredStatus", strings.Join(invalid.Required, ","))
		if invalid.ID != "" {
			appErr.WithDetail("id", invalid.ID)
		}
		return appErr.Wrap(err)
	case stderrors.As(err, &insufficient):
		return errors.ErrConflict(insufficient.Error()).
			WithDetail("typeComponentId", insufficient.TypeComponentID).
			WithDetail("requested", strconv.Itoa(insufficient.Requested)).
			WithDetail("available", strconv.Itoa(insufficient.Available)).
			Wrap(err)
	case stderrors.As(err, &conflict):
		return errors.ErrConflict(conflict.Message).Wrap(err)
	case stderrors.As(err, &fault):
		return errors.ErrConsistencyFault(fault.Error()).
			WithDetail("operation", fault.Operation).
			Wrap(err)
	case stderrors.As(err, &validation):
		appErr := errors.ErrBadRequest(validation.Error())
		if validation.Field != "" {
			appErr.WithDetail("field", validation.Field)
		}
		return appErr.Wrap(err)
	case stderrors.As(err, &forbidden):
		return errors.ErrForbidden(forbidden.Message).Wrap(err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.ErrTimeout(operation).Wrap(err)
	case resilience.IsUnavailable(err):
		return errors.ErrServiceUnavailable("vehicle service").Wrap(err)
	}
	return errors.ErrInternal("").Wrap(err)
}
