package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/bulk"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrNotOwned),
		errors.Is(err, service.ErrInactiveUser),
		errors.Is(err, bulk.ErrTemplateForbidden):
		return http.StatusForbidden

	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, bulk.ErrOperationNotFound),
		errors.Is(err, bulk.ErrUndoStackEmpty),
		errors.Is(err, bulk.ErrUndoNotFound),
		errors.Is(err, bulk.ErrTemplateNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, bulk.ErrNotReversible),
		errors.Is(err, bulk.ErrUndoInProgress),
		errors.Is(err, bulk.ErrOperationFinished):
		return http.StatusConflict

	case errors.Is(err, bulk.ErrValidation),
		errors.Is(err, bulk.ErrItemInvalid),
		errors.Is(err, store.ErrInvalidEntity),
		domain.IsValidation(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// GetSafeErrorMessage returns a client-facing message for err. Validation
// failures keep their own text; everything else gets a fixed message.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, service.ErrInactiveUser):
		return "Account is disabled"

	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this task"
	case errors.Is(err, bulk.ErrTemplateForbidden):
		return "You do not own this template"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, bulk.ErrOperationNotFound):
		return "Bulk operation not found"
	case errors.Is(err, bulk.ErrUndoStackEmpty):
		return "Nothing to undo"
	case errors.Is(err, bulk.ErrUndoNotFound):
		return "Operation is not available for undo"
	case errors.Is(err, bulk.ErrTemplateNotFound):
		return "Template not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"
	case errors.Is(err, store.ErrUsernameExists):
		return "Username already taken"
	case errors.Is(err, bulk.ErrNotReversible):
		return "Operation cannot be undone"
	case errors.Is(err, bulk.ErrUndoInProgress):
		return "Undo already in progress"
	case errors.Is(err, bulk.ErrOperationFinished):
		return "Bulk operation already finished"

	case errors.Is(err, bulk.ErrValidation), errors.Is(err, bulk.ErrItemInvalid), domain.IsValidation(err):
		return err.Error()
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"
	}
	return "An unexpected error occurred"
}

// HandleAPIError writes the response for err. fallback replaces the safe
// message for server errors when non-empty.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		msg = fallback
	}

	var opts []shared.ResponseOption
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err, opts...)
}

// SanitizeValidationError turns validator errors into a short message naming
// the first offending field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), validationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min", "gte":
		return "too short"
	case "max", "lte":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gt":
		return "must be positive"
	}
	return "validation failed"
}
