package onboardinghandler

import (
	"errors"
	"log/slog"
	"net/http"

	"onboarding/internal/domain/onboarding"
	"onboarding/internal/transport/http/api"
	"onboarding/internal/transport/http/middleware"
	"onboarding/internal/transport/http/shared"
)

// writeError maps service errors onto the response envelope. Anything
// unrecognised is logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var validation *onboarding.ValidationError
	if errors.As(err, &validation) {
		issues := make([]shared.ValidationIssue, 0, len(validation.Issues))
		for _, issue := range validation.Issues {
			issues = append(issues, shared.ValidationIssue{Field: issue.Field, Reason: issue.Reason})
		}
		shared.FailValidation(w, requestID, issues)
		return
	}
	var prereq *onboarding.PrerequisiteError
	if errors.As(err, &prereq) {
		api.FailWithDetails(w, http.StatusConflict, "prerequisites_missing", prereq.Error(),
			map[string]any{"formKey": prereq.FormKey, "missing": prereq.Missing}, requestID)
		return
	}

	switch {
	case errors.Is(err, onboarding.ErrEmployeeNotFound), errors.Is(err, onboarding.ErrApplicationNotFound):
		api.Fail(w, http.StatusNotFound, "no_application", "no onboarding application found", requestID)
	case errors.Is(err, onboarding.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", requestID)
	case errors.Is(err, onboarding.ErrUnknownForm):
		api.Fail(w, http.StatusNotFound, "unknown_form", err.Error(), requestID)
	case errors.Is(err, onboarding.ErrFormNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, onboarding.ErrNoUpload):
		api.Fail(w, http.StatusNotFound, "no_upload", err.Error(), requestID)
	case errors.Is(err, onboarding.ErrTemplateNotFound), errors.Is(err, onboarding.ErrTemplateNotSupported):
		api.Fail(w, http.StatusNotFound, "template_not_found", err.Error(), requestID)
	case errors.Is(err, onboarding.ErrApplicationMismatch):
		api.Fail(w, http.StatusBadRequest, "application_mismatch", err.Error(), requestID)
	case errors.Is(err, onboarding.ErrInvalidStatus):
		api.Fail(w, http.StatusBadRequest, "invalid_status", err.Error(), requestID)
	case errors.Is(err, onboarding.ErrUnknownProfile):
		api.Fail(w, http.StatusBadRequest, "unknown_profile", err.Error(), requestID)
	case errors.Is(err, onboarding.ErrWrongJobDescription):
		api.Fail(w, http.StatusBadRequest, "wrong_job_description", err.Error(), requestID)
	case errors.Is(err, onboarding.ErrUploadNotSupported):
		api.Fail(w, http.StatusBadRequest, "upload_not_supported", err.Error(), requestID)
	case errors.Is(err, onboarding.ErrNotPDF), errors.Is(err, onboarding.ErrEmptyFile):
		api.Fail(w, http.StatusBadRequest, "invalid_file", err.Error(), requestID)
	case errors.Is(err, onboarding.ErrFileTooLarge):
		api.Fail(w, http.StatusRequestEntityTooLarge, "file_too_large", err.Error(), requestID)
	case errors.Is(err, middleware.ErrIdempotencyConflict):
		api.Fail(w, http.StatusConflict, "idempotency_conflict", err.Error(), requestID)
	default:
		slog.Warn("onboarding request failed", "path", r.URL.Path, "request_id", requestID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "request failed", requestID)
	}
}
