package onboarding

import (
	"errors"
	"strings"
)

var (
	ErrUnknownForm          = errors.New("unknown onboarding form")
	ErrApplicationNotFound  = errors.New("onboarding application not found")
	ErrApplicationMismatch  = errors.New("application does not belong to employee")
	ErrFormNotFound         = errors.New("form record not found")
	ErrEmployeeNotFound     = errors.New("employee not found")
	ErrForbidden            = errors.New("not allowed to act on this application")
	ErrInvalidStatus        = errors.New("invalid form status for this operation")
	ErrPrerequisitesMissing = errors.New("prerequisite forms are not complete")
	ErrUploadNotSupported   = errors.New("form does not accept uploads")
	ErrTemplateNotSupported = errors.New("form has no downloadable template")
	ErrTemplateNotFound     = errors.New("template not found")
	ErrNoUpload             = errors.New("no uploaded file for this form")
	ErrNotPDF               = errors.New("please select a PDF file")
	ErrFileTooLarge         = errors.New("uploaded file is too large")
	ErrEmptyFile            = errors.New("uploaded file is empty")
	ErrWrongJobDescription  = errors.New("job description does not match the employee's position")
)

type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError carries every failed field of a form payload.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+" "+issue.Reason)
	}
	return "form validation failed: " + strings.Join(parts, "; ")
}

// Fields lists the failing field names in order.
func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		out = append(out, issue.Field)
	}
	return out
}

// PrerequisiteError names the forms that must be completed first.
type PrerequisiteError struct {
	FormKey string
	Missing []string
}

func (e *PrerequisiteError) Error() string {
	return e.FormKey + ": complete " + strings.Join(e.Missing, ", ") + " first"
}

func (e *PrerequisiteError) Unwrap() error {
	return ErrPrerequisitesMissing
}
