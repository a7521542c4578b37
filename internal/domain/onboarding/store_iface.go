package onboarding

import (
	"context"
	"time"
)

type StoreAPI interface {
	EnsureApplication(ctx context.Context, tenantID, employeeID string) (Application, error)
	GetApplication(ctx context.Context, tenantID, applicationID string) (Application, error)
	ApplicationByEmployee(ctx context.Context, tenantID, employeeID string) (Application, error)
	SetFormCompleted(ctx context.Context, tenantID, applicationID, formKey string, completed bool) error
	ListForms(ctx context.Context, tenantID, applicationID string) ([]FormRecord, error)
	GetForm(ctx context.Context, tenantID, applicationID, formKey string) (FormRecord, error)
	GetFormByID(ctx context.Context, tenantID, recordID string) (FormRecord, error)
	UpsertForm(ctx context.Context, tenantID string, rec FormRecord) (FormRecord, error)
	ListSubmissions(ctx context.Context, tenantID string, filter SubmissionFilter) ([]Submission, error)
	CountSubmissions(ctx context.Context, tenantID string, filter SubmissionFilter) (int, error)
	ListStaleDrafts(ctx context.Context, olderThan time.Time, limit int) ([]StaleDraft, error)
	MarkReminded(ctx context.Context, tenantID, recordID string, at time.Time) error
	GetTemplate(ctx context.Context, tenantID, formKey string) (Template, error)
	UpsertTemplate(ctx context.Context, tenantID string, tpl Template) error
}
