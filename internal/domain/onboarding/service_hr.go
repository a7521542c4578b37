package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"onboarding/internal/domain/auth"
	"onboarding/internal/domain/notifications"
	"onboarding/internal/platform/storage"
)

const maxExportRows = 5000

var reviewStatuses = map[FormStatus]bool{
	StatusUnderReview: true,
	StatusApproved:    true,
	StatusRejected:    true,
}

func requireHR(actor auth.UserContext) error {
	if !actor.IsHR() {
		return ErrForbidden
	}
	return nil
}

// ListSubmissions pages through the form records of a tenant, newest first.
// Sensitive identifiers in form data are masked.
func (s *Service) ListSubmissions(ctx context.Context, actor auth.UserContext, filter SubmissionFilter) ([]Submission, int, error) {
	if err := requireHR(actor); err != nil {
		return nil, 0, err
	}
	if filter.FormKey != "" {
		if _, err := Lookup(filter.FormKey); err != nil {
			return nil, 0, err
		}
	}
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, 0, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
		}
	}
	total, err := s.store.CountSubmissions(ctx, actor.TenantID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	subs, err := s.store.ListSubmissions(ctx, actor.TenantID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	for i := range subs {
		subs[i].FormData = Redact(subs[i].FormKey, subs[i].FormData)
	}
	return subs, total, nil
}

// ClearSubmission resets a record to not_started: its file is deleted and
// its data, signature and review are dropped.
func (s *Service) ClearSubmission(ctx context.Context, actor auth.UserContext, formKey, recordID string) (FormRecord, error) {
	if err := requireHR(actor); err != nil {
		return FormRecord{}, err
	}
	def, err := Lookup(formKey)
	if err != nil {
		return FormRecord{}, err
	}
	before, err := s.store.GetFormByID(ctx, actor.TenantID, recordID)
	if err != nil {
		return FormRecord{}, err
	}
	if before.FormKey != def.Key {
		return FormRecord{}, ErrFormNotFound
	}
	app, err := s.store.GetApplication(ctx, actor.TenantID, before.ApplicationID)
	if err != nil {
		return FormRecord{}, err
	}
	forms, err := s.formsByKey(ctx, actor.TenantID, app.ID)
	if err != nil {
		return FormRecord{}, err
	}

	rec := FormRecord{
		ID:            before.ID,
		ApplicationID: before.ApplicationID,
		FormKey:       before.FormKey,
		Status:        StatusNotStarted,
		CreatedAt:     before.CreatedAt,
	}
	saved, err := s.store.UpsertForm(ctx, actor.TenantID, rec)
	if err != nil {
		return FormRecord{}, fmt.Errorf("clear form: %w", err)
	}
	if before.UploadedFile != nil {
		s.deleteObject(ctx, before.UploadedFile.StoragePath)
	}
	if _, err := s.afterChange(ctx, actor.TenantID, app, forms, saved, false); err != nil {
		return FormRecord{}, err
	}

	if emp, err := s.employees.GetEmployee(ctx, actor.TenantID, app.EmployeeID); err == nil {
		s.notifyUser(ctx, actor.TenantID, emp.UserID, notifications.TypeFormCleared,
			def.Title+" needs to be completed again",
			fmt.Sprintf("HR cleared your %s submission. Please complete it again.", def.Title))
	}
	s.audit(ctx, actor, "onboarding.form.clear", saved.ID, auditView(before), auditView(saved))
	return saved, nil
}

// ReviewSubmission records an HR decision. Rejection drops the form from the
// completed set, so a data-only form counts as pending again. A form with an
// uploaded file still counts as done until HR clears it or the employee
// removes the upload.
func (s *Service) ReviewSubmission(ctx context.Context, actor auth.UserContext, in ReviewInput) (FormRecord, error) {
	if err := requireHR(actor); err != nil {
		return FormRecord{}, err
	}
	if !reviewStatuses[in.Status] {
		return FormRecord{}, fmt.Errorf("%w: %s", ErrInvalidStatus, in.Status)
	}
	before, err := s.store.GetFormByID(ctx, actor.TenantID, in.RecordID)
	if err != nil {
		return FormRecord{}, err
	}
	if before.Status == StatusNotStarted || before.Status == StatusDraft {
		return FormRecord{}, fmt.Errorf("%w: %s has not been submitted", ErrInvalidStatus, before.FormKey)
	}
	app, err := s.store.GetApplication(ctx, actor.TenantID, before.ApplicationID)
	if err != nil {
		return FormRecord{}, err
	}
	forms, err := s.formsByKey(ctx, actor.TenantID, app.ID)
	if err != nil {
		return FormRecord{}, err
	}

	now := s.Now().UTC()
	rec := before
	rec.Status = in.Status
	rec.ReviewNote = strings.TrimSpace(in.Note)
	rec.ReviewedBy = actor.UserID
	rec.ReviewedAt = &now

	saved, err := s.store.UpsertForm(ctx, actor.TenantID, rec)
	if err != nil {
		return FormRecord{}, fmt.Errorf("review form: %w", err)
	}
	if _, err := s.afterChange(ctx, actor.TenantID, app, forms, saved, in.Status != StatusRejected); err != nil {
		return FormRecord{}, err
	}

	title := formTitle(saved.FormKey)
	if emp, err := s.employees.GetEmployee(ctx, actor.TenantID, app.EmployeeID); err == nil {
		body := fmt.Sprintf("Your %s is now %s.", title, strings.ReplaceAll(string(in.Status), "_", " "))
		if rec.ReviewNote != "" {
			body += " Note: " + rec.ReviewNote
		}
		s.notifyUser(ctx, actor.TenantID, emp.UserID, notifications.TypeFormReviewed, title+" reviewed", body)
	}
	s.audit(ctx, actor, "onboarding.form.review", saved.ID, auditView(before), auditView(saved))
	return saved, nil
}

// UploadTemplate stores the blank PDF employees download for a form.
func (s *Service) UploadTemplate(ctx context.Context, actor auth.UserContext, formKey, filename string, content []byte) (Template, error) {
	if err := requireHR(actor); err != nil {
		return Template{}, err
	}
	def, err := Lookup(formKey)
	if err != nil {
		return Template{}, err
	}
	if !def.Template {
		return Template{}, ErrTemplateNotSupported
	}
	if err := CheckUpload(content, s.MaxUploadBytes); err != nil {
		return Template{}, err
	}

	key := templateObjectKey(actor.TenantID, def.Key)
	if err := s.objects.Put(ctx, key, pdfMIME, content); err != nil {
		return Template{}, fmt.Errorf("store template: %w", err)
	}
	tpl := Template{
		FormKey:     def.Key,
		Filename:    CleanFilename(filename, def.Slug+"-template.pdf"),
		StoragePath: key,
		Size:        int64(len(content)),
		UploadedBy:  actor.UserID,
		UploadedAt:  s.Now().UTC(),
	}
	if err := s.store.UpsertTemplate(ctx, actor.TenantID, tpl); err != nil {
		return Template{}, fmt.Errorf("save template: %w", err)
	}
	s.audit(ctx, actor, "onboarding.template.upload", def.Key, nil, map[string]any{
		"formKey":  tpl.FormKey,
		"filename": tpl.Filename,
		"size":     tpl.Size,
	})
	return tpl, nil
}

// DownloadTemplate is open to every authenticated user of the tenant.
func (s *Service) DownloadTemplate(ctx context.Context, actor auth.UserContext, formKey string) (Download, error) {
	def, err := Lookup(formKey)
	if err != nil {
		return Download{}, err
	}
	if !def.Template {
		return Download{}, ErrTemplateNotSupported
	}
	tpl, err := s.store.GetTemplate(ctx, actor.TenantID, def.Key)
	if err != nil {
		return Download{}, err
	}
	content, err := s.objects.Get(ctx, tpl.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return Download{}, ErrTemplateNotFound
		}
		return Download{}, fmt.Errorf("load template: %w", err)
	}
	return Download{Filename: tpl.Filename, Content: content}, nil
}

// SendDraftReminders notifies employees about drafts idle longer than
// DraftReminderAge. Each draft is reminded once until it is edited again.
func (s *Service) SendDraftReminders(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 200
	}
	now := s.Now().UTC()
	drafts, err := s.store.ListStaleDrafts(ctx, now.Add(-s.DraftReminderAge), limit)
	if err != nil {
		return 0, fmt.Errorf("list stale drafts: %w", err)
	}
	sent := 0
	for _, draft := range drafts {
		if draft.UserID != "" && s.Notifier != nil {
			title := formTitle(draft.FormKey)
			if err := s.Notifier.Create(ctx, draft.TenantID, draft.UserID, notifications.TypeDraftReminder,
				title+" is still a draft",
				fmt.Sprintf("You started %s on %s. Submit it to finish onboarding.", title, draft.UpdatedAt.Format("2006-01-02"))); err != nil {
				slog.Warn("draft reminder failed", "record_id", draft.RecordID, "err", err)
				continue
			}
			sent++
		}
		if err := s.store.MarkReminded(ctx, draft.TenantID, draft.RecordID, now); err != nil {
			return sent, fmt.Errorf("mark reminded: %w", err)
		}
	}
	return sent, nil
}

func formTitle(formKey string) string {
	if def, err := Lookup(formKey); err == nil {
		return def.Title
	}
	return formKey
}
