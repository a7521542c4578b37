package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"onboarding/internal/domain/auth"
	"onboarding/internal/domain/notifications"
	"onboarding/internal/platform/storage"
)

// SaveForm stores a draft or a final submission of one form. Drafts accept
// partial data; submissions are validated in full.
func (s *Service) SaveForm(ctx context.Context, actor auth.UserContext, in SaveInput) (SaveResult, error) {
	def, err := Lookup(in.FormKey)
	if err != nil {
		return SaveResult{}, err
	}
	if in.Status == "" {
		in.Status = StatusDraft
	}
	if in.Status != StatusDraft && in.Status != StatusSubmitted {
		return SaveResult{}, fmt.Errorf("%w: %s", ErrInvalidStatus, in.Status)
	}

	data, err := DecodeFormData(def.Key, in.FormData)
	if err != nil {
		return SaveResult{}, err
	}
	if in.Status == StatusSubmitted {
		if err := ValidateForSubmit(data); err != nil {
			return SaveResult{}, err
		}
	}

	app, emp, err := s.resolveApplication(ctx, actor, in.ApplicationID, in.EmployeeID)
	if err != nil {
		return SaveResult{}, err
	}
	forms, err := s.formsByKey(ctx, actor.TenantID, app.ID)
	if err != nil {
		return SaveResult{}, err
	}
	if err := checkJobDescription(def, emp); err != nil {
		return SaveResult{}, err
	}
	if err := checkPrerequisites(def, app, forms); err != nil {
		return SaveResult{}, err
	}

	canonical, err := json.Marshal(data)
	if err != nil {
		return SaveResult{}, fmt.Errorf("encode form data: %w", err)
	}

	before, existed := forms[def.Key]
	rec := before
	if !existed {
		rec = FormRecord{ApplicationID: app.ID, FormKey: def.Key}
	}
	rec.Status = in.Status
	rec.FormData = canonical
	rec.Signature = SignatureOf(data)
	if in.Status == StatusSubmitted {
		now := s.Now().UTC()
		rec.SubmittedAt = &now
		rec.ReviewNote = ""
		rec.ReviewedBy = ""
		rec.ReviewedAt = nil
	}

	saved, err := s.store.UpsertForm(ctx, actor.TenantID, rec)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save form: %w", err)
	}
	result, err := s.afterChange(ctx, actor.TenantID, app, forms, saved, in.Status == StatusSubmitted || saved.UploadedFile != nil)
	if err != nil {
		return SaveResult{}, err
	}

	action := "onboarding.form.save"
	if in.Status == StatusSubmitted {
		action = "onboarding.form.submit"
		s.notifyHR(ctx, actor.TenantID, notifications.TypeFormSubmitted,
			def.Title+" submitted",
			fmt.Sprintf("%s submitted %s.", emp.FullName(), def.Title))
	}
	var beforeView any
	if existed {
		beforeView = auditView(before)
	}
	s.audit(ctx, actor, action, saved.ID, beforeView, auditView(saved))
	return SaveResult{Form: saved, Progress: result}, nil
}

// UploadDocument stores a PDF for an uploadable form and marks it submitted.
// A previous upload for the same form is replaced.
func (s *Service) UploadDocument(ctx context.Context, actor auth.UserContext, in UploadInput) (SaveResult, error) {
	def, err := Lookup(in.FormKey)
	if err != nil {
		return SaveResult{}, err
	}
	if !def.Uploadable {
		return SaveResult{}, ErrUploadNotSupported
	}
	if err := CheckUpload(in.Content, s.MaxUploadBytes); err != nil {
		return SaveResult{}, err
	}

	app, emp, err := s.resolveApplication(ctx, actor, in.ApplicationID, in.EmployeeID)
	if err != nil {
		return SaveResult{}, err
	}
	forms, err := s.formsByKey(ctx, actor.TenantID, app.ID)
	if err != nil {
		return SaveResult{}, err
	}
	if err := checkJobDescription(def, emp); err != nil {
		return SaveResult{}, err
	}
	if err := checkPrerequisites(def, app, forms); err != nil {
		return SaveResult{}, err
	}

	key := uploadObjectKey(actor.TenantID, app.ID, def.Key, uuid.NewString())
	if err := s.objects.Put(ctx, key, pdfMIME, in.Content); err != nil {
		return SaveResult{}, fmt.Errorf("store upload: %w", err)
	}

	before, existed := forms[def.Key]
	rec := before
	if !existed {
		rec = FormRecord{ApplicationID: app.ID, FormKey: def.Key}
	}
	now := s.Now().UTC()
	rec.UploadedFile = &UploadedFile{
		Filename:    CleanFilename(in.Filename, def.Slug+".pdf"),
		StoragePath: key,
		Size:        int64(len(in.Content)),
		UploadedAt:  now,
	}
	rec.Status = StatusSubmitted
	rec.SubmittedAt = &now
	rec.ReviewNote = ""
	rec.ReviewedBy = ""
	rec.ReviewedAt = nil

	saved, err := s.store.UpsertForm(ctx, actor.TenantID, rec)
	if err != nil {
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			slog.Warn("orphaned upload cleanup failed", "key", key, "err", delErr)
		}
		return SaveResult{}, fmt.Errorf("save form: %w", err)
	}
	if existed && before.UploadedFile != nil {
		s.deleteObject(ctx, before.UploadedFile.StoragePath)
	}

	result, err := s.afterChange(ctx, actor.TenantID, app, forms, saved, true)
	if err != nil {
		return SaveResult{}, err
	}
	s.notifyHR(ctx, actor.TenantID, notifications.TypeFormSubmitted,
		def.Title+" uploaded",
		fmt.Sprintf("%s uploaded %s.", emp.FullName(), def.Title))

	var beforeView any
	if existed {
		beforeView = auditView(before)
	}
	s.audit(ctx, actor, "onboarding.form.upload", saved.ID, beforeView, auditView(saved))
	return SaveResult{Form: saved, Progress: result}, nil
}

// RemoveUpload deletes the uploaded file of a form. The record falls back to
// draft when it still holds form data, otherwise to not_started.
func (s *Service) RemoveUpload(ctx context.Context, actor auth.UserContext, applicationID, employeeID, formKey string) (SaveResult, error) {
	def, err := Lookup(formKey)
	if err != nil {
		return SaveResult{}, err
	}
	if !def.Uploadable {
		return SaveResult{}, ErrUploadNotSupported
	}
	app, _, err := s.resolveApplication(ctx, actor, applicationID, employeeID)
	if err != nil {
		return SaveResult{}, err
	}
	forms, err := s.formsByKey(ctx, actor.TenantID, app.ID)
	if err != nil {
		return SaveResult{}, err
	}
	before, ok := forms[def.Key]
	if !ok || before.UploadedFile == nil {
		return SaveResult{}, ErrNoUpload
	}

	rec := before
	rec.UploadedFile = nil
	rec.SubmittedAt = nil
	rec.ReviewNote = ""
	rec.ReviewedBy = ""
	rec.ReviewedAt = nil
	rec.Status = StatusNotStarted
	if hasFormData(rec.FormData) {
		rec.Status = StatusDraft
	}

	saved, err := s.store.UpsertForm(ctx, actor.TenantID, rec)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save form: %w", err)
	}
	s.deleteObject(ctx, before.UploadedFile.StoragePath)

	result, err := s.afterChange(ctx, actor.TenantID, app, forms, saved, false)
	if err != nil {
		return SaveResult{}, err
	}
	s.audit(ctx, actor, "onboarding.form.remove_upload", saved.ID, auditView(before), auditView(saved))
	return SaveResult{Form: saved, Progress: result}, nil
}

// DownloadUpload returns the PDF an employee uploaded for a form.
func (s *Service) DownloadUpload(ctx context.Context, actor auth.UserContext, employeeID, formKey string) (Download, error) {
	def, err := Lookup(formKey)
	if err != nil {
		return Download{}, err
	}
	emp, err := s.authorize(ctx, actor, employeeID)
	if err != nil {
		return Download{}, err
	}
	app, err := s.store.ApplicationByEmployee(ctx, actor.TenantID, emp.ID)
	if err != nil {
		return Download{}, err
	}
	rec, err := s.store.GetForm(ctx, actor.TenantID, app.ID, def.Key)
	if err != nil {
		if errors.Is(err, ErrFormNotFound) {
			return Download{}, ErrNoUpload
		}
		return Download{}, err
	}
	if rec.UploadedFile == nil {
		return Download{}, ErrNoUpload
	}
	content, err := s.objects.Get(ctx, rec.UploadedFile.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return Download{}, ErrNoUpload
		}
		return Download{}, fmt.Errorf("load upload: %w", err)
	}
	name := rec.UploadedFile.Filename
	if name == "" {
		name = downloadName(def, emp.ID)
	}
	return Download{Filename: name, Content: content}, nil
}

func (s *Service) deleteObject(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.objects.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		slog.Warn("delete stored object failed", "key", key, "err", err)
	}
}
