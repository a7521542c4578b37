package onboarding_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"onboarding/internal/domain/auth"
	"onboarding/internal/domain/core"
	"onboarding/internal/domain/notifications"
	"onboarding/internal/domain/onboarding"
	"onboarding/internal/domain/onboarding/onboardingtest"
	"onboarding/internal/domain/progress"
	"onboarding/internal/platform/storage"
)

const tenant = "tenant-1"

var (
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

	jane = auth.UserContext{UserID: "user-jane", TenantID: tenant, RoleName: auth.RoleEmployee}
	bob  = auth.UserContext{UserID: "user-bob", TenantID: tenant, RoleName: auth.RoleEmployee}
	hr   = auth.UserContext{UserID: "user-hr", TenantID: tenant, RoleName: auth.RoleHR}
)

type fixture struct {
	svc       *onboarding.Service
	store     *onboardingtest.Store
	objects   *storage.MemoryStore
	notifier  *onboardingtest.Notifier
	auditor   *onboardingtest.Auditor
	publisher *onboardingtest.Publisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	employees := onboardingtest.NewEmployees(
		core.Employee{ID: "emp-jane", UserID: jane.UserID, FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Position: "PCA"},
		core.Employee{ID: "emp-bob", UserID: bob.UserID, FirstName: "Bob", LastName: "Roe", Email: "bob@example.com", Position: "CNA"},
	)
	store := onboardingtest.NewStore(employees)
	objects := storage.NewMemory()
	svc := onboarding.NewService(store, employees, objects, progress.DefaultProfiles())
	f := fixture{
		svc:       svc,
		store:     store,
		objects:   objects,
		notifier:  &onboardingtest.Notifier{},
		auditor:   &onboardingtest.Auditor{},
		publisher: &onboardingtest.Publisher{},
	}
	svc.Notifier = f.notifier
	svc.Audit = f.auditor
	svc.Events = f.publisher
	return f
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func signature() onboarding.SignatureBlock {
	return onboarding.SignatureBlock{EmployeeSignature: "Jane Doe", SignatureDate: "2026-01-15"}
}

func validI9() onboarding.I9Form {
	return onboarding.I9Form{
		LastName: "Doe", FirstName: "Jane", Address: "1 Main St", City: "Austin", State: "TX", ZipCode: "78701",
		DateOfBirth: "1990-04-02", SSN: "123456789", CitizenshipStatus: onboarding.CitizenshipCitizen,
		SignatureBlock: signature(),
	}
}

func validPersonalInfo() onboarding.PersonalInformation {
	return onboarding.PersonalInformation{
		FirstName: "Jane", LastName: "Doe", DateOfBirth: "1990-04-02", Phone: "555-0100",
		Address: "1 Main St", City: "Austin", State: "TX", ZipCode: "78701",
	}
}

func TestGetApplicationCreatesOnFirstAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.GetApplication(ctx, jane, onboarding.SelfEmployeeID, "")
	require.NoError(t, err)
	assert.NotEmpty(t, view.Application.ID)
	assert.Equal(t, "emp-jane", view.Application.EmployeeID)
	assert.Equal(t, 0, view.Progress.Percentage)
	assert.Equal(t, 20, view.Progress.TotalCount)
	assert.Equal(t, progress.ProfileStandard, view.Profile)

	again, err := f.svc.GetApplication(ctx, hr, "emp-jane", progress.ProfileExtended)
	require.NoError(t, err)
	assert.Equal(t, view.Application.ID, again.Application.ID)
	assert.Equal(t, 25, again.Progress.TotalCount)

	_, err = f.svc.GetApplication(ctx, jane, "", "nope")
	assert.ErrorIs(t, err, onboarding.ErrUnknownProfile)
}

func TestEmployeesOnlyReachTheirOwnApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetApplication(ctx, bob, "emp-jane", "")
	assert.ErrorIs(t, err, onboarding.ErrForbidden)

	_, err = f.svc.GetApplication(ctx, hr, "emp-missing", "")
	assert.ErrorIs(t, err, onboarding.ErrEmployeeNotFound)

	stranger := auth.UserContext{UserID: "user-x", TenantID: tenant, RoleName: auth.RoleEmployee}
	_, err = f.svc.GetApplication(ctx, stranger, onboarding.SelfEmployeeID, "")
	assert.ErrorIs(t, err, onboarding.ErrEmployeeNotFound)
}

func TestSaveDraftAcceptsPartialData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.SaveForm(ctx, jane, onboarding.SaveInput{
		FormKey:  progress.KeyI9Form,
		FormData: json.RawMessage(`{"firstName":"Jane"}`),
		Status:   onboarding.StatusDraft,
	})
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusDraft, res.Form.Status)
	assert.Nil(t, res.Form.Signature)
	assert.Equal(t, 0, res.Progress.CompletedCount)
	assert.Equal(t, 1, f.publisher.Len())
	assert.Empty(t, f.notifier.Sent)
	assert.Equal(t, []string{"onboarding.form.save"}, f.auditor.Actions())
}

func TestSubmitWithoutSignatureIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form := validI9()
	form.SignatureBlock = onboarding.SignatureBlock{}
	_, err := f.svc.SaveForm(ctx, jane, onboarding.SaveInput{
		FormKey:  progress.KeyI9Form,
		FormData: mustJSON(t, form),
		Status:   onboarding.StatusSubmitted,
	})
	var verr *onboarding.ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	assert.Equal(t, []string{"employeeSignature", "signatureDate"}, verr.Fields())

	view, err := f.svc.GetApplication(ctx, jane, onboarding.SelfEmployeeID, "")
	require.NoError(t, err)
	assert.Empty(t, view.Forms)
	assert.Equal(t, 0, f.publisher.Len())
}

func TestSubmitUpdatesProgressAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.GetApplication(ctx, jane, onboarding.SelfEmployeeID, "")
	require.NoError(t, err)

	res, err := f.svc.SaveForm(ctx, jane, onboarding.SaveInput{
		ApplicationID: view.Application.ID,
		EmployeeID:    "emp-jane",
		FormKey:       progress.KeyI9Form,
		FormData:      mustJSON(t, validI9()),
		Status:        onboarding.StatusSubmitted,
	})
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusSubmitted, res.Form.Status)
	require.NotNil(t, res.Form.Signature)
	assert.Equal(t, "Jane Doe", res.Form.Signature.Value)
	require.NotNil(t, res.Form.SubmittedAt)
	assert.Equal(t, 1, res.Progress.CompletedCount)
	assert.Equal(t, 5, res.Progress.Percentage)

	event, ok := f.publisher.Last()
	require.True(t, ok)
	assert.Equal(t, progress.KeyI9Form, event.FormKey)
	assert.Equal(t, "submitted", event.Status)
	assert.Equal(t, 5, event.Percentage)
	assert.Equal(t, "emp-jane", event.EmployeeID)

	require.Len(t, f.notifier.Sent, 1)
	assert.Equal(t, auth.RoleHR, f.notifier.Sent[0].Role)
	assert.Equal(t, notifications.TypeFormSubmitted, f.notifier.Sent[0].Type)

	app, err := f.store.GetApplication(ctx, tenant, view.Application.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{progress.KeyI9Form}, app.CompletedForms)
}

func TestSaveRejectsMismatchedApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bobView, err := f.svc.GetApplication(ctx, bob, onboarding.SelfEmployeeID, "")
	require.NoError(t, err)

	_, err = f.svc.SaveForm(ctx, jane, onboarding.SaveInput{
		ApplicationID: bobView.Application.ID,
		FormKey:       progress.KeyI9Form,
		Status:        onboarding.StatusDraft,
	})
	assert.ErrorIs(t, err, onboarding.ErrForbidden)

	_, err = f.svc.SaveForm(ctx, hr, onboarding.SaveInput{
		ApplicationID: bobView.Application.ID,
		EmployeeID:    "emp-jane",
		FormKey:       progress.KeyI9Form,
		Status:        onboarding.StatusDraft,
	})
	assert.ErrorIs(t, err, onboarding.ErrApplicationMismatch)

	_, err = f.svc.SaveForm(ctx, jane, onboarding.SaveInput{FormKey: progress.KeyI9Form, Status: onboarding.StatusApproved})
	assert.ErrorIs(t, err, onboarding.ErrInvalidStatus)

	_, err = f.svc.SaveForm(ctx, jane, onboarding.SaveInput{FormKey: "favouriteColour"})
	assert.ErrorIs(t, err, onboarding.ErrUnknownForm)
}

func TestPrerequisitesGateForms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SaveForm(ctx, jane, onboarding.SaveInput{FormKey: progress.KeyW9Form, Status: onboarding.StatusDraft})
	var perr *onboarding.PrerequisiteError
	require.True(t, errors.As(err, &perr), "expected prerequisite error, got %v", err)
	assert.Equal(t, []string{progress.KeyPersonalInformation}, perr.Missing)
	assert.ErrorIs(t, err, onboarding.ErrPrerequisitesMissing)

	_, err = f.svc.SaveForm(ctx, jane, onboarding.SaveInput{
		FormKey:  progress.KeyPersonalInformation,
		FormData: mustJSON(t, validPersonalInfo()),
		Status:   onboarding.StatusSubmitted,
	})
	require.NoError(t, err)

	_, err = f.svc.SaveForm(ctx, jane, onboarding.SaveInput{FormKey: progress.KeyW9Form, Status: onboarding.StatusDraft})
	assert.NoError(t, err)
}

func TestTrainingVideoUnlockedByPositionJobDescription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ack := onboarding.Acknowledgment{EmployeeName: "Bob Roe", Acknowledged: true, SignatureBlock: signature()}
	_, err := f.svc.SaveForm(ctx, bob, onboarding.SaveInput{
		FormKey: progress.KeyJobDescriptionCNA, FormData: mustJSON(t, ack), Status: onboarding.StatusSubmitted,
	})
	require.NoError(t, err)

	items := map[string]bool{}
	for _, item := range onboarding.OrientationItems {
		items[item] = true
	}
	_, err = f.svc.SaveForm(ctx, bob, onboarding.SaveInput{
		FormKey:  progress.KeyOrientationChecklist,
		FormData: mustJSON(t, onboarding.OrientationChecklist{Items: items, SignatureBlock: signature()}),
		Status:   onboarding.StatusSubmitted,
	})
	require.NoError(t, err)

	res, err := f.svc.SaveForm(ctx, bob, onboarding.SaveInput{
		FormKey:  progress.KeyTrainingVideo,
		FormData: mustJSON(t, onboarding.TrainingVideo{VideoID: "intro", WatchedSeconds: 60, DurationSeconds: 60, Acknowledged: true}),
		Status:   onboarding.StatusSubmitted,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Progress.CompletedCount)
	assert.Equal(t, 15, res.Progress.Percentage)

	key, err := f.svc.JobDescriptionKey(ctx, bob, onboarding.SelfEmployeeID)
	require.NoError(t, err)
	assert.Equal(t, progress.KeyJobDescriptionCNA, key)
}

func TestJobDescriptionMustMatchPosition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ack := onboarding.Acknowledgment{EmployeeName: "Bob Roe", Acknowledged: true, SignatureBlock: signature()}

	// Bob is a CNA; a stray PCA draft would otherwise shadow his CNA record.
	_, err := f.svc.SaveForm(ctx, bob, onboarding.SaveInput{
		FormKey: progress.KeyJobDescriptionPCA, FormData: mustJSON(t, onboarding.Acknowledgment{}), Status: onboarding.StatusDraft,
	})
	require.ErrorIs(t, err, onboarding.ErrWrongJobDescription)

	_, err = f.svc.SaveForm(ctx, hr, onboarding.SaveInput{
		EmployeeID: "emp-bob", FormKey: progress.KeyJobDescriptionRN, FormData: mustJSON(t, ack), Status: onboarding.StatusSubmitted,
	})
	require.ErrorIs(t, err, onboarding.ErrWrongJobDescription)

	res, err := f.svc.SaveForm(ctx, bob, onboarding.SaveInput{
		FormKey: progress.KeyJobDescriptionCNA, FormData: mustJSON(t, ack), Status: onboarding.StatusSubmitted,
	})
	require.NoError(t, err)
	assert.Contains(t, res.Progress.Done, progress.KeyJobDescriptionPCA)
	assert.Equal(t, 5, res.Progress.Percentage)

	view, err := f.svc.GetApplication(ctx, bob, onboarding.SelfEmployeeID, "")
	require.NoError(t, err)
	assert.NotContains(t, view.Forms, progress.KeyJobDescriptionPCA)
	assert.NotContains(t, view.Progress.Pending, progress.KeyJobDescriptionPCA)

	_, err = f.svc.SaveForm(ctx, jane, onboarding.SaveInput{
		FormKey: progress.KeyJobDescriptionCNA, FormData: mustJSON(t, onboarding.Acknowledgment{}), Status: onboarding.StatusDraft,
	})
	assert.ErrorIs(t, err, onboarding.ErrWrongJobDescription)
}

func TestUploadAndRemoveDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UploadDocument(ctx, jane, onboarding.UploadInput{
		FormKey: progress.KeyCPRCertificate, Filename: "cpr.png", Content: []byte("\x89PNG\r\n\x1a\n0000IHDR"),
	})
	assert.ErrorIs(t, err, onboarding.ErrNotPDF)
	assert.Equal(t, 0, f.objects.Len())

	_, err = f.svc.UploadDocument(ctx, jane, onboarding.UploadInput{
		FormKey: progress.KeyEmergencyContact, Filename: "x.pdf", Content: pdfBytes,
	})
	assert.ErrorIs(t, err, onboarding.ErrUploadNotSupported)

	f.svc.MaxUploadBytes = 10
	_, err = f.svc.UploadDocument(ctx, jane, onboarding.UploadInput{FormKey: progress.KeyCPRCertificate, Content: pdfBytes})
	assert.ErrorIs(t, err, onboarding.ErrFileTooLarge)
	f.svc.MaxUploadBytes = 1 << 20

	res, err := f.svc.UploadDocument(ctx, jane, onboarding.UploadInput{
		FormKey: progress.KeyCPRCertificate, Filename: "../cpr card.pdf", Content: pdfBytes,
	})
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusSubmitted, res.Form.Status)
	require.NotNil(t, res.Form.UploadedFile)
	assert.Equal(t, "cpr card.pdf", res.Form.UploadedFile.Filename)
	assert.Equal(t, int64(len(pdfBytes)), res.Form.UploadedFile.Size)
	assert.Equal(t, 1, res.Progress.CompletedCount)

	replaced, err := f.svc.UploadDocument(ctx, jane, onboarding.UploadInput{FormKey: progress.KeyCPRCertificate, Content: pdfBytes})
	require.NoError(t, err)
	assert.Equal(t, 1, f.objects.Len())
	assert.Equal(t, "cpr-certificate.pdf", replaced.Form.UploadedFile.Filename)

	dl, err := f.svc.DownloadUpload(ctx, hr, "emp-jane", progress.KeyCPRCertificate)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, dl.Content)

	_, err = f.svc.DownloadUpload(ctx, bob, "emp-jane", progress.KeyCPRCertificate)
	assert.ErrorIs(t, err, onboarding.ErrForbidden)

	removed, err := f.svc.RemoveUpload(ctx, jane, "", "", progress.KeyCPRCertificate)
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusNotStarted, removed.Form.Status)
	assert.Nil(t, removed.Form.UploadedFile)
	assert.Equal(t, 0, removed.Progress.CompletedCount)
	assert.Equal(t, 0, f.objects.Len())

	_, err = f.svc.RemoveUpload(ctx, jane, "", "", progress.KeyCPRCertificate)
	assert.ErrorIs(t, err, onboarding.ErrNoUpload)
	_, err = f.svc.DownloadUpload(ctx, jane, onboarding.SelfEmployeeID, progress.KeyCPRCertificate)
	assert.ErrorIs(t, err, onboarding.ErrNoUpload)
}

func TestRemoveUploadKeepsDraftData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SaveForm(ctx, jane, onboarding.SaveInput{
		FormKey: progress.KeyI9Form, FormData: json.RawMessage(`{"firstName":"Jane"}`),
	})
	require.NoError(t, err)
	_, err = f.svc.UploadDocument(ctx, jane, onboarding.UploadInput{FormKey: progress.KeyI9Form, Content: pdfBytes})
	require.NoError(t, err)

	removed, err := f.svc.RemoveUpload(ctx, jane, "", "", progress.KeyI9Form)
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusDraft, removed.Form.Status)
}

func submitI9(t *testing.T, f fixture, actor auth.UserContext) onboarding.FormRecord {
	t.Helper()
	res, err := f.svc.SaveForm(context.Background(), actor, onboarding.SaveInput{
		FormKey: progress.KeyI9Form, FormData: mustJSON(t, validI9()), Status: onboarding.StatusSubmitted,
	})
	require.NoError(t, err)
	return res.Form
}

func TestListSubmissionsMasksIdentifiers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	submitI9(t, f, jane)

	_, _, err := f.svc.ListSubmissions(ctx, jane, onboarding.SubmissionFilter{})
	assert.ErrorIs(t, err, onboarding.ErrForbidden)

	subs, total, err := f.svc.ListSubmissions(ctx, hr, onboarding.SubmissionFilter{FormKey: progress.KeyI9Form, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, subs, 1)
	assert.Equal(t, "Jane Doe", subs[0].EmployeeName)

	var form onboarding.I9Form
	require.NoError(t, json.Unmarshal(subs[0].FormData, &form))
	assert.Equal(t, "*****6789", form.SSN)

	_, _, err = f.svc.ListSubmissions(ctx, hr, onboarding.SubmissionFilter{Statuses: []onboarding.FormStatus{"lost"}})
	assert.ErrorIs(t, err, onboarding.ErrInvalidStatus)
}

func TestClearSubmissionResetsRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := submitI9(t, f, jane)
	_, err := f.svc.UploadDocument(ctx, jane, onboarding.UploadInput{FormKey: progress.KeyI9Form, Content: pdfBytes})
	require.NoError(t, err)

	_, err = f.svc.ClearSubmission(ctx, jane, progress.KeyI9Form, rec.ID)
	assert.ErrorIs(t, err, onboarding.ErrForbidden)
	_, err = f.svc.ClearSubmission(ctx, hr, progress.KeyW9Form, rec.ID)
	assert.ErrorIs(t, err, onboarding.ErrFormNotFound)

	cleared, err := f.svc.ClearSubmission(ctx, hr, progress.KeyI9Form, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, cleared.ID)
	assert.Equal(t, onboarding.StatusNotStarted, cleared.Status)
	assert.Nil(t, cleared.UploadedFile)
	assert.Nil(t, cleared.Signature)
	assert.Empty(t, cleared.FormData)
	assert.Equal(t, 0, f.objects.Len())

	view, err := f.svc.GetApplication(ctx, jane, onboarding.SelfEmployeeID, "")
	require.NoError(t, err)
	assert.Empty(t, view.Application.CompletedForms)
	assert.Equal(t, 0, view.Progress.Percentage)
	assert.Contains(t, f.notifier.Types(), notifications.TypeFormCleared)
	assert.Contains(t, f.auditor.Actions(), "onboarding.form.clear")
}

func TestReviewSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := submitI9(t, f, jane)

	_, err := f.svc.ReviewSubmission(ctx, hr, onboarding.ReviewInput{RecordID: rec.ID, Status: onboarding.StatusDraft})
	assert.ErrorIs(t, err, onboarding.ErrInvalidStatus)

	reviewed, err := f.svc.ReviewSubmission(ctx, hr, onboarding.ReviewInput{RecordID: rec.ID, Status: onboarding.StatusRejected, Note: " wrong date "})
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusRejected, reviewed.Status)
	assert.Equal(t, "wrong date", reviewed.ReviewNote)
	assert.Equal(t, hr.UserID, reviewed.ReviewedBy)

	view, err := f.svc.GetApplication(ctx, jane, onboarding.SelfEmployeeID, "")
	require.NoError(t, err)
	assert.Equal(t, 0, view.Progress.CompletedCount)

	last := f.notifier.Sent[len(f.notifier.Sent)-1]
	assert.Equal(t, jane.UserID, last.UserID)
	assert.Equal(t, notifications.TypeFormReviewed, last.Type)
	assert.Contains(t, last.Body, "wrong date")

	approved, err := f.svc.ReviewSubmission(ctx, hr, onboarding.ReviewInput{RecordID: rec.ID, Status: onboarding.StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, onboarding.StatusApproved, approved.Status)
	view, err = f.svc.GetApplication(ctx, jane, onboarding.SelfEmployeeID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, view.Progress.CompletedCount)
}

func TestRejectedUploadStillCountsAsDone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.UploadDocument(ctx, jane, onboarding.UploadInput{FormKey: progress.KeyCPRCertificate, Content: pdfBytes})
	require.NoError(t, err)

	_, err = f.svc.ReviewSubmission(ctx, hr, onboarding.ReviewInput{RecordID: res.Form.ID, Status: onboarding.StatusRejected})
	require.NoError(t, err)

	view, err := f.svc.GetApplication(ctx, jane, onboarding.SelfEmployeeID, "")
	require.NoError(t, err)
	assert.NotContains(t, view.Application.CompletedForms, progress.KeyCPRCertificate)
	assert.Equal(t, []string{progress.KeyCPRCertificate}, view.Progress.Done)
	assert.Equal(t, 5, view.Progress.Percentage)

	_, err = f.svc.ClearSubmission(ctx, hr, progress.KeyCPRCertificate, res.Form.ID)
	require.NoError(t, err)
	view, err = f.svc.GetApplication(ctx, jane, onboarding.SelfEmployeeID, "")
	require.NoError(t, err)
	assert.Empty(t, view.Progress.Done)
}

func TestTemplates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.DownloadTemplate(ctx, jane, progress.KeyI9Form)
	assert.ErrorIs(t, err, onboarding.ErrTemplateNotFound)

	_, err = f.svc.UploadTemplate(ctx, jane, progress.KeyI9Form, "i9.pdf", pdfBytes)
	assert.ErrorIs(t, err, onboarding.ErrForbidden)
	_, err = f.svc.UploadTemplate(ctx, hr, progress.KeyCPRCertificate, "cpr.pdf", pdfBytes)
	assert.ErrorIs(t, err, onboarding.ErrTemplateNotSupported)

	tpl, err := f.svc.UploadTemplate(ctx, hr, progress.KeyI9Form, "i-9 blank.pdf", pdfBytes)
	require.NoError(t, err)
	assert.Equal(t, "i-9 blank.pdf", tpl.Filename)

	dl, err := f.svc.DownloadTemplate(ctx, jane, progress.KeyI9Form)
	require.NoError(t, err)
	assert.Equal(t, "i-9 blank.pdf", dl.Filename)
	assert.Equal(t, pdfBytes, dl.Content)
}

func TestSendDraftReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.SaveForm(ctx, jane, onboarding.SaveInput{FormKey: progress.KeyI9Form, FormData: json.RawMessage(`{}`)})
	require.NoError(t, err)

	sent, err := f.svc.SendDraftReminders(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	f.store.Age(res.Form.ID, 100*time.Hour)
	sent, err = f.svc.SendDraftReminders(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Contains(t, f.notifier.Types(), notifications.TypeDraftReminder)

	sent, err = f.svc.SendDraftReminders(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestExportSubmissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	submitI9(t, f, jane)

	dl, err := f.svc.ExportSubmissions(ctx, hr, progress.KeyI9Form)
	require.NoError(t, err)
	assert.Equal(t, "i9-form-submissions.xlsx", dl.Filename)

	book, err := excelize.OpenReader(bytes.NewReader(dl.Content))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows("Form I-9")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Employee", rows[0][0])
	assert.Equal(t, "Jane Doe", rows[1][0])
	assert.Equal(t, "submitted", rows[1][3])
	assert.NotContains(t, rows[1][9], "123456789")

	_, err = f.svc.ExportSubmissions(ctx, jane, progress.KeyI9Form)
	assert.ErrorIs(t, err, onboarding.ErrForbidden)
}

func TestSummaryPDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	submitI9(t, f, jane)

	dl, err := f.svc.SummaryPDF(ctx, hr, "emp-jane", "")
	require.NoError(t, err)
	assert.True(t, onboarding.DetectPDF(dl.Content))
	assert.Equal(t, "onboarding-summary-emp-jane.pdf", dl.Filename)

	_, err = f.svc.SummaryPDF(ctx, jane, "emp-jane", "")
	assert.ErrorIs(t, err, onboarding.ErrForbidden)
}
