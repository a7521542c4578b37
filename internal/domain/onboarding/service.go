package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"onboarding/internal/domain/auth"
	"onboarding/internal/domain/core"
	"onboarding/internal/domain/events"
	"onboarding/internal/domain/progress"
	"onboarding/internal/platform/storage"
	"onboarding/internal/requestctx"
)

// SelfEmployeeID lets a caller address their own application without knowing
// their employee ID.
const SelfEmployeeID = "me"

var ErrUnknownProfile = errors.New("unknown form key profile")

type EmployeeDirectory interface {
	GetEmployee(ctx context.Context, tenantID, employeeID string) (*core.Employee, error)
	GetEmployeeByUserID(ctx context.Context, tenantID, userID string) (*core.Employee, error)
}

type Notifier interface {
	Create(ctx context.Context, tenantID, userID, ntype, title, body string) error
	CreateForRole(ctx context.Context, tenantID, roleName, ntype, title, body string) error
}

type Auditor interface {
	Record(ctx context.Context, tenantID, actorID, action, entityType, entityID, requestID, ip string, before, after any) error
}

type Service struct {
	store     StoreAPI
	employees EmployeeDirectory
	objects   storage.ObjectStore
	profiles  progress.Profiles

	Events           events.Publisher
	Notifier         Notifier
	Audit            Auditor
	MaxUploadBytes   int64
	DraftReminderAge time.Duration
	Now              func() time.Time
}

func NewService(store StoreAPI, employees EmployeeDirectory, objects storage.ObjectStore, profiles progress.Profiles) *Service {
	return &Service{
		store:            store,
		employees:        employees,
		objects:          objects,
		profiles:         profiles,
		MaxUploadBytes:   10 << 20,
		DraftReminderAge: 72 * time.Hour,
		Now:              time.Now,
	}
}

// SaveResult is returned by every operation that changes a form record.
type SaveResult struct {
	Form     FormRecord      `json:"form"`
	Progress progress.Result `json:"progress"`
}

func (s *Service) Profiles() progress.Profiles {
	return s.profiles
}

// GetApplication returns the employee's application, creating it on first
// access, with every form record and the computed progress.
func (s *Service) GetApplication(ctx context.Context, actor auth.UserContext, employeeID, profile string) (ApplicationView, error) {
	keys, profileName, err := s.requiredKeys(profile)
	if err != nil {
		return ApplicationView{}, err
	}
	emp, err := s.authorize(ctx, actor, employeeID)
	if err != nil {
		return ApplicationView{}, err
	}
	app, err := s.store.EnsureApplication(ctx, actor.TenantID, emp.ID)
	if err != nil {
		return ApplicationView{}, fmt.Errorf("ensure application: %w", err)
	}
	forms, err := s.formsByKey(ctx, actor.TenantID, app.ID)
	if err != nil {
		return ApplicationView{}, err
	}
	result, err := progress.Calculate(Entries(forms), progress.CompletedSet(app.CompletedForms), keys)
	if err != nil {
		return ApplicationView{}, err
	}
	return ApplicationView{Application: app, Forms: forms, Progress: result, Profile: profileName}, nil
}

func (s *Service) Progress(ctx context.Context, actor auth.UserContext, employeeID, profile string) (progress.Result, error) {
	view, err := s.GetApplication(ctx, actor, employeeID, profile)
	if err != nil {
		return progress.Result{}, err
	}
	return view.Progress, nil
}

// JobDescriptionKey names the job-description form the employee should sign.
func (s *Service) JobDescriptionKey(ctx context.Context, actor auth.UserContext, employeeID string) (string, error) {
	emp, err := s.authorize(ctx, actor, employeeID)
	if err != nil {
		return "", err
	}
	return progress.JobDescriptionKeyForPosition(emp.Position), nil
}

func (s *Service) requiredKeys(profile string) ([]string, string, error) {
	keys, err := s.profiles.Keys(profile)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownProfile, profile)
	}
	if profile == "" {
		profile = s.profiles.Default
	}
	return keys, profile, nil
}

// authorize loads the employee and checks the actor may act on their
// application: HR on anyone in the tenant, employees only on themselves.
func (s *Service) authorize(ctx context.Context, actor auth.UserContext, employeeID string) (*core.Employee, error) {
	var emp *core.Employee
	var err error
	if employeeID == "" || employeeID == SelfEmployeeID {
		emp, err = s.employees.GetEmployeeByUserID(ctx, actor.TenantID, actor.UserID)
	} else {
		emp, err = s.employees.GetEmployee(ctx, actor.TenantID, employeeID)
	}
	if err != nil {
		if errors.Is(err, core.ErrEmployeeNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("load employee: %w", err)
	}
	if actor.IsHR() {
		return emp, nil
	}
	if emp.UserID == "" || emp.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	return emp, nil
}

// resolveApplication finds the application addressed by a mutating request.
// Either ID may be empty; when both are given they must agree.
func (s *Service) resolveApplication(ctx context.Context, actor auth.UserContext, applicationID, employeeID string) (Application, *core.Employee, error) {
	if employeeID == "" && applicationID != "" {
		app, err := s.store.GetApplication(ctx, actor.TenantID, applicationID)
		if err != nil {
			return Application{}, nil, err
		}
		employeeID = app.EmployeeID
	}
	emp, err := s.authorize(ctx, actor, employeeID)
	if err != nil {
		return Application{}, nil, err
	}
	app, err := s.store.EnsureApplication(ctx, actor.TenantID, emp.ID)
	if err != nil {
		return Application{}, nil, fmt.Errorf("ensure application: %w", err)
	}
	if applicationID != "" && applicationID != app.ID {
		return Application{}, nil, ErrApplicationMismatch
	}
	return app, emp, nil
}

func (s *Service) formsByKey(ctx context.Context, tenantID, applicationID string) (map[string]FormRecord, error) {
	records, err := s.store.ListForms(ctx, tenantID, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	out := make(map[string]FormRecord, len(records))
	for _, rec := range records {
		out[rec.FormKey] = rec
	}
	return out, nil
}

// checkPrerequisites enforces the gating of a form on the forms before it.
func checkPrerequisites(def Definition, app Application, forms map[string]FormRecord) error {
	if len(def.Prerequisites) == 0 {
		return nil
	}
	entries := Entries(forms)
	completed := progress.CompletedSet(app.CompletedForms)
	var missing []string
	for _, key := range def.Prerequisites {
		if !progress.KeyDone(entries, completed, key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &PrerequisiteError{FormKey: def.Key, Missing: missing}
	}
	return nil
}

// checkJobDescription admits only the job-description variant that matches
// the employee's position. Other forms pass.
func checkJobDescription(def Definition, emp *core.Employee) error {
	if !slices.Contains(progress.JobDescriptionVariants(), def.Key) {
		return nil
	}
	want := progress.JobDescriptionKeyForPosition(emp.Position)
	if def.Key != want {
		return fmt.Errorf("%w: %s applies, not %s", ErrWrongJobDescription, want, def.Key)
	}
	return nil
}

// afterChange applies the completed-set update for rec, then publishes the
// new status with the default-profile percentage.
func (s *Service) afterChange(ctx context.Context, tenantID string, app Application, forms map[string]FormRecord, rec FormRecord, completed bool) (progress.Result, error) {
	if err := s.store.SetFormCompleted(ctx, tenantID, app.ID, rec.FormKey, completed); err != nil {
		return progress.Result{}, fmt.Errorf("update completed forms: %w", err)
	}
	app.CompletedForms = withCompleted(app.CompletedForms, rec.FormKey, completed)
	forms[rec.FormKey] = rec

	keys, err := s.profiles.Keys("")
	if err != nil {
		return progress.Result{}, err
	}
	result, err := progress.Calculate(Entries(forms), progress.CompletedSet(app.CompletedForms), keys)
	if err != nil {
		return progress.Result{}, err
	}

	if s.Events != nil {
		s.Events.Publish(ctx, events.FormStatusUpdated{
			TenantID:      tenantID,
			ApplicationID: app.ID,
			EmployeeID:    app.EmployeeID,
			FormKey:       rec.FormKey,
			Status:        string(rec.Status),
			Percentage:    result.Percentage,
			At:            s.Now().UTC(),
		})
	}
	return result, nil
}

func withCompleted(keys []string, key string, completed bool) []string {
	out := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	if completed {
		out = append(out, key)
	}
	return out
}

func (s *Service) notifyHR(ctx context.Context, tenantID, ntype, title, body string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.CreateForRole(ctx, tenantID, auth.RoleHR, ntype, title, body); err != nil {
		slog.Warn("notify hr failed", "type", ntype, "err", err)
	}
}

func (s *Service) notifyUser(ctx context.Context, tenantID, userID, ntype, title, body string) {
	if s.Notifier == nil || userID == "" {
		return
	}
	if err := s.Notifier.Create(ctx, tenantID, userID, ntype, title, body); err != nil {
		slog.Warn("notify user failed", "type", ntype, "user_id", userID, "err", err)
	}
}

func (s *Service) audit(ctx context.Context, actor auth.UserContext, action, entityID string, before, after any) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Record(ctx, actor.TenantID, actor.UserID, action, "onboarding_form", entityID,
		requestctx.GetRequestID(ctx), requestctx.GetClientIP(ctx), before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}

// auditView is what the audit trail keeps of a record: no payload.
func auditView(rec FormRecord) map[string]any {
	out := map[string]any{
		"formKey": rec.FormKey,
		"status":  rec.Status,
	}
	if rec.UploadedFile != nil {
		out["filename"] = rec.UploadedFile.Filename
		out["size"] = rec.UploadedFile.Size
	}
	if rec.ReviewNote != "" {
		out["reviewNote"] = rec.ReviewNote
	}
	return out
}

func hasFormData(raw []byte) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null" && trimmed != "{}"
}
