// Package onboardingtest provides in-memory doubles for onboarding service
// and handler tests.
package onboardingtest

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"onboarding/internal/domain/onboarding"
)

// Store is an in-memory onboarding.StoreAPI.
type Store struct {
	mu        sync.Mutex
	seq       int
	apps      map[string]onboarding.Application
	forms     map[string]onboarding.FormRecord
	templates map[string]onboarding.Template
	reminded  map[string]time.Time
	Employees *Employees
}

func NewStore(employees *Employees) *Store {
	return &Store{
		apps:      map[string]onboarding.Application{},
		forms:     map[string]onboarding.FormRecord{},
		templates: map[string]onboarding.Template{},
		reminded:  map[string]time.Time{},
		Employees: employees,
	}
}

func (s *Store) nextID(prefix string) string {
	s.seq++
	return prefix + "-" + strconv.Itoa(s.seq)
}

func (s *Store) EnsureApplication(_ context.Context, tenantID, employeeID string) (onboarding.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, app := range s.apps {
		if app.TenantID == tenantID && app.EmployeeID == employeeID {
			return cloneApp(app), nil
		}
	}
	now := time.Now().UTC()
	app := onboarding.Application{
		ID:             s.nextID("app"),
		TenantID:       tenantID,
		EmployeeID:     employeeID,
		CompletedForms: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.apps[app.ID] = app
	return cloneApp(app), nil
}

func (s *Store) GetApplication(_ context.Context, tenantID, applicationID string) (onboarding.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[applicationID]
	if !ok || app.TenantID != tenantID {
		return onboarding.Application{}, onboarding.ErrApplicationNotFound
	}
	return cloneApp(app), nil
}

func (s *Store) ApplicationByEmployee(_ context.Context, tenantID, employeeID string) (onboarding.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, app := range s.apps {
		if app.TenantID == tenantID && app.EmployeeID == employeeID {
			return cloneApp(app), nil
		}
	}
	return onboarding.Application{}, onboarding.ErrApplicationNotFound
}

func (s *Store) SetFormCompleted(_ context.Context, tenantID, applicationID, formKey string, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[applicationID]
	if !ok || app.TenantID != tenantID {
		return onboarding.ErrApplicationNotFound
	}
	keys := make([]string, 0, len(app.CompletedForms)+1)
	for _, key := range app.CompletedForms {
		if key != formKey {
			keys = append(keys, key)
		}
	}
	if completed {
		keys = append(keys, formKey)
	}
	app.CompletedForms = keys
	app.UpdatedAt = time.Now().UTC()
	s.apps[applicationID] = app
	return nil
}

func (s *Store) ListForms(_ context.Context, tenantID, applicationID string) ([]onboarding.FormRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []onboarding.FormRecord
	for _, rec := range s.forms {
		if rec.ApplicationID == applicationID && s.apps[applicationID].TenantID == tenantID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FormKey < out[j].FormKey })
	return out, nil
}

func (s *Store) GetForm(_ context.Context, tenantID, applicationID, formKey string) (onboarding.FormRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.forms {
		if rec.ApplicationID == applicationID && rec.FormKey == formKey && s.apps[applicationID].TenantID == tenantID {
			return rec, nil
		}
	}
	return onboarding.FormRecord{}, onboarding.ErrFormNotFound
}

func (s *Store) GetFormByID(_ context.Context, tenantID, recordID string) (onboarding.FormRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.forms[recordID]
	if !ok || s.apps[rec.ApplicationID].TenantID != tenantID {
		return onboarding.FormRecord{}, onboarding.ErrFormNotFound
	}
	return rec, nil
}

func (s *Store) UpsertForm(_ context.Context, _ string, rec onboarding.FormRecord) (onboarding.FormRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for id, existing := range s.forms {
		if existing.ApplicationID == rec.ApplicationID && existing.FormKey == rec.FormKey {
			rec.ID = id
			rec.CreatedAt = existing.CreatedAt
			rec.UpdatedAt = now
			s.forms[id] = rec
			delete(s.reminded, id)
			return rec, nil
		}
	}
	rec.ID = s.nextID("form")
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.forms[rec.ID] = rec
	return rec, nil
}

func (s *Store) ListSubmissions(_ context.Context, tenantID string, filter onboarding.SubmissionFilter) ([]onboarding.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := s.matching(tenantID, filter)
	if filter.Offset > len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	out := make([]onboarding.Submission, 0, len(matched))
	for _, rec := range matched {
		sub := onboarding.Submission{FormRecord: rec, EmployeeID: s.apps[rec.ApplicationID].EmployeeID}
		if s.Employees != nil {
			if emp, ok := s.Employees.byID[sub.EmployeeID]; ok {
				sub.EmployeeName = emp.FullName()
				sub.EmployeeEmail = emp.Email
			}
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *Store) CountSubmissions(_ context.Context, tenantID string, filter onboarding.SubmissionFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matching(tenantID, filter)), nil
}

func (s *Store) matching(tenantID string, filter onboarding.SubmissionFilter) []onboarding.FormRecord {
	var out []onboarding.FormRecord
	for _, rec := range s.forms {
		if s.apps[rec.ApplicationID].TenantID != tenantID {
			continue
		}
		if filter.FormKey != "" && rec.FormKey != filter.FormKey {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, rec.Status) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (s *Store) ListStaleDrafts(_ context.Context, olderThan time.Time, limit int) ([]onboarding.StaleDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []onboarding.StaleDraft
	for id, rec := range s.forms {
		if rec.Status != onboarding.StatusDraft || !rec.UpdatedAt.Before(olderThan) {
			continue
		}
		if _, done := s.reminded[id]; done {
			continue
		}
		app := s.apps[rec.ApplicationID]
		draft := onboarding.StaleDraft{
			TenantID:      app.TenantID,
			RecordID:      id,
			ApplicationID: app.ID,
			EmployeeID:    app.EmployeeID,
			FormKey:       rec.FormKey,
			UpdatedAt:     rec.UpdatedAt,
		}
		if s.Employees != nil {
			if emp, ok := s.Employees.byID[app.EmployeeID]; ok {
				draft.UserID = emp.UserID
			}
		}
		out = append(out, draft)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkReminded(_ context.Context, _, recordID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminded[recordID] = at
	return nil
}

func (s *Store) GetTemplate(_ context.Context, tenantID, formKey string) (onboarding.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tpl, ok := s.templates[tenantID+"/"+formKey]
	if !ok {
		return onboarding.Template{}, onboarding.ErrTemplateNotFound
	}
	return tpl, nil
}

func (s *Store) UpsertTemplate(_ context.Context, tenantID string, tpl onboarding.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[tenantID+"/"+tpl.FormKey] = tpl
	return nil
}

// Age moves a record's UpdatedAt into the past.
func (s *Store) Age(recordID string, by time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.forms[recordID]
	rec.UpdatedAt = rec.UpdatedAt.Add(-by)
	s.forms[recordID] = rec
}

func cloneApp(app onboarding.Application) onboarding.Application {
	app.CompletedForms = append([]string{}, app.CompletedForms...)
	return app
}

func containsStatus(statuses []onboarding.FormStatus, status onboarding.FormStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}
