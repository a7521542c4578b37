package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"onboarding/internal/domain/onboarding"
	"onboarding/internal/domain/progress"
)

var (
	ErrSelectPDF      = onboarding.ErrNotPDF
	ErrNotLoaded      = errors.New("form is still loading")
	ErrBusy           = errors.New("a save or upload is already in progress")
	ErrNoFileSelected = errors.New("no file selected")
)

// State of one form page.
type State int

const (
	StateLoading State = iota
	StateReady
	StateSaving
	StateUploading
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSaving:
		return "saving"
	case StateUploading:
		return "uploading"
	case StateSubmitted:
		return "submitted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// API is the part of Client a FormSession drives.
type API interface {
	GetApplication(ctx context.Context, employeeID, profile string) (onboarding.ApplicationView, error)
	SaveForm(ctx context.Context, def onboarding.Definition, in onboarding.SaveInput, idempotencyKey string) (onboarding.SaveResult, error)
	UploadDocument(ctx context.Context, def onboarding.Definition, in onboarding.UploadInput) (onboarding.SaveResult, error)
	RemoveUpload(ctx context.Context, def onboarding.Definition, applicationID, employeeID string) (onboarding.SaveResult, error)
}

type SelectedFile struct {
	Name    string
	Content []byte
}

// FormSession is the submission flow of a single form:
//
//	Loading -> Ready -> {Saving, Uploading} -> Ready | Submitted
//
// Submitted is a display state; the form can be saved again. Failed calls
// return to Ready with local edits kept. Nothing is retried.
type FormSession struct {
	api          API
	def          onboarding.Definition
	employeeID   string
	requiredKeys []string

	mu        sync.Mutex
	state     State
	app       onboarding.Application
	forms     map[string]onboarding.FormRecord
	data      onboarding.FormData
	selected  *SelectedFile
	progress  progress.Result
	savedAt   time.Time
	submitKey string
	submitRaw []byte
}

// NewFormSession prepares the flow for formKey. requiredKeys is the list the
// local progress figure is computed against.
func NewFormSession(api API, formKey, employeeID string, requiredKeys []string) (*FormSession, error) {
	def, err := onboarding.Lookup(formKey)
	if err != nil {
		return nil, err
	}
	if employeeID == "" {
		employeeID = onboarding.SelfEmployeeID
	}
	return &FormSession{
		api:          api,
		def:          def,
		employeeID:   employeeID,
		requiredKeys: requiredKeys,
		state:        StateLoading,
		forms:        map[string]onboarding.FormRecord{},
	}, nil
}

func (s *FormSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *FormSession) Definition() onboarding.Definition {
	return s.def
}

func (s *FormSession) Progress() progress.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Record returns the server copy of this form, if one exists.
func (s *FormSession) Record() (onboarding.FormRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.forms[s.def.Key]
	return rec, ok
}

// Data is the local form state, saved or not.
func (s *FormSession) Data() onboarding.FormData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

func (s *FormSession) Selected() *SelectedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

func (s *FormSession) SavedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savedAt
}

// Load fetches the application. On failure the session stays Loading and
// the caller may call Load again.
func (s *FormSession) Load(ctx context.Context) error {
	view, err := s.api.GetApplication(ctx, s.employeeID, "")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.app = view.Application
	s.forms = view.Forms
	if s.forms == nil {
		s.forms = map[string]onboarding.FormRecord{}
	}
	if rec, ok := s.forms[s.def.Key]; ok && s.data == nil {
		if data, err := onboarding.DecodeFormData(s.def.Key, rec.FormData); err == nil {
			s.data = data
		}
	}
	s.state = StateReady
	s.recompute()
	return nil
}

// SaveDraft stores data without validation.
func (s *FormSession) SaveDraft(ctx context.Context, data onboarding.FormData) error {
	return s.save(ctx, data, onboarding.StatusDraft)
}

// Submit validates data locally first; an invalid payload is returned as a
// *onboarding.ValidationError and nothing is sent.
func (s *FormSession) Submit(ctx context.Context, data onboarding.FormData) error {
	if data == nil {
		return &onboarding.ValidationError{Issues: []onboarding.FieldIssue{{Field: "formData", Reason: "is required"}}}
	}
	if err := onboarding.ValidateForSubmit(data); err != nil {
		s.mu.Lock()
		s.data = data
		s.mu.Unlock()
		return err
	}
	return s.save(ctx, data, onboarding.StatusSubmitted)
}

func (s *FormSession) save(ctx context.Context, data onboarding.FormData, status onboarding.FormStatus) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode form data: %w", err)
	}

	s.mu.Lock()
	if err := s.begin(StateSaving); err != nil {
		s.mu.Unlock()
		return err
	}
	s.data = data
	in := onboarding.SaveInput{
		ApplicationID: s.app.ID,
		EmployeeID:    s.employeeIDForRequest(),
		FormKey:       s.def.Key,
		FormData:      raw,
		Status:        status,
	}
	key := ""
	if status == onboarding.StatusSubmitted {
		key = s.submissionKey(raw)
	}
	s.mu.Unlock()

	result, err := s.api.SaveForm(ctx, s.def, in, key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateReady
		return err
	}
	if status == onboarding.StatusSubmitted {
		s.submitKey, s.submitRaw = "", nil
	}
	s.apply(result)
	return nil
}

// SelectFile keeps content for Upload when it is a PDF. Anything else clears
// the selection.
func (s *FormSession) SelectFile(name string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	if !s.def.Uploadable {
		return onboarding.ErrUploadNotSupported
	}
	if !onboarding.DetectPDF(content) {
		return ErrSelectPDF
	}
	s.selected = &SelectedFile{Name: name, Content: content}
	return nil
}

// Upload sends the selected PDF. The selection is kept when the upload fails.
func (s *FormSession) Upload(ctx context.Context) error {
	s.mu.Lock()
	if s.selected == nil {
		s.mu.Unlock()
		return ErrNoFileSelected
	}
	if err := s.begin(StateUploading); err != nil {
		s.mu.Unlock()
		return err
	}
	file := *s.selected
	in := onboarding.UploadInput{
		ApplicationID: s.app.ID,
		EmployeeID:    s.employeeIDForRequest(),
		FormKey:       s.def.Key,
		Filename:      file.Name,
		Content:       file.Content,
	}
	s.mu.Unlock()

	result, err := s.api.UploadDocument(ctx, s.def, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateReady
		return err
	}
	s.selected = nil
	s.apply(result)
	return nil
}

// RemoveUpload deletes the uploaded document of this form.
func (s *FormSession) RemoveUpload(ctx context.Context) error {
	s.mu.Lock()
	if err := s.begin(StateSaving); err != nil {
		s.mu.Unlock()
		return err
	}
	appID, employeeID := s.app.ID, s.employeeIDForRequest()
	s.mu.Unlock()

	result, err := s.api.RemoveUpload(ctx, s.def, appID, employeeID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateReady
		return err
	}
	s.apply(result)
	return nil
}

// begin moves into a busy state. Callers hold mu.
func (s *FormSession) begin(next State) error {
	switch s.state {
	case StateLoading:
		return ErrNotLoaded
	case StateSaving, StateUploading:
		return ErrBusy
	}
	s.state = next
	return nil
}

// submissionKey reuses the key of a failed submission of the same payload so
// a manual retry is deduplicated server-side.
func (s *FormSession) submissionKey(raw []byte) string {
	if s.submitKey != "" && bytes.Equal(s.submitRaw, raw) {
		return s.submitKey
	}
	s.submitKey = uuid.NewString()
	s.submitRaw = raw
	return s.submitKey
}

func (s *FormSession) employeeIDForRequest() string {
	if s.app.EmployeeID != "" {
		return s.app.EmployeeID
	}
	if s.employeeID == onboarding.SelfEmployeeID {
		return ""
	}
	return s.employeeID
}

// apply records a successful write. Callers hold mu.
func (s *FormSession) apply(result onboarding.SaveResult) {
	rec := result.Form
	s.forms[rec.FormKey] = rec
	done := progress.IsDone(rec.Entry())
	s.app.CompletedForms = withKey(s.app.CompletedForms, rec.FormKey, done)
	s.savedAt = time.Now()
	s.state = StateReady
	if done {
		s.state = StateSubmitted
	}
	s.recompute()
}

func (s *FormSession) recompute() {
	result, err := progress.Calculate(onboarding.Entries(s.forms), progress.CompletedSet(s.app.CompletedForms), s.requiredKeys)
	if err != nil {
		s.progress = progress.Result{}
		return
	}
	s.progress = result
}

func withKey(keys []string, key string, present bool) []string {
	out := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	if present {
		out = append(out, key)
	}
	return out
}
