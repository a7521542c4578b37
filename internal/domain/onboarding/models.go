package onboarding

import (
	"encoding/json"
	"time"

	"onboarding/internal/domain/progress"
)

type FormStatus string

const (
	StatusNotStarted  FormStatus = "not_started"
	StatusDraft       FormStatus = "draft"
	StatusSubmitted   FormStatus = "submitted"
	StatusCompleted   FormStatus = "completed"
	StatusUnderReview FormStatus = "under_review"
	StatusApproved    FormStatus = "approved"
	StatusRejected    FormStatus = "rejected"
)

var AllStatuses = []FormStatus{
	StatusNotStarted,
	StatusDraft,
	StatusSubmitted,
	StatusCompleted,
	StatusUnderReview,
	StatusApproved,
	StatusRejected,
}

func (s FormStatus) Valid() bool {
	for _, candidate := range AllStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

type Application struct {
	ID             string    `json:"_id"`
	TenantID       string    `json:"-"`
	EmployeeID     string    `json:"employeeId"`
	CompletedForms []string  `json:"completedForms"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type UploadedFile struct {
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storagePath"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

type Signature struct {
	Value string     `json:"value"`
	Date  *time.Time `json:"date,omitempty"`
}

type FormRecord struct {
	ID            string          `json:"_id"`
	ApplicationID string          `json:"applicationId"`
	FormKey       string          `json:"formKey"`
	Status        FormStatus      `json:"status"`
	FormData      json.RawMessage `json:"formData,omitempty"`
	UploadedFile  *UploadedFile   `json:"uploadedFile,omitempty"`
	Signature     *Signature      `json:"signature,omitempty"`
	ReviewNote    string          `json:"reviewNote,omitempty"`
	ReviewedBy    string          `json:"reviewedBy,omitempty"`
	ReviewedAt    *time.Time      `json:"reviewedAt,omitempty"`
	SubmittedAt   *time.Time      `json:"submittedAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Entry projects the record onto what the progress calculator reads.
func (r FormRecord) Entry() progress.Entry {
	return progress.Entry{Status: string(r.Status), Uploaded: r.UploadedFile != nil}
}

// ApplicationView is the get-application payload: the application, every form
// record keyed by form key, and the computed progress.
type ApplicationView struct {
	Application Application           `json:"application"`
	Forms       map[string]FormRecord `json:"forms"`
	Progress    progress.Result       `json:"progress"`
	Profile     string                `json:"profile"`
}

// Entries converts a forms map for the progress calculator.
func Entries(forms map[string]FormRecord) map[string]progress.Entry {
	out := make(map[string]progress.Entry, len(forms))
	for key, rec := range forms {
		out[key] = rec.Entry()
	}
	return out
}

// Submission is one form record as listed for HR review.
type Submission struct {
	FormRecord
	EmployeeID    string `json:"employeeId"`
	EmployeeName  string `json:"employeeName"`
	EmployeeEmail string `json:"employeeEmail"`
}

type Template struct {
	FormKey     string    `json:"formKey"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storagePath"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploadedBy"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// StaleDraft identifies a draft that has not been touched for a while.
type StaleDraft struct {
	TenantID      string
	RecordID      string
	ApplicationID string
	EmployeeID    string
	UserID        string
	FormKey       string
	UpdatedAt     time.Time
}

type SaveInput struct {
	ApplicationID string          `json:"applicationId"`
	EmployeeID    string          `json:"employeeId"`
	FormKey       string          `json:"-"`
	FormData      json.RawMessage `json:"formData"`
	Status        FormStatus      `json:"status"`
}

type UploadInput struct {
	ApplicationID string
	EmployeeID    string
	FormKey       string
	Filename      string
	Content       []byte
}

type ReviewInput struct {
	RecordID string     `json:"-"`
	Status   FormStatus `json:"status"`
	Note     string     `json:"note"`
}

type SubmissionFilter struct {
	FormKey  string
	Statuses []FormStatus
	Limit    int
	Offset   int
}

// Download is a stored file handed back to a caller.
type Download struct {
	Filename string
	Content  []byte
}
