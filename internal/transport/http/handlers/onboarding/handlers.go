package onboardinghandler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"onboarding/internal/domain/auth"
	"onboarding/internal/domain/events"
	"onboarding/internal/domain/onboarding"
	"onboarding/internal/domain/progress"
	"onboarding/internal/transport/http/api"
	"onboarding/internal/transport/http/middleware"
)

// Service is the onboarding.Service surface the routes drive.
type Service interface {
	GetApplication(ctx context.Context, actor auth.UserContext, employeeID, profile string) (onboarding.ApplicationView, error)
	Progress(ctx context.Context, actor auth.UserContext, employeeID, profile string) (progress.Result, error)
	JobDescriptionKey(ctx context.Context, actor auth.UserContext, employeeID string) (string, error)
	SaveForm(ctx context.Context, actor auth.UserContext, in onboarding.SaveInput) (onboarding.SaveResult, error)
	UploadDocument(ctx context.Context, actor auth.UserContext, in onboarding.UploadInput) (onboarding.SaveResult, error)
	RemoveUpload(ctx context.Context, actor auth.UserContext, applicationID, employeeID, formKey string) (onboarding.SaveResult, error)
	DownloadUpload(ctx context.Context, actor auth.UserContext, employeeID, formKey string) (onboarding.Download, error)
	ListSubmissions(ctx context.Context, actor auth.UserContext, filter onboarding.SubmissionFilter) ([]onboarding.Submission, int, error)
	ClearSubmission(ctx context.Context, actor auth.UserContext, formKey, recordID string) (onboarding.FormRecord, error)
	ReviewSubmission(ctx context.Context, actor auth.UserContext, in onboarding.ReviewInput) (onboarding.FormRecord, error)
	UploadTemplate(ctx context.Context, actor auth.UserContext, formKey, filename string, content []byte) (onboarding.Template, error)
	DownloadTemplate(ctx context.Context, actor auth.UserContext, formKey string) (onboarding.Download, error)
	ExportSubmissions(ctx context.Context, actor auth.UserContext, formKey string) (onboarding.Download, error)
	SummaryPDF(ctx context.Context, actor auth.UserContext, employeeID, profile string) (onboarding.Download, error)
}

type Subscriber interface {
	Subscribe(filter events.Filter, buffer int) *events.Subscription
}

// ReminderRunner runs the draft reminder sweep on demand.
type ReminderRunner interface {
	RunReminders(ctx context.Context, tenantID string) (any, error)
}

type UploadObserver interface {
	ObserveUpload(size int64)
}

type Handler struct {
	Service        Service
	Events         Subscriber
	Idempotency    middleware.IdempotencyBackend
	Reminders      ReminderRunner
	Uploads        UploadObserver
	MaxUploadBytes int64
}

func NewHandler(service Service, events Subscriber) *Handler {
	return &Handler{Service: service, Events: events, MaxUploadBytes: 10 << 20}
}

// RegisterRoutes mounts one route per form definition so every form keeps a
// stable URL: save-<slug>, employee-upload-<slug> and so on.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/onboarding", func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/forms", h.handleDefinitions)
		r.Get("/get-application/{employeeID}", h.handleGetApplication)
		r.Get("/progress/{employeeID}", h.handleProgress)
		r.Get("/job-description/{employeeID}", h.handleJobDescription)
		r.Get("/events", h.handleEvents)

		for _, def := range onboarding.Definitions() {
			r.Post("/save-"+def.Slug, h.handleSave(def))
			r.Get("/hr-get-all-"+def.Slug+"-submissions", h.handleListSubmissions(def))
			r.Delete("/hr-clear-"+def.Slug+"-submission/{recordID}", h.handleClearSubmission(def))
			r.Get("/hr-export-"+def.Slug+"-submissions", h.handleExport(def))
			if def.Uploadable {
				r.Post("/employee-upload-"+def.Slug, h.handleUpload(def))
				r.Post("/remove-"+def.Slug+"-upload", h.handleRemoveUpload(def))
				r.Get("/download-"+def.Slug+"/{employeeID}", h.handleDownloadUpload(def))
			}
			if def.Template {
				r.Post("/hr-upload-"+def.Slug+"-template", h.handleUploadTemplate(def))
				r.Get("/download-"+def.Slug+"-template", h.handleDownloadTemplate(def))
			}
		}

		r.Post("/hr-review-submission/{recordID}", h.handleReview)
		r.Get("/hr-application-summary/{employeeID}", h.handleSummary)
		r.With(middleware.RequireHR).Post("/hr-run-draft-reminders", h.handleRunReminders)
	})
}

func (h *Handler) handleDefinitions(w http.ResponseWriter, r *http.Request) {
	api.Success(w, onboarding.Definitions(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	view, err := h.Service.GetApplication(r.Context(), user, chi.URLParam(r, "employeeID"), r.URL.Query().Get("profile"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, view, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	result, err := h.Service.Progress(r.Context(), user, chi.URLParam(r, "employeeID"), r.URL.Query().Get("profile"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleJobDescription(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	key, err := h.Service.JobDescriptionKey(r.Context(), user, chi.URLParam(r, "employeeID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	def, err := onboarding.Lookup(key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, def, middleware.GetRequestID(r.Context()))
}

// handleSave stores a draft or submission. A submission carrying an
// Idempotency-Key header replays the stored response on retry.
func (h *Handler) handleSave(def onboarding.Definition) http.HandlerFunc {
	endpoint := "onboarding.save." + def.Key
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUser(r.Context())
		requestID := middleware.GetRequestID(r.Context())

		raw, err := io.ReadAll(r.Body)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
			return
		}
		var in onboarding.SaveInput
		if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&in); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
			return
		}
		in.FormKey = def.Key

		key := r.Header.Get(middleware.IdempotencyHeader)
		replayable := key != "" && h.Idempotency != nil && in.Status == onboarding.StatusSubmitted
		hash := middleware.RequestHash(raw)
		idemKey := middleware.IdempotencyKey{TenantID: user.TenantID, UserID: user.UserID, Endpoint: endpoint, Key: key}
		if replayable {
			stored, found, err := h.Idempotency.Check(r.Context(), idemKey, hash)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if found {
				api.Success(w, stored, requestID)
				return
			}
		}

		result, err := h.Service.SaveForm(r.Context(), user, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if replayable {
			h.remember(r.Context(), idemKey, hash, result)
		}
		api.Success(w, result, requestID)
	}
}

func (h *Handler) handleUpload(def onboarding.Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUser(r.Context())
		filename, content, ok := h.readPDF(w, r)
		if !ok {
			return
		}
		result, err := h.Service.UploadDocument(r.Context(), user, onboarding.UploadInput{
			ApplicationID: r.FormValue("applicationId"),
			EmployeeID:    r.FormValue("employeeId"),
			FormKey:       def.Key,
			Filename:      filename,
			Content:       content,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		if h.Uploads != nil {
			h.Uploads.ObserveUpload(int64(len(content)))
		}
		api.Success(w, result, middleware.GetRequestID(r.Context()))
	}
}

type removeUploadRequest struct {
	ApplicationID string `json:"applicationId"`
	EmployeeID    string `json:"employeeId"`
}

func (h *Handler) handleRemoveUpload(def onboarding.Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUser(r.Context())
		var payload removeUploadRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && err != io.EOF {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
			return
		}
		result, err := h.Service.RemoveUpload(r.Context(), user, payload.ApplicationID, payload.EmployeeID, def.Key)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.Success(w, result, middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleDownloadUpload(def onboarding.Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUser(r.Context())
		file, err := h.Service.DownloadUpload(r.Context(), user, chi.URLParam(r, "employeeID"), def.Key)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeFile(w, "application/pdf", file)
	}
}

func (h *Handler) handleDownloadTemplate(def onboarding.Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUser(r.Context())
		file, err := h.Service.DownloadTemplate(r.Context(), user, def.Key)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeFile(w, "application/pdf", file)
	}
}

// readPDF pulls the "file" part of a multipart upload.
func (h *Handler) readPDF(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	requestID := middleware.GetRequestID(r.Context())
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	if err := r.ParseMultipartForm(limit); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "expected multipart form with a file field", requestID)
		return "", nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "file is required", requestID)
		return "", nil, false
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_upload", "failed to read file", requestID)
		return "", nil, false
	}
	return header.Filename, content, true
}

func (h *Handler) remember(ctx context.Context, key middleware.IdempotencyKey, hash string, result any) {
	encoded, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := h.Idempotency.Save(ctx, key, hash, encoded); err != nil {
		slog.Warn("idempotency save failed", "endpoint", key.Endpoint, "err", err)
	}
}

func writeFile(w http.ResponseWriter, contentType string, file onboarding.Download) {
	w.Header().Set("Content-Type", contentType)
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename})
	if disposition == "" {
		disposition = "attachment"
	}
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Content)
}
