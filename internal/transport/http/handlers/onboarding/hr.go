package onboardinghandler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"onboarding/internal/domain/onboarding"
	"onboarding/internal/transport/http/api"
	"onboarding/internal/transport/http/middleware"
	"onboarding/internal/transport/http/shared"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleListSubmissions pages through one form's records. ?status= takes a
// comma separated list.
func (h *Handler) handleListSubmissions(def onboarding.Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUser(r.Context())
		page := shared.ParsePagination(r, 50, 200)
		filter := onboarding.SubmissionFilter{FormKey: def.Key, Limit: page.Limit, Offset: page.Offset}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			for _, part := range strings.Split(raw, ",") {
				if part = strings.TrimSpace(part); part != "" {
					filter.Statuses = append(filter.Statuses, onboarding.FormStatus(part))
				}
			}
		}
		subs, total, err := h.Service.ListSubmissions(r.Context(), user, filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if subs == nil {
			subs = []onboarding.Submission{}
		}
		api.Success(w, map[string]any{
			"submissions": subs,
			"total":       total,
			"limit":       page.Limit,
			"offset":      page.Offset,
		}, middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleClearSubmission(def onboarding.Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUser(r.Context())
		rec, err := h.Service.ClearSubmission(r.Context(), user, def.Key, chi.URLParam(r, "recordID"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.Success(w, rec, middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var in onboarding.ReviewInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("status", string(in.Status), "is required")
	v.Enum("status", string(in.Status), []string{
		string(onboarding.StatusUnderReview), string(onboarding.StatusApproved), string(onboarding.StatusRejected),
	}, "must be under_review, approved or rejected")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	in.RecordID = chi.URLParam(r, "recordID")
	rec, err := h.Service.ReviewSubmission(r.Context(), user, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUploadTemplate(def onboarding.Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUser(r.Context())
		if !user.IsHR() {
			writeError(w, r, onboarding.ErrForbidden)
			return
		}
		filename, content, ok := h.readPDF(w, r)
		if !ok {
			return
		}
		tpl, err := h.Service.UploadTemplate(r.Context(), user, def.Key, filename, content)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.Created(w, tpl, middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleExport(def onboarding.Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUser(r.Context())
		file, err := h.Service.ExportSubmissions(r.Context(), user, def.Key)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeFile(w, xlsxMIME, file)
	}
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	file, err := h.Service.SummaryPDF(r.Context(), user, chi.URLParam(r, "employeeID"), r.URL.Query().Get("profile"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFile(w, "application/pdf", file)
}

func (h *Handler) handleRunReminders(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	if h.Reminders == nil {
		api.Fail(w, http.StatusServiceUnavailable, "jobs_unavailable", "background jobs are not configured", middleware.GetRequestID(r.Context()))
		return
	}
	result, err := h.Reminders.RunReminders(r.Context(), user.TenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}
