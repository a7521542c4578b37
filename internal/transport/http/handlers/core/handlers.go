package corehandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"onboarding/internal/domain/auth"
	"onboarding/internal/domain/core"
	"onboarding/internal/requestctx"
	"onboarding/internal/transport/http/api"
	"onboarding/internal/transport/http/middleware"
	"onboarding/internal/transport/http/shared"
)

type Directory interface {
	GetEmployee(ctx context.Context, tenantID, employeeID string) (*core.Employee, error)
	GetEmployeeByUserID(ctx context.Context, tenantID, userID string) (*core.Employee, error)
	ListEmployees(ctx context.Context, tenantID string, limit, offset int) ([]core.Employee, int, error)
	CreateEmployee(ctx context.Context, tenantID string, emp core.Employee, password string) (string, string, error)
	UpdateEmployee(ctx context.Context, tenantID, employeeID string, emp core.Employee) error
}

type Auditor interface {
	Record(ctx context.Context, tenantID, actorID, action, entityType, entityID, requestID, ip string, before, after any) error
}

type Handler struct {
	Directory Directory
	Audit     Auditor
	Perms     middleware.PermissionStore
}

func NewHandler(directory Directory, audit Auditor, perms middleware.PermissionStore) *Handler {
	return &Handler{Directory: directory, Audit: audit, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Get("/", h.handleListEmployees)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreateEmployee)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleGetEmployee)
			r.Put("/", h.handleUpdateEmployee)
		})
	})
}

type employeePayload struct {
	EmployeeNumber string `json:"employeeNumber"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Position       string `json:"position"`
	DateOfBirth    string `json:"dateOfBirth"`
	Address        string `json:"address"`
	NationalID     string `json:"nationalId"`
	StartDate      string `json:"startDate"`
	Status         string `json:"status"`
	Password       string `json:"password"`
}

var employeeStatuses = []string{core.StatusActive, core.StatusOnboarding, core.StatusInactive}

// toEmployee validates the payload. Empty dates leave the field unset.
func (p employeePayload) toEmployee(v *shared.Validator) core.Employee {
	v.Required("firstName", p.FirstName, "is required")
	v.Required("lastName", p.LastName, "is required")
	v.Required("email", p.Email, "is required")
	v.Email("email", p.Email)
	if p.Status != "" {
		v.Enum("status", p.Status, employeeStatuses, "must be active, onboarding or inactive")
	}

	emp := core.Employee{
		EmployeeNumber: strings.TrimSpace(p.EmployeeNumber),
		FirstName:      strings.TrimSpace(p.FirstName),
		LastName:       strings.TrimSpace(p.LastName),
		Email:          p.Email,
		Phone:          strings.TrimSpace(p.Phone),
		Position:       p.Position,
		Address:        strings.TrimSpace(p.Address),
		NationalID:     strings.TrimSpace(p.NationalID),
		Status:         p.Status,
	}
	emp.DateOfBirth = v.OptionalDate("dateOfBirth", p.DateOfBirth)
	emp.StartDate = v.OptionalDate("startDate", p.StartDate)
	return emp
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	page := shared.ParsePagination(r, 50, 200)
	employees, total, err := h.Directory.ListEmployees(r.Context(), user.TenantID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}
	if employees == nil {
		employees = []core.Employee{}
	}
	for i := range employees {
		core.FilterEmployeeFields(&employees[i], user, employees[i].UserID == user.UserID)
	}

	page.SetTotal(w, total)
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	emp, ok := h.loadEmployee(w, r, user)
	if !ok {
		return
	}
	core.FilterEmployeeFields(emp, user, emp.UserID == user.UserID)
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var payload employeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	emp := payload.toEmployee(v)
	if payload.Password != "" {
		if err := auth.ValidatePassword(payload.Password); err != nil {
			v.Add("password", err.Error())
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	if emp.Status == "" {
		emp.Status = core.StatusOnboarding
	}

	id, userID, err := h.Directory.CreateEmployee(r.Context(), user.TenantID, emp, payload.Password)
	if err != nil {
		if errors.Is(err, core.ErrEmailTaken) {
			api.Fail(w, http.StatusConflict, "employee_exists", "employee email already exists", middleware.GetRequestID(r.Context()))
			return
		}
		slog.Warn("employee create failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "employee_create_failed", "failed to create employee", middleware.GetRequestID(r.Context()))
		return
	}

	h.record(r, user, "core.employee.create", id, nil, map[string]any{
		"email":    emp.Email,
		"position": emp.Position,
		"status":   emp.Status,
		"login":    userID != "",
	})
	api.Created(w, map[string]string{"id": id, "userId": userID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	existing, ok := h.loadEmployee(w, r, user)
	if !ok {
		return
	}

	var payload employeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	emp := payload.toEmployee(v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if !user.IsHR() {
		// Employees may only change their contact details.
		emp.EmployeeNumber = existing.EmployeeNumber
		emp.FirstName = existing.FirstName
		emp.LastName = existing.LastName
		emp.Email = existing.Email
		emp.Position = existing.Position
		emp.NationalID = existing.NationalID
		emp.StartDate = existing.StartDate
		emp.Status = existing.Status
	}
	if emp.Status == "" {
		emp.Status = existing.Status
	}
	if emp.NationalID == "" {
		emp.NationalID = existing.NationalID
	}

	if err := h.Directory.UpdateEmployee(r.Context(), user.TenantID, existing.ID, emp); err != nil {
		switch {
		case errors.Is(err, core.ErrEmailTaken):
			api.Fail(w, http.StatusConflict, "employee_exists", "employee email already exists", middleware.GetRequestID(r.Context()))
		case errors.Is(err, core.ErrEmployeeNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		default:
			slog.Warn("employee update failed", "employee_id", existing.ID, "err", err)
			api.Fail(w, http.StatusInternalServerError, "employee_update_failed", "failed to update employee", middleware.GetRequestID(r.Context()))
		}
		return
	}

	h.record(r, user, "core.employee.update", existing.ID,
		map[string]any{"email": existing.Email, "position": existing.Position, "status": existing.Status},
		map[string]any{"email": emp.Email, "position": emp.Position, "status": emp.Status})
	api.Success(w, map[string]string{"id": existing.ID}, middleware.GetRequestID(r.Context()))
}

// loadEmployee resolves {employeeID} ("me" for the caller) and enforces that
// employees only see themselves.
func (h *Handler) loadEmployee(w http.ResponseWriter, r *http.Request, user auth.UserContext) (*core.Employee, bool) {
	employeeID := chi.URLParam(r, "employeeID")
	var emp *core.Employee
	var err error
	if employeeID == "me" {
		emp, err = h.Directory.GetEmployeeByUserID(r.Context(), user.TenantID, user.UserID)
	} else {
		emp, err = h.Directory.GetEmployee(r.Context(), user.TenantID, employeeID)
	}
	if err != nil {
		if errors.Is(err, core.ErrEmployeeNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
			return nil, false
		}
		api.Fail(w, http.StatusInternalServerError, "employee_lookup_failed", "failed to load employee", middleware.GetRequestID(r.Context()))
		return nil, false
	}
	if !user.IsHR() && emp.UserID != user.UserID {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return nil, false
	}
	return emp, true
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, action, "employee", entityID,
		middleware.GetRequestID(r.Context()), requestctx.GetClientIP(r.Context()), before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}
