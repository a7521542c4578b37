package corehandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding/internal/domain/auth"
	"onboarding/internal/domain/core"
	"onboarding/internal/transport/http/middleware"
)

type memoryDirectory struct {
	employees map[string]core.Employee
	passwords map[string]string
}

func newMemoryDirectory(emps ...core.Employee) *memoryDirectory {
	d := &memoryDirectory{employees: map[string]core.Employee{}, passwords: map[string]string{}}
	for _, e := range emps {
		d.employees[e.ID] = e
	}
	return d
}

func (d *memoryDirectory) GetEmployee(_ context.Context, _, id string) (*core.Employee, error) {
	emp, ok := d.employees[id]
	if !ok {
		return nil, core.ErrEmployeeNotFound
	}
	return &emp, nil
}

func (d *memoryDirectory) GetEmployeeByUserID(_ context.Context, _, userID string) (*core.Employee, error) {
	for _, emp := range d.employees {
		if emp.UserID == userID {
			return &emp, nil
		}
	}
	return nil, core.ErrEmployeeNotFound
}

func (d *memoryDirectory) ListEmployees(context.Context, string, int, int) ([]core.Employee, int, error) {
	out := make([]core.Employee, 0, len(d.employees))
	for _, emp := range d.employees {
		out = append(out, emp)
	}
	return out, len(out), nil
}

func (d *memoryDirectory) CreateEmployee(_ context.Context, _ string, emp core.Employee, password string) (string, string, error) {
	for _, existing := range d.employees {
		if existing.Email == emp.Email {
			return "", "", core.ErrEmailTaken
		}
	}
	emp.ID = "emp-new"
	if password != "" {
		emp.UserID = "user-new"
		d.passwords[emp.UserID] = password
	}
	d.employees[emp.ID] = emp
	return emp.ID, emp.UserID, nil
}

func (d *memoryDirectory) UpdateEmployee(_ context.Context, _, id string, emp core.Employee) error {
	existing, ok := d.employees[id]
	if !ok {
		return core.ErrEmployeeNotFound
	}
	emp.ID = existing.ID
	emp.UserID = existing.UserID
	d.employees[id] = emp
	return nil
}

type recordedAudit struct{ actions []string }

func (a *recordedAudit) Record(_ context.Context, _, _, action, _, _, _, _ string, _, _ any) error {
	a.actions = append(a.actions, action)
	return nil
}

type allowRoles map[string]bool

func (p allowRoles) HasPermission(_ context.Context, roleID, permission string) (bool, error) {
	if permission == auth.PermEmployeesRead {
		return true, nil
	}
	return p[roleID], nil
}

var (
	hrUser       = auth.UserContext{UserID: "hr-user", TenantID: "t1", RoleID: "role-hr", RoleName: auth.RoleHR}
	employeeUser = auth.UserContext{UserID: "user-1", TenantID: "t1", RoleID: "role-emp", RoleName: auth.RoleEmployee}
)

func do(t *testing.T, dir *memoryDirectory, audit *recordedAudit, user auth.UserContext, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUser(req.Context(), user)))
		})
	})
	NewHandler(dir, audit, allowRoles{"role-hr": true}).RegisterRoutes(r)

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestCreateEmployee(t *testing.T) {
	dir := newMemoryDirectory(core.Employee{ID: "emp-1", UserID: "user-1", Email: "taken@example.com"})
	audit := &recordedAudit{}

	rec := do(t, dir, audit, employeeUser, http.MethodPost, "/employees/", map[string]string{"firstName": "A"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, dir, audit, hrUser, http.MethodPost, "/employees/", map[string]string{"firstName": "Ada", "startDate": "soon"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "lastName")
	assert.Contains(t, rec.Body.String(), "startDate")

	rec = do(t, dir, audit, hrUser, http.MethodPost, "/employees/", map[string]string{
		"firstName": "Ada", "lastName": "Lovelace", "email": "taken@example.com",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, dir, audit, hrUser, http.MethodPost, "/employees/", map[string]string{
		"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com",
		"position": "rn", "startDate": "2026-11-02", "password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := dir.employees["emp-new"]
	assert.Equal(t, core.StatusOnboarding, created.Status)
	require.NotNil(t, created.StartDate)
	assert.Equal(t, 2026, created.StartDate.Year())
	assert.Equal(t, []string{"core.employee.create"}, audit.actions)
}

func TestGetEmployeeScopesEmployees(t *testing.T) {
	dir := newMemoryDirectory(
		core.Employee{ID: "emp-1", UserID: "user-1", NationalID: "123456789"},
		core.Employee{ID: "emp-2", UserID: "user-2", NationalID: "987654321"},
	)

	rec := do(t, dir, &recordedAudit{}, employeeUser, http.MethodGet, "/employees/emp-2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, dir, &recordedAudit{}, employeeUser, http.MethodGet, "/employees/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "***-**-6789")

	rec = do(t, dir, &recordedAudit{}, hrUser, http.MethodGet, "/employees/emp-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "987654321")

	rec = do(t, dir, &recordedAudit{}, hrUser, http.MethodGet, "/employees/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmployeeUpdateKeepsProtectedFields(t *testing.T) {
	dir := newMemoryDirectory(core.Employee{
		ID: "emp-1", UserID: "user-1", FirstName: "Ada", LastName: "Lovelace",
		Email: "ada@example.com", Position: "RN", Status: core.StatusOnboarding,
	})
	audit := &recordedAudit{}

	rec := do(t, dir, audit, employeeUser, http.MethodPut, "/employees/me", map[string]string{
		"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com",
		"position": "CNA", "phone": "555-0100", "status": "active",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	updated := dir.employees["emp-1"]
	assert.Equal(t, "555-0100", updated.Phone)
	assert.Equal(t, "RN", updated.Position)
	assert.Equal(t, core.StatusOnboarding, updated.Status)
	assert.Equal(t, []string{"core.employee.update"}, audit.actions)
}

func TestListEmployeesIsHROnly(t *testing.T) {
	dir := newMemoryDirectory(core.Employee{ID: "emp-1", UserID: "user-1"})

	rec := do(t, dir, &recordedAudit{}, employeeUser, http.MethodGet, "/employees/", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, dir, &recordedAudit{}, hrUser, http.MethodGet, "/employees/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))
}
