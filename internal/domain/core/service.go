package core

import (
	"context"
	"strings"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) GetEmployee(ctx context.Context, tenantID, employeeID string) (*Employee, error) {
	return s.store.GetEmployee(ctx, tenantID, employeeID)
}

func (s *Service) GetEmployeeByUserID(ctx context.Context, tenantID, userID string) (*Employee, error) {
	return s.store.GetEmployeeByUserID(ctx, tenantID, userID)
}

func (s *Service) ListEmployees(ctx context.Context, tenantID string, limit, offset int) ([]Employee, int, error) {
	total, err := s.store.CountEmployees(ctx, tenantID)
	if err != nil {
		return nil, 0, err
	}
	out, err := s.store.ListEmployees(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// CreateEmployee creates the employee and, when a password is given, a login
// with the Employee role.
func (s *Service) CreateEmployee(ctx context.Context, tenantID string, emp Employee, password string) (string, string, error) {
	emp.Email = strings.ToLower(strings.TrimSpace(emp.Email))
	emp.Position = strings.ToUpper(strings.TrimSpace(emp.Position))
	if password == "" {
		id, err := s.store.CreateEmployee(ctx, tenantID, emp)
		return id, "", err
	}
	return s.store.CreateEmployeeWithUser(ctx, tenantID, emp, password)
}

func (s *Service) UpdateEmployee(ctx context.Context, tenantID, employeeID string, emp Employee) error {
	emp.Email = strings.ToLower(strings.TrimSpace(emp.Email))
	emp.Position = strings.ToUpper(strings.TrimSpace(emp.Position))
	return s.store.UpdateEmployee(ctx, tenantID, employeeID, emp)
}
