package core

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"onboarding/internal/domain/auth"
	cryptoutil "onboarding/internal/platform/crypto"
)

type Store struct {
	DB     *pgxpool.Pool
	Crypto *cryptoutil.Service
}

func NewStore(db *pgxpool.Pool, crypto *cryptoutil.Service) *Store {
	return &Store{DB: db, Crypto: crypto}
}

const employeeColumns = `
    id,
    COALESCE(user_id::text, ''),
    COALESCE(employee_number, ''),
    first_name, last_name, email,
    COALESCE(phone, ''),
    COALESCE(position, ''),
    date_of_birth,
    COALESCE(address, ''),
    COALESCE(national_id, ''),
    national_id_enc,
    start_date, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) GetEmployee(ctx context.Context, tenantID, employeeID string) (*Employee, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return nil, ErrEmployeeNotFound
	}
	return s.scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, employeeID))
}

func (s *Store) GetEmployeeByUserID(ctx context.Context, tenantID, userID string) (*Employee, error) {
	return s.scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE tenant_id = $1 AND user_id = $2
  `, tenantID, userID))
}

func (s *Store) ListEmployees(ctx context.Context, tenantID string, limit, offset int) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE tenant_id = $1
    ORDER BY last_name, first_name
    LIMIT $2 OFFSET $3
  `, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := s.scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *emp)
	}
	return out, rows.Err()
}

func (s *Store) CountEmployees(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM employees WHERE tenant_id = $1`, tenantID).Scan(&count)
	return count, err
}

func (s *Store) CreateEmployee(ctx context.Context, tenantID string, emp Employee) (string, error) {
	return s.insertEmployee(ctx, s.DB, tenantID, emp)
}

// CreateEmployeeWithUser creates the login and the employee record in one
// transaction. The user gets the Employee role of the tenant.
func (s *Store) CreateEmployeeWithUser(ctx context.Context, tenantID string, emp Employee, password string) (string, string, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", "", err
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", "", err
	}
	defer tx.Rollback(ctx)

	var roleID string
	if err := tx.QueryRow(ctx, `
    SELECT id FROM roles WHERE tenant_id = $1 AND name = $2
  `, tenantID, auth.RoleEmployee).Scan(&roleID); err != nil {
		return "", "", err
	}

	var userID string
	err = tx.QueryRow(ctx, `
    INSERT INTO users (tenant_id, email, password_hash, role_id, status)
    VALUES ($1, $2, $3, $4, 'active')
    RETURNING id
  `, tenantID, emp.Email, hash, roleID).Scan(&userID)
	if err != nil {
		return "", "", mapUniqueViolation(err)
	}

	emp.UserID = userID
	employeeID, err := s.insertEmployee(ctx, tx, tenantID, emp)
	if err != nil {
		return "", "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", "", err
	}
	return employeeID, userID, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, tenantID, employeeID string, emp Employee) error {
	nationalPlain, nationalEnc := s.sealNationalID(emp.NationalID)
	cmd, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET employee_number = $1,
        first_name = $2,
        last_name = $3,
        email = $4,
        phone = $5,
        position = $6,
        date_of_birth = $7,
        address = $8,
        national_id = $9,
        national_id_enc = $10,
        start_date = $11,
        status = $12,
        updated_at = now()
    WHERE tenant_id = $13 AND id = $14
  `,
		nullIfEmpty(emp.EmployeeNumber), emp.FirstName, emp.LastName, emp.Email, emp.Phone, emp.Position,
		emp.DateOfBirth, emp.Address, nationalPlain, nationalEnc, emp.StartDate, emp.Status, tenantID, employeeID,
	)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) insertEmployee(ctx context.Context, q querier, tenantID string, emp Employee) (string, error) {
	if emp.Status == "" {
		emp.Status = StatusOnboarding
	}
	nationalPlain, nationalEnc := s.sealNationalID(emp.NationalID)
	var id string
	err := q.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, user_id, employee_number, first_name, last_name, email, phone, position,
      date_of_birth, address, national_id, national_id_enc, start_date, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    RETURNING id
  `,
		tenantID, nullIfEmpty(emp.UserID), nullIfEmpty(emp.EmployeeNumber), emp.FirstName, emp.LastName, emp.Email,
		emp.Phone, emp.Position, emp.DateOfBirth, emp.Address, nationalPlain, nationalEnc, emp.StartDate, emp.Status,
	).Scan(&id)
	if err != nil {
		return "", mapUniqueViolation(err)
	}
	return id, nil
}

func (s *Store) scanEmployee(row rowScanner) (*Employee, error) {
	var emp Employee
	var nationalPlain string
	var nationalEnc []byte
	err := row.Scan(
		&emp.ID, &emp.UserID, &emp.EmployeeNumber, &emp.FirstName, &emp.LastName, &emp.Email, &emp.Phone,
		&emp.Position, &emp.DateOfBirth, &emp.Address, &nationalPlain, &nationalEnc,
		&emp.StartDate, &emp.Status, &emp.CreatedAt, &emp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	emp.NationalID = decryptStringFallback(s.Crypto, nationalEnc, nationalPlain)
	return &emp, nil
}

func (s *Store) sealNationalID(value string) (any, []byte) {
	if s.Crypto == nil || !s.Crypto.Configured() {
		return nullIfEmpty(value), nil
	}
	enc, err := s.Crypto.EncryptString(value)
	if err != nil {
		return nullIfEmpty(value), nil
	}
	return nil, enc
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

func decryptStringFallback(crypto *cryptoutil.Service, encrypted []byte, plain string) string {
	if crypto == nil || !crypto.Configured() || len(encrypted) == 0 {
		return plain
	}
	decrypted, err := crypto.DecryptString(encrypted)
	if err != nil {
		return plain
	}
	return decrypted
}
