package onboarding

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	cryptoutil "onboarding/internal/platform/crypto"
)

type Store struct {
	DB     *pgxpool.Pool
	Crypto *cryptoutil.Service
}

func NewStore(db *pgxpool.Pool, crypto *cryptoutil.Service) *Store {
	return &Store{DB: db, Crypto: crypto}
}

const formColumns = `
    f.id, f.application_id, f.form_key, f.status,
    f.form_data, f.form_data_enc,
    f.file_name, f.file_path, f.file_size, f.file_uploaded_at,
    f.signature, f.signature_date,
    COALESCE(f.review_note, ''), COALESCE(f.reviewed_by::text, ''), f.reviewed_at,
    f.submitted_at, f.created_at, f.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) EnsureApplication(ctx context.Context, tenantID, employeeID string) (Application, error) {
	var app Application
	err := s.DB.QueryRow(ctx, `
    INSERT INTO onboarding_applications (tenant_id, employee_id)
    VALUES ($1, $2)
    ON CONFLICT (tenant_id, employee_id) DO UPDATE SET tenant_id = EXCLUDED.tenant_id
    RETURNING id, employee_id, COALESCE(completed_forms, '{}'), created_at, updated_at
  `, tenantID, employeeID).Scan(&app.ID, &app.EmployeeID, &app.CompletedForms, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return Application{}, err
	}
	app.TenantID = tenantID
	return app, nil
}

// validID reports whether id can name a row. Anything else would fail in
// Postgres as an invalid uuid rather than as a missing row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *Store) GetApplication(ctx context.Context, tenantID, applicationID string) (Application, error) {
	if !validID(applicationID) {
		return Application{}, ErrApplicationNotFound
	}
	return s.scanApplication(s.DB.QueryRow(ctx, `
    SELECT id, employee_id, COALESCE(completed_forms, '{}'), created_at, updated_at
    FROM onboarding_applications
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, applicationID), tenantID)
}

func (s *Store) ApplicationByEmployee(ctx context.Context, tenantID, employeeID string) (Application, error) {
	return s.scanApplication(s.DB.QueryRow(ctx, `
    SELECT id, employee_id, COALESCE(completed_forms, '{}'), created_at, updated_at
    FROM onboarding_applications
    WHERE tenant_id = $1 AND employee_id = $2
  `, tenantID, employeeID), tenantID)
}

func (s *Store) scanApplication(row pgx.Row, tenantID string) (Application, error) {
	var app Application
	if err := row.Scan(&app.ID, &app.EmployeeID, &app.CompletedForms, &app.CreatedAt, &app.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Application{}, ErrApplicationNotFound
		}
		return Application{}, err
	}
	app.TenantID = tenantID
	return app, nil
}

func (s *Store) SetFormCompleted(ctx context.Context, tenantID, applicationID, formKey string, completed bool) error {
	query := `
    UPDATE onboarding_applications
    SET completed_forms = array_remove(completed_forms, $3), updated_at = now()
    WHERE tenant_id = $1 AND id = $2
  `
	if completed {
		query = `
    UPDATE onboarding_applications
    SET completed_forms = array_append(array_remove(completed_forms, $3), $3), updated_at = now()
    WHERE tenant_id = $1 AND id = $2
  `
	}
	tag, err := s.DB.Exec(ctx, query, tenantID, applicationID, formKey)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

func (s *Store) ListForms(ctx context.Context, tenantID, applicationID string) ([]FormRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+formColumns+`
    FROM onboarding_forms f
    WHERE f.tenant_id = $1 AND f.application_id = $2
    ORDER BY f.form_key
  `, tenantID, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FormRecord
	for rows.Next() {
		rec, err := s.scanForm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) GetForm(ctx context.Context, tenantID, applicationID, formKey string) (FormRecord, error) {
	rec, err := s.scanForm(s.DB.QueryRow(ctx, `
    SELECT `+formColumns+`
    FROM onboarding_forms f
    WHERE f.tenant_id = $1 AND f.application_id = $2 AND f.form_key = $3
  `, tenantID, applicationID, formKey))
	if errors.Is(err, pgx.ErrNoRows) {
		return FormRecord{}, ErrFormNotFound
	}
	return rec, err
}

func (s *Store) GetFormByID(ctx context.Context, tenantID, recordID string) (FormRecord, error) {
	if !validID(recordID) {
		return FormRecord{}, ErrFormNotFound
	}
	rec, err := s.scanForm(s.DB.QueryRow(ctx, `
    SELECT `+formColumns+`
    FROM onboarding_forms f
    WHERE f.tenant_id = $1 AND f.id = $2
  `, tenantID, recordID))
	if errors.Is(err, pgx.ErrNoRows) {
		return FormRecord{}, ErrFormNotFound
	}
	return rec, err
}

// UpsertForm writes the full record keyed by (application, form key). Any
// reminder mark is reset so an edited draft can be reminded again later.
func (s *Store) UpsertForm(ctx context.Context, tenantID string, rec FormRecord) (FormRecord, error) {
	plain, enc, err := s.sealFormData(rec.FormKey, rec.FormData)
	if err != nil {
		return FormRecord{}, err
	}
	var fileName, filePath any
	var fileSize any
	var fileUploadedAt any
	if rec.UploadedFile != nil {
		fileName = rec.UploadedFile.Filename
		filePath = rec.UploadedFile.StoragePath
		fileSize = rec.UploadedFile.Size
		fileUploadedAt = rec.UploadedFile.UploadedAt
	}
	var signature, signatureDate any
	if rec.Signature != nil {
		signature = rec.Signature.Value
		if rec.Signature.Date != nil {
			signatureDate = *rec.Signature.Date
		}
	}

	err = s.DB.QueryRow(ctx, `
    INSERT INTO onboarding_forms (
      tenant_id, application_id, form_key, status, form_data, form_data_enc,
      file_name, file_path, file_size, file_uploaded_at, signature, signature_date,
      review_note, reviewed_by, reviewed_at, submitted_at
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
    ON CONFLICT (application_id, form_key) DO UPDATE SET
      status = EXCLUDED.status,
      form_data = EXCLUDED.form_data,
      form_data_enc = EXCLUDED.form_data_enc,
      file_name = EXCLUDED.file_name,
      file_path = EXCLUDED.file_path,
      file_size = EXCLUDED.file_size,
      file_uploaded_at = EXCLUDED.file_uploaded_at,
      signature = EXCLUDED.signature,
      signature_date = EXCLUDED.signature_date,
      review_note = EXCLUDED.review_note,
      reviewed_by = EXCLUDED.reviewed_by,
      reviewed_at = EXCLUDED.reviewed_at,
      submitted_at = EXCLUDED.submitted_at,
      reminded_at = NULL,
      updated_at = now()
    RETURNING id, created_at, updated_at
  `, tenantID, rec.ApplicationID, rec.FormKey, string(rec.Status), plain, enc,
		fileName, filePath, fileSize, fileUploadedAt, signature, signatureDate,
		nullString(rec.ReviewNote), nullString(rec.ReviewedBy), rec.ReviewedAt, rec.SubmittedAt,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return FormRecord{}, err
	}
	return rec, nil
}

func (s *Store) ListSubmissions(ctx context.Context, tenantID string, filter SubmissionFilter) ([]Submission, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+formColumns+`,
           e.id, e.first_name || ' ' || e.last_name, e.email
    FROM onboarding_forms f
    JOIN onboarding_applications a ON a.id = f.application_id
    JOIN employees e ON e.id = a.employee_id
    WHERE f.tenant_id = $1
      AND ($2::text = '' OR f.form_key = $2)
      AND (cardinality($3::text[]) = 0 OR f.status = ANY($3::text[]))
    ORDER BY f.updated_at DESC
    LIMIT $4 OFFSET $5
  `, tenantID, filter.FormKey, statusStrings(filter.Statuses), filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var sub Submission
		rec, err := s.scanForm(rows, &sub.EmployeeID, &sub.EmployeeName, &sub.EmployeeEmail)
		if err != nil {
			return nil, err
		}
		sub.FormRecord = rec
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) CountSubmissions(ctx context.Context, tenantID string, filter SubmissionFilter) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM onboarding_forms f
    WHERE f.tenant_id = $1
      AND ($2::text = '' OR f.form_key = $2)
      AND (cardinality($3::text[]) = 0 OR f.status = ANY($3::text[]))
  `, tenantID, filter.FormKey, statusStrings(filter.Statuses)).Scan(&count)
	return count, err
}

func (s *Store) ListStaleDrafts(ctx context.Context, olderThan time.Time, limit int) ([]StaleDraft, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT f.tenant_id, f.id, f.application_id, a.employee_id,
           COALESCE(e.user_id::text, ''), f.form_key, f.updated_at
    FROM onboarding_forms f
    JOIN onboarding_applications a ON a.id = f.application_id
    JOIN employees e ON e.id = a.employee_id
    WHERE f.status = 'draft'
      AND f.updated_at < $1
      AND f.reminded_at IS NULL
    ORDER BY f.updated_at
    LIMIT $2
  `, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StaleDraft
	for rows.Next() {
		var d StaleDraft
		if err := rows.Scan(&d.TenantID, &d.RecordID, &d.ApplicationID, &d.EmployeeID, &d.UserID, &d.FormKey, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) MarkReminded(ctx context.Context, tenantID, recordID string, at time.Time) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE onboarding_forms SET reminded_at = $3
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, recordID, at)
	return err
}

func (s *Store) GetTemplate(ctx context.Context, tenantID, formKey string) (Template, error) {
	var tpl Template
	err := s.DB.QueryRow(ctx, `
    SELECT form_key, file_name, file_path, file_size, COALESCE(uploaded_by::text, ''), uploaded_at
    FROM onboarding_templates
    WHERE tenant_id = $1 AND form_key = $2
  `, tenantID, formKey).Scan(&tpl.FormKey, &tpl.Filename, &tpl.StoragePath, &tpl.Size, &tpl.UploadedBy, &tpl.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, ErrTemplateNotFound
		}
		return Template{}, err
	}
	return tpl, nil
}

func (s *Store) UpsertTemplate(ctx context.Context, tenantID string, tpl Template) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO onboarding_templates (tenant_id, form_key, file_name, file_path, file_size, uploaded_by, uploaded_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    ON CONFLICT (tenant_id, form_key) DO UPDATE SET
      file_name = EXCLUDED.file_name,
      file_path = EXCLUDED.file_path,
      file_size = EXCLUDED.file_size,
      uploaded_by = EXCLUDED.uploaded_by,
      uploaded_at = EXCLUDED.uploaded_at
  `, tenantID, tpl.FormKey, tpl.Filename, tpl.StoragePath, tpl.Size, nullString(tpl.UploadedBy), tpl.UploadedAt)
	return err
}

func (s *Store) scanForm(row rowScanner, extra ...any) (FormRecord, error) {
	var rec FormRecord
	var status string
	var data, dataEnc []byte
	var fileName, filePath, signature *string
	var fileSize *int64
	var fileUploadedAt, signatureDate *time.Time

	dest := []any{
		&rec.ID, &rec.ApplicationID, &rec.FormKey, &status,
		&data, &dataEnc,
		&fileName, &filePath, &fileSize, &fileUploadedAt,
		&signature, &signatureDate,
		&rec.ReviewNote, &rec.ReviewedBy, &rec.ReviewedAt,
		&rec.SubmittedAt, &rec.CreatedAt, &rec.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return FormRecord{}, err
	}
	rec.Status = FormStatus(status)
	rec.FormData = s.openFormData(rec.ID, rec.FormKey, data, dataEnc)
	if filePath != nil {
		rec.UploadedFile = &UploadedFile{StoragePath: *filePath}
		if fileName != nil {
			rec.UploadedFile.Filename = *fileName
		}
		if fileSize != nil {
			rec.UploadedFile.Size = *fileSize
		}
		if fileUploadedAt != nil {
			rec.UploadedFile.UploadedAt = *fileUploadedAt
		}
	}
	if signature != nil {
		rec.Signature = &Signature{Value: *signature, Date: signatureDate}
	}
	return rec, nil
}

// sealFormData returns the jsonb and bytea column values. Payloads of sensitive
// kinds go to the encrypted column when a key is configured.
func (s *Store) sealFormData(formKey string, raw []byte) (any, []byte, error) {
	if len(raw) == 0 {
		return nil, nil, nil
	}
	if s.Crypto == nil || !s.Crypto.Configured() || !sensitiveForm(formKey) {
		return string(raw), nil, nil
	}
	enc, err := s.Crypto.SealFor(formKey, raw)
	if err != nil {
		return nil, nil, err
	}
	return nil, enc, nil
}

func (s *Store) openFormData(recordID, formKey string, plain, enc []byte) []byte {
	if len(enc) == 0 || s.Crypto == nil || !s.Crypto.Configured() {
		return plain
	}
	decrypted, err := s.Crypto.OpenFor(formKey, enc)
	if err != nil {
		slog.Warn("decrypt form data failed", "record_id", recordID, "err", err)
		return plain
	}
	return decrypted
}

func sensitiveForm(formKey string) bool {
	def, err := Lookup(formKey)
	if err != nil {
		return false
	}
	switch def.Kind {
	case KindI9, KindW9, KindDirectDeposit:
		return true
	}
	return false
}

func statusStrings(statuses []FormStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
