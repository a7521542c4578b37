package onboarding

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"onboarding/internal/domain/auth"
	"onboarding/internal/domain/core"
	"onboarding/internal/domain/progress"
)

// SummaryPDF renders an employee's onboarding status for HR: one line per
// required form with its status and upload.
func (s *Service) SummaryPDF(ctx context.Context, actor auth.UserContext, employeeID, profile string) (Download, error) {
	if err := requireHR(actor); err != nil {
		return Download{}, err
	}
	view, err := s.GetApplication(ctx, actor, employeeID, profile)
	if err != nil {
		return Download{}, err
	}
	emp, err := s.employees.GetEmployee(ctx, actor.TenantID, view.Application.EmployeeID)
	if err != nil {
		return Download{}, fmt.Errorf("load employee: %w", err)
	}
	keys, _, err := s.requiredKeys(profile)
	if err != nil {
		return Download{}, err
	}
	content, err := renderSummary(emp, view, keys)
	if err != nil {
		return Download{}, err
	}
	return Download{Filename: fmt.Sprintf("onboarding-summary-%s.pdf", emp.ID), Content: content}, nil
}

func renderSummary(emp *core.Employee, view ApplicationView, keys []string) ([]byte, error) {
	entries := Entries(view.Forms)
	completed := progress.CompletedSet(view.Application.CompletedForms)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Onboarding Summary", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Onboarding Summary")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", emp.FullName()))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Email: %s", emp.Email))
	pdf.Ln(7)
	if emp.Position != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Position: %s", emp.Position))
		pdf.Ln(7)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Progress: %d%% (%d of %d forms, profile %s)",
		view.Progress.Percentage, view.Progress.CompletedCount, view.Progress.TotalCount, view.Profile))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(80, 8, "Form", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 8, "Status", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 8, "Submitted", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 8, "File", "1", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, key := range keys {
		resolved, _, _ := progress.Resolve(entries, key)
		rec, ok := view.Forms[resolved]
		status := string(StatusNotStarted)
		submitted, file := "", ""
		if ok {
			status = string(rec.Status)
			if rec.SubmittedAt != nil {
				submitted = rec.SubmittedAt.Format("2006-01-02")
			}
			if rec.UploadedFile != nil {
				file = rec.UploadedFile.Filename
			}
		}
		if progress.KeyDone(entries, completed, key) && status == string(StatusNotStarted) {
			status = "done"
		}
		pdf.CellFormat(80, 7, formTitle(resolved), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, status, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, submitted, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, truncate(file, 28), "1", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render summary: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(value string, n int) string {
	if len(value) <= n {
		return value
	}
	return value[:n-3] + "..."
}
