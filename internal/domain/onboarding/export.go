package onboarding

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"onboarding/internal/domain/auth"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var exportHeader = []any{
	"Employee", "Email", "Form", "Status", "Submitted At", "Reviewed At", "Review Note", "Uploaded File", "Signature", "Form Data",
}

// ExportSubmissions renders every submission of one form as an XLSX sheet.
func (s *Service) ExportSubmissions(ctx context.Context, actor auth.UserContext, formKey string) (Download, error) {
	def, err := Lookup(formKey)
	if err != nil {
		return Download{}, err
	}
	subs, _, err := s.ListSubmissions(ctx, actor, SubmissionFilter{FormKey: def.Key, Limit: maxExportRows})
	if err != nil {
		return Download{}, err
	}
	content, err := buildSubmissionsSheet(def, subs)
	if err != nil {
		return Download{}, err
	}
	s.audit(ctx, actor, "onboarding.submissions.export", def.Key, nil, map[string]any{"rows": len(subs)})
	return Download{Filename: def.Slug + "-submissions.xlsx", Content: content}, nil
}

func buildSubmissionsSheet(def Definition, subs []Submission) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(def.Title)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(exportHeader))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", bold); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for i, sub := range subs {
		row := []any{
			sub.EmployeeName,
			sub.EmployeeEmail,
			def.Title,
			string(sub.Status),
			formatTime(sub.SubmittedAt),
			formatTime(sub.ReviewedAt),
			sub.ReviewNote,
			"",
			"",
			string(sub.FormData),
		}
		if sub.UploadedFile != nil {
			row[7] = sub.UploadedFile.Filename
		}
		if sub.Signature != nil {
			row[8] = sub.Signature.Value
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 22); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetName trims a title to Excel's 31 character limit.
func sheetName(title string) string {
	if len(title) > 31 {
		return title[:31]
	}
	return title
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
