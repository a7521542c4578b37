package onboarding

import (
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const pdfMIME = "application/pdf"

// DetectPDF sniffs content and reports whether it is a PDF document. The
// filename extension is not trusted.
func DetectPDF(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	return mimetype.Detect(content).Is(pdfMIME)
}

// CheckUpload applies the size and type rules shared by employee uploads and
// HR templates.
func CheckUpload(content []byte, maxBytes int64) error {
	if len(content) == 0 {
		return ErrEmptyFile
	}
	if maxBytes > 0 && int64(len(content)) > maxBytes {
		return ErrFileTooLarge
	}
	if !DetectPDF(content) {
		return ErrNotPDF
	}
	return nil
}

func uploadObjectKey(tenantID, applicationID, formKey, recordID string) string {
	return path.Join("tenants", tenantID, "applications", applicationID, formKey, recordID+".pdf")
}

func templateObjectKey(tenantID, formKey string) string {
	return path.Join("tenants", tenantID, "templates", formKey+".pdf")
}

// CleanFilename strips any directory part and forces a .pdf extension.
func CleanFilename(name, fallback string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(path.Base(name))
	if name == "" || name == "." || name == "/" {
		name = fallback
	}
	if !strings.EqualFold(path.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

func downloadName(def Definition, employeeID string) string {
	return fmt.Sprintf("%s-%s.pdf", def.Slug, employeeID)
}
