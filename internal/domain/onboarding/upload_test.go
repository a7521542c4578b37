package onboarding

import (
	"errors"
	"testing"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func TestCheckUpload(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		max     int64
		want    error
	}{
		{name: "pdf", content: samplePDF, max: 1024},
		{name: "no limit", content: samplePDF},
		{name: "empty", content: nil, want: ErrEmptyFile},
		{name: "too large", content: samplePDF, max: 10, want: ErrFileTooLarge},
		{name: "png", content: []byte("\x89PNG\r\n\x1a\n0000IHDR"), max: 1024, want: ErrNotPDF},
		{name: "text", content: []byte("just some notes"), max: 1024, want: ErrNotPDF},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := CheckUpload(tc.content, tc.max)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCleanFilename(t *testing.T) {
	tests := map[string]string{
		"cpr.pdf":               "cpr.pdf",
		"../../etc/passwd":      "passwd.pdf",
		`C:\Users\jane\cpr.PDF`: "cpr.PDF",
		"":                      "fallback.pdf",
	}
	for in, want := range tests {
		if got := CleanFilename(in, "fallback.pdf"); got != want {
			t.Fatalf("CleanFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestObjectKeys(t *testing.T) {
	if got := uploadObjectKey("t1", "app", "cprCertificate", "rec"); got != "tenants/t1/applications/app/cprCertificate/rec.pdf" {
		t.Fatalf("unexpected upload key %q", got)
	}
	if got := templateObjectKey("t1", "i9Form"); got != "tenants/t1/templates/i9Form.pdf" {
		t.Fatalf("unexpected template key %q", got)
	}
}
