package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

const documentXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>Quarterly report</w:t></w:r></w:p><w:p><w:r><w:t>Revenue grew 12%</w:t></w:r></w:p></w:body>
</w:document>`

func TestExtractTextFromBytes_ZipDocxNormalizes(t *testing.T) {
	data := buildZip(t, map[string]string{"word/document.xml": documentXML})

	text, err := ExtractTextFromBytes(context.Background(), data, "application/zip", "test.docx")
	if err != nil {
		t.Fatalf("expected docx to extract from zip mime, got error: %v", err)
	}
	if !strings.Contains(text, "Quarterly report\n") || !strings.HasSuffix(text, "Revenue grew 12%") {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractTextFromBytes_RealZipRejected(t *testing.T) {
	data := buildZip(t, map[string]string{"notes.txt": "hello"})

	_, err := ExtractTextFromBytes(context.Background(), data, "application/zip", "notes.zip")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if !strings.Contains(err.Error(), "application/zip") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtractTextFromBytes_PlainText(t *testing.T) {
	text, err := ExtractTextFromBytes(context.Background(), []byte("  hello world \n"), "text/plain; charset=utf-8", "a.txt")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected text %q", text)
	}

	if _, err := ExtractTextFromBytes(context.Background(), []byte{0xff, 0xfe}, "text/plain", "a.txt"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected invalid utf-8 to be rejected, got %v", err)
	}
}

func TestNormalizeMimeTypeUsesExtension(t *testing.T) {
	cases := map[string]string{
		"report.pdf":  mimePDF,
		"notes.md":    "text/markdown",
		"table.csv":   "text/csv",
		"memo.docx":   mimeDOCX,
		"unknown.bin": "application/octet-stream",
	}
	for name, want := range cases {
		if got := NormalizeMimeType("application/octet-stream", name, nil); got != want {
			t.Fatalf("%s: got %q want %q", name, got, want)
		}
	}
}
