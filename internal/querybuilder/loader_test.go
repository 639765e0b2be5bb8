package querybuilder

import (
	"os"
	"path/filepath"
	"testing"
)

func writeBugReportDir(t *testing.T, root, bugID string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, bugID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadBugReport_ReadsTitleDescriptionAndOCR(t *testing.T) {
	root := t.TempDir()
	writeBugReportDir(t, root, "bug-1", map[string]string{
		"title.txt":                 "crash on save",
		"description.txt":           "saving a file crashes the app",
		"bug-1_1_ImageContent.txt":  "stack trace screenshot text",
		"bug-1_2_ImageContent.txt":  "second screenshot text",
	})

	report, err := LoadBugReport(root, "bug-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Title != "crash on save" || report.Description != "saving a file crashes the app" {
		t.Fatalf("unexpected title/description: %+v", report)
	}
	if len(report.OCRContent) != 2 {
		t.Fatalf("expected 2 OCR files, got %d: %v", len(report.OCRContent), report.OCRContent)
	}
	if report.OCRContent[0] != "stack trace screenshot text" {
		t.Fatalf("expected sorted OCR order, got %v", report.OCRContent)
	}
}

func TestLoadBugReport_MissingOptionalFilesYieldEmptyNotError(t *testing.T) {
	root := t.TempDir()
	writeBugReportDir(t, root, "bug-2", map[string]string{})

	report, err := LoadBugReport(root, "bug-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Title != "" || report.Description != "" || len(report.OCRContent) != 0 {
		t.Fatalf("expected empty fields, got %+v", report)
	}
}

func TestLoadBugReport_MissingDirectoryErrors(t *testing.T) {
	root := t.TempDir()
	if _, err := LoadBugReport(root, "does-not-exist"); err == nil {
		t.Fatal("expected error for missing bug report directory")
	}
}

func TestListBugIDs_ReturnsSortedDirectoryNames(t *testing.T) {
	root := t.TempDir()
	writeBugReportDir(t, root, "bug-2", map[string]string{})
	writeBugReportDir(t, root, "bug-1", map[string]string{})

	ids, err := ListBugIDs(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "bug-1" || ids[1] != "bug-2" {
		t.Fatalf("expected sorted [bug-1 bug-2], got %v", ids)
	}
}
