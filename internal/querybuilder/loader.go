package querybuilder

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aman-cerp/buglocate/internal/bugerr"
)

// LoadBugReport reads one bug report from <root>/<bugID>/{title.txt,
// description.txt, <bugID>*ImageContent.txt}, per the bug-report directory
// layout. title.txt and description.txt are optional; a missing file reads
// as empty text, not an error — an entirely empty report still produces
// the empty-variant contract downstream. Every file is read UTF-8 with
// Latin-1 fallback, matching internal/corpus's file-reading policy.
func LoadBugReport(root, bugID string) (*BugReport, error) {
	dir := filepath.Join(root, bugID)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, bugerr.New(bugerr.KindIOUnreadable, "bug report directory not found: "+dir, err)
	}

	title, err := readOptional(filepath.Join(dir, "title.txt"))
	if err != nil {
		return nil, bugerr.New(bugerr.KindIOUnreadable, "read title.txt for "+bugID, err)
	}
	description, err := readOptional(filepath.Join(dir, "description.txt"))
	if err != nil {
		return nil, bugerr.New(bugerr.KindIOUnreadable, "read description.txt for "+bugID, err)
	}

	ocr, err := readOCRContent(dir, bugID)
	if err != nil {
		return nil, bugerr.New(bugerr.KindIOUnreadable, "read image-content files for "+bugID, err)
	}

	return &BugReport{ID: bugID, Title: title, Description: description, OCRContent: ocr}, nil
}

func readOptional(path string) (string, error) {
	text, err := readUTF8WithLatin1Fallback(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	return text, err
}

// readOCRContent reads every file in dir matching "<bugID>*ImageContent.txt",
// in sorted filename order, and returns their contents in that order.
func readOCRContent(dir, bugID string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	prefix := bugID
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, "ImageContent.txt") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	contents := make([]string, 0, len(names))
	for _, name := range names {
		text, err := readUTF8WithLatin1Fallback(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		contents = append(contents, text)
	}
	return contents, nil
}

// readUTF8WithLatin1Fallback mirrors internal/corpus's encoding policy: read
// as UTF-8, falling back to treating the bytes as Latin-1 if invalid.
func readUTF8WithLatin1Fallback(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if strings.ToValidUTF8(string(data), "�") == string(data) {
		return string(data), nil
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes), nil
}

// ListBugIDs returns the bug-report directory names under root, sorted.
func ListBugIDs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, bugerr.New(bugerr.KindIOUnreadable, "list bug report directories under "+root, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}
