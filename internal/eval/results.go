package eval

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadRankedResultFile reads a persisted ranked-result file
// ("rank,file_id_in_dotted_form,score" per line) and returns the ranked
// file ids in order, normalized to the corpus's path-separated form. A
// missing file yields a nil (not error) slice — the evaluator treats a
// missing result file as a zero-score outcome for that bug/variant.
func LoadRankedResultFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var files []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			continue
		}
		files = append(files, normalizeResultFilename(parts[1]))
	}
	return files, scanner.Err()
}

// normalizeResultFilename mirrors the reference loader: strip a leading
// "tables." corpus-root segment if present, then convert the remaining
// dotted module path to a path-separated one, preserving the final
// extension.
func normalizeResultFilename(filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.TrimPrefix(filename, "tables.")
	parts := strings.Split(filename, ".")
	if len(parts) <= 1 {
		return filename
	}
	return filepath.Join(parts[:len(parts)-1]...) + "." + parts[len(parts)-1]
}

// ResultFilename builds the conventional per-bug result file name:
// "<bug_id>_<baseline|extended>_<query_type>_query_result.txt".
func ResultFilename(bugID, flavor, queryType string) string {
	return bugID + "_" + flavor + "_" + queryType + "_query_result.txt"
}

// RankedFile is one persisted result line: a file id already in the
// corpus's native (path-separated) form, and its fused score.
type RankedFile struct {
	FileID string
	Score  float64
}

// WriteRankedResultFile persists ranked as
// "rank,file_id_in_dotted_form,score" lines, the inverse of
// LoadRankedResultFile: file ids are converted to the dotted form (path
// separators joined with ".", final extension preserved) and the score is
// formatted to 3 decimals, matching the original tooling's
// f"{i+1},{short_filename},{score:.3f}".
func WriteRankedResultFile(path string, ranked []RankedFile) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i, r := range ranked {
		if _, err := fmt.Fprintf(w, "%d,%s,%.3f\n", i+1, toDottedForm(r.FileID), r.Score); err != nil {
			return err
		}
	}
	return w.Flush()
}

// toDottedForm converts a path-separated file id to the dotted form read by
// normalizeResultFilename: "a/b/c.go" -> "a.b.c.go".
func toDottedForm(fileID string) string {
	return strings.ReplaceAll(fileID, "/", ".")
}
