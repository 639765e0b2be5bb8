package eval

import (
	"os"
	"path/filepath"
)

// ExistencePartition categorizes ground-truth files by whether they exist
// under the corpus root, and buckets bugs accordingly: a bug whose ground
// truth is entirely missing is excluded from scoring outright; a bug with
// some (but not all) files missing is scored against the existing subset;
// a bug with every file present is unaffected.
type ExistencePartition struct {
	Existing     GroundTruth // bug_id -> existing files only
	Missing      GroundTruth // bug_id -> missing files only
	AllMissing   []string    // bug ids excluded entirely
	SomeMissing  []string    // bug ids scored against a filtered subset
}

// CheckExistence probes corpusRoot (or corpusRoot/"tables" if that
// subdirectory exists — the reference tool's source-code layout
// convention) for each ground-truth file and partitions bugs accordingly.
func CheckExistence(corpusRoot string, gt GroundTruth) ExistencePartition {
	sourceDir := corpusRoot
	if tablesPath := filepath.Join(corpusRoot, "tables"); dirExists(tablesPath) {
		sourceDir = tablesPath
	}

	part := ExistencePartition{
		Existing: make(GroundTruth, len(gt)),
		Missing:  make(GroundTruth, len(gt)),
	}

	for bugID, files := range gt {
		existing := make(map[string]struct{})
		missing := make(map[string]struct{})
		for f := range files {
			if fileExists(filepath.Join(sourceDir, f)) {
				existing[f] = struct{}{}
			} else {
				missing[f] = struct{}{}
			}
		}
		part.Existing[bugID] = existing
		part.Missing[bugID] = missing

		switch {
		case len(existing) == 0 && len(files) > 0:
			part.AllMissing = append(part.AllMissing, bugID)
		case len(missing) > 0:
			part.SomeMissing = append(part.SomeMissing, bugID)
		}
	}

	return part
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
