package eval

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadGroundTruth_ParsesBugIDCountFormat(t *testing.T) {
	// Given: the bug_id/count ground-truth format
	input := "bug-1 2\nsrc.Services.Data.php\nsrc.Template.Builder.php\nbug-2 1\nsrc.Util.php\n"

	// When
	gt, err := LoadGroundTruth(strings.NewReader(input))

	// Then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gt["bug-1"]) != 2 || len(gt["bug-2"]) != 1 {
		t.Fatalf("unexpected ground truth: %+v", gt)
	}
	if _, ok := gt["bug-1"][filepath.Join("src", "Services", "Data.php")]; !ok {
		t.Fatalf("expected normalized path in bug-1 set, got %+v", gt["bug-1"])
	}
}

func TestNormalizeFilePath_PreservesFinalExtension(t *testing.T) {
	got := NormalizeFilePath("src.app.Services.Data.php")
	want := filepath.Join("src", "app", "Services", "Data.php")
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestNormalizeFilePath_NoDotsPassesThrough(t *testing.T) {
	if got := NormalizeFilePath("README"); got != "README" {
		t.Fatalf("expected passthrough, got %s", got)
	}
}

func TestCheckExistence_PartitionsAllMissingAndSomeMissing(t *testing.T) {
	// Given: a corpus root with one real file
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "src", "Real.go"), []byte("package src"), 0o644); err != nil {
		t.Fatal(err)
	}

	gt := GroundTruth{
		"bug-all-missing":  {"src/Ghost.go": struct{}{}},
		"bug-some-missing": {filepath.Join("src", "Real.go"): struct{}{}, "src/Ghost2.go": struct{}{}},
		"bug-none-missing": {filepath.Join("src", "Real.go"): struct{}{}},
	}

	// When
	part := CheckExistence(root, gt)

	// Then
	if len(part.AllMissing) != 1 || part.AllMissing[0] != "bug-all-missing" {
		t.Errorf("expected bug-all-missing in AllMissing, got %v", part.AllMissing)
	}
	if len(part.SomeMissing) != 1 || part.SomeMissing[0] != "bug-some-missing" {
		t.Errorf("expected bug-some-missing in SomeMissing, got %v", part.SomeMissing)
	}
	if len(part.Existing["bug-none-missing"]) != 1 {
		t.Errorf("expected 1 existing file for bug-none-missing, got %v", part.Existing["bug-none-missing"])
	}
}

func TestCheckExistence_ProbesTablesSubdirectoryFirst(t *testing.T) {
	root := t.TempDir()
	tablesDir := filepath.Join(root, "tables")
	if err := os.MkdirAll(filepath.Join(tablesDir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tablesDir, "src", "Real.go"), []byte("package src"), 0o644); err != nil {
		t.Fatal(err)
	}

	gt := GroundTruth{"bug-1": {filepath.Join("src", "Real.go"): struct{}{}}}
	part := CheckExistence(root, gt)

	if len(part.Existing["bug-1"]) != 1 {
		t.Fatalf("expected file found under tables/, got %+v", part.Existing)
	}
}

func TestLoadRankedResultFile_MissingFileYieldsNilNotError(t *testing.T) {
	files, err := LoadRankedResultFile(filepath.Join(t.TempDir(), "nonexistent.txt"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if files != nil {
		t.Fatalf("expected nil, got %v", files)
	}
}

func TestLoadRankedResultFile_ParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "result.txt")
	content := "1,tables.src.Services.Data.php,0.856\n2,src.Template.Builder.php,0.743\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	files, err := LoadRankedResultFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{filepath.Join("src", "Services", "Data.php"), filepath.Join("src", "Template", "Builder.php")}
	if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
		t.Fatalf("got %v, want %v", files, want)
	}
}

func TestWriteRankedResultFile_WritesDottedFormAndThreeDecimals(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "result.txt")

	ranked := []RankedFile{
		{FileID: "src/Services/Data.php", Score: 0.8563219},
		{FileID: "src/Template/Builder.php", Score: 0.74},
	}
	if err := WriteRankedResultFile(path, ranked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "1,src.Services.Data.php,0.856\n2,src.Template.Builder.php,0.740\n"
	if string(raw) != want {
		t.Fatalf("got %q, want %q", string(raw), want)
	}
}

func TestWriteRankedResultFile_RoundTripsThroughLoadRankedResultFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "result.txt")

	ranked := []RankedFile{
		{FileID: "src/Services/Data.php", Score: 0.9},
		{FileID: "src/Template/Builder.php", Score: 0.1},
	}
	if err := WriteRankedResultFile(path, ranked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	files, err := LoadRankedResultFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{filepath.Join("src", "Services", "Data.php"), filepath.Join("src", "Template", "Builder.php")}
	if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
		t.Fatalf("got %v, want %v", files, want)
	}
}

func TestCompute_HitAtKAndMRRAndMAP(t *testing.T) {
	// Given: one bug whose baseline ranks the ground-truth file 2nd
	gt := GroundTruth{"bug-1": {"a.go": struct{}{}}}
	results := []BugResults{
		{BugID: "bug-1", Baseline: []string{"x.go", "a.go", "y.go"}, Extended: []string{"a.go", "x.go", "y.go"}},
	}

	// When
	m := Compute(gt, results)

	// Then: extended improves over baseline (rank 1 < rank 2)
	if m.Improved != 1 {
		t.Fatalf("expected 1 improvement, got %d", m.Improved)
	}
	if m.HitAtKExtendedPercent[1] != 100 {
		t.Fatalf("expected 100%% hit@1 extended, got %v", m.HitAtKExtendedPercent[1])
	}
	if m.HitAtKBaselinePercent[1] != 0 {
		t.Fatalf("expected 0%% hit@1 baseline, got %v", m.HitAtKBaselinePercent[1])
	}
	if m.MRRBaseline != 0.5 {
		t.Fatalf("expected MRR baseline 0.5, got %v", m.MRRBaseline)
	}
	if m.MRRExtended != 1.0 {
		t.Fatalf("expected MRR extended 1.0, got %v", m.MRRExtended)
	}
	if m.MAPBaseline != 50 {
		t.Fatalf("expected MAP baseline 50, got %v", m.MAPBaseline)
	}
	if m.MAPExtended != 100 {
		t.Fatalf("expected MAP extended 100, got %v", m.MAPExtended)
	}
}

func TestCompute_MissingResultCountsAsZeroScore(t *testing.T) {
	gt := GroundTruth{"bug-1": {"a.go": struct{}{}}}
	results := []BugResults{{BugID: "bug-1", Baseline: nil, Extended: []string{"a.go"}}}

	m := Compute(gt, results)
	if m.ConsideredBugs != 1 {
		t.Fatalf("expected 1 considered bug when baseline missing, got %d", m.ConsideredBugs)
	}
	if m.MRRBaseline != 0 {
		t.Fatalf("expected MRR baseline 0 for a missing result, got %v", m.MRRBaseline)
	}
}

func TestCompute_NoGroundTruthTracksMissing(t *testing.T) {
	gt := GroundTruth{}
	results := []BugResults{{BugID: "bug-1", Baseline: []string{"a.go"}, Extended: []string{"a.go"}}}

	m := Compute(gt, results)
	if len(m.MissingGroundTruth) != 1 || m.MissingGroundTruth[0] != "bug-1" {
		t.Fatalf("expected bug-1 in MissingGroundTruth, got %v", m.MissingGroundTruth)
	}
}

func TestCompute_IdenticalRanksCountsAsIdentical(t *testing.T) {
	gt := GroundTruth{"bug-1": {"a.go": struct{}{}}}
	results := []BugResults{{BugID: "bug-1", Baseline: []string{"a.go"}, Extended: []string{"a.go"}}}

	m := Compute(gt, results)
	if m.Identical != 1 {
		t.Fatalf("expected 1 identical, got %d", m.Identical)
	}
}
