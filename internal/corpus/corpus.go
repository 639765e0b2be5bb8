// Package corpus loads a source-code directory tree into the ordered
// Document sequence that the BM25 and Dense indexes are built over.
package corpus

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/aman-cerp/buglocate/internal/bugerr"
	"github.com/aman-cerp/buglocate/internal/normalize"
)

// Document is an immutable corpus record: raw_text plus the tokens and
// (later) embedding derived from it by the same Normalizer configuration.
type Document struct {
	ID       string   // stable file path, relative to the corpus root
	RawText  string
	Tokens   []string
	Embedding []float32
}

// Corpus is an ordered sequence of Documents indexed by corpus position.
// The ordering is fixed for the lifetime of the run; BM25Index and
// FlatIndex are addressed by this same position so scores combine without
// a join.
type Corpus struct {
	Root      string
	Documents []*Document
}

// ScanResult is one discovered file, or an error reading it.
type ScanResult struct {
	Path string
	Text string
	Err  error
}

// Load walks root, reading every file whose extension is in extensions
// (without the leading dot) into a Document, normalized with stop. Returns
// bugerr.KindCorpusEmpty if no files match.
func Load(ctx context.Context, root string, extensions []string, stop normalize.StopWords) (*Corpus, error) {
	extSet := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		extSet[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
	}

	results := scan(ctx, root, extSet)

	var docs []*Document
	for res := range results {
		if res.Err != nil {
			continue // per-file read failure: skip, corpus load is otherwise fatal only if empty
		}
		id, err := filepath.Rel(root, res.Path)
		if err != nil {
			id = res.Path
		}
		id = filepath.ToSlash(id)
		docs = append(docs, &Document{
			ID:      id,
			RawText: res.Text,
			Tokens:  normalize.Tokens(res.Text, stop),
		})
	}

	if len(docs) == 0 {
		return nil, bugerr.New(bugerr.KindCorpusEmpty, "no indexable files found under "+root, nil)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	return &Corpus{Root: root, Documents: docs}, nil
}

// scan walks root concurrently and streams files matching extSet. Grounded
// on the teacher's scanner: a buffered result channel filled by a background
// goroutine, closed when the walk completes.
func scan(ctx context.Context, root string, extSet map[string]struct{}) <-chan ScanResult {
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	results := make(chan ScanResult, workers*10)

	go func() {
		defer close(results)

		_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err != nil {
				return nil
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
			if _, ok := extSet[ext]; !ok {
				return nil
			}

			text, readErr := readUTF8WithLatin1Fallback(path)
			select {
			case results <- ScanResult{Path: path, Text: text, Err: readErr}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
	}()

	return results
}

// readUTF8WithLatin1Fallback reads a file as UTF-8, falling back to
// treating the bytes as Latin-1 if they are not valid UTF-8, per the
// bug-report-directory encoding rule (also applied here for corpus files
// for consistency with how bug-report text is read).
func readUTF8WithLatin1Fallback(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if isValidUTF8(data) {
		return string(data), nil
	}
	return latin1ToUTF8(data), nil
}

func isValidUTF8(b []byte) bool {
	return strings.ToValidUTF8(string(b), "�") == string(b)
}

func latin1ToUTF8(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// PositionOf returns the corpus position of the document with the given id,
// or -1 if not found.
func (c *Corpus) PositionOf(id string) int {
	for i, d := range c.Documents {
		if d.ID == id {
			return i
		}
	}
	return -1
}
