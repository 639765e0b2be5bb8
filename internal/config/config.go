// Package config loads and validates the system configuration: the option
// set named in the external-interfaces section (bm25_k1, bm25_b,
// bm25_weight, faiss_weight, top_n_keywords, top_n_documents, dense_metric,
// pipeline_parallelism, queue_capacity, stopwords_path, corpus_extensions).
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aman-cerp/buglocate/internal/bugerr"
)

// DenseMetric selects the Dense Index similarity function.
type DenseMetric string

const (
	MetricL2     DenseMetric = "l2"
	MetricCosine DenseMetric = "cosine"
)

// BM25Config holds Okapi BM25 parameters.
type BM25Config struct {
	K1 float64 `yaml:"k1" json:"k1"`
	B  float64 `yaml:"b" json:"b"`
}

// RankerConfig holds Hybrid Ranker fusion weights.
type RankerConfig struct {
	BM25Weight  float64 `yaml:"bm25_weight" json:"bm25_weight"`
	FaissWeight float64 `yaml:"faiss_weight" json:"faiss_weight"`
	TopN        int     `yaml:"top_n_documents" json:"top_n_documents"`
}

// DenseConfig configures the Dense Index.
type DenseConfig struct {
	Metric DenseMetric `yaml:"metric" json:"metric"`
}

// PipelineConfig configures the staged pipeline orchestrator.
type PipelineConfig struct {
	Parallelism   int `yaml:"parallelism" json:"parallelism"`
	QueueCapacity int `yaml:"queue_capacity" json:"queue_capacity"`
}

// QueryBuilderConfig configures the Query Builder.
type QueryBuilderConfig struct {
	TopNKeywords int `yaml:"top_n_keywords" json:"top_n_keywords"`
}

// CorpusConfig configures corpus discovery.
type CorpusConfig struct {
	Extensions []string `yaml:"extensions" json:"extensions"`
}

// PathsConfig configures on-disk locations.
type PathsConfig struct {
	StopwordsPath string `yaml:"stopwords_path" json:"stopwords_path"`
	IndexDir      string `yaml:"index_dir" json:"index_dir"`
}

// Config is the complete configuration.
type Config struct {
	BM25          BM25Config         `yaml:"bm25" json:"bm25"`
	Ranker        RankerConfig       `yaml:"ranker" json:"ranker"`
	Dense         DenseConfig        `yaml:"dense" json:"dense"`
	Pipeline      PipelineConfig     `yaml:"pipeline" json:"pipeline"`
	QueryBuilder  QueryBuilderConfig `yaml:"query_builder" json:"query_builder"`
	Corpus        CorpusConfig       `yaml:"corpus" json:"corpus"`
	Paths         PathsConfig        `yaml:"paths" json:"paths"`
}

// defaultCorpusExtensions mirrors the extension set named in the
// external-interfaces section.
var defaultCorpusExtensions = []string{
	"py", "cpp", "c", "h", "hpp", "java", "js", "ts", "cs", "go", "php", "vue",
}

// NewConfig returns a Config populated with the spec's stated defaults.
func NewConfig() *Config {
	return &Config{
		BM25: BM25Config{K1: 1.5, B: 0.75},
		Ranker: RankerConfig{
			BM25Weight:  0.5,
			FaissWeight: 0.5,
			TopN:        100,
		},
		Dense: DenseConfig{Metric: MetricCosine},
		Pipeline: PipelineConfig{
			Parallelism:   4,
			QueueCapacity: 8,
		},
		QueryBuilder: QueryBuilderConfig{TopNKeywords: 10},
		Corpus:       CorpusConfig{Extensions: append([]string(nil), defaultCorpusExtensions...)},
		Paths: PathsConfig{
			StopwordsPath: "",
			IndexDir:      defaultIndexDir(),
		},
	}
}

func defaultIndexDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".buglocate", "index")
	}
	return filepath.Join(home, ".buglocate", "index")
}

// Load reads a YAML config file (if path is non-empty and exists), applies
// BUGLOCATE_* environment overrides, and validates the result. Absent a
// file, defaults are used.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadYAML(path); err != nil {
				return nil, bugerr.New(bugerr.KindConfigInvalid, "loading config file", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, bugerr.New(bugerr.KindConfigInvalid, "stat config file", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, bugerr.New(bugerr.KindConfigInvalid, "invalid configuration", err)
	}

	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero fields from other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.BM25.K1 != 0 {
		c.BM25.K1 = other.BM25.K1
	}
	if other.BM25.B != 0 {
		c.BM25.B = other.BM25.B
	}
	if other.Ranker.BM25Weight != 0 {
		c.Ranker.BM25Weight = other.Ranker.BM25Weight
	}
	if other.Ranker.FaissWeight != 0 {
		c.Ranker.FaissWeight = other.Ranker.FaissWeight
	}
	if other.Ranker.TopN != 0 {
		c.Ranker.TopN = other.Ranker.TopN
	}
	if other.Dense.Metric != "" {
		c.Dense.Metric = other.Dense.Metric
	}
	if other.Pipeline.Parallelism != 0 {
		c.Pipeline.Parallelism = other.Pipeline.Parallelism
	}
	if other.Pipeline.QueueCapacity != 0 {
		c.Pipeline.QueueCapacity = other.Pipeline.QueueCapacity
	}
	if other.QueryBuilder.TopNKeywords != 0 {
		c.QueryBuilder.TopNKeywords = other.QueryBuilder.TopNKeywords
	}
	if len(other.Corpus.Extensions) > 0 {
		c.Corpus.Extensions = other.Corpus.Extensions
	}
	if other.Paths.StopwordsPath != "" {
		c.Paths.StopwordsPath = other.Paths.StopwordsPath
	}
	if other.Paths.IndexDir != "" {
		c.Paths.IndexDir = other.Paths.IndexDir
	}
}

// applyEnvOverrides applies BUGLOCATE_* environment variables, highest
// precedence after the file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BUGLOCATE_BM25_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Ranker.BM25Weight = f
		}
	}
	if v := os.Getenv("BUGLOCATE_FAISS_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Ranker.FaissWeight = f
		}
	}
	if v := os.Getenv("BUGLOCATE_PIPELINE_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pipeline.Parallelism = n
		}
	}
	if v := os.Getenv("BUGLOCATE_STOPWORDS_PATH"); v != "" {
		c.Paths.StopwordsPath = v
	}
}

// Validate enforces the invariants named in the external-interfaces section:
// weights sum to 1, parallelism and queue capacity are positive, the dense
// metric and extension set are well-formed.
func (c *Config) Validate() error {
	if c.BM25.K1 < 0 {
		return fmt.Errorf("bm25.k1 must be non-negative, got %f", c.BM25.K1)
	}
	if c.BM25.B < 0 || c.BM25.B > 1 {
		return fmt.Errorf("bm25.b must be between 0 and 1, got %f", c.BM25.B)
	}
	if c.Ranker.BM25Weight < 0 || c.Ranker.BM25Weight > 1 {
		return fmt.Errorf("ranker.bm25_weight must be between 0 and 1, got %f", c.Ranker.BM25Weight)
	}
	if c.Ranker.FaissWeight < 0 || c.Ranker.FaissWeight > 1 {
		return fmt.Errorf("ranker.faiss_weight must be between 0 and 1, got %f", c.Ranker.FaissWeight)
	}
	if sum := c.Ranker.BM25Weight + c.Ranker.FaissWeight; math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("ranker.bm25_weight + ranker.faiss_weight must equal 1.0, got %.6f", sum)
	}
	if c.Ranker.TopN <= 0 {
		return fmt.Errorf("ranker.top_n_documents must be positive, got %d", c.Ranker.TopN)
	}
	if c.QueryBuilder.TopNKeywords <= 0 {
		return fmt.Errorf("query_builder.top_n_keywords must be positive, got %d", c.QueryBuilder.TopNKeywords)
	}
	if c.Pipeline.Parallelism <= 0 {
		return fmt.Errorf("pipeline.parallelism must be positive, got %d", c.Pipeline.Parallelism)
	}
	if c.Pipeline.QueueCapacity <= 0 {
		return fmt.Errorf("pipeline.queue_capacity must be positive, got %d", c.Pipeline.QueueCapacity)
	}
	switch c.Dense.Metric {
	case MetricL2, MetricCosine:
	default:
		return fmt.Errorf("dense.metric must be 'l2' or 'cosine', got %q", c.Dense.Metric)
	}
	if len(c.Corpus.Extensions) == 0 {
		return fmt.Errorf("corpus.extensions must be non-empty")
	}
	for _, ext := range c.Corpus.Extensions {
		if strings.TrimSpace(ext) == "" {
			return fmt.Errorf("corpus.extensions contains an empty entry")
		}
	}
	return nil
}

// DefaultParallelism mirrors the spec's "default 4" note for the LOCALIZE
// stage while still respecting hardware parallelism as an upper-bound hint
// for callers that want to auto-scale.
func DefaultParallelism() int {
	if n := runtime.NumCPU(); n > 0 && n < 4 {
		return n
	}
	return 4
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
