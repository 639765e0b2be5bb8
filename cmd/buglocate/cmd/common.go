package cmd

import (
	"context"

	"github.com/aman-cerp/buglocate/internal/config"
	"github.com/aman-cerp/buglocate/internal/corpus"
	"github.com/aman-cerp/buglocate/internal/external"
	"github.com/aman-cerp/buglocate/internal/normalize"
	"github.com/aman-cerp/buglocate/pkg/buglocate"
)

// loadConfig loads the effective config from --config (or defaults).
func loadConfig() (*config.Config, error) {
	return config.Load(flags.configPath)
}

// loadCorpus reads the source corpus rooted at --corpus using cfg's
// extension set and stopwords.
func loadCorpus(ctx context.Context, cfg *config.Config) (*corpus.Corpus, error) {
	stop, err := loadStopWords(cfg.Paths.StopwordsPath)
	if err != nil {
		return nil, err
	}
	return corpus.Load(ctx, flags.corpusRoot, cfg.Corpus.Extensions, stop)
}

func loadStopWords(path string) (normalize.StopWords, error) {
	if path == "" {
		return nil, nil
	}
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	return normalize.LoadStopWords(lines), nil
}

// indexDir resolves the effective index directory: --index-dir if set,
// else the config default.
func indexDir(cfg *config.Config) string {
	if flags.indexDir != "" {
		return flags.indexDir
	}
	return cfg.Paths.IndexDir
}

// buildEngine wires a buglocate.Engine over the corpus rooted at
// --corpus, using the deterministic static collaborators (embedder,
// keyword extractor, reasoner) as stand-ins for the real external
// services named in the system design — a CLI invocation has no API keys
// to call out with, so it exercises the same black-box interfaces the
// real collaborators would satisfy.
func buildEngine(ctx context.Context) (*buglocate.Engine, *corpus.Corpus, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	c, err := loadCorpus(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	embedder := external.NewStaticEmbedder()
	kwExtractor := external.NewCachedKeywordExtractor(external.NewStaticKeywordExtractor(), 512)
	reasoner := external.NewCachedReasoner(external.NewIdentityReasoner(), 512)

	eng, err := buglocate.New(ctx, cfg, c, indexDir(cfg),
		buglocate.WithEmbedder(embedder),
		buglocate.WithKeywordExtractor(kwExtractor),
		buglocate.WithReasoner(reasoner),
	)
	if err != nil {
		return nil, nil, err
	}
	return eng, c, nil
}
