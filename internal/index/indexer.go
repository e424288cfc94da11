package index

import (
	"context"
	"fmt"

	"factlint/internal/crawler"
	"factlint/internal/frontend"
	"factlint/internal/syntax"
)

// Indexer turns source paths into parsed units.
type Indexer struct {
	crawler  *crawler.Crawler
	frontend *frontend.Frontend
}

// NewIndexer creates a new indexer.
func NewIndexer(fe *frontend.Frontend) *Indexer {
	return &Indexer{
		crawler:  crawler.NewCrawler(fe),
		frontend: fe,
	}
}

// BuildUnits discovers the source files under roots and parses them with up
// to workers parsers. Units are ordered by path; a file that fails to parse
// is still returned with its fault in Unit.Err.
func (i *Indexer) BuildUnits(ctx context.Context, roots []string, workers int) ([]*syntax.Unit, error) {
	files, err := i.crawler.Collect(roots...)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	units, err := i.frontend.ParseAll(ctx, files, workers)
	if err != nil {
		return nil, fmt.Errorf("parse failed: %w", err)
	}
	return units, nil
}
