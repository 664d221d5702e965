// Package ingest feeds text files into a corpus collection.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rcliao/markovbot/internal/corpus"
)

// maxParallelReads bounds concurrent file reads.
const maxParallelReads = 8

// Result describes one ingested file.
type Result struct {
	Path    string `json:"path"`
	Corpus  string `json:"corpus"`
	Triples int    `json:"triples"`
}

// Files reads every path concurrently and then ingests them into the named
// corpus in argument order. With overwrite only the first file replaces the
// corpus; the rest extend it. Nothing is ingested if any read fails.
func Files(ctx context.Context, coll *corpus.Collection, paths []string, name string, overwrite bool) ([]Result, error) {
	texts := make([]string, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("read %s: %w", p, err)
			}
			texts[i] = string(data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(paths))
	for i, text := range texts {
		n, err := coll.Ingest(text, name, overwrite && i == 0)
		if err != nil {
			return results, fmt.Errorf("ingest %s: %w", paths[i], err)
		}
		results = append(results, Result{Path: paths[i], Corpus: corpusName(name), Triples: n})
	}
	return results, nil
}

// CorpusForFile derives a corpus name from a file name: "news.de.txt" → "news.de".
func CorpusForFile(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func corpusName(name string) string {
	if name == "" {
		return corpus.DefaultName
	}
	return name
}
