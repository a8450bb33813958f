// Command seeder loads a demo data set into a badger store and builds the
// search indexes, so the CLI and the HTTP API have something to work on.
package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/poiesic/acooeaz"
	ixbadger "github.com/poiesic/acooeaz/index/badger"
	"github.com/poiesic/acooeaz/ingestion"
	"github.com/poiesic/acooeaz/storage/badger"
)

//go:embed demo.json
var demoBundle []byte

var (
	dbPath  = flag.String("db", "./data/acooeaz", "badger database directory")
	srcFile = flag.String("src", "", "bundle file to load instead of the demo data")
	noIndex = flag.Bool("no-index", false, "skip the index rebuild")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

func loadBundle(path string) (*ingestion.Bundle, error) {
	data := demoBundle
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, err
		}
	}
	return ingestion.DecodeBundle(data)
}

func seed(ctx context.Context, store *badger.Store, bundle *ingestion.Bundle, rebuild bool) error {
	c, err := acooeaz.New(store, ixbadger.New(store.Backend()))
	if err != nil {
		return err
	}
	defer c.Close()

	pipeline, err := c.NewIngestion()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	stats, err := pipeline.ImportBundle(ctx, bundle)
	if err != nil {
		return err
	}
	slog.Info("bundle imported",
		"terms", stats.Vocabulary.Total(),
		"drugs", stats.Drugs.Inserted+stats.Drugs.Replaced,
		"articles", stats.Articles.Inserted+stats.Articles.Replaced,
		"enriched", stats.Enriched)

	if !rebuild {
		return nil
	}
	report, err := c.RebuildAll(ctx)
	if err != nil {
		return err
	}
	slog.Info("indexes rebuilt", "rows", report.Rows)
	return nil
}

func main() {
	flag.Parse()

	bundle, err := loadBundle(*srcFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	store, err := badger.Open(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer store.Close()

	if err := seed(context.Background(), store, bundle, !*noIndex); err != nil {
		slog.Error("seeding failed", "err", err)
		store.Close()
		os.Exit(1)
	}
}
