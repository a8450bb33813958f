// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/poiesic/acooeaz"
	"github.com/poiesic/acooeaz/enrich"
	"github.com/poiesic/acooeaz/index"
	"github.com/poiesic/acooeaz/ingestion"
	"github.com/poiesic/acooeaz/metrics"
	"github.com/poiesic/acooeaz/scheduler"
	"github.com/poiesic/acooeaz/server"
	"github.com/poiesic/acooeaz/xref"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
)

func openCompendium(c *cli.Context, opts ...acooeaz.Option) (*acooeaz.Compendium, error) {
	cfg := configFrom(c)
	opts = append([]acooeaz.Option{acooeaz.WithLogger(slog.Default())}, opts...)
	return acooeaz.Open(c.Context, cfg, opts...)
}

// queryArg joins the positional arguments into one query.
func queryArg(c *cli.Context, what string) (string, error) {
	q := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if q == "" {
		return "", fmt.Errorf("%s is required", what)
	}
	return q, nil
}

func importCommand(c *cli.Context) error {
	data, err := os.ReadFile(c.String("file"))
	if err != nil {
		return err
	}
	bundle, err := ingestion.DecodeBundle(data)
	if err != nil {
		return err
	}

	comp, err := openCompendium(c)
	if err != nil {
		return err
	}
	defer comp.Close()

	var opts []ingestion.Option
	if c.Bool("fringe") {
		opts = append(opts, ingestion.WithFringe())
	}
	pipeline, err := comp.NewIngestion(opts...)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	stats, err := pipeline.ImportBundle(c.Context, bundle)
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "vocabulary: %d inserted, %d replaced, %d failed\n",
		stats.Vocabulary.Inserted, stats.Vocabulary.Replaced, stats.Vocabulary.Failed)
	fmt.Fprintf(w, "drugs:      %d inserted, %d replaced, %d failed, %d skipped\n",
		stats.Drugs.Inserted, stats.Drugs.Replaced, stats.Drugs.Failed, stats.Drugs.Skipped)
	fmt.Fprintf(w, "articles:   %d inserted, %d replaced, %d failed\n",
		stats.Articles.Inserted, stats.Articles.Replaced, stats.Articles.Failed)
	fmt.Fprintf(w, "enriched:   %d\n", stats.Enriched)
	return nil
}

func printReport(c *cli.Context, report *index.Report) {
	w := c.App.Writer
	names := make([]string, 0, len(report.Rows))
	for name := range report.Rows {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%-16s %d rows\n", name, report.Rows[name])
	}
	fmt.Fprintf(w, "%d articles, %d drugs in %s\n", report.Articles, report.Drugs, formatDuration(report.Duration))
}

func rebuildCommand(c *cli.Context) error {
	comp, err := openCompendium(c)
	if err != nil {
		return err
	}
	defer comp.Close()

	report, err := comp.RebuildAll(c.Context)
	if err != nil {
		return err
	}
	printReport(c, report)
	return nil
}

func searchDrugCommand(c *cli.Context) error {
	q, err := queryArg(c, "drug name")
	if err != nil {
		return err
	}
	comp, err := openCompendium(c)
	if err != nil {
		return err
	}
	defer comp.Close()

	entries, err := comp.SearchDrugByName(c.Context, q)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%.2f\n", e.ID, e.DisplayName, e.Score)
	}
	return nil
}

func searchActiveCommand(c *cli.Context) error {
	q, err := queryArg(c, "substance")
	if err != nil {
		return err
	}
	comp, err := openCompendium(c)
	if err != nil {
		return err
	}
	defer comp.Close()

	groups, err := comp.SearchActiveSubstance(c.Context, q)
	if err != nil {
		return err
	}
	for _, g := range groups {
		fmt.Fprintln(c.App.Writer, g.Substance)
		for _, d := range g.Drugs {
			fmt.Fprintf(c.App.Writer, "  %s\t%s\t%.2f\n", d.Drug.ID, d.Drug.Name, d.Score)
		}
	}
	return nil
}

func searchArticlesCommand(c *cli.Context) error {
	q, err := queryArg(c, "search text")
	if err != nil {
		return err
	}
	comp, err := openCompendium(c)
	if err != nil {
		return err
	}
	defer comp.Close()

	entries, err := comp.SearchArticlesAny(c.Context, q)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%.2f\n", e.ID, e.DisplayName, e.Score)
	}
	return nil
}

func articlesForDrugCommand(c *cli.Context) error {
	id, err := queryArg(c, "registration number")
	if err != nil {
		return err
	}
	comp, err := openCompendium(c)
	if err != nil {
		return err
	}
	defer comp.Close()

	result, err := comp.FindArticlesForDrugID(c.Context, id)
	if err != nil {
		return err
	}
	printMatches(c, "product", result.Product)
	printMatches(c, "substance", result.Substance)
	printMatches(c, "disease", result.Disease)
	return nil
}

func printMatches(c *cli.Context, label string, matches []xref.ArticleMatch) {
	fmt.Fprintf(c.App.Writer, "%s (%d)\n", label, len(matches))
	for _, m := range matches {
		fmt.Fprintf(c.App.Writer, "  %d\t%s\t%s\t%.2f\n", m.Article.ID, m.Keyword, m.Article.Title, m.Score)
	}
}

func enrichCommand(c *cli.Context) error {
	cfg := configFrom(c)
	if c.IsSet("pool-size") {
		cfg.Enrich.PoolSize = c.Int("pool-size")
	}
	if c.IsSet("batch-size") {
		cfg.Enrich.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("report-interval") {
		cfg.Enrich.ReportInterval = c.Int("report-interval")
	}
	if c.IsSet("max-retries") {
		cfg.Enrich.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		cfg.Enrich.RetryDelay = c.Duration("retry-delay")
	}

	comp, err := openCompendium(c)
	if err != nil {
		return err
	}
	defer comp.Close()

	job, err := comp.NewEnrichment(enrich.WithProgress(c.App.ErrWriter, cfg.Enrich.ReportInterval))
	if err != nil {
		return err
	}
	defer job.Release()

	report, err := job.Run(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "articles: %d enriched, %d failed\n", report.Articles.Enriched, report.Articles.Failed)
	fmt.Fprintf(c.App.Writer, "drugs:    %d enriched, %d failed\n", report.Drugs.Enriched, report.Drugs.Failed)
	fmt.Fprintf(c.App.Writer, "took %s\n", formatDuration(report.Duration))

	if !c.Bool("rebuild") {
		return nil
	}
	rebuilt, err := comp.RebuildAll(c.Context)
	if err != nil {
		return err
	}
	printReport(c, rebuilt)
	return nil
}

func serveCommand(c *cli.Context) error {
	cfg := configFrom(c)
	addr := cfg.Server.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}
	spec := cfg.Schedule.Rebuild
	if c.IsSet("schedule") {
		spec = c.String("schedule")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	comp, err := openCompendium(c, acooeaz.WithMetrics(metrics.New(reg)))
	if err != nil {
		return err
	}
	defer comp.Close()

	srv, err := server.New(comp, server.WithGatherer(reg), server.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if spec != "" {
		sched, err := scheduler.New(comp, spec, scheduler.WithLogger(slog.Default()))
		if err != nil {
			return err
		}
		sched.Start(ctx)
		defer sched.Stop()
	}

	return srv.Run(ctx, addr)
}
