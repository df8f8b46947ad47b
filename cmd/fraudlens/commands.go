package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/fraudlens"
	"github.com/poiesic/fraudlens/classify"
	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/ingestion"
	"github.com/poiesic/fraudlens/reembed"
	"github.com/poiesic/fraudlens/search"
	"github.com/poiesic/fraudlens/textnorm"
	"github.com/poiesic/fraudlens/trends"
	"github.com/urfave/cli/v2"
)

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one input file")
	}
	batchSize := c.Int("batch-size")
	if batchSize <= 0 {
		return errors.New("batch-size must be greater than 0")
	}

	path := c.Args().First()
	format := c.String("format")
	if format == "" {
		format = formatFromPath(path)
	}

	var in io.Reader = c.App.Reader
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}
	raws, err := readArticles(in, format)
	if err != nil {
		return fmt.Errorf("failed to read articles: %w", err)
	}

	cfg := *appConfig(c)
	if c.IsSet("workers") {
		cfg.Ingest.Workers = c.Int("workers")
	}
	if c.IsSet("model") {
		cfg.ModelPath = c.String("model")
	}

	return withEngine(c, &cfg, func(engine *fraudlens.Engine) error {
		var total ingestion.Summary
		for chunk := range slices.Chunk(raws, batchSize) {
			results, err := engine.Ingest(c.Context, chunk...)
			if err != nil {
				return fmt.Errorf("ingestion failed: %w", err)
			}
			for _, r := range results {
				if r.Err != nil {
					slog.Warn("article not fully processed", "id", r.ID, "stored", r.Stored, "err", r.Err)
				}
			}
			s := ingestion.Summarize(results)
			total.Total += s.Total
			total.Stored += s.Stored
			total.Skipped += s.Skipped
			total.Failed += s.Failed
		}
		fmt.Fprintf(c.App.Writer, "Ingested %d articles: %d stored, %d skipped, %d failed\n",
			total.Total, total.Stored, total.Skipped, total.Failed)
		return nil
	})
}

func classifyCommand(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	if c.NArg() == 0 {
		data, err := io.ReadAll(c.App.Reader)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}
	if err := core.ValidateText(text); err != nil {
		return err
	}

	cfg := appConfig(c)
	var (
		rules *classify.RuleSet
		err   error
	)
	if cfg.RulesPath != "" {
		rules, err = classify.LoadRules(cfg.RulesPath)
	} else {
		rules, err = classify.DefaultRules()
	}
	if err != nil {
		return err
	}
	classifier, err := classify.NewClassifier(rules)
	if err != nil {
		return err
	}

	result, err := classifier.Classify(textnorm.Normalize(text))
	if err != nil {
		return err
	}

	w := c.App.Writer
	if !result.Matched() {
		fmt.Fprintln(w, "Category: none")
		return nil
	}
	fmt.Fprintf(w, "Category: %s (%s)\n", rules.Label(result.Category), result.Category)
	fmt.Fprintf(w, "Tags:     %s\n", strings.Join(result.Tags, ", "))
	fmt.Fprintf(w, "Summary:  %s\n", result.Summary)
	if explanation := rules.Explanation(result.Category); explanation != "" {
		fmt.Fprintf(w, "About:    %s\n", explanation)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if name := c.String("preset"); name != "" {
		preset, err := search.LookupPreset(name)
		if err != nil {
			return fmt.Errorf("%w (available: %s)", err, strings.Join(search.PresetNames(), ", "))
		}
		query = preset.Query
	}
	if strings.TrimSpace(query) == "" {
		return errors.New("a query or --preset is required")
	}

	cfg := appConfig(c)
	topK := cfg.Search.TopK
	if c.IsSet("top-k") {
		topK = c.Int("top-k")
	}
	filters := core.SearchFilters{
		Year:          c.Int("year"),
		Keyword:       c.String("keyword"),
		MinSimilarity: cfg.Search.MinSimilarity,
	}
	if c.IsSet("min-similarity") {
		filters.MinSimilarity = core.Threshold(float32(c.Float64("min-similarity")))
	}

	return withEngine(c, cfg, func(engine *fraudlens.Engine) error {
		results, err := engine.Query(c.Context, query, filters, topK)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Fprintln(c.App.Writer, "No matching articles")
			return nil
		}

		t := newTable(
			column{title: "#"},
			column{title: "SCORE"},
			column{title: "DATE"},
			column{title: "TYPE", max: 20},
			column{title: "ALERT"},
			column{title: "TITLE", max: 72},
		)
		for _, r := range results {
			t.add(
				strconv.Itoa(r.Rank),
				strconv.FormatFloat(float64(r.Score), 'f', 3, 32),
				r.Article.PublishedAt.Format(time.DateOnly),
				fraudType(r.Article.FraudType),
				alertMark(r.Alert),
				r.Article.Title,
			)
		}
		return t.render(c.App.Writer)
	})
}

func alertsCommand(c *cli.Context) error {
	return withEngine(c, appConfig(c), func(engine *fraudlens.Engine) error {
		alerts, err := engine.Alerts(c.Context, c.Int("scan"), c.Int("limit"))
		if err != nil {
			return err
		}
		if len(alerts) == 0 {
			fmt.Fprintln(c.App.Writer, "No alerts")
			return nil
		}

		t := newTable(
			column{title: "DATE"},
			column{title: "TYPE", max: 20},
			column{title: "TITLE", max: 60},
			column{title: "REASON"},
		)
		for _, a := range alerts {
			t.add(a.PublishedAt.Format(time.DateOnly), fraudType(a.FraudType), a.Title, engine.AlertReason(a))
		}
		return t.render(c.App.Writer)
	})
}

func trendsCommand(c *cli.Context) error {
	start := time.Unix(0, 0).UTC()
	end := time.Now().UTC().AddDate(0, 0, 1)
	if year := c.Int("year"); year != 0 {
		start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(1, 0, 0)
	}
	top := c.Int("top")

	return withEngine(c, appConfig(c), func(engine *fraudlens.Engine) error {
		articles, err := engine.Articles(c.Context, start, end)
		if err != nil {
			return err
		}
		w := c.App.Writer
		fmt.Fprintf(w, "Articles: %d\n\n", len(articles))

		fmt.Fprintln(w, "Top fraud tags:")
		tags := trends.TagFrequency(articles)
		if top > 0 && top < len(tags) {
			tags = tags[:top]
		}
		for _, tc := range tags {
			fmt.Fprintf(w, "  %-28s %d\n", tc.Name, tc.Count)
		}

		fmt.Fprintln(w, "\nTop fraud types by year:")
		for _, yt := range trends.TopFraudTypesByYear(articles, top) {
			parts := make([]string, len(yt.Types))
			for i, tc := range yt.Types {
				parts[i] = fmt.Sprintf("%s (%d)", engine.Rules().Label(core.FraudType(tc.Name)), tc.Count)
			}
			fmt.Fprintf(w, "  %d: %s\n", yt.Year, strings.Join(parts, ", "))
		}

		days := trends.DailyActivity(articles, c.Int("year"))
		fmt.Fprintf(w, "\nActive days: %d\n", len(days))
		return nil
	})
}

func reembedCommand(c *cli.Context) error {
	cfg := appConfig(c)
	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		MissingOnly:    c.Bool("missing-only"),
		Refresh:        c.Bool("refresh"),
		Resume:         c.Bool("resume"),
		MaxEmbedChars:  cfg.Ingest.MaxEmbedChars,
	}

	if reembedConfig.BatchSize <= 0 {
		return errors.New("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return errors.New("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return errors.New("max-retries must be greater than 0")
	}

	return withEngine(c, cfg, func(engine *fraudlens.Engine) error {
		reembedder, err := engine.Reembedder(reembedConfig, c.App.ErrWriter)
		if err != nil {
			return err
		}

		fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", cfg.Embedding.Host)
		fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n\n", cfg.Embedding.Model)

		stats, err := reembedder.Run(c.Context)
		if err != nil {
			return fmt.Errorf("reembedding failed: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Embedded %d of %d articles (%d skipped)\n", stats.Embedded, stats.Visited, stats.Skipped)
		return nil
	})
}

func presetsCommand(c *cli.Context) error {
	t := newTable(
		column{title: "NAME"},
		column{title: "LABEL"},
		column{title: "QUERY"},
	)
	for _, p := range search.Presets {
		t.add(p.Name, p.Label, p.Query)
	}
	return t.render(c.App.Writer)
}

func fraudType(t core.FraudType) string {
	if t == core.FraudTypeNone {
		return "-"
	}
	return string(t)
}

func alertMark(alert bool) string {
	if alert {
		return "!"
	}
	return ""
}
