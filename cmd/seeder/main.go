package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/fraudlens"
	"github.com/poiesic/fraudlens/ai"
	"github.com/poiesic/fraudlens/ai/mock"
	"github.com/poiesic/fraudlens/ai/openai"
	"github.com/poiesic/fraudlens/config"
	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/ingestion"
)

type sample struct {
	title string
	date  string
	text  string
}

var samples = []sample{
	{"Bank ordered to refund Zelle scam victims", "2024-03-05", "The Bureau found the bank failed to investigate unauthorized transfers via Zelle and denied error resolution claims."},
	{"Action against ACH processor", "2024-02-14", "Consumers reported ACH errors and reversals that the processor never corrected."},
	{"SIM swap losses", "2023-09-21", "Criminals used SIM swapping to complete an account takeover and drain savings."},
	{"Crypto platform misled investors", "2023-06-01", "The platform ran a crypto investment scam promising guaranteed returns."},
	{"Pig butchering warning", "2023-11-12", "Scammers built online relationships before steering victims into pig butchering schemes."},
	{"Identity theft complaints rise", "2022-08-30", "Complaints about identity theft on credit cards and bank accounts doubled."},
	{"Wire fraud at title companies", "2022-05-17", "Homebuyers lost down payments to wire fraud after spoofed closing instructions."},
	{"Debt collector fined", "2024-01-10", "Debt collectors harassed borrowers with repeated calls and false threats of arrest."},
	{"Credit reporting errors", "2023-03-08", "The agency failed to reinvestigate disputes and kept inaccurate information on consumer reports."},
	{"Mortgage servicer penalized", "2022-11-02", "The servicer mishandled escrow accounts and pushed borrowers toward foreclosure."},
	{"Remittance provider settles", "2024-04-22", "The remittance transfer provider hid fees on international transfers."},
	{"Deceptive overdraft practices", "2023-01-19", "The bank engaged in unfair and deceptive overdraft fee practices."},
	{"Phishing texts impersonate banks", "2024-05-03", "Smishing campaigns impersonated bank fraud departments to steal one-time passcodes."},
	{"Quarterly report released", "2024-06-30", "The Bureau published its semiannual report to Congress."},
}

var (
	dbPath    = flag.String("db", "./fraudlens_db", "path to the BadgerDB directory")
	srcFile   = flag.String("src", "", "JSONL file of scraped articles (title, date, source, url, text)")
	useMock   = flag.Bool("mock", false, "embed with the deterministic mock embedder instead of the configured provider")
	batchSize = flag.Int("batch", 5, "articles per ingestion batch")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// articlesFromFile returns an iterator over the articles in a JSONL file.
func articlesFromFile(filename string) (iter.Seq[*core.RawArticle], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(*core.RawArticle) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var raw core.RawArticle
			if err := json.Unmarshal(scanner.Bytes(), &raw); err != nil {
				slog.Warn("skipping malformed line", "err", err)
				continue
			}
			if !yield(&raw) {
				return
			}
		}
	}, nil
}

// articlesFromSamples returns an iterator over the built-in sample articles.
func articlesFromSamples(samples []sample) iter.Seq[*core.RawArticle] {
	return func(yield func(*core.RawArticle) bool) {
		for i, s := range samples {
			date, _ := time.Parse(time.DateOnly, s.date)
			raw := &core.RawArticle{
				Title:  s.title,
				Date:   date,
				Source: core.SourceNewsroom,
				URL:    fmt.Sprintf("https://example.com/seed/%d", i+1),
				Text:   s.text,
			}
			if !yield(raw) {
				return
			}
		}
	}
}

// ingestBatched reads from a source iterator and ingests articles in batches.
func ingestBatched(ctx context.Context, engine *fraudlens.Engine, source iter.Seq[*core.RawArticle], batchSize int) (ingestion.Summary, error) {
	var total ingestion.Summary
	batch := make([]*core.RawArticle, 0, batchSize)

	flush := func() error {
		results, err := engine.Ingest(ctx, batch...)
		if err != nil {
			return err
		}
		s := ingestion.Summarize(results)
		total.Total += s.Total
		total.Stored += s.Stored
		total.Skipped += s.Skipped
		total.Failed += s.Failed
		batch = batch[:0]
		return nil
	}

	for raw := range source {
		batch = append(batch, raw)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}

	// Process any remaining articles
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return total, err
		}
	}

	return total, nil
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	cfg.Store.Driver = config.DriverBadger
	cfg.Store.Path = *dbPath

	stores, closeStores, err := fraudlens.OpenStores(ctx, cfg.Store, cfg.Embedding.Dimensions, slog.Default())
	if err != nil {
		panic(err)
	}
	defer closeStores()

	var provider ai.AIProvider
	if *useMock {
		provider = mock.NewMockProviderWithEmbedder(&mock.MockEmbedder{Dimensions: cfg.Embedding.Dimensions})
	} else if provider, err = openai.NewProvider(cfg.AI()); err != nil {
		panic(err)
	}
	defer provider.Close()

	engine, err := fraudlens.New(stores, provider,
		fraudlens.WithDimensions(cfg.Embedding.Dimensions),
		fraudlens.WithWorkers(cfg.Ingest.Workers),
	)
	if err != nil {
		panic(err)
	}
	defer engine.Close()

	source := articlesFromSamples(samples)
	if *srcFile != "" {
		if source, err = articlesFromFile(*srcFile); err != nil {
			panic(err)
		}
	}

	summary, err := ingestBatched(ctx, engine, source, max(*batchSize, 1))
	if err != nil {
		panic(err)
	}
	slog.Info("seeding complete", "total", summary.Total, "stored", summary.Stored, "skipped", summary.Skipped, "failed", summary.Failed)
}
