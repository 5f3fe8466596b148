// Command glean discovers and traverses record listings on live sites.
//
// Usage:
//
//	glean -config glean.yaml                      # sites from YAML config
//	glean -search "laptop" https://example.com    # ad-hoc site list
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gleanware/glean/catalog"
	"github.com/gleanware/glean/fallback"
	"github.com/gleanware/glean/glean"
	"github.com/gleanware/glean/sink"
)

func main() {
	configPath := flag.String("config", "", "path to glean.yaml config file")
	search := flag.String("search", "", "search term submitted on each site")
	maxPages := flag.Int("max-pages", 0, "max listing pages per site (overrides config)")
	maxRecords := flag.Int("max-records", 0, "max records per page (overrides config)")
	headless := flag.Bool("headless", true, "run Chrome headless")
	outputDir := flag.String("output", "", "output directory for JSONL files (overrides config)")
	catalogPath := flag.String("catalog", "", "run-history SQLite path (overrides config)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *search, *maxPages, *maxRecords,
		*headless, *outputDir, *catalogPath, flag.Args()); err != nil {
		logger.Error("glean: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, search string,
	maxPages, maxRecords int, headless bool, outputDir, catalogPath string, urls []string) error {

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if search != "" {
		cfg.Search = search
	}
	if maxPages > 0 {
		cfg.Limits.MaxPages = maxPages
	}
	if maxRecords > 0 {
		cfg.Limits.MaxRecordsPerPage = maxRecords
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
		cfg.Output.CatalogPath = outputDir + "/catalog.db"
	}
	if catalogPath != "" {
		cfg.Output.CatalogPath = catalogPath
	}
	if !headless {
		hl := false
		cfg.Browser.Headless = &hl
	}
	for _, u := range urls {
		cfg.Sites = append(cfg.Sites, glean.SiteConfig{URL: u})
	}
	if len(cfg.Sites) == 0 {
		fmt.Fprintln(os.Stderr, "usage: glean -config <file> | glean [-search <term>] <url>...")
		os.Exit(1)
	}

	writer, err := sink.New(cfg.Output.Dir)
	if err != nil {
		return err
	}

	cat, err := catalog.Open(cfg.Output.CatalogPath)
	if err != nil {
		logger.Warn("glean: run catalog unavailable", "path", cfg.Output.CatalogPath, "error", err)
		cat = nil
	} else {
		defer cat.Close()
	}

	gateway := fallback.New(fallback.Config{
		BaseURL:         cfg.LLM.BaseURL,
		APIKey:          os.Getenv(cfg.LLM.APIKeyEnv),
		Model:           cfg.LLM.Model,
		Timeout:         cfg.LLM.Timeout,
		MaxContextBytes: cfg.LLM.MaxContextBytes,
		Logger:          logger,
	})

	br, err := glean.StartBrowser(cfg.Browser, logger)
	if err != nil {
		return err
	}
	defer br.Close()

	total := 0
	for _, site := range cfg.Sites {
		if ctx.Err() != nil {
			break
		}
		acc, page, err := br.NewAccessor()
		if err != nil {
			logger.Error("glean: opening page failed", "site", site.URL, "error", err)
			continue
		}

		sess, err := glean.NewSession(*cfg, glean.Deps{
			Accessor: acc,
			Sink:     writer,
			Catalog:  sessionCatalog(cat),
			Gateway:  sessionGateway(gateway),
			Logger:   logger,
		})
		if err != nil {
			return err
		}

		// A site failing never stops the ones after it.
		sum, err := sess.Run(ctx, site)
		if err != nil {
			logger.Error("glean: site run ended early", "site", site.URL, "error", err)
		}
		printSummary(sum)
		total += sum.Records

		if err := page.Close(); err != nil {
			logger.Debug("glean: closing page failed", "error", err)
		}
	}
	logger.Info("glean: all sites processed", "records", total)
	return nil
}

func loadConfig(path string) (*glean.Config, error) {
	if path == "" {
		cfg := &glean.Config{}
		cfg.ApplyDefaults()
		return cfg, nil
	}
	return glean.LoadConfigFile(path)
}

// sessionCatalog converts a possibly-nil *catalog.Catalog without producing
// a non-nil interface around a nil pointer.
func sessionCatalog(c *catalog.Catalog) glean.RunCatalog {
	if c == nil {
		return nil
	}
	return c
}

func sessionGateway(g *fallback.Gateway) glean.FieldRecoverer {
	if g == nil {
		return nil
	}
	return g
}

func printSummary(sum glean.Summary) {
	data, _ := json.Marshal(sum)
	os.Stdout.Write(data)
	os.Stdout.Write([]byte("\n"))
}
