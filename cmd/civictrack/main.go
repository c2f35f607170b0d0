package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"civictrack/internal/config"
	"civictrack/internal/database"
	"civictrack/internal/extract"
	"civictrack/internal/fetch"
	"civictrack/internal/llm"
	"civictrack/internal/normalize"
	"civictrack/internal/registry"
	"civictrack/internal/relevance"
	"civictrack/internal/scrape"
	"civictrack/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "civictrack",
	Short:   "Civic infrastructure project registry",
	Long:    "civictrack scrapes public-record sources, extracts civic project data with a local LLM, and maintains a deduplicated, versioned project registry.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(serveCmd)
}

func openDB() (*database.DB, error) {
	dbPath := filepath.Join(cfg.GetDataDir(), "civictrack.db")
	db, err := database.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func newFetcher() *fetch.Fetcher {
	return fetch.New(fetch.Options{
		Timeout:   time.Duration(cfg.Scraper.TimeoutSeconds) * time.Second,
		Attempts:  cfg.Scraper.RetryAttempts,
		RateLimit: time.Duration(cfg.Scraper.RateLimitSeconds * float64(time.Second)),
		UserAgent: cfg.Scraper.UserAgent,
	})
}

func buildScrapers(db *database.DB) []scrape.Scraper {
	fetcher := newFetcher()
	normalizer := normalize.New(fetcher)
	filter := relevance.New(cfg.Target.City, cfg.Target.Keywords, cfg.Scraper.Debug)

	return []scrape.Scraper{
		scrape.NewFeedScraper(db, normalizer, filter, cfg.Sources.Feeds, cfg.Scraper.MaxPerSource),
		scrape.NewGovScraper(db, fetcher, cfg.Sources.PressURL, cfg.Target.Keywords, cfg.Scraper.MaxPerSource),
		scrape.NewNoopScraper("VideoScraper"),
	}
}

func newRegistry(db *database.DB) (*registry.Registry, error) {
	provider := llm.NewOllamaProvider(cfg.LLM.Model, cfg.LLM.BaseURL(), cfg.LLM.Temperature)
	if !provider.IsConfigured() {
		return nil, fmt.Errorf("cannot reach Ollama at %s (model %s); make sure it is running", cfg.LLM.BaseURL(), cfg.LLM.Model)
	}
	extractor := extract.New(provider, cfg.Target.City, cfg.LLM.MaxTokens)
	return registry.New(db, extractor), nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("civictrack", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/civictrack/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds, keywords, and the LLM endpoint.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show registry and scraper status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Articles:")
		fmt.Printf("  Total: %d\n", stats.TotalArticles)
		fmt.Printf("  Processed: %d\n", stats.ProcessedArticles)
		fmt.Printf("  Unprocessed: %d\n", stats.UnprocessedArticles)
		fmt.Println("\nProjects:")
		fmt.Printf("  Total: %d\n", stats.TotalProjects)
		for status, count := range stats.ProjectsByStatus {
			fmt.Printf("  %s: %d\n", status, count)
		}

		runs, err := db.GetRecentRuns(5)
		if err == nil && len(runs) > 0 {
			fmt.Println("\nRecent scraper runs:")
			for _, run := range runs {
				ts := ""
				if run.RunTimestamp != nil {
					ts = *run.RunTimestamp
				}
				fmt.Printf("  %s  %s  collected=%d errors=%d\n", ts, run.ScraperName, run.SuccessCount, run.ErrorCount)
			}
		}
		return nil
	},
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run all scrapers and store relevant articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		results := scrape.RunAll(context.Background(), db, buildScrapers(db))

		fmt.Println("\nScraping complete:")
		for _, r := range results {
			if r.Err != nil {
				fmt.Printf("  %s: failed (%v)\n", r.Scraper, r.Err)
			} else {
				fmt.Printf("  %s: %d articles\n", r.Scraper, r.Collected)
			}
		}
		return nil
	},
}

var extractLimit int

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract project data from unprocessed articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		reg, err := newRegistry(db)
		if err != nil {
			return err
		}

		result, err := reg.ProcessUnprocessed(context.Background(), extractLimit)
		if err != nil {
			return err
		}

		fmt.Println("\nExtraction complete:")
		fmt.Printf("  Processed: %d\n", result.Processed)
		fmt.Printf("  Projects found: %d\n", result.ProjectsFound)
		fmt.Printf("  Failed: %d\n", result.Failed)
		return nil
	},
}

func init() {
	extractCmd.Flags().IntVar(&extractLimit, "limit", 20, "Maximum articles to process in this batch")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: scrape then extract the backlog",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()

		fmt.Println("Step 1/2: Scraping sources...")
		results := scrape.RunAll(ctx, db, buildScrapers(db))
		collected := 0
		for _, r := range results {
			collected += r.Collected
		}
		fmt.Printf("  Collected %d articles\n", collected)

		fmt.Println("Step 2/2: Extracting projects...")
		reg, err := newRegistry(db)
		if err != nil {
			return err
		}

		total := registry.Result{}
		for {
			batch, err := reg.ProcessUnprocessed(ctx, extractBatchSize)
			if err != nil {
				return err
			}
			total.Processed += batch.Processed
			total.ProjectsFound += batch.ProjectsFound
			total.Failed += batch.Failed
			if batch.Processed == 0 {
				break
			}
		}

		fmt.Println("\nPipeline complete:")
		fmt.Printf("  Processed: %d\n", total.Processed)
		fmt.Printf("  Projects found: %d\n", total.ProjectsFound)
		fmt.Printf("  Failed: %d\n", total.Failed)
		return nil
	},
}

const extractBatchSize = 20

var (
	projectType   string
	projectStatus string
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List tracked projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		views, err := db.GetAllProjects(&database.ProjectFilters{
			ProjectType: projectType,
			Status:      projectStatus,
		})
		if err != nil {
			return fmt.Errorf("listing projects: %w", err)
		}

		if len(views) == 0 {
			fmt.Println("No projects tracked yet. Run 'civictrack run' first.")
			return nil
		}

		for _, v := range views {
			fmt.Printf("[%d] %s\n", v.ID, v.ProjectName)
			if v.ProjectType != nil {
				fmt.Printf("    type: %s", *v.ProjectType)
				if v.Status != nil {
					fmt.Printf("  status: %s", *v.Status)
				}
				fmt.Println()
			}
			if v.Location != nil {
				fmt.Printf("    location: %s\n", *v.Location)
			}
			fmt.Printf("    first seen: %s  last updated: %s  confidence: %.2f\n",
				v.FirstSeen, v.LastUpdated, v.ConfidenceScore)
		}
		return nil
	},
}

func init() {
	projectsCmd.Flags().StringVar(&projectType, "type", "", "Filter by project type")
	projectsCmd.Flags().StringVar(&projectStatus, "status", "", "Filter by status")
}

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local JSON API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}
