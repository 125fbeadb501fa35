package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"bugscope/internal/config"
	"bugscope/internal/crawler"
	"bugscope/internal/extractor"
	"bugscope/internal/index"
	"bugscope/internal/oracle"
	"bugscope/internal/proxy"
	"bugscope/internal/resolver"
	"bugscope/internal/retrieval"
	"bugscope/internal/search"
	"bugscope/internal/storage"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "bugscope",
		Short: "LLM-driven context retrieval for bug localization",
	}
	configPath string
	dbPath     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the local audit database (SQLite, overrides storage.db_path)")

	locateCmd.Flags().StringVar(&issuePath, "issue", "", "Path to a file containing the issue text (required)")
	locateCmd.Flags().StringVar(&faultHintPath, "sbfl", "", "Path to a file with fault-localization tool output")
	locateCmd.Flags().StringVar(&reproHintPath, "repro", "", "Path to a file with reproduction-test tool output")
	locateCmd.Flags().StringVar(&outputDir, "out", "", "Directory for per-round diagnostic dumps")
	_ = locateCmd.MarkFlagRequired("issue")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(locateCmd)
}

func buildBackend(ctx context.Context, projectRoot string, languages []string) (*search.Backend, error) {
	ext, err := extractor.NewExtractor(languages...)
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}
	cr := crawler.NewCrawler(ext.Extensions())
	builder := index.NewBuilder(ext, cr)

	ix, err := builder.Build(ctx, projectRoot)
	if err != nil {
		return nil, fmt.Errorf("index build failed: %w", err)
	}
	return search.NewBackend(ix), nil
}

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Build the structural index for a project and report its shape",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			log.Fatalf("Failed to resolve path: %v", err)
		}

		cfg, _ := config.LoadConfig(configPath)
		languages := []string{"go", "python"}
		if cfg != nil && len(cfg.Project.Languages) > 0 {
			languages = cfg.Project.Languages
		}

		backend, err := buildBackend(context.Background(), absPath, languages)
		if err != nil {
			log.Fatalf("Failed to build index: %v", err)
		}
		ix := backend.Indices()

		fmt.Printf("Indexed %s\n", ix.ProjectRoot)
		fmt.Printf("  parsed files: %d\n", len(ix.ParsedFiles))
		fmt.Printf("  classes:      %d\n", len(ix.Class))
		fmt.Printf("  functions:    %d\n", len(ix.Function))
	},
}

var (
	issuePath     string
	faultHintPath string
	reproHintPath string
	outputDir     string
)

var locateCmd = &cobra.Command{
	Use:   "locate [path]",
	Short: "Run retrieval over a project to localize the bug behind an issue",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			log.Fatalf("Failed to resolve path: %v", err)
		}

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if cfg.Oracle.APIKey == "" {
			log.Fatalf("Oracle API key not configured")
		}

		issueText, err := os.ReadFile(issuePath)
		if err != nil {
			log.Fatalf("Failed to read issue file: %v", err)
		}
		faultHint := readOptional(faultHintPath)
		reproHint := readOptional(reproHintPath)

		ctx := context.Background()

		backend, err := buildBackend(ctx, absPath, cfg.Project.Languages)
		if err != nil {
			log.Fatalf("Failed to build index: %v", err)
		}

		orc, err := oracle.New(ctx, oracle.Options{
			Provider: cfg.Oracle.Provider,
			APIKey:   cfg.Oracle.APIKey,
			Model:    cfg.Oracle.Model,
			BaseURL:  cfg.Oracle.BaseURL,
		})
		if err != nil {
			log.Fatalf("Failed to create oracle: %v", err)
		}

		store, err := storage.NewSQLiteStore(resolveDBPath(dbPath, cfg.Storage.DBPath))
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		if outputDir == "" {
			outputDir = cfg.Retrieval.OutputDir
		}
		if outputDir != "" {
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				log.Fatalf("Failed to create output directory: %v", err)
			}
		}

		coordinator := retrieval.NewCoordinator(retrieval.Options{
			Oracle:     orc,
			Validator:  proxy.NewValidatorWithRetries(orc, cfg.Retrieval.ProxyRetries),
			Backend:    backend,
			Resolver:   resolver.NewResolver(backend),
			Audit:      store,
			OutputDir:  outputDir,
			RoundLimit: cfg.Retrieval.RoundLimit,
		})

		outcome, err := coordinator.Run(ctx, string(issueText), faultHint, reproHint)
		if err != nil {
			log.Fatalf("Retrieval failed: %v", err)
		}

		if outcome.Exhausted {
			fmt.Printf("No precise bug locations found within %d rounds.\n", outcome.Rounds)
			return
		}
		fmt.Printf("Found %d bug locations in %d rounds:\n\n", len(outcome.Locations), outcome.Rounds)
		for _, loc := range outcome.Locations {
			fmt.Println(loc.Tagged())
			fmt.Println()
		}
	},
}

// resolveDBPath picks the audit database path: the flag wins, then the
// config file, then the default next to the working directory.
func resolveDBPath(flagPath, cfgPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if cfgPath != "" {
		return cfgPath
	}
	return "bugscope.db"
}

func readOptional(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}
