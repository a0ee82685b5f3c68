// Package main is the scopematch CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ciridae/scopematch/internal/compare"
	"github.com/ciridae/scopematch/internal/config"
	"github.com/ciridae/scopematch/internal/jobs"
	"github.com/ciridae/scopematch/internal/models"
	"github.com/ciridae/scopematch/internal/oracle/openai"
	"github.com/ciridae/scopematch/internal/parse"
	"github.com/ciridae/scopematch/internal/render"
	"github.com/ciridae/scopematch/internal/report"
	"github.com/ciridae/scopematch/internal/server"
	"github.com/ciridae/scopematch/internal/storage"
	"github.com/ciridae/scopematch/internal/watcher"
	"github.com/ciridae/scopematch/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/scopematch/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "scopematch server" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// normalizeSource maps a user-supplied document kind to its canonical name.
func normalizeSource(s string) (string, error) {
	switch s {
	case models.SourceContractor, models.SourceInsurance:
		return s, nil
	default:
		return "", fmt.Errorf("unknown document kind %q (use %s or %s)", s, models.SourceContractor, models.SourceInsurance)
	}
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "compare":
		runCompare()
	case "parse":
		runParse()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("scopematch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (oracle calls, intake events, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	runner := jobs.NewRunner(
		components.Parser,
		components.Reconciler,
		jobs.NewStore(),
		jobs.WithComparisonCache(components.Storage),
		jobs.WithReportWriter(&report.XLSXWriter{}),
		jobs.WithLogger(logger),
	)

	watchOpts := []watcher.WatcherOption{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	intake := watcher.NewWatcher(
		cfg.Intake.Directories,
		func(contractorPath, insurancePath string) {
			job := runner.Submit(contractorPath, insurancePath)
			logger.Info("intake pair submitted",
				zap.String("job_id", job.ID),
				zap.String("dir", filepath.Dir(contractorPath)),
			)
		},
		watchOpts...,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Intake.Directories) > 0 {
		if err := intake.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start intake watcher", zap.Error(err))
		}
		intake.SyncExistingPairs()
	}

	srv := server.NewServer(runner, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	intake.Stop()
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runCompare() {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	reportPath := fs.String("report", "", "write an XLSX report to this path")
	outputFormat := fs.String("output", "text", "output format: text (summary) or json (full comparison)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 2 {
		fmt.Println("Usage: scopematch compare [flags] <contractor.pdf> <insurance.pdf>")
		os.Exit(1)
	}
	contractorPath, insurancePath := fs.Arg(0), fs.Arg(1)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	progress := func(label string) parse.Progress {
		return func(done, total int) {
			fmt.Fprintf(os.Stderr, "\r%s: %d/%d", label, done, total)
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		}
	}

	sourceDoc, err := components.Parser.ParseDocument(ctx, contractorPath, models.SourceContractor, progress("contractor"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Parse contractor document failed: %v\n", err)
		os.Exit(1)
	}
	targetDoc, err := components.Parser.ParseDocument(ctx, insurancePath, models.SourceInsurance, progress("insurance"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Parse insurance document failed: %v\n", err)
		os.Exit(1)
	}

	result, err := components.Reconciler.Compare(ctx, sourceDoc, targetDoc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Comparison failed: %v\n", err)
		os.Exit(1)
	}

	if *reportPath != "" {
		writer := &report.XLSXWriter{}
		if err := writer.Write(*reportPath, result); err != nil {
			fmt.Fprintf(os.Stderr, "Report failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Report written: %s\n", *reportPath)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		printSummary(result.Summarize())
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func printSummary(s models.Summary) {
	fmt.Printf("contractor items:    %d\n", s.TotalSourceItems)
	fmt.Printf("insurance items:     %d\n", s.TotalTargetItems)
	fmt.Printf("matched:             %d\n", s.MatchedGreen+s.MatchedOrange)
	fmt.Printf("  exact:             %d\n", s.MatchedGreen)
	fmt.Printf("  with differences:  %d\n", s.MatchedOrange)
	fmt.Printf("contractor only:     %d\n", s.UnmatchedSource)
	fmt.Printf("insurance only:      %d\n", s.UnmatchedTarget)
}

func runParse() {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	kind := fs.String("kind", models.SourceContractor, "document kind: contractor or insurance")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: scopematch parse [flags] <document.pdf>")
		os.Exit(1)
	}
	pdfPath := fs.Arg(0)

	source, err := normalizeSource(*kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	doc, err := components.Parser.ParseDocument(context.Background(), pdfPath, source, func(done, total int) {
		fmt.Fprintf(os.Stderr, "\rparsing: %d/%d", done, total)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Jobs           int    `json:"jobs"`
	DiskUsageBytes *int64 `json:"disk_usage_bytes,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	status, err := statusViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("jobs:              %d   # comparison jobs accepted\n", status.Jobs)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:  %d   # uploads + cache on disk\n", *status.DiskUsageBytes)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Storage    *storage.SQLiteStorage
	Oracle     *openai.Client
	Parser     *parse.Parser
	Reconciler *compare.Reconciler
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	oracleClient := openai.New(
		cfg.Oracle.BaseURL,
		cfg.Oracle.APIKey,
		cfg.Oracle.TextModel,
		cfg.Oracle.VisionModel,
		openai.WithLogger(logger),
	)

	renderer := &render.PopplerRenderer{DPI: cfg.Parse.RenderDPI}

	parser := parse.NewParser(renderer, oracleClient,
		parse.WithStorage(store),
		parse.WithLogger(logger),
		parse.WithWorkers(cfg.Parse.Workers),
	)

	reconciler := compare.NewReconciler(oracleClient, oracleClient,
		compare.WithLogger(logger),
		compare.WithWorkers(cfg.Parse.Workers),
	)

	return &Components{
		Storage:    store,
		Oracle:     oracleClient,
		Parser:     parser,
		Reconciler: reconciler,
	}, nil
}

func printUsage() {
	fmt.Println(`scopematch - Contractor vs insurance estimate reconciliation

Usage:
  scopematch server [flags]                          Start the HTTP server
  scopematch compare [flags] <contractor> <insurance>  Compare two estimate PDFs
  scopematch parse [flags] <document>                Parse one estimate PDF to JSON
  scopematch status [flags]                          Show server status
  scopematch version                                 Show version
  scopematch help                                    Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/scopematch/config.yaml)
  --debug            Enable debug logging (oracle calls, intake events, etc.)

Compare Flags:
  --config string    Config file path
  --report string    Write an XLSX report to this path
  --output string    Output format: text (summary) or json (full comparison)

Parse Flags:
  --config string    Config file path
  --kind string      Document kind: contractor or insurance (default: contractor)

Status Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Examples:
  scopematch server
  scopematch compare contractor.pdf insurance.pdf
  scopematch compare --report report.xlsx --output json contractor.pdf insurance.pdf
  scopematch parse --kind insurance estimate.pdf
  scopematch status --output json`)
}
