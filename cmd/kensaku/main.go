// Package main is the kensaku CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kensaku/internal/cache"
	"github.com/hyperjump/kensaku/internal/cli"
	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/extract"
	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/keyword"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/query"
	"github.com/hyperjump/kensaku/internal/search"
	"github.com/hyperjump/kensaku/internal/server"
	"github.com/hyperjump/kensaku/internal/storage"
	"github.com/hyperjump/kensaku/internal/telemetry"
	"github.com/hyperjump/kensaku/internal/watcher"
	"github.com/hyperjump/kensaku/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/kensaku/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default and config.yaml
// exists in the current directory, that file is used instead.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
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
	case "search":
		runSearch()
	case "import":
		runImport()
	case "facets":
		runFacets()
	case "status":
		runStatus()
	case "catalog":
		runCatalog()
	case "version", "--version", "-v":
		fmt.Printf("kensaku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (catalog changes, per-branch search results)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("driver", cfg.Storage.Driver),
		zap.Bool("debug", debugMode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.Tracing.ServiceName,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
		Enabled:     cfg.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchSvc := watcher.NewWatcher(
		cfg.Catalog.Directories,
		cfg.Catalog.Extensions,
		cfg.Catalog.RecursiveOrDefault(),
		components.Indexer,
		watcher.WithLogger(logger),
	)
	if err := watchSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer watchSvc.Stop()
	watchSvc.SyncExistingFiles()

	srv := server.NewServer(
		components.Engine,
		components.Indexer,
		components.Store,
		cfg,
		logger,
		watchSvc,
		resolvedConfigPath,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Warn("server shutdown failed", zap.Error(err))
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("Server failed", zap.Error(err))
	}
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags that appear after the query to the front
// so that flag.Parse sees them.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// refinementFromFlags returns nil when no refinement flag was given.
func refinementFromFlags(industries, regions, categories, sizes []string) *models.Refinement {
	if len(industries)+len(regions)+len(categories)+len(sizes) == 0 {
		return nil
	}
	return &models.Refinement{
		Industries:   industries,
		Regions:      regions,
		Categories:   categories,
		CompanySizes: sizes,
	}
}

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kensaku search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. An empty query lists the published directory.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  kensaku search AI企業 東京
  kensaku search "2015年創業の中小企業"
  kensaku search --region 大阪府 --limit 5 SaaS
  kensaku search --output json サービス 比較
`)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	limit := fs.Int("limit", 0, "results per collection (0 = server default)")
	offset := fs.Int("offset", 0, "results to skip per collection")
	outputFormat := fs.String("output", "text", "output format: text or json")
	var industries, regions, categories, sizes listFlag
	fs.Var(&industries, "industry", "refine by industry (repeatable)")
	fs.Var(&regions, "region", "refine by region (repeatable)")
	fs.Var(&categories, "category", "refine by service category (repeatable)")
	fs.Var(&sizes, "size", "refine by company size: startup, small, medium, large, enterprise (repeatable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	req := &models.SmartSearchRequest{
		Query:  buildSearchQuery(fs.Args()),
		Limit:  *limit,
		Offset: *offset,
		Refine: refinementFromFlags(industries, regions, categories, sizes),
	}

	ctx := context.Background()
	var result *models.SmartSearchResult
	if *serverURL != "" {
		result, err = cli.NewClient(*serverURL).Search(ctx, req)
	} else {
		err = withComponents(*configPath, func(c *components) error {
			var searchErr error
			result, searchErr = c.Engine.ExecuteSmartSearch(ctx, req)
			return searchErr
		})
	}
	if err != nil {
		fatalf("Search failed: %v", err)
	}
	if err := cli.WriteSearchResult(os.Stdout, result, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runFacets() {
	fs := flag.NewFlagSet("facets", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	ctx := context.Background()
	var facets models.FacetSet
	if *serverURL != "" {
		facets, err = cli.NewClient(*serverURL).Facets(ctx)
	} else {
		err = withComponents(*configPath, func(c *components) error {
			facets = c.Engine.Facets(ctx)
			return nil
		})
	}
	if err != nil {
		fatalf("Facets failed: %v", err)
	}
	if err := cli.WriteFacets(os.Stdout, facets, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	ctx := context.Background()
	var status *cli.Status
	if *serverURL != "" {
		status, err = cli.NewClient(*serverURL).Status(ctx)
	} else {
		err = withComponents(*configPath, func(c *components) error {
			var statusErr error
			status, statusErr = localStatus(ctx, c)
			return statusErr
		})
	}
	if err != nil {
		fatalf("Status failed: %v", err)
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func localStatus(ctx context.Context, c *components) (*cli.Status, error) {
	status := &cli.Status{
		Collections: map[string]int64{},
		Config:      map[string]string{"driver": c.cfg.Storage.Driver},
	}
	for _, coll := range models.AllCollections {
		n, err := c.Store.Count(ctx, coll)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", coll, err)
		}
		status.Collections[string(coll)] = n
	}
	var dataPath string
	switch c.cfg.Storage.Driver {
	case config.DriverSQLite:
		dataPath = c.cfg.Storage.DatabasePath
		status.Config["database_path"] = dataPath
	case config.DriverBleve:
		dataPath = c.cfg.Storage.BleveIndexPath
		status.Config["bleve_index_path"] = dataPath
	}
	if dataPath != "" {
		if n, err := storage.DiskUsageBytes(dataPath); err == nil {
			status.DiskUsageBytes = &n
		}
	}
	status.Directories = c.cfg.Catalog.Directories
	return status, nil
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "post the catalog to a running server instead of writing storage directly")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fatalf("Usage: kensaku import [flags] <catalog-file-or-directory>")
	}
	path := fs.Arg(0)
	info, err := os.Stat(path)
	if err != nil {
		fatalf("Failed to stat path: %v", err)
	}
	ctx := context.Background()

	if *serverURL != "" {
		if info.IsDir() {
			fatalf("Importing through --server takes a single catalog file; add directories with \"kensaku catalog add\"")
		}
		catalog, err := extract.NewExtractor().Extract(path)
		if err != nil {
			fatalf("Failed to read catalog: %v", err)
		}
		counts, err := cli.NewClient(*serverURL).ImportCatalog(ctx, catalog)
		if err != nil {
			fatalf("Import failed: %v", err)
		}
		printCounts(counts)
		return
	}

	err = withComponents(*configPath, func(c *components) error {
		if info.IsDir() {
			n, err := c.Indexer.IndexDirectory(ctx, path, c.cfg.Catalog.Extensions, c.cfg.Catalog.RecursiveOrDefault())
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d catalog file(s) from %s\n", n, path)
			return nil
		}
		// A single named file is imported whatever its extension filter says.
		counts, err := c.Indexer.IndexFile(ctx, path, nil)
		if err != nil {
			return err
		}
		printCounts(counts)
		return nil
	})
	if err != nil {
		fatalf("Import failed: %v", err)
	}
}

func printCounts(c indexer.Counts) {
	fmt.Printf("Imported %d record(s): %d organizations, %d services, %d case studies\n",
		c.Total(), c.Organizations, c.Services, c.CaseStudies)
}

func runCatalog() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: kensaku catalog <add|remove|list> [path]")
		fmt.Println("  kensaku catalog add <path>     Watch a catalog directory")
		fmt.Println("  kensaku catalog remove <path>  Stop watching a catalog directory")
		fmt.Println("  kensaku catalog list           List watched catalog directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("catalog", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[3:])

	client := cli.NewClient(*serverURL)
	ctx := context.Background()
	switch sub {
	case "add", "remove":
		if fs.NArg() < 1 {
			fatalf("Usage: kensaku catalog %s <path>", sub)
		}
		path, err := filepath.Abs(fs.Arg(0))
		if err != nil {
			fatalf("Invalid path: %v", err)
		}
		if sub == "add" {
			if err := client.AddDirectory(ctx, path); err != nil {
				fatalf("Add failed: %v", err)
			}
			fmt.Printf("Added: %s\n", path)
			return
		}
		if err := client.RemoveDirectory(ctx, path); err != nil {
			fatalf("Remove failed: %v", err)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		dirs, err := client.Directories(ctx)
		if err != nil {
			fatalf("List failed: %v", err)
		}
		for _, d := range dirs {
			fmt.Println(d)
		}
	default:
		fatalf("Unknown catalog subcommand: %s", sub)
	}
}

// components holds initialized services.
type components struct {
	cfg     *config.Config
	Store   storage.Store
	Cache   *cache.RedisFacetCache
	Engine  *search.Engine
	Indexer *indexer.Indexer
}

func (c *components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
}

// withComponents loads config, builds the components, and runs fn against them.
func withComponents(configPath string, fn func(*components) error) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	c, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return storage.NewPostgresStore(ctx, cfg.PostgresDSN)
	case config.DriverBleve:
		return keyword.NewBleveStore(cfg.BleveIndexPath)
	default:
		return storage.NewSQLiteStore(cfg.DatabasePath)
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.Storage.Driver, err)
	}
	c := &components{cfg: cfg, Store: store}

	engineOpts := []search.Option{search.WithLogger(logger), search.WithStrict(cfg.Debug)}
	if cfg.Dictionaries.Path != "" {
		dicts, err := query.LoadDictionaries(cfg.Dictionaries.Path)
		if err != nil {
			c.Close()
			return nil, err
		}
		engineOpts = append(engineOpts, search.WithDictionaries(dicts))
	}

	idxOpts := []indexer.IndexerOption{indexer.WithLogger(logger)}
	if cfg.Cache.RedisAddr != "" {
		fc, err := cache.NewRedisFacetCache(ctx, cfg.Cache)
		if err != nil {
			// Facets are still computed without the cache.
			logger.Warn("facet cache disabled", zap.String("redis_addr", cfg.Cache.RedisAddr), zap.Error(err))
		} else {
			c.Cache = fc
			engineOpts = append(engineOpts, search.WithFacetCache(fc))
			idxOpts = append(idxOpts, indexer.WithOnChange(func(ctx context.Context) {
				if err := fc.Invalidate(ctx); err != nil {
					logger.Warn("facet cache invalidation failed", zap.Error(err))
				}
			}))
		}
	}

	c.Engine = search.NewEngine(store, cfg.Search, engineOpts...)
	c.Indexer = indexer.NewIndexer(store, extract.NewExtractor(), idxOpts...)
	return c, nil
}

func printUsage() {
	fmt.Println(`kensaku - Japanese natural-language directory search

Usage:
  kensaku server [flags]                 Start the HTTP server and catalog watcher
  kensaku search [flags] <query>         Search organizations, services, and case studies
  kensaku facets [flags]                 Show facet counts over the published directory
  kensaku import [flags] <path>          Import a catalog file or directory
  kensaku status [flags]                 Show record counts and storage status
  kensaku catalog <add|remove|list>      Manage watched catalog directories
  kensaku version                        Show version
  kensaku help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kensaku/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --config string    Config file path (direct storage mode)
  --limit int        Results per collection (default from config)
  --offset int       Results to skip per collection
  --industry, --region, --category, --size string
                     Refinements; each may be repeated
  --output string    Output format: text or json (default: text)

Import Flags:
  --config string    Config file path
  --server string    Post the catalog to a running server instead of writing storage directly

Facets/Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --config string    Config file path (direct storage mode)
  --output string    Output format: text or json (default: text)

Catalog Flags:
  --server string    Server URL (default: http://localhost:8080)

Examples:
  kensaku server
  kensaku search AI企業 東京
  kensaku search --output json "2015年創業の中小企業"
  kensaku import catalog.yaml
  kensaku import --server http://localhost:8080 companies.xlsx
  kensaku catalog add /path/to/catalogs
  kensaku status --output json`)
}
