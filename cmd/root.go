package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/lukman83/carizon/config"
	"github.com/lukman83/carizon/internal/crawl"
	"github.com/lukman83/carizon/internal/httputil"
	"github.com/lukman83/carizon/internal/logger"
	"github.com/lukman83/carizon/internal/market"
	"github.com/lukman83/carizon/internal/models"
	"github.com/lukman83/carizon/internal/platform"
	"github.com/lukman83/carizon/internal/source/file"
	"github.com/lukman83/carizon/internal/source/httpapi"
	"github.com/lukman83/carizon/internal/source/pages"
	"github.com/lukman83/carizon/internal/source/postgres"
)

var (
	cfg *config.Config
	log logger.Logger = logger.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "carizon",
	Short: "Carizon - used-car price comparison CLI & MCP server",
	Long: "Compare asking prices for the same used vehicle across Korean listing platforms.\n" +
		"Reads vehicle snapshots from a file, a remote API, PostgreSQL or listing pages.",
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = log.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringSlice("source", nil, "Data sources: file, http, postgres, pages (comma separated)")
	f.String("data", "", "Vehicle data file (JSON or YAML) for the file source")
	f.String("api-url", "", "Base URL of the vehicle API for the http source")
	f.String("pages", "", "YAML list of listing pages for the pages source")
	f.String("dsn", "", "PostgreSQL DSN for the postgres source")
	f.Bool("partial", false, "Keep results from healthy sources when another fails")
	f.String("delay-profile", "", "Delay profile for page fetches: cautious, normal, none")
	f.Bool("respect-robots", true, "Respect robots.txt rules")
	f.String("log-level", "", "Log level: debug, info, warn, error")
}

func initConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load()
	if err != nil {
		return err
	}

	// Flags only override the environment when set explicitly.
	f := cmd.Flags()
	if f.Changed("source") {
		c.Sources, _ = f.GetStringSlice("source")
	}
	if f.Changed("data") {
		c.DataFile, _ = f.GetString("data")
	}
	if f.Changed("api-url") {
		c.APIBaseURL, _ = f.GetString("api-url")
	}
	if f.Changed("pages") {
		c.PagesFile, _ = f.GetString("pages")
	}
	if f.Changed("dsn") {
		c.PostgresDSN, _ = f.GetString("dsn")
	}
	if f.Changed("partial") {
		c.PartialSource, _ = f.GetBool("partial")
	}
	if f.Changed("delay-profile") {
		c.DelayProfile, _ = f.GetString("delay-profile")
	}
	if f.Changed("respect-robots") {
		c.RespectRobots, _ = f.GetBool("respect-robots")
	}
	if f.Changed("log-level") {
		c.LogLevel, _ = f.GetString("log-level")
	}
	if err := c.Validate(); err != nil {
		return err
	}

	l, err := logger.New(logger.Config{Level: c.LogLevel, Development: c.LogDevelopment})
	if err != nil {
		return err
	}
	cfg, log = c, l
	return nil
}

// buildService wires the configured sources into a market service. The
// returned cleanup releases database connections.
func buildService(ctx context.Context) (*market.Service, func(), error) {
	reg, cleanup, err := buildSources(ctx)
	if err != nil {
		return nil, nil, err
	}

	// Sources merge in the order they were configured; the first source
	// to describe a vehicle wins its descriptive fields.
	var src platform.Source
	if all := reg.All(); len(all) == 1 {
		src = all[0]
	} else {
		names := make([]string, len(all))
		for i, s := range all {
			names[i] = s.Name()
		}
		src = &platform.Aggregate{
			Label:         strings.Join(names, "+"),
			Sources:       all,
			MaxConcurrent: cfg.MaxConcurrent,
			RateLimiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
			Partial:       cfg.PartialSource,
			Log:           log,
		}
	}

	th := cfg.Thresholds()
	svc, err := market.New(src, market.Options{
		Thresholds:      &th,
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
		DefaultSort:     models.SortKey(cfg.DefaultSort),
		Log:             log,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

func buildSources(ctx context.Context) (*platform.Registry, func(), error) {
	reg := platform.NewRegistry()
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("close source", logger.Error(err))
			}
		}
	}

	for _, kind := range cfg.Sources {
		switch kind {
		case "file":
			reg.Register(file.New(cfg.DataFile))
		case "http":
			s := httpapi.New(cfg.APIBaseURL, httputil.NewHTTPClient(nil, cfg.RequestTimeout))
			s.APIKey = cfg.APIToken
			s.MaxRetries = cfg.MaxRetries
			s.MaxConcurrent = cfg.MaxConcurrent
			s.Log = log
			reg.Register(s)
		case "postgres":
			s, err := postgres.Open(ctx, cfg.PostgresDSN)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			closers = append(closers, s.Close)
			reg.Register(s)
		case "pages":
			list, err := pages.LoadPages(cfg.PagesFile)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			client, err := buildCrawlClient()
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			reg.Register(&pages.Source{
				Pages:         list,
				Client:        client,
				MaxConcurrent: cfg.MaxConcurrent,
				MaxRetries:    cfg.MaxRetries,
				Partial:       cfg.PartialSource,
				Log:           log,
			})
		default:
			cleanup()
			return nil, nil, fmt.Errorf("unknown source %q", kind)
		}
	}
	if len(reg.List()) == 0 {
		return nil, nil, errors.New("no data source configured")
	}
	return reg, cleanup, nil
}

// buildCrawlClient creates the polite HTTP client used for listing pages.
func buildCrawlClient() (*http.Client, error) {
	delay, err := crawl.NewDelay(crawl.DelayProfile(cfg.DelayProfile))
	if err != nil {
		return nil, err
	}

	transport := &crawl.Transport{
		Base: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
		},
		RateLimiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		Delay:       delay,
	}
	if cfg.RespectRobots {
		transport.Robots = crawl.NewRobotsChecker(httputil.NewHTTPClient(nil, cfg.RequestTimeout))
	}
	return httputil.NewHTTPClient(transport, cfg.RequestTimeout), nil
}
