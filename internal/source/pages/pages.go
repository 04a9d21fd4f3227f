// Package pages builds a snapshot by crawling platform listing pages and
// reading the schema.org data they embed.
package pages

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/lukman83/carizon/internal/httputil"
	"github.com/lukman83/carizon/internal/ingest"
	"github.com/lukman83/carizon/internal/logger"
	"github.com/lukman83/carizon/internal/models"
	"github.com/lukman83/carizon/internal/platform"
)

// Page is one listing page of one platform.
type Page struct {
	Source string `yaml:"source" validate:"required"`
	URL    string `yaml:"url" validate:"required,url"`
}

type pagesFile struct {
	Pages []Page `yaml:"pages"`
}

// LoadPages reads a YAML file of the form
//
//	pages:
//	  - source: ENCAR
//	    url: https://...
func LoadPages(path string) ([]Page, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pages file: %w", err)
	}
	var f pagesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse pages file: %w", err)
	}
	validate := validator.New()
	for i, p := range f.Pages {
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("pages file entry %d: %w", i, err)
		}
	}
	return f.Pages, nil
}

// Source fetches every page on each call. The client is expected to carry
// the crawl transport, which does robots checks and pacing.
type Source struct {
	Pages         []Page
	Client        *http.Client
	MaxConcurrent int
	MaxRetries    int
	// Partial keeps vehicles from pages that loaded when others fail.
	Partial bool
	Log     logger.Logger
}

func (s *Source) Name() string { return "pages" }

func (s *Source) Vehicles(ctx context.Context) ([]models.VehicleRecord, error) {
	log := s.Log
	if log == nil {
		log = logger.Nop()
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.MaxConcurrent > 0 {
		g.SetLimit(s.MaxConcurrent)
	}

	results := make([][]models.VehicleRecord, len(s.Pages))
	for i, p := range s.Pages {
		g.Go(func() error {
			records, err := s.fetch(gctx, p)
			if err != nil {
				if s.Partial && ctx.Err() == nil {
					log.Warn("listing page failed", logger.String("source", p.Source), logger.String("url", p.URL), logger.Error(err))
					return nil
				}
				return fmt.Errorf("%s %s: %w", p.Source, p.URL, err)
			}
			platform.ReportProgress(ctx, "Read %d vehicles from %s", len(records), p.Source)
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return platform.Merge(results...), nil
}

func (s *Source) fetch(ctx context.Context, p Page) ([]models.VehicleRecord, error) {
	client := s.Client
	if client == nil {
		client = httputil.NewHTTPClient(nil, 0)
	}
	body, err := httputil.GetBody(ctx, client, p.URL, httputil.PageHeaders(), s.MaxRetries)
	if err != nil {
		return nil, err
	}
	return ingest.FromJSONLD(bytes.NewReader(body), strings.ToUpper(p.Source), p.URL)
}
