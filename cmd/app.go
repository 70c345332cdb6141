package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-moments/internal/ai"
	"github.com/kozaktomas/photo-moments/internal/analysis"
	"github.com/kozaktomas/photo-moments/internal/clustering"
	"github.com/kozaktomas/photo-moments/internal/composer"
	"github.com/kozaktomas/photo-moments/internal/config"
	"github.com/kozaktomas/photo-moments/internal/constants"
	"github.com/kozaktomas/photo-moments/internal/curator"
	"github.com/kozaktomas/photo-moments/internal/database"
	"github.com/kozaktomas/photo-moments/internal/database/postgres"
	"github.com/kozaktomas/photo-moments/internal/database/sqlite"
	"github.com/kozaktomas/photo-moments/internal/faceranking"
	"github.com/kozaktomas/photo-moments/internal/fingerprint"
	"github.com/kozaktomas/photo-moments/internal/library"
	"github.com/kozaktomas/photo-moments/internal/logger"
	"github.com/kozaktomas/photo-moments/internal/photoprism"
	"github.com/kozaktomas/photo-moments/internal/scoring"
)

// app holds the wired collaborators of one command invocation.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	store   database.ClusterStore
	pool    *postgres.Pool
	service *curator.Service

	// set only when a photo library was selected
	pp       *photoprism.PhotoPrism
	source   *analysis.Source
	provider *analysis.Provider
	vision   analysis.Vision

	closers []func()
}

// addLibraryFlags registers the flags selecting a photo library and how it is analyzed.
func addLibraryFlags(cmd *cobra.Command) {
	cmd.Flags().String("album", "", "PhotoPrism album UID to analyze")
	cmd.Flags().String("query", "", "Extra PhotoPrism search filter for the album")
	cmd.Flags().String("dir", "", "Local directory to analyze instead of a PhotoPrism album")
	cmd.Flags().Bool("recursive", false, "Include subdirectories of --dir")
	cmd.Flags().String("provider", "", "Vision backend: openai, gemini or sidecar (default ANALYSIS_PROVIDER)")
	cmd.Flags().String("similarity", "", "Visual similarity: hash or embedding (default SIMILARITY)")
	cmd.Flags().Int("concurrency", 0, "Photos analyzed in parallel (default ANALYSIS_CONCURRENCY)")
}

// signalContext returns a context cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newApp wires the store, curator and, when withLibrary is set and the
// flags select one, the photo library with its analysis pipeline.
func newApp(ctx context.Context, cmd *cobra.Command, withLibrary bool) (*app, error) {
	cfg := config.Load()
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, log.Sync)

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	var similarity clustering.Similarity = analysis.HashSimilarity{}
	var preparer analysis.Preparer
	if withLibrary {
		lib, err := a.openLibrary(ctx, cmd)
		if err != nil {
			a.Close()
			return nil, err
		}
		if lib != nil {
			similarity, preparer, err = a.similarity(cmd, lib)
			if err != nil {
				a.Close()
				return nil, err
			}
			if err := a.buildAnalysis(ctx, cmd, lib, preparer); err != nil {
				a.Close()
				return nil, err
			}
		}
	}

	var comp *composer.Composer
	if a.provider != nil {
		ranker := faceranking.New(cfg.Curation.Faces.ReplaceThreshold)
		comp = composer.New(a.provider, a.provider, ranker, cfg.Curation.Composer, log)
	}
	a.service = curator.NewService(curator.Options{
		Store:     a.store,
		Clusterer: clustering.New(similarity, cfg.Curation.Clustering, log),
		Composer:  comp,
		Curation:  cfg.Curation,
		Log:       log,
	})
	return a, nil
}

// Close releases everything newApp opened, in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// openStore selects PostgreSQL when DATABASE_URL is set and SQLite otherwise.
func (a *app) openStore(ctx context.Context) error {
	if a.cfg.Database.URL != "" {
		pool, err := postgres.Open(ctx, &a.cfg.Database, a.log)
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		a.pool = pool
		a.store = postgres.NewClusterRepository(pool)
		a.closers = append(a.closers, func() { _ = pool.Close() })
		a.log.Debug("using PostgreSQL store")
		return nil
	}

	store, err := sqlite.Open(ctx, a.cfg.Database.SQLitePath, a.log)
	if err != nil {
		return fmt.Errorf("failed to open SQLite store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, func() { _ = store.Close() })
	a.log.Debug("using SQLite store", "path", a.cfg.Database.SQLitePath)
	return nil
}

// photoLibrary is a discovered photo source able to serve image bytes.
type photoLibrary interface {
	analysis.Lister
	analysis.ImageFetcher
}

// openLibrary returns nil when neither --album nor --dir is set.
func (a *app) openLibrary(ctx context.Context, cmd *cobra.Command) (photoLibrary, error) {
	albumUID := mustGetString(cmd, "album")
	dir := mustGetString(cmd, "dir")

	switch {
	case albumUID != "" && dir != "":
		return nil, errors.New("use either --album or --dir, not both")
	case dir != "":
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("cannot read directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", dir)
		}
		return library.NewDirectory(dir, mustGetBool(cmd, "recursive"), a.log), nil
	case albumUID != "":
		pp, err := a.photoPrism(ctx)
		if err != nil {
			return nil, err
		}
		return library.NewPhotoPrismAlbum(pp, albumUID, mustGetString(cmd, "query"), a.log), nil
	default:
		return nil, nil
	}
}

// photoPrism connects once and logs out on Close.
func (a *app) photoPrism(ctx context.Context) (*photoprism.PhotoPrism, error) {
	if a.pp != nil {
		return a.pp, nil
	}
	if a.cfg.PhotoPrism.URL == "" {
		return nil, errors.New("PHOTOPRISM_URL environment variable is required")
	}
	pp, err := photoprism.NewPhotoPrism(ctx, a.cfg.PhotoPrism.URL, a.cfg.PhotoPrism.Username, a.cfg.PhotoPrism.GetPassword())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PhotoPrism: %w", err)
	}
	a.pp = pp
	a.closers = append(a.closers, func() {
		if err := pp.Logout(context.Background()); err != nil {
			a.log.Warn("PhotoPrism logout failed", "error", err)
		}
	})
	return pp, nil
}

// similarity picks the visual similarity used to split moments.
func (a *app) similarity(cmd *cobra.Command, lib photoLibrary) (clustering.Similarity, analysis.Preparer, error) {
	name := stringFlagOr(cmd, "similarity", a.cfg.Analysis.Similarity)
	switch name {
	case "hash":
		return analysis.HashSimilarity{}, nil, nil
	case "embedding":
		if a.cfg.Embedding.URL == "" {
			return nil, nil, errors.New("EMBEDDING_URL environment variable is required for embedding similarity")
		}
		if a.pool == nil {
			return nil, nil, errors.New("DATABASE_URL is required for embedding similarity")
		}
		client := fingerprint.NewEmbeddingClient(a.cfg.Embedding.URL, "")
		sim := analysis.NewEmbeddingSimilarity(postgres.NewEmbeddingRepository(a.pool), client, lib)
		return sim, sim, nil
	default:
		return nil, nil, fmt.Errorf("unknown similarity: %s (supported: hash, embedding)", name)
	}
}

// buildAnalysis wires the vision backend and the analyzed photo source.
func (a *app) buildAnalysis(ctx context.Context, cmd *cobra.Command, lib photoLibrary, preparer analysis.Preparer) error {
	vision, err := newVision(ctx, a.cfg, stringFlagOr(cmd, "provider", a.cfg.Analysis.Provider))
	if err != nil {
		return err
	}
	a.vision = vision

	var regions analysis.RegionLookup
	if r, ok := lib.(analysis.RegionLookup); ok {
		regions = r
	}
	a.provider = analysis.New(analysis.Options{
		Vision:  vision,
		Images:  lib,
		Regions: regions,
		Scorer:  scoring.New(a.cfg.Curation.Scoring),
		Log:     a.log,
	})

	concurrency := intFlagOr(cmd, "concurrency", a.cfg.Analysis.Concurrency)
	a.source = analysis.NewSource(lib, a.provider, preparer, concurrency, a.log)
	return nil
}

// newVision creates the vision backend by name.
func newVision(ctx context.Context, cfg *config.Config, name string) (analysis.Vision, error) {
	switch name {
	case "openai":
		if cfg.OpenAI.Token == "" {
			return nil, errors.New("OPENAI_TOKEN environment variable is required")
		}
		return analysis.FromAI(ai.NewOpenAIProvider(cfg.OpenAI.Token, ai.OpenAIPricing), constants.MaxImageSize), nil
	case "gemini":
		apiKey := cfg.Gemini.GetAPIKey()
		if apiKey == "" {
			return nil, errors.New("GEMINI_API_KEY environment variable is required")
		}
		provider, err := ai.NewGeminiProvider(ctx, apiKey, ai.GeminiPricing)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini provider: %w", err)
		}
		return analysis.FromAI(provider, constants.MaxImageSize), nil
	case "sidecar":
		return analysis.Sidecar{}, nil
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: openai, gemini, sidecar)", name)
	}
}

// requireLibrary fails when the command needs photos but none were selected.
func (a *app) requireLibrary() error {
	if a.source == nil {
		return errors.New("select a photo library with --album or --dir")
	}
	return nil
}

// loadClusters restores stored clusters and reports whether any exist.
func (a *app) loadClusters(ctx context.Context) (bool, error) {
	found, err := a.service.Load(ctx)
	if err != nil {
		return false, err
	}
	if !found {
		fmt.Println("No analysis found. Run 'photo-moments analyze --album <uid>' or 'photo-moments analyze --dir <path>' first.")
	}
	return found, nil
}

// printUsage prints the token usage of an AI vision backend.
func (a *app) printUsage() {
	v, ok := a.vision.(*analysis.AIVision)
	if !ok {
		return
	}
	usage := v.Usage()
	if usage.Requests == 0 {
		return
	}
	fmt.Printf("AI usage: %d requests, %d input / %d output tokens, $%.4f\n",
		usage.Requests, usage.InputTokens, usage.OutputTokens, usage.TotalCost)
}
