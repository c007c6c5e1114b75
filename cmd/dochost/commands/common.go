package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/dochost/internal/blobstore"
	"git.home.luguber.info/inful/dochost/internal/config"
	"git.home.luguber.info/inful/dochost/internal/events"
	"git.home.luguber.info/inful/dochost/internal/importer"
	"git.home.luguber.info/inful/dochost/internal/lifecycle"
	"git.home.luguber.info/inful/dochost/internal/metrics"
	"git.home.luguber.info/inful/dochost/internal/resolver"
	"git.home.luguber.info/inful/dochost/internal/search"
	"git.home.luguber.info/inful/dochost/internal/store"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"dochost.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Import   ImportCmd   `cmd:"" help:"Import a documentation archive into a project version"`
	Delete   DeleteCmd   `cmd:"" help:"Delete a project version, recomputing the latest pointer"`
	Reindex  ReindexCmd  `cmd:"" help:"Rebuild the search index for a project's latest version"`
	Fixlinks FixlinksCmd `cmd:"" help:"Rewrite internal hyperlinks in stored page bodies"`
	Watch    WatchCmd    `cmd:"" help:"Watch a spool directory and import archives as they arrive"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
	Project  ProjectCmd  `cmd:"" help:"Manage projects"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// app bundles the wired service components for one command invocation.
type app struct {
	cfg       *config.Config
	store     *store.Store
	blobs     blobstore.Store
	events    *events.Publisher
	importer  *importer.Importer
	sync      *search.Synchronizer
	resolver  *resolver.Resolver
	lifecycle *lifecycle.Service
}

// openApp loads the configuration and wires the components. rec selects the
// metrics sink: Nop for one-shot commands, Prometheus for the watch daemon.
func openApp(root *CLI, rec metrics.Recorder) (*app, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = metrics.Nop{}
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	blobs, err := blobstore.NewFSStore(cfg.Storage.Root, cfg.Storage.BaseURL)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	var backend search.Backend = search.Disabled{}
	if cfg.Search.Endpoint != "" {
		backend = search.NewHTTPBackend(cfg.Search.Endpoint, cfg.Search.APIKey, cfg.Search.BatchSize)
	} else {
		slog.Warn("no search endpoint configured, index updates are dropped")
	}

	var pub *events.Publisher
	if cfg.Events.NATSURL != "" {
		pub, err = events.NewPublisher(cfg.Events.NATSURL, cfg.Events.SubjectPrefix)
		if err != nil {
			_ = st.Close()
			_ = blobs.Close()
			return nil, err
		}
	}

	sync := search.NewSynchronizer(st, backend, cfg.RetryPolicy(), rec)
	res := resolver.New(st, sync, rec, pub, cfg.ResolverOptions())

	return &app{
		cfg:       cfg,
		store:     st,
		blobs:     blobs,
		events:    pub,
		importer:  importer.New(st, blobs, rec, pub),
		sync:      sync,
		resolver:  res,
		lifecycle: lifecycle.New(st, blobs, res, sync, pub),
	}, nil
}

func (a *app) Close() {
	a.events.Close()
	if err := a.blobs.Close(); err != nil {
		slog.Error("close blob store", "error", err)
	}
	if err := a.store.Close(); err != nil {
		slog.Error("close database", "error", err)
	}
}
