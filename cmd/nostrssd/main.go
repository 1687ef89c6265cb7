// Command nostrssd is the broker daemon: it loads configuration, builds
// the Profile Registry and Scheduler, takes every feed's initial
// snapshot, arms timers, then serves the control-plane gRPC surface
// until signaled — the startup sequence from spec.md §5, modeled on the
// teacher's services/*/cmd/main.go bootstrap shape (load config, init
// logger, build collaborators, run, wait for signal).
package main

import (
	"flag"
	"fmt"
	"os"

	"nostrss/internal/broker"
	"nostrss/internal/configstore"
	"nostrss/internal/control"
	"nostrss/internal/domain"
	"nostrss/internal/feed"
	"nostrss/internal/nostrkey"
	"nostrss/internal/registry"
	"nostrss/internal/relay"
	"nostrss/internal/template"
	"nostrss/pkg/config"
	"nostrss/pkg/logger"
	"nostrss/pkg/metrics"
	"nostrss/pkg/server"
)

func main() {
	feedsPath := flag.String("feeds", "feeds.yaml", "path to the persisted feeds file (yaml or json)")
	profilesPath := flag.String("profiles", "profiles.yaml", "path to the persisted profiles file (yaml or json)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Init("error")
		logger.Log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	logger.Log.Info("starting nostrssd",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"grpc_address", cfg.GRPC.Address,
	)

	metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)

	store := configstore.New(*feedsPath, *profilesPath)

	profiles, err := bootstrapProfileRegistry(cfg, store)
	if err != nil {
		logger.Log.Error("failed to bootstrap profile registry", "error", err)
		os.Exit(1)
	}

	renderer, err := template.NewRenderer(loadDefaultTemplate(cfg))
	if err != nil {
		logger.Log.Error("failed to initialize template renderer", "error", err)
		os.Exit(1)
	}

	fetcher := feed.NewHTTPFetcher(0)
	publisher := relay.NewWebSocketPublisher()

	state := broker.NewState(profiles)
	scheduler := broker.NewScheduler(state, fetcher, renderer, publisher, broker.WithDefaultCacheSize(cfg.Broker.DefaultCacheSize))

	feeds, err := store.LoadFeeds()
	if err != nil {
		logger.Log.Error("failed to load feeds from config store", "error", err)
		os.Exit(1)
	}

	for _, f := range feeds {
		if err := scheduler.AddFeed(f); err != nil {
			logger.Log.Error("failed to arm feed from config store, skipping", "feed_id", f.ID, "error", err)
		}
	}

	scheduler.Start()
	logger.Log.Info("scheduler started", "feeds_armed", len(scheduler.ListFeeds()))

	svc := control.NewService(scheduler, profiles, store)

	srv := server.New(cfg)
	control.RegisterControlServer(srv.GetEngine(), svc)

	if err := srv.Run(); err != nil {
		logger.Log.Error("control-plane server stopped with error", "error", err)
		os.Exit(1)
	}
}

// bootstrapProfileRegistry builds the Profile Registry, loading persisted
// profiles first, then deriving the `default` profile from env/config if
// none was present in the store — spec §6's "a default profile with a
// valid private key MUST be derivable from env NOSTR_PK if no default
// exists in the file" requirement.
func bootstrapProfileRegistry(cfg *config.Config, store *configstore.Store) (*registry.Profiles, error) {
	reg := registry.New()

	stored, err := store.LoadProfiles()
	if err != nil {
		return nil, err
	}

	hasDefault := false
	for _, p := range stored {
		if _, err := nostrkey.ParsePrivateKey(p.PrivateKey); err != nil {
			logger.Log.Error("profile has an invalid private key, skipping", "profile_id", p.ID, "error", err)
			continue
		}
		if p.IsDefault() {
			hasDefault = true
		}
		if err := reg.Add(p); err != nil {
			logger.Log.Error("failed to register profile from config store, skipping", "profile_id", p.ID, "error", err)
		}
	}

	if !hasDefault {
		def, err := defaultProfileFromEnv(cfg)
		if err != nil {
			return nil, err
		}
		if err := reg.Add(def); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// defaultProfileFromEnv constructs the mandatory `default` profile from
// the NOSTR_PK / NOSTR_* configuration fields (spec §6's env fallback
// table), failing fast if the private key does not parse.
func defaultProfileFromEnv(cfg *config.Config) (domain.Profile, error) {
	p := domain.Profile{
		ID:          domain.DefaultProfileID,
		PrivateKey:  cfg.Nostr.PrivateKey,
		Name:        cfg.Nostr.Name,
		DisplayName: cfg.Nostr.DisplayName,
		Description: cfg.Nostr.Description,
		Picture:     cfg.Nostr.Picture,
		Banner:      cfg.Nostr.Banner,
		NIP05:       cfg.Nostr.NIP05,
		LUD16:       cfg.Nostr.LUD16,
		PoWLevel:    uint8(cfg.Broker.DefaultPoWLevel),
	}

	if err := p.Validate(); err != nil {
		return domain.Profile{}, err
	}
	if _, err := nostrkey.ParsePrivateKey(p.PrivateKey); err != nil {
		return domain.Profile{}, fmt.Errorf("default profile has an invalid private key: %w", err)
	}
	return p, nil
}

// loadDefaultTemplate returns the process default template body: a
// filesystem path in broker.default_template is read, any other
// non-empty value is used literally as the template text — either way
// its absence is the fatal boot condition spec §4.1 requires.
func loadDefaultTemplate(cfg *config.Config) string {
	path := cfg.Broker.DefaultTemplate
	if path == "" {
		return ""
	}
	if data, err := os.ReadFile(path); err == nil {
		return string(data)
	}
	return path
}
