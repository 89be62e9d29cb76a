// arcana - a terminal client for the Arcanum tarot reading service.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/arcana-tui/internal/api"
	"github.com/jeranaias/arcana-tui/internal/auth"
	"github.com/jeranaias/arcana-tui/internal/chat"
	"github.com/jeranaias/arcana-tui/internal/cli"
	"github.com/jeranaias/arcana-tui/internal/config"
	"github.com/jeranaias/arcana-tui/internal/session"
	"github.com/jeranaias/arcana-tui/internal/storage"
	"github.com/jeranaias/arcana-tui/internal/ui"
)

// Version information (set at build time)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		plain      = flag.Bool("plain", false, "run the line-oriented interface instead of the TUI")
		serverURL  = flag.String("server", "", "override the API base URL")
		configPath = flag.String("config", "", "use an alternate config file")
		logout     = flag.Bool("logout", false, "clear stored credentials and exit")
		version    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("arcana %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.Server.BaseURL = *serverURL
	}

	store, err := openTokenStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening credential store: %v\n", err)
		os.Exit(1)
	}

	if *logout {
		if err := store.Clear(); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing credentials: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Signed out.")
		return
	}

	closeLog := setupLogging()
	defer closeLog()

	client := buildClient(cfg, store)
	cache := openCache()

	cfgPath := *configPath
	if cfgPath == "" {
		if p, err := config.Path(); err == nil {
			cfgPath = p
		}
	}

	if *plain || !cli.IsInteractive() {
		runPlain(cfg, client, cache, store)
		return
	}
	runTUI(cfg, cfgPath, client, cache, store)
}

// loadConfig reads the config file, tolerating a missing one.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// setupLogging sends diagnostics to a file in the config directory so they
// never write over the interface. Falls back to discarding when the file
// cannot be opened.
func setupLogging() func() {
	log.SetFlags(log.LstdFlags)

	dir, err := config.Dir()
	if err != nil || config.EnsureDir() != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}
	f, err := os.OpenFile(filepath.Join(dir, "arcana.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}
	log.SetOutput(f)
	return func() { f.Close() }
}

// openTokenStore opens the encrypted credential store at the configured
// path, creating the key file on first use.
func openTokenStore(cfg *config.Config) (*auth.TokenStore, error) {
	path, err := cfg.TokenPath()
	if err != nil {
		return nil, err
	}
	return auth.NewTokenStore(path)
}

// buildClient wires the API client: stored tokens, refresh persistence, and
// the client-side send rate.
func buildClient(cfg *config.Config, store *auth.TokenStore) *api.Client {
	client := api.NewClient(cfg.Server.BaseURL).
		WithMaxRetries(cfg.Server.MaxRetries).
		WithSendRate(cfg.Chat.SendsPerMinute).
		WithTokenHandler(func(t auth.Tokens) {
			// Refresh rotated the pair; keep the store in sync so the next
			// start does not need a fresh login.
			if err := store.Save(t); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not persist tokens: %v\n", err)
			}
		})

	if tokens, err := store.Load(); err == nil && tokens.Valid() {
		client.SetTokens(tokens)
	}
	return client
}

// openCache opens the local SQLite cache. A failure degrades to online-only
// operation rather than blocking startup.
func openCache() *storage.Cache {
	dir, err := config.Dir()
	if err != nil {
		return nil
	}
	if err := config.EnsureDir(); err != nil {
		return nil
	}
	cache, err := storage.Open(filepath.Join(dir, "cache.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: local cache unavailable: %v\n", err)
		return nil
	}
	return cache
}

// runTUI starts the full-screen interface.
func runTUI(cfg *config.Config, cfgPath string, client *api.Client, cache *storage.Cache, store *auth.TokenStore) {
	if cache != nil {
		defer cache.Close()
	}

	idleCfg := session.DefaultConfig()
	idleCfg.Timeout = cfg.IdleTimeout()
	idle := session.NewManager(idleCfg)
	svc := chat.NewService(client)

	app := ui.New(ui.Deps{
		Config: cfg,
		Client: client,
		Cache:  cache,
		Svc:    svc,
		Idle:   idle,
		Store:  store,
	})

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	// Edits to the config file apply without a restart. A watcher failure
	// just means no hot reload.
	if cfgPath != "" {
		w, err := config.NewWatcher(cfgPath, func(fresh *config.Config) {
			p.Send(ui.ConfigReloadedMsg{Config: fresh})
		})
		if err == nil {
			if err := w.Watch(); err != nil {
				log.Printf("config watch failed: %v", err)
			}
			defer w.Close()
		} else {
			log.Printf("config watch unavailable: %v", err)
		}
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running arcana: %v\n", err)
		os.Exit(1)
	}
}

// runPlain starts the line-oriented interface.
func runPlain(cfg *config.Config, client *api.Client, cache *storage.Cache, store *auth.TokenStore) {
	if cache != nil {
		defer cache.Close()
	}

	repl := cli.New(cfg, client, cache, store)
	defer repl.Close()

	if err := repl.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
