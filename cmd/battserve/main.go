// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the battery lookup server and CLI [DBG] application.

battserve finds battery models in a static catalog while the user types. A
query like "BLP885" or "redmi note 9" is matched by case-insensitive
substring first; when that finds fewer than a handful of records, a typo
tolerant Bitap pass tops the list up. At most 15 records are returned, exact
hits first.

It can operate as a MessagePack IPC server behind a search box, debouncing
keystrokes so only the latest query is matched, or as a CLI application for
testing and debugging the ranking.

# Usage

Start the server with default settings:

	battserve

Use a custom catalog and enable debug mode:

	battserve -catalog /path/to/batteries.json -d

Run in CLI mode for interactive testing:

	battserve -c

# Configuration

Runtime configuration is kept in a TOML file, created with defaults on the
first run:

	[search]
	max_results = 15
	exact_sufficient = 5
	debounce_ms = 120

	[fuzzy]
	threshold = 0.3
	distance = 200

	[catalog]
	path = "data/batteries.json"

Flags override the file for one run.

# Catalog

The catalog is a JSON or msgpack array of {"id", "name"} objects. Entries
without an id or name and duplicated ids stop the startup with an error
naming the offending entry.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout. See package
server for the message reference.

	{"id": "k1", "action": "query", "q": "BLP"}
	{"id": "k1", "q": "BLP", "s": [{"i": "BLP885", "n": "VIVO Y12 BLP885 Battery", "r": 1}], "c": 1, "t": 412}

# Command Line Flags

	-config string
	    Path to a config file (default: user config dir)
	-catalog string
	    Catalog file, overrides [catalog] path
	-cart string
	    Cart file, overrides [cart] path
	-max int
	    Maximum results per query
	-threshold float
	    Fuzzy threshold, 0 exact .. 1 anything
	-debounce int
	    Quiet interval in milliseconds
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-no-scores
	    Hide origin and score in CLI mode
	-rebuild-config
	    Rewrite the default config file and exit
	-export string
	    Write the loaded catalog to this file (.json or .msgpack) and exit
*/
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bastiangx/battserve/internal/cli"
	"github.com/bastiangx/battserve/internal/utils"
	"github.com/bastiangx/battserve/pkg/cart"
	"github.com/bastiangx/battserve/pkg/catalog"
	"github.com/bastiangx/battserve/pkg/config"
	"github.com/bastiangx/battserve/pkg/match"
	"github.com/bastiangx/battserve/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.3.0-beta"
	gh      = "https://github.com/bastiangx/battserve"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main wires config, catalog and cart into the server or the CLI.
// It does not implement logic for them and only manages the flow.
func main() {
	sigHandler()

	showVersion := flag.Bool("version", false, "Show current version")
	configFile := flag.String("config", "", "Path to a config file (default: user config dir)")
	catalogFile := flag.String("catalog", "", "Catalog file (.json, .msgpack), overrides [catalog] path")
	cartFile := flag.String("cart", "", "Cart file, overrides [cart] path")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	maxResults := flag.Int("max", match.DefaultMaxResults, "Maximum results per query")
	threshold := flag.Float64("threshold", match.DefaultThreshold, "Fuzzy threshold, 0 exact .. 1 anything")
	debounce := flag.Int("debounce", 120, "Quiet interval in milliseconds before a query is matched")
	noScores := flag.Bool("no-scores", false, "Hide origin and score in CLI mode")
	rebuildConfig := flag.Bool("rebuild-config", false, "Rewrite the default config file and exit")
	exportFile := flag.String("export", "", "Write the loaded catalog to this file (.json or .msgpack) and exit")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	if *rebuildConfig {
		if err := config.RebuildConfigFile(); err != nil {
			log.Fatalf("Failed to rebuild config: %v", err)
		}
		log.Printf("Config rebuilt at %s", config.GetActiveConfigPath(""))
		return
	}

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Print("Either env is not set or system is not supported")
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}
	log.Debug("Runtime", "info", pathResolver.GetRuntimeInfo())

	appConfig, configPath, err := config.LoadConfigWithPriority(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(configPath))

	// flags given on the command line win over the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "catalog":
			appConfig.Catalog.Path = *catalogFile
		case "cart":
			appConfig.Cart.Path = *cartFile
		case "max":
			appConfig.Search.MaxResults = *maxResults
		case "threshold":
			appConfig.Fuzzy.Threshold = *threshold
		case "debounce":
			appConfig.Search.DebounceMs = *debounce
		case "no-scores":
			appConfig.CLI.ShowScores = !*noScores
		}
	})

	catalogPath, err := pathResolver.GetCatalogPath(appConfig.Catalog.Path)
	if err != nil {
		log.Fatalf("Failed to resolve catalog file %q: %v", appConfig.Catalog.Path, err)
	}

	start := time.Now()
	records, err := catalog.Load(catalogPath)
	if err != nil {
		var le *catalog.LoadError
		if errors.As(err, &le) && le.Index >= 0 {
			log.Error("Bad catalog entry", "index", le.Index, "id", le.ID)
		}
		log.Fatalf("Failed to load catalog: %v", err)
	}
	log.Debugf("Catalog ready: %d records in %v", records.Len(), time.Since(start))

	if *exportFile != "" {
		if err := exportCatalog(records, *exportFile); err != nil {
			log.Fatalf("Failed to export catalog: %v", err)
		}
		log.Printf("Wrote %s records to %s", utils.FormatWithCommas(records.Len()), *exportFile)
		return
	}

	engine := match.NewEngine(records, appConfig.MatchOptions())

	cartPath := appConfig.CartPath(filepath.Dir(configPath))
	if configPath == "" && appConfig.Cart.Path == "" {
		// no config file to sit next to, let the resolver find a writable dir
		cartPath, err = pathResolver.GetConfigPath(config.CartFileName)
		if err != nil {
			log.Fatalf("Failed to resolve cart file: %v", err)
		}
	}
	store := cart.NewFileStore(cartPath)
	selection := cart.NewList(store)
	log.Debugf("Using cart file: (%s), %d items", store.Path(), selection.Len())

	// CLI would be mainly used for testing and dbg purposes.
	if *cliMode {
		log.SetReportTimestamp(false)
		inputHandler := cli.NewInputHandler(engine, selection, appConfig.CLI.ShowScores)
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(engine, selection, appConfig, configPath)

	showStartupInfo(catalogPath, records.Len())

	if err := srv.Start(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

// exportCatalog writes c to path in the format its extension names
func exportCatalog(c *catalog.Catalog, path string) error {
	var buf bytes.Buffer
	if err := catalog.Encode(&buf, c, catalog.DetectFormat(path)); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return utils.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

func printVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ battserve ] finds the right battery while you type")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use -h or --help to see available options")
	logger.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(catalogPath string, records int) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("===========")
	println(" battserve ")
	println("===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Infof("catalog: ( %s ), %s records", catalogPath, utils.FormatWithCommas(records))
	log.Info("status: ready")
	println("===========")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
