package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Smattr/alfred/internal/config"
	"github.com/Smattr/alfred/internal/engine"
	"github.com/Smattr/alfred/internal/logger"
	"github.com/Smattr/alfred/internal/metrics"
	"github.com/Smattr/alfred/internal/server"
)

func usage() {
	fmt.Fprintf(os.Stderr,
		"alfred - a no-nonsense SQLite server.\n"+
			" usage: %s [options] database\n\n"+
			" options:\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	port := flag.Int("p", config.DefaultPort, "Port to listen on")
	verbose := flag.Bool("v", false, "Enable verbose output")
	readOnly := flag.Bool("r", false, "Open the database read-only")
	noPrompt := flag.Bool("no-prompt", false, "Do not send the \"> \" readiness token to clients")
	cfgPath := flag.String("config", "", "Path to config file (optional)")
	flag.Usage = usage
	flag.Parse()

	cfg := config.DefaultConfig()
	if *cfgPath != "" {
		if err := config.Load(*cfgPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}

	// Command line flags override file values, but only when given.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "p":
			cfg.Port = *port
		case "v":
			cfg.Verbose = *verbose
		case "r":
			cfg.ReadOnly = *readOnly
		case "no-prompt":
			cfg.Prompt = !*noPrompt
		}
	})

	switch {
	case flag.NArg() > 1:
		fmt.Fprintf(os.Stderr,
			"You can only open a single database per alfred instance. %s -h for usage information.\n",
			os.Args[0])
		os.Exit(1)
	case flag.NArg() == 1:
		cfg.DBPath = flag.Arg(0)
	case cfg.DBPath == "":
		fmt.Fprintf(os.Stderr,
			"Missing required database argument. %s -h for usage information.\n",
			os.Args[0])
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logr := logger.Verbose(cfg.Verbose)

	eng, err := engine.Open(cfg.DBPath, cfg.ReadOnly)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", cfg.DBPath, err)
		os.Exit(1)
	}

	collector := metrics.NewCollector()
	srv := server.New(cfg, eng, logr, collector)
	if err := srv.Start(); err != nil {
		eng.Close()
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logr.Debug("Caught %v. Exiting...", sig)
		srv.Stop()
		eng.Close()
		if cfg.Verbose {
			fmt.Print(collector.Export())
		}
		os.Exit(0)
	}()

	// Serve blocks until Stop; the signal path above exits the process.
	// Anything else coming back from Serve is a fatal socket failure.
	if err := srv.Serve(); err != nil {
		fmt.Fprintf(os.Stderr, "Could not establish connection: %v\n", err)
		os.Exit(1)
	}

	eng.Close()
}
