// Command synthdump extracts sound-effect groups from a JS5 game cache into
// standalone .synth files.
//
// Usage:
//
//	synthdump -cache ~/jagexcache/oldschool/LIVE -out ./dump_synth
//	synthdump -cache ./LIVE -indices 4,14,15 -start 100 -end 199
//	synthdump -cache ./LIVE -ids 187,191 -raw
//
// Defaults may also come from the environment (or a .env file):
// SYNTHDUMP_CACHE, SYNTHDUMP_OUT, SYNTHDUMP_LOG_LEVEL. Flags win over env.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/meklund/js5/dump"
)

type config struct {
	cacheDir string
	outDir   string
	indices  string
	ids      string
	start    int
	end      int
	all      bool
	raw      bool
	workers  int
	quiet    bool
}

func main() {
	_ = godotenv.Load()

	cfg := parseFlags()
	log := newLogger(cfg.quiet)

	if cfg.cacheDir == "" {
		usageError("-cache is required")
	}
	indices, err := parseIntList(cfg.indices)
	if err != nil || len(indices) == 0 {
		usageError("-indices must be a comma-separated list of index ids")
	}
	ids, err := parseIntList(cfg.ids)
	if err != nil {
		usageError("-ids must be a comma-separated list of group ids")
	}

	start, end := cfg.start, cfg.end
	if cfg.all {
		ids, start, end = nil, 0, -1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := dump.Run(ctx, dump.Options{
		CacheDir: cfg.cacheDir,
		OutDir:   cfg.outDir,
		Indices:  indices,
		Groups:   ids,
		Start:    start,
		End:      end,
		Raw:      cfg.raw,
		Workers:  cfg.workers,
		Logger:   log,
	})
	if err != nil {
		log.Error("extraction aborted", "err", err)
		os.Exit(1)
	}
	if stats.Failed > 0 {
		os.Exit(1)
	}
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.cacheDir, "cache", os.Getenv("SYNTHDUMP_CACHE"), "path to the cache directory (env SYNTHDUMP_CACHE)")
	flag.StringVar(&cfg.outDir, "out", envOr("SYNTHDUMP_OUT", "./dump_synth"), "output directory (env SYNTHDUMP_OUT)")
	flag.StringVar(&cfg.indices, "indices", "4", "comma-separated index ids to dump")
	flag.StringVar(&cfg.ids, "ids", "", "comma-separated explicit group ids")
	flag.IntVar(&cfg.start, "start", 0, "first group id")
	flag.IntVar(&cfg.end, "end", -1, "last group id (inclusive, -1 for the whole index)")
	flag.BoolVar(&cfg.all, "all", false, "dump every group (overrides -ids, -start, -end)")
	flag.BoolVar(&cfg.raw, "raw", false, "write raw containers (.bin) without decoding")
	flag.IntVar(&cfg.workers, "workers", 1, "concurrent group extractions")
	flag.BoolVar(&cfg.quiet, "quiet", false, "log warnings only")
	flag.Parse()
	return cfg
}

func newLogger(quiet bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("SYNTHDUMP_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if quiet {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func parseIntList(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func usageError(msg string) {
	fmt.Fprintln(os.Stderr, "synthdump:", msg)
	flag.Usage()
	os.Exit(2)
}
