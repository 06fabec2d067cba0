// Package dump implements bulk extraction of sound groups from a JS5 cache
// into standalone files.
//
// The extraction policy is skip-and-report: an absent or unreadable group is
// counted and logged, never fatal, so a single bad entry cannot halt a run
// over thousands of ids. Run fails only on setup errors (missing cache,
// unusable output directory) or context cancellation. Re-running is
// idempotent; existing files are overwritten with identical bytes.
package dump

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/meklund/js5"
)

// Options configures a Run.
type Options struct {
	// CacheDir is the cache root holding main_file_cache.dat2.
	CacheDir string

	// OutDir receives one idx<N> directory per extracted index.
	OutDir string

	// Indices lists the archive indexes to extract.
	// Empty means the synth index (4).
	Indices []int

	// Groups selects explicit group ids. When empty, the Start/End range
	// applies instead.
	Groups []int

	// Start and End bound an inclusive id range. End < 0 means the last
	// group of the index, so the zero value selects every group.
	Start, End int

	// Raw writes the undecoded container bytes (.bin) instead of the
	// decompressed payload (.synth).
	Raw bool

	// Workers caps concurrent group extractions. Values < 1 run
	// sequentially. Concurrent reads are safe: the cache is opened
	// read-only and all access is positional.
	Workers int

	// Logger receives per-group reports. Nil means slog.Default().
	Logger *slog.Logger
}

// Stats reports the outcome of a Run.
type Stats struct {
	// Extracted counts groups written to disk.
	Extracted int

	// Absent counts index slots with no stored payload.
	Absent int

	// Failed counts groups that could not be read or decoded.
	Failed int
}

type counters struct {
	extracted atomic.Int64
	absent    atomic.Int64
	failed    atomic.Int64
}

// Run extracts the selected groups of the selected indexes.
//
// A missing index file is reported and skipped, matching the per-index
// behavior of the cache itself (not every cache carries every sound index).
func Run(ctx context.Context, opts Options) (*Stats, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	indices := opts.Indices
	if len(indices) == 0 {
		indices = []int{js5.IndexSynths}
	}

	cache, err := js5.Open(opts.CacheDir)
	if err != nil {
		return nil, err
	}
	defer cache.Close()

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var c counters
	for _, id := range indices {
		if err := runIndex(ctx, cache, id, opts, log, &c); err != nil {
			return collect(&c), err
		}
	}

	stats := collect(&c)
	log.Info("extraction complete",
		"extracted", stats.Extracted, "absent", stats.Absent, "failed", stats.Failed)
	return stats, nil
}

func runIndex(ctx context.Context, cache *js5.Cache, id int, opts Options, log *slog.Logger, c *counters) error {
	ix, err := cache.Index(id)
	if err != nil {
		if errors.Is(err, js5.ErrNotFound) {
			log.Warn("index file missing, skipping", "index", id)
			return nil
		}
		return err
	}

	groups := selectGroups(ix, opts)
	if len(groups) == 0 {
		log.Info("nothing to extract", "index", id)
		return nil
	}

	outDir := filepath.Join(opts.OutDir, fmt.Sprintf("idx%d", id))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	log.Info("dumping index", "index", id, "first", groups[0], "last", groups[len(groups)-1])

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, group := range groups {
		group := group
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			extractOne(ix, group, outDir, opts.Raw, log, c)
			return nil
		})
	}
	return g.Wait()
}

// selectGroups resolves the id selection against the index bounds. Explicit
// ids are passed through unclamped so out-of-range requests surface as
// failures rather than being silently dropped.
func selectGroups(ix *js5.Index, opts Options) []int {
	if len(opts.Groups) > 0 {
		return opts.Groups
	}
	start := opts.Start
	if start < 0 {
		start = 0
	}
	end := opts.End
	if end < 0 || end >= ix.GroupCount() {
		end = ix.GroupCount() - 1
	}
	if end < start {
		return nil
	}
	groups := make([]int, 0, end-start+1)
	for id := start; id <= end; id++ {
		groups = append(groups, id)
	}
	return groups
}

func extractOne(ix *js5.Index, group int, outDir string, raw bool, log *slog.Logger, c *counters) {
	data, err := readGroup(ix, group, raw)
	switch {
	case errors.Is(err, js5.ErrEmptyGroup):
		c.absent.Add(1)
		log.Debug("group absent", "index", ix.ID(), "group", group)
		return
	case err != nil:
		c.failed.Add(1)
		log.Warn("group failed", "index", ix.ID(), "group", group, "err", err)
		return
	}

	ext := ".synth"
	if raw {
		ext = ".bin"
	}
	path := filepath.Join(outDir, fmt.Sprintf("%04d%s", group, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.failed.Add(1)
		log.Warn("group failed", "index", ix.ID(), "group", group, "err", err)
		return
	}
	c.extracted.Add(1)
	log.Debug("group extracted", "index", ix.ID(), "group", group, "bytes", len(data))
}

func readGroup(ix *js5.Index, group int, raw bool) ([]byte, error) {
	data, err := ix.ReadGroup(group)
	if err != nil || raw {
		return data, err
	}
	container, err := js5.DecodeContainer(data)
	if err != nil {
		return nil, err
	}
	return container.Data, nil
}

func collect(c *counters) *Stats {
	return &Stats{
		Extracted: int(c.extracted.Load()),
		Absent:    int(c.absent.Load()),
		Failed:    int(c.failed.Load()),
	}
}
