// Command vgd walks a declarative configuration, compiling or copying
// each entry to its destination (spec.md ยง6, SPEC_FULL ยง9.2).
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/vgtpl/vg/env"
	"github.com/vgtpl/vg/eval"
	"github.com/vgtpl/vg/internal/config"
	"github.com/vgtpl/vg/internal/vglog"
	"github.com/vgtpl/vg/loader"
	"github.com/vgtpl/vg/markdown"
)

type cli struct {
	File           string   `short:"f" default:"./vg.yaml" help:"Configuration file path."`
	DryRun         bool     `short:"r" help:"Validate every entry without writing destinations."`
	Time           bool     `short:"t" help:"Print per-entry compile time to stderr."`
	CacheStats     bool     `short:"o" help:"Print load-cache hit/miss counts after the run."`
	Verbose        bool     `short:"v" help:"Enable debug logging to stderr."`
	Example        bool     `short:"e" help:"Print an example configuration and exit."`
	Implementation []string `short:"i" placeholder:"KEY:VALUE" help:"Seed an implementation binding, on top of the config. Repeatable."`
	Cached         []string `short:"c" placeholder:"KEY:VALUE" help:"Seed the cache with a virtual document, on top of the config. Repeatable."`
}

func main() {
	var c cli
	kong.Parse(&c,
		kong.Name("vgd"),
		kong.Description("Compile or copy every entry of a deployment configuration."),
	)

	if c.Example {
		fmt.Print(config.Example())
		return
	}

	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	log := vglog.New(os.Stderr, vglog.WithLevel(level))

	cfg, err := config.Load(c.File)
	if err != nil {
		fatal(log, err)
	}

	root, err := filepath.Abs(".")
	if err != nil {
		fatal(log, err)
	}

	cache := loader.New(root)
	cache.SetNoCache(cfg.NoCache)

	seed := env.New()
	for k, v := range cfg.Implementations {
		seed.Bind(k, env.Text(v))
	}
	for k, v := range cfg.Cached {
		if err := cache.Seed(k, v); err != nil {
			fatal(log, err)
		}
	}
	for _, kv := range c.Implementation {
		k, v, ok := strings.Cut(kv, ":")
		if !ok {
			fatal(log, fmt.Errorf("invalid -i value %q, want KEY:VALUE", kv))
		}
		seed.Bind(k, env.Text(v))
	}
	for _, kv := range c.Cached {
		k, v, ok := strings.Cut(kv, ":")
		if !ok {
			fatal(log, fmt.Errorf("invalid -c value %q, want KEY:VALUE", kv))
		}
		if err := cache.Seed(k, v); err != nil {
			fatal(log, err)
		}
	}

	ev := eval.New(root, cache, markdown.New())

	var results []eval.Result
	failed := false
	for _, entry := range cfg.Entries {
		start := time.Now()
		res := runEntry(ev, entry, seed.Clone(), c.DryRun, log)
		if c.Time {
			fmt.Fprintf(os.Stderr, "vgd: %s -> %s (%s)\n", entry.Src, entry.Dst, time.Since(start))
		}
		if res.Outcome == eval.OutcomeError {
			failed = true
			fmt.Fprintf(os.Stderr, "vgd: %s: %v\n", entry.Src, res.Err)
		}
		results = append(results, res)
	}

	if c.CacheStats {
		hits, misses := cache.Stats()
		fmt.Fprintf(os.Stderr, "vgd: cache hits=%d misses=%d\n", hits, misses)
	}

	if failed {
		os.Exit(1)
	}
}

func runEntry(ev *eval.Evaluator, entry config.Entry, seed *env.Environment, dryRun bool, log vglog.Logger) eval.Result {
	if entry.Mode == config.ModeCopy {
		return runCopy(entry, dryRun)
	}

	out, err := ev.Compile(entry.Src, seed)
	res := eval.Classify(entry.Src, err)

	switch res.Outcome {
	case eval.OutcomeIgnored:
		log.Debug("entry ignored", "src", entry.Src)
		if entry.DeleteOnIgnore && !dryRun {
			if rmErr := os.Remove(entry.Dst); rmErr != nil && !os.IsNotExist(rmErr) {
				return eval.Result{Entry: entry.Src, Outcome: eval.OutcomeError, Err: rmErr}
			}
		}
	case eval.OutcomeCompiled:
		if !dryRun {
			if werr := writeFile(entry.Dst, out); werr != nil {
				return eval.Result{Entry: entry.Src, Outcome: eval.OutcomeError, Err: werr}
			}
		}
	}
	return res
}

func runCopy(entry config.Entry, dryRun bool) eval.Result {
	src, err := os.Open(entry.Src)
	if err != nil {
		return eval.Result{Entry: entry.Src, Outcome: eval.OutcomeError, Err: err}
	}
	defer src.Close()

	if dryRun {
		return eval.Result{Entry: entry.Src, Outcome: eval.OutcomeCompiled}
	}

	if err := os.MkdirAll(filepath.Dir(entry.Dst), 0o755); err != nil {
		return eval.Result{Entry: entry.Src, Outcome: eval.OutcomeError, Err: err}
	}
	dst, err := os.Create(entry.Dst)
	if err != nil {
		return eval.Result{Entry: entry.Src, Outcome: eval.OutcomeError, Err: err}
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return eval.Result{Entry: entry.Src, Outcome: eval.OutcomeError, Err: err}
	}
	return eval.Result{Entry: entry.Src, Outcome: eval.OutcomeCompiled}
}

func writeFile(dst, content string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, []byte(content), 0o644)
}

func fatal(log vglog.Logger, err error) {
	log.Error(err.Error())
	fmt.Fprintf(os.Stderr, "vgd: %v\n", err)
	os.Exit(1)
}
