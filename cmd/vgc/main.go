// Command vgc compiles a single vg template file to standard output
// (spec.md ยง6, SPEC_FULL ยง9.1).
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	vgtpl "github.com/vgtpl/vg"
	"github.com/vgtpl/vg/env"
	"github.com/vgtpl/vg/eval"
	"github.com/vgtpl/vg/internal/vglog"
	"github.com/vgtpl/vg/loader"
	"github.com/vgtpl/vg/markdown"
)

type cli struct {
	NoCache        bool     `short:"n" help:"Disable the load cache."`
	Implementation []string `short:"i" placeholder:"KEY:VALUE" help:"Seed an implementation binding. Repeatable."`
	Cached         []string `short:"c" placeholder:"KEY:VALUE" help:"Seed the cache with a virtual document. Repeatable."`
	Verbose        bool     `short:"v" help:"Enable debug logging to stderr."`

	Root   string `arg:"" help:"Root directory for absolute (\"/...\") path expressions."`
	Target string `arg:"" help:"Template file to compile."`
}

func main() {
	var c cli
	kong.Parse(&c,
		kong.Name("vgc"),
		kong.Description("Compile a single vg template file to stdout."),
	)

	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	log := vglog.New(os.Stderr, vglog.WithLevel(level))

	root, err := filepath.Abs(c.Root)
	if err != nil {
		fatal(log, err)
	}

	cache := loader.New(root)
	cache.SetNoCache(c.NoCache)

	seed := env.New()
	for _, kv := range c.Implementation {
		k, v, ok := splitKV(kv)
		if !ok {
			fatal(log, fmt.Errorf("invalid -i value %q, want KEY:VALUE", kv))
		}
		seed.Bind(k, env.Text(v))
	}
	for _, kv := range c.Cached {
		k, v, ok := splitKV(kv)
		if !ok {
			fatal(log, fmt.Errorf("invalid -c value %q, want KEY:VALUE", kv))
		}
		if err := cache.Seed(k, v); err != nil {
			fatal(log, err)
		}
	}

	ev := eval.New(root, cache, markdown.New())

	out, err := ev.Compile(c.Target, seed)
	if err != nil {
		if errors.Is(err, vgtpl.ErrIgnored) {
			log.Debug("target is ignored", "target", c.Target)
			fmt.Fprintln(os.Stderr, "vgc: target is ignored")
			os.Exit(2)
		}
		fatal(log, err)
	}

	fmt.Fprint(os.Stdout, out)
}

func splitKV(s string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(s, ":")
	return key, value, ok
}

func fatal(log vglog.Logger, err error) {
	log.Error(err.Error())
	fmt.Fprintf(os.Stderr, "vgc: %v\n", err)
	os.Exit(1)
}
