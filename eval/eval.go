// Package eval walks a parsed Document against an Environment,
// performing extends merging, block capture, loop expansion, include
// splicing, conditional selection, variable substitution and filter
// application (spec.md ยง4.5).
package eval

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	vgtpl "github.com/vgtpl/vg"
	"github.com/vgtpl/vg/env"
	"github.com/vgtpl/vg/loader"
)

// DefaultMaxDepth bounds total extends+include+for+conditional
// nesting (spec.md ยง5).
const DefaultMaxDepth = 256

// Evaluator compiles a Document tree reachable from a target path.
type Evaluator struct {
	Root     string
	Loader   *loader.Cache
	Markdown vgtpl.Markdown
	MaxDepth int
}

// New constructs an Evaluator rooted at root, using cache for path
// resolution and md (which may be nil) for the md filter and
// "include md" form.
func New(root string, cache *loader.Cache, md vgtpl.Markdown) *Evaluator {
	if cache == nil {
		cache = loader.New(root)
	}
	return &Evaluator{Root: root, Loader: cache, Markdown: md, MaxDepth: DefaultMaxDepth}
}

func (e *Evaluator) maxDepth() int {
	if e.MaxDepth > 0 {
		return e.MaxDepth
	}
	return DefaultMaxDepth
}

// evalCtx tracks the active extends/include/for chain for cycle
// detection and the current nesting depth (spec.md ยง5).
type evalCtx struct {
	active   map[string]bool
	depth    int
	maxDepth int
}

func newEvalCtx(maxDepth int) *evalCtx {
	return &evalCtx{active: make(map[string]bool), maxDepth: maxDepth}
}

func (c *evalCtx) push() error {
	if c.depth+1 > c.maxDepth {
		return &vgtpl.DepthError{Max: c.maxDepth}
	}
	c.depth++
	return nil
}

func (c *evalCtx) pop() { c.depth-- }

// enter registers canon on the active chain, failing with a cycle
// error if it is already present.
func (c *evalCtx) enter(canon string) error {
	if c.active[canon] {
		return &vgtpl.CycleError{Path: canon}
	}
	if err := c.push(); err != nil {
		return err
	}
	c.active[canon] = true
	return nil
}

func (c *evalCtx) leave(canon string) {
	delete(c.active, canon)
	c.pop()
}

// Compile resolves targetPath against the Evaluator's root and
// renders it under seed (or a fresh Environment if seed is nil).
func (e *Evaluator) Compile(targetPath string, seed *env.Environment) (string, error) {
	canon := e.Loader.ResolvePath(targetPath, e.Root)
	ctx := newEvalCtx(e.maxDepth())
	if err := ctx.enter(canon); err != nil {
		return "", err
	}
	defer ctx.leave(canon)

	doc, err := e.Loader.LoadCanonical(canon)
	if err != nil {
		return "", err
	}
	if seed == nil {
		seed = env.New()
	}

	var out strings.Builder
	if err := e.evalDocument(doc, canon, seed, &out, ctx, nil); err != nil {
		return "", err
	}
	return out.String(), nil
}

// evalDocument dispatches on doc's prelude.
func (e *Evaluator) evalDocument(doc *vgtpl.Document, canon string, envr *env.Environment, out *strings.Builder, ctx *evalCtx, collect map[string]string) error {
	switch doc.Prelude {
	case vgtpl.PreludeIgnored:
		return vgtpl.ErrIgnored
	case vgtpl.PreludeExtending:
		return e.evalExtends(doc, canon, envr, out, ctx, collect)
	default:
		return e.evalNodes(doc.Nodes, canon, envr, out, ctx, collect)
	}
}

// evalExtends implements spec.md ยง4.5's Extends contract: capture the
// child's own block definitions into a fresh frame (collect, if
// non-nil, also records them for a for-loop's per_file_blocks), then
// render the parent under that extended environment.
func (e *Evaluator) evalExtends(doc *vgtpl.Document, canon string, envr *env.Environment, out *strings.Builder, ctx *evalCtx, collect map[string]string) error {
	envr.PushFrame()
	defer envr.PopFrame()

	var scratch strings.Builder
	if err := e.evalNodes(doc.Nodes, canon, envr, &scratch, ctx, collect); err != nil {
		return err
	}

	parentPath, err := e.resolvePathExpr(doc.ExtendsPath, canon, envr)
	if err != nil {
		return err
	}
	baseDir := loader.RebasePath(canon)
	parentCanon := e.Loader.ResolvePath(parentPath, baseDir)

	if err := ctx.enter(parentCanon); err != nil {
		return err
	}
	defer ctx.leave(parentCanon)

	parentDoc, err := e.Loader.LoadCanonical(parentCanon)
	if err != nil {
		return err
	}
	return e.evalDocument(parentDoc, parentCanon, envr, out, ctx, nil)
}

func (e *Evaluator) evalNodes(nodes []vgtpl.Node, canon string, envr *env.Environment, out *strings.Builder, ctx *evalCtx, collect map[string]string) error {
	for _, n := range nodes {
		if err := e.evalNode(n, canon, envr, out, ctx, collect); err != nil {
			return err
		}
	}
	return nil
}

func (e *Evaluator) evalNode(n vgtpl.Node, canon string, envr *env.Environment, out *strings.Builder, ctx *evalCtx, collect map[string]string) error {
	switch node := n.(type) {
	case vgtpl.Literal:
		out.WriteString(node.Bytes)
		return nil

	case vgtpl.VariableRef:
		return e.evalVariable(node, out, envr)

	case vgtpl.Block:
		var buf strings.Builder
		if err := e.evalNodes(node.Body, canon, envr, &buf, ctx, collect); err != nil {
			return err
		}
		text := buf.String()
		envr.Bind(node.Name, env.Text(text))
		if collect != nil {
			collect[node.Name] = text
		}
		return nil

	case vgtpl.If:
		if err := ctx.push(); err != nil {
			return err
		}
		defer ctx.pop()
		branch := node.Then
		if !condTrue(node.Cond, envr) {
			branch = node.Else
		}
		return e.evalNodes(branch, canon, envr, out, ctx, collect)

	case vgtpl.For:
		return e.evalFor(node, canon, envr, out, ctx, collect)

	case vgtpl.Include:
		return e.evalInclude(node, canon, envr, out, ctx, collect)

	case vgtpl.Extends, vgtpl.Ignore:
		// Never reach the node tree: the parser consumes these into
		// Document.Prelude/ExtendsPath instead of emitting a node.
		return nil

	default:
		return nil
	}
}

func (e *Evaluator) evalVariable(node vgtpl.VariableRef, out *strings.Builder, envr *env.Environment) error {
	val, ok := envr.Lookup(node.NamePath)
	if !ok {
		if node.Nullable {
			return nil
		}
		out.WriteString(node.Source)
		return nil
	}
	rendered, err := vgtpl.ApplyFilters(val.String(), node.Filters, e.Markdown)
	if err != nil {
		return err
	}
	out.WriteString(rendered)
	return nil
}

func condTrue(cond vgtpl.Condition, envr *env.Environment) bool {
	if !cond.Emptiness {
		result := envr.Exists(cond.NamePath)
		if cond.Negative {
			result = !result
		}
		return result
	}
	result := envr.IsEmpty(cond.NamePath)
	if cond.Negative {
		result = !result
	}
	return result
}

func (e *Evaluator) evalInclude(n vgtpl.Include, canon string, envr *env.Environment, out *strings.Builder, ctx *evalCtx, collect map[string]string) error {
	pathExpr, err := e.resolvePathExpr(n.PathExpr, canon, envr)
	if err != nil {
		return err
	}
	baseDir := loader.RebasePath(canon)
	target := e.Loader.ResolvePath(pathExpr, baseDir)

	switch n.Mode {
	case vgtpl.IncludeRaw:
		data, ferr := os.ReadFile(target)
		if ferr != nil {
			return &vgtpl.IOError{Path: target, Err: ferr}
		}
		out.WriteString(string(data))
		return nil

	case vgtpl.IncludeMarkdown:
		data, ferr := os.ReadFile(target)
		if ferr != nil {
			return &vgtpl.IOError{Path: target, Err: ferr}
		}
		if e.Markdown == nil {
			out.WriteString(string(data))
			return nil
		}
		rendered, cerr := e.Markdown.Convert(string(data))
		if cerr != nil {
			return cerr
		}
		out.WriteString(rendered)
		return nil

	default: // IncludeParsed
		if err := ctx.enter(target); err != nil {
			return err
		}
		defer ctx.leave(target)

		incDoc, lerr := e.Loader.LoadCanonical(target)
		if lerr != nil {
			return lerr
		}

		if n.Alias == "" {
			return e.evalDocument(incDoc, target, envr, out, ctx, collect)
		}

		envr.PushFrame()
		var scratch strings.Builder
		aliasBlocks := make(map[string]string)
		err := e.evalDocument(incDoc, target, envr, &scratch, ctx, aliasBlocks)
		envr.PopFrame()
		if err != nil {
			return err
		}
		for name, text := range aliasBlocks {
			envr.Bind(n.Alias+"."+name, env.Text(text))
		}
		return nil
	}
}

type dirEntry struct {
	path string
	name string
	mod  time.Time
}

func (e *Evaluator) evalFor(n vgtpl.For, canon string, envr *env.Environment, out *strings.Builder, ctx *evalCtx, collect map[string]string) error {
	pathExpr, err := e.resolvePathExpr(n.PathExpr, canon, envr)
	if err != nil {
		return err
	}
	baseDir := loader.RebasePath(canon)
	target := e.Loader.ResolvePath(pathExpr, baseDir)

	info, serr := os.Stat(target)
	if serr != nil {
		return &vgtpl.IOError{Path: target, Err: serr}
	}

	var files []string
	if info.IsDir() {
		entries, derr := os.ReadDir(target)
		if derr != nil {
			return &vgtpl.IOError{Path: target, Err: derr}
		}
		var infos []dirEntry
		for _, de := range entries {
			full := filepath.Join(target, de.Name())
			fi, ferr := os.Stat(full) // Stat follows symlinks.
			if ferr != nil || fi.IsDir() || !fi.Mode().IsRegular() {
				continue
			}
			infos = append(infos, dirEntry{path: full, name: de.Name(), mod: fi.ModTime()})
		}
		sort.Slice(infos, func(i, j int) bool {
			var less bool
			switch n.SortBy {
			case vgtpl.SortCreated, vgtpl.SortModified:
				less = infos[i].mod.Before(infos[j].mod)
			default:
				less = infos[i].name < infos[j].name
			}
			if n.Reverse {
				return !less
			}
			return less
		})
		for _, inf := range infos {
			files = append(files, inf.path)
		}
	} else {
		files = []string{target}
	}

	if len(files) == 0 {
		if n.Else != nil {
			return e.evalNodes(n.Else, canon, envr, out, ctx, collect)
		}
		return nil
	}

	type loadedFile struct {
		path string
		doc  *vgtpl.Document
	}
	var loaded []loadedFile
	for _, f := range files {
		if err := ctx.enter(f); err != nil {
			return err
		}
		fileDoc, lerr := e.Loader.LoadCanonical(f)
		ctx.leave(f)
		if lerr != nil {
			return lerr
		}
		if fileDoc.Prelude == vgtpl.PreludeIgnored {
			continue
		}
		loaded = append(loaded, loadedFile{path: f, doc: fileDoc})
	}

	size := len(loaded)
	for index, lf := range loaded {
		if err := ctx.enter(lf.path); err != nil {
			return err
		}
		perFile := make(map[string]string)
		var captured strings.Builder
		envr.PushFrame()
		everr := e.evalDocument(lf.doc, lf.path, envr, &captured, ctx, perFile)
		envr.PopFrame()
		ctx.leave(lf.path)

		if everr != nil {
			if errors.Is(everr, vgtpl.ErrIgnored) {
				continue
			}
			return everr
		}

		item := env.LoopItem(captured.String(), perFile, index, size)

		envr.PushFrame()
		envr.Bind(n.LoopVar, item)
		err := e.evalNodes(n.Body, canon, envr, out, ctx, collect)
		envr.PopFrame()
		if err != nil {
			return err
		}
	}
	return nil
}

// Outcome classifies the result of compiling one deployment-driver
// entry (SPEC_FULL ยง9.2): the core's only contribution to vgd is this
// structured result, so the driver can act on ignore/error without
// parsing error text.
type Outcome int

const (
	OutcomeCompiled Outcome = iota
	OutcomeIgnored
	OutcomeError
)

// Result pairs an entry identifier with its Outcome and, for
// OutcomeError, the underlying error.
type Result struct {
	Entry   string
	Outcome Outcome
	Err     error
}

// Classify builds a Result from a Compile error, distinguishing the
// Ignored control signal from a genuine failure.
func Classify(entry string, err error) Result {
	switch {
	case err == nil:
		return Result{Entry: entry, Outcome: OutcomeCompiled}
	case errors.Is(err, vgtpl.ErrIgnored):
		return Result{Entry: entry, Outcome: OutcomeIgnored}
	default:
		return Result{Entry: entry, Outcome: OutcomeError, Err: err}
	}
}

// resolvePathExpr implements spec.md ยง4.5's meta-path late-binding
// semantics: variable-ref fragments are looked up now, at the moment
// the enclosing directive executes.
func (e *Evaluator) resolvePathExpr(frags []vgtpl.PathFragment, canon string, envr *env.Environment) (string, error) {
	var b strings.Builder
	for _, f := range frags {
		if !f.IsVarRef {
			b.WriteString(f.Literal)
			continue
		}
		val, ok := envr.Lookup(f.VarPath)
		if !ok {
			return "", &vgtpl.ResolveError{Loc: vgtpl.Location{Path: canon}, Name: f.VarPath}
		}
		b.WriteString(val.String())
	}
	return b.String(), nil
}
