// Package loader resolves path expressions to parsed Documents and
// caches them by canonical path (spec.md ยง4.3).
package loader

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/vgtpl/vg"
)

// Cache maps canonical filesystem paths to parsed Documents. It also
// holds the seed store for the "--cached key:value" CLI form, which is
// honored even when ordinary caching is disabled.
//
// Grounded on the teacher's FileCache/CompileCache
// (sync.RWMutex-guarded maps). Entries are keyed by canonical path
// only: there is no mtime check and no content hashing.
type Cache struct {
	root string

	mu     sync.RWMutex
	seeded map[string]*vgtpl.Document
	loaded map[string]*vgtpl.Document

	noCache bool

	hits   atomic.Int64
	misses atomic.Int64
}

// New constructs a Cache rooted at root, which must already be an
// absolute, cleaned directory path.
func New(root string) *Cache {
	return &Cache{
		root:   root,
		seeded: make(map[string]*vgtpl.Document),
		loaded: make(map[string]*vgtpl.Document),
	}
}

// SetNoCache disables step 4 of spec.md ยง4.3's resolution algorithm
// (returning a previously loaded document from cache); seeded entries
// remain honored regardless.
func (c *Cache) SetNoCache(v bool) { c.noCache = v }

// Seed registers a virtual document at key, whose content is value,
// implementing the "-c/--cached key:value" CLI form.
func (c *Cache) Seed(key, value string) error {
	canon := c.resolveAbs(key, c.root)
	doc, err := vgtpl.ParseDocument(value, canon)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.seeded[canon] = doc
	c.mu.Unlock()
	return nil
}

// Load resolves pathExpr against baseDir (or root, for a
// root-relative "/..." path), returning the cached or freshly parsed
// Document at that canonical path.
func (c *Cache) Load(pathExpr, baseDir string) (*vgtpl.Document, error) {
	return c.LoadCanonical(c.resolveAbs(pathExpr, baseDir))
}

// LoadCanonical loads the document already known to live at canon,
// skipping path resolution. Used by the evaluator once it has
// resolved a path expression via ResolvePath.
func (c *Cache) LoadCanonical(canon string) (*vgtpl.Document, error) {
	c.mu.RLock()
	doc, ok := c.seeded[canon]
	if !ok && !c.noCache {
		doc, ok = c.loaded[canon]
	}
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return doc, nil
	}
	c.misses.Add(1)

	info, err := os.Stat(canon)
	if err != nil {
		return nil, &vgtpl.IOError{Path: canon, Err: err}
	}
	if info.IsDir() {
		return nil, &vgtpl.IOError{Path: canon, Err: os.ErrInvalid}
	}
	data, err := os.ReadFile(canon)
	if err != nil {
		return nil, &vgtpl.IOError{Path: canon, Err: err}
	}

	doc, err = vgtpl.ParseDocument(string(data), canon)
	if err != nil {
		return nil, err
	}

	if !c.noCache {
		c.mu.Lock()
		c.loaded[canon] = doc
		c.mu.Unlock()
	}
	return doc, nil
}

// ResolvePath performs the same resolution Load uses, without
// touching the filesystem or cache. Used by the evaluator's directory
// walk for "for" loops.
func (c *Cache) ResolvePath(pathExpr, baseDir string) string {
	return c.resolveAbs(pathExpr, baseDir)
}

// Root returns the configured root directory.
func (c *Cache) Root() string { return c.root }

// Stats reports cumulative hit/miss counts, for "-o/--cache-stats"
// diagnostics (grounded on the teacher's FileCache.info()).
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) resolveAbs(pathExpr, baseDir string) string {
	if filepath.IsAbs(pathExpr) {
		return filepath.Clean(filepath.Join(c.root, pathExpr))
	}
	return filepath.Clean(filepath.Join(baseDir, pathExpr))
}

// RebasePath returns the directory a canonical document path should
// be used as base_dir for its own include/for/extends resolution
// (grounded on vg-core's FileCache::rebase_path).
func RebasePath(canonical string) string {
	return filepath.Dir(canonical)
}
