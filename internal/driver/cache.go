package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"treecomp/internal/diag"
	"treecomp/internal/tree"
)

// cacheSchema changes whenever CachedOutput or the key derivation does.
const cacheSchema = 3

// CacheKey is the SHA-256 of a compile's inputs.
type CacheKey [sha256.Size]byte

func (k CacheKey) String() string { return hex.EncodeToString(k[:]) }

// CacheInputs is everything that decides the emitted text of one file.
type CacheInputs struct {
	Data      []byte
	Format    tree.Format
	Formatted bool
	MaxDepth  int
	// Operators is the operator table fingerprint.
	Operators string
}

// Key hashes the inputs. The settings are msgpack-encoded ahead of the raw
// tree bytes so no two setting tuples share a prefix.
func (in CacheInputs) Key() CacheKey {
	settings, err := msgpack.Marshal([]any{cacheSchema, uint8(in.Format), in.Formatted, max(in.MaxDepth, 0), in.Operators})
	if err != nil {
		panic(fmt.Sprintf("driver: encode cache settings: %v", err))
	}
	h := sha256.New()
	h.Write(settings)
	h.Write(in.Data)
	var k CacheKey
	h.Sum(k[:0])
	return k
}

// CachedOutput is what a hit restores: the text and the diagnostics reported
// while producing it. Diagnostics are kept uncapped and without a file name,
// since neither the path nor the diagnostic cap is part of the key.
type CachedOutput struct {
	Schema      int               `msgpack:"schema"`
	Text        string            `msgpack:"text"`
	Nodes       int               `msgpack:"nodes"`
	Diagnostics []diag.Diagnostic `msgpack:"diagnostics"`
}

// Cache keeps emitted output on disk, one msgpack file per key. Entries are
// written to a temp file and renamed into place, so concurrent compiles can
// share it. A nil *Cache misses every lookup and stores nothing.
type Cache struct {
	root string
}

// OpenCache opens the cache for app under the user cache directory
// ($XDG_CACHE_HOME or ~/.cache on Linux).
func OpenCache(app string) (*Cache, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}
	return OpenCacheAt(filepath.Join(base, app))
}

// OpenCacheAt opens a cache rooted at dir, creating it if needed.
func OpenCacheAt(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{root: dir}, nil
}

func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.root
}

func (c *Cache) entry(k CacheKey) string {
	name := k.String()
	return filepath.Join(c.root, "out", name[:2], name+".mp")
}

// Load fills out from the entry for k. Missing entries and entries of another
// schema are misses, not errors.
func (c *Cache) Load(k CacheKey, out *CachedOutput) (bool, error) {
	if c == nil {
		return false, nil
	}
	data, err := os.ReadFile(c.entry(k))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var got CachedOutput
	if err := msgpack.Unmarshal(data, &got); err != nil {
		return false, fmt.Errorf("cache entry %s: %w", k, err)
	}
	if got.Schema != cacheSchema {
		return false, nil
	}
	*out = got
	return true, nil
}

// Store writes v as the entry for k.
func (c *Cache) Store(k CacheKey, v CachedOutput) error {
	if c == nil {
		return nil
	}
	v.Schema = cacheSchema
	data, err := msgpack.Marshal(&v)
	if err != nil {
		return err
	}
	path := c.entry(k)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	_, werr := tmp.Write(data)
	if err := errors.Join(werr, tmp.Close()); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Clear removes every entry. The tree is moved aside first so a concurrent
// reader sees either the old entries or none.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	aside := c.root + ".old-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	if err := os.Rename(c.root, aside); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return errors.Join(os.MkdirAll(c.root, 0o755), os.RemoveAll(aside))
}

// locate fills in file wherever d's locations name none.
func locate(d diag.Diagnostic, file string) diag.Diagnostic {
	if d.Primary.File == "" {
		d.Primary.File = file
	}
	if len(d.Notes) > 0 {
		d.Notes = slices.Clone(d.Notes)
		for i := range d.Notes {
			if d.Notes[i].At.File == "" {
				d.Notes[i].At.File = file
			}
		}
	}
	return d
}
