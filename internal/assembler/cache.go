package assembler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/robert-at-pretension-io/rtl-hier/internal/config"
	"github.com/robert-at-pretension-io/rtl-hier/internal/extractor"
)

const cacheIndexVersion = 1

type cacheEntry struct {
	ContentHash string `json:"content_hash"`
	ModulePath  string `json:"module_path"`
	Version     string `json:"version"`
}

type cacheIndex struct {
	Version int                   `json:"version"`
	Entries map[string]cacheEntry `json:"entries"`
}

// moduleCache stores extracted modules keyed by source path and content
// hash so unchanged files skip extraction on the next run.
type moduleCache struct {
	dir     string
	version string
	mu      sync.Mutex
	index   cacheIndex
}

func newModuleCache(dir, version string) *moduleCache {
	return &moduleCache{
		dir:     dir,
		version: version,
		index: cacheIndex{
			Version: cacheIndexVersion,
			Entries: make(map[string]cacheEntry),
		},
	}
}

// cacheVersion folds the extractor version and the vocabularies that
// shape extraction output into one string.
func cacheVersion(cfg *config.Config) string {
	return strings.Join([]string{
		extractor.Version,
		strings.Join(cfg.Extraction.ClockTokens, ","),
		strings.Join(cfg.Extraction.ResetTokens, ","),
	}, "|")
}

func (c *moduleCache) indexPath() string {
	return filepath.Join(c.dir, "index.json")
}

func (c *moduleCache) modulePathForFile(filePath string) string {
	h := sha256.Sum256([]byte(filePath))
	return filepath.Join(c.dir, "modules", hex.EncodeToString(h[:])+".json")
}

func (c *moduleCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cache mkdir: %w", err)
	}
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache index: %w", err)
	}
	var idx cacheIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("parse cache index: %w", err)
	}
	if idx.Version != cacheIndexVersion {
		// Reset on version mismatch
		c.index = cacheIndex{Version: cacheIndexVersion, Entries: make(map[string]cacheEntry)}
		return nil
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]cacheEntry)
	}
	c.index = idx
	return nil
}

func (c *moduleCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeJSONAtomic(c.indexPath(), c.index)
}

func (c *moduleCache) Get(filePath, contentHash string) (*extractor.ModuleInfo, bool, error) {
	c.mu.Lock()
	entry, ok := c.index.Entries[filePath]
	c.mu.Unlock()
	if !ok || entry.ContentHash != contentHash || entry.Version != c.version {
		return nil, false, nil
	}

	data, err := os.ReadFile(entry.ModulePath)
	if err != nil {
		return nil, false, fmt.Errorf("read cached module: %w", err)
	}
	var mod extractor.ModuleInfo
	if err := json.Unmarshal(data, &mod); err != nil {
		return nil, false, fmt.Errorf("parse cached module: %w", err)
	}
	if mod.Parameters == nil {
		mod.Parameters = make(map[string]string)
	}
	if mod.Instances == nil {
		mod.Instances = make(map[string]string)
	}
	return &mod, true, nil
}

func (c *moduleCache) Put(filePath, contentHash string, mod *extractor.ModuleInfo) error {
	modulePath := c.modulePathForFile(filePath)
	if err := writeJSONAtomic(modulePath, mod); err != nil {
		return err
	}

	c.mu.Lock()
	c.index.Entries[filePath] = cacheEntry{
		ContentHash: contentHash,
		ModulePath:  modulePath,
		Version:     c.version,
	}
	c.mu.Unlock()
	return nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache json: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
