package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/robert-at-pretension-io/esi-codegen/internal/config"
	"github.com/robert-at-pretension-io/esi-codegen/internal/diag"
	"github.com/robert-at-pretension-io/esi-codegen/internal/records"
)

const cacheIndexVersion = 1

type cacheEntry struct {
	ContentHash string `json:"content_hash"`
	RecordsPath string `json:"records_path"`
	ToolVersion string `json:"tool_version"`
}

type cacheIndex struct {
	Version int                   `json:"version"`
	Entries map[string]cacheEntry `json:"entries"`
}

// cachedResult is what a cache hit replaces: the deduplicated records of one
// input and the warnings raised while producing them.
type cachedResult struct {
	Records  []records.Record `json:"records"`
	Warnings []diag.Warning   `json:"warnings"`
}

// recordsCache maps input files to their resolved records, keyed by content
// hash and tool version so that a changed file or a new build misses.
type recordsCache struct {
	dir         string
	toolVersion string
	mu          sync.Mutex
	index       cacheIndex
}

func newRecordsCache(dir, toolVersion string) *recordsCache {
	return &recordsCache{
		dir:         dir,
		toolVersion: toolVersion,
		index: cacheIndex{
			Version: cacheIndexVersion,
			Entries: make(map[string]cacheEntry),
		},
	}
}

func (c *recordsCache) indexPath() string {
	return filepath.Join(c.dir, "index.json")
}

func (c *recordsCache) recordsPathForFile(filePath string) string {
	h := sha256.Sum256([]byte(filePath))
	return filepath.Join(c.dir, "records", hex.EncodeToString(h[:])+".json")
}

func (c *recordsCache) Load() error {
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
		c.index = cacheIndex{Version: cacheIndexVersion, Entries: make(map[string]cacheEntry)}
		return nil
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]cacheEntry)
	}
	c.index = idx
	return nil
}

func (c *recordsCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return records.WriteJSON(c.indexPath(), c.index)
}

func (c *recordsCache) Get(filePath, contentHash string) (cachedResult, bool, error) {
	c.mu.Lock()
	entry, ok := c.index.Entries[filePath]
	c.mu.Unlock()
	if !ok || entry.ContentHash != contentHash || entry.ToolVersion != c.toolVersion {
		return cachedResult{}, false, nil
	}

	data, err := os.ReadFile(entry.RecordsPath)
	if err != nil {
		return cachedResult{}, false, fmt.Errorf("read cached records: %w", err)
	}
	var res cachedResult
	if err := json.Unmarshal(data, &res); err != nil {
		return cachedResult{}, false, fmt.Errorf("parse cached records: %w", err)
	}
	return res, true, nil
}

func (c *recordsCache) Put(filePath, contentHash string, res cachedResult) error {
	path := c.recordsPathForFile(filePath)
	if err := records.WriteJSON(path, res); err != nil {
		return err
	}

	c.mu.Lock()
	c.index.Entries[filePath] = cacheEntry{
		ContentHash: contentHash,
		RecordsPath: path,
		ToolVersion: c.toolVersion,
	}
	c.mu.Unlock()
	return nil
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func cacheEnabled(cfg *config.Config) bool {
	if cfg == nil || envBool("ESI_CODEGEN_NO_CACHE") {
		return false
	}
	return config.Enabled(cfg.Analysis.Cache.Enabled)
}

func resolveCacheDir(rootPath string, cfg *config.Config) string {
	baseDir := rootPath
	if info, err := os.Stat(rootPath); err == nil && !info.IsDir() {
		baseDir = filepath.Dir(rootPath)
	}
	cacheDir := cfg.Analysis.Cache.Dir
	if cacheDir == "" {
		cacheDir = ".esi_codegen_cache"
	}
	if !filepath.IsAbs(cacheDir) {
		cacheDir = filepath.Join(baseDir, cacheDir)
	}
	return cacheDir
}
