package csvstore

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
)

type cachedTable struct {
	modTime time.Time
	size    int64
	rows    []sourceRow
}

// TableCache memoises parsed chain files by path. An entry is reloaded when
// the file's size or modification time changes.
type TableCache struct {
	mu     sync.Mutex
	tables map[string]cachedTable
	loads  int
}

func NewTableCache() *TableCache {
	return &TableCache{tables: make(map[string]cachedTable)}
}

func (c *TableCache) load(path string) ([]sourceRow, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat chain file: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tables[path]; ok && t.modTime.Equal(info.ModTime()) && t.size == info.Size() {
		return t.rows, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chain file: %w", err)
	}
	defer f.Close()

	var rows []sourceRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parse chain file %s: %w", path, err)
	}
	c.tables[path] = cachedTable{modTime: info.ModTime(), size: info.Size(), rows: rows}
	c.loads++
	return rows, nil
}

// Invalidate drops the cached table of path.
func (c *TableCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, path)
}

// Reset drops every cached table.
func (c *TableCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = make(map[string]cachedTable)
}

// Loads reports how many times a file was parsed.
func (c *TableCache) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}
