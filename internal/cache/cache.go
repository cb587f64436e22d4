package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"ga4bq/internal/bigquery"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	maxRecentProjects = 10
	projectsFile      = "projects.json"
	loadsFile         = "loads.json"
)

type Cache struct {
	baseDir string
}

// New creates a new cache instance with OS-appropriate cache directory
func New() (*Cache, error) {
	cacheDir, err := getCacheDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get cache directory: %w", err)
	}

	appCacheDir := filepath.Join(cacheDir, "ga4bq")
	if err := os.MkdirAll(appCacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Cache{baseDir: appCacheDir}, nil
}

// getCacheDir returns the appropriate cache directory for the OS
func getCacheDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		cacheDir := os.Getenv("LOCALAPPDATA")
		if cacheDir == "" {
			cacheDir = os.Getenv("TEMP")
		}
		if cacheDir == "" {
			return "", fmt.Errorf("cannot determine cache directory on Windows")
		}
		return cacheDir, nil
	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, "Library", "Caches"), nil
	default: // Linux and other Unix-like systems
		cacheDir := os.Getenv("XDG_CACHE_HOME")
		if cacheDir != "" {
			return cacheDir, nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, ".cache"), nil
	}
}

// CachedProjects holds the warehouse projects used most recently, newest
// first.
type CachedProjects struct {
	Projects []string  `json:"projects"`
	CachedAt time.Time `json:"cached_at"`
}

// LoadRecord is the last successful load into a table.
type LoadRecord struct {
	Table      string    `json:"table"`
	JobID      string    `json:"job_id"`
	Rows       uint64    `json:"rows"`
	Columns    int       `json:"columns"`
	Bytes      int64     `json:"bytes"`
	FinishedAt time.Time `json:"finished_at"`
}

type cachedLoads struct {
	Loads map[string]*LoadRecord `json:"loads"`
}

// GetRecentProjects returns the recently used projects, newest first.
func (c *Cache) GetRecentProjects() []string {
	var cached CachedProjects
	if !c.read(projectsFile, &cached) {
		return nil
	}
	return cached.Projects
}

// AddRecentProject moves projectID to the front of the recent projects.
func (c *Cache) AddRecentProject(projectID string) error {
	projects := []string{projectID}
	for _, p := range c.GetRecentProjects() {
		if p != projectID && len(projects) < maxRecentProjects {
			projects = append(projects, p)
		}
	}
	return c.write(projectsFile, CachedProjects{Projects: projects, CachedAt: time.Now()})
}

// RecordLoad stores res as the last load of its table.
func (c *Cache) RecordLoad(res *bigquery.LoadResult) error {
	var cached cachedLoads
	c.read(loadsFile, &cached)
	if cached.Loads == nil {
		cached.Loads = make(map[string]*LoadRecord)
	}

	rows := res.NumRows
	if rows == 0 {
		rows = uint64(res.Rows)
	}
	table := res.Table.String()
	cached.Loads[table] = &LoadRecord{
		Table:      table,
		JobID:      res.JobID,
		Rows:       rows,
		Columns:    res.NumColumns,
		Bytes:      res.Bytes,
		FinishedAt: res.FinishedAt,
	}
	return c.write(loadsFile, cached)
}

// GetLoad returns the last load into table, given as project.dataset.table.
func (c *Cache) GetLoad(table string) (*LoadRecord, bool) {
	var cached cachedLoads
	if !c.read(loadsFile, &cached) {
		return nil, false
	}
	rec, ok := cached.Loads[table]
	return rec, ok && rec != nil
}

// ListLoads returns the last load of every table, most recent first.
func (c *Cache) ListLoads() []*LoadRecord {
	var cached cachedLoads
	if !c.read(loadsFile, &cached) {
		return nil
	}
	var records []*LoadRecord
	for _, rec := range cached.Loads {
		if rec != nil {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].FinishedAt.Equal(records[j].FinishedAt) {
			return records[i].Table < records[j].Table
		}
		return records[i].FinishedAt.After(records[j].FinishedAt)
	})
	return records
}

// ClearLoads removes the load history
func (c *Cache) ClearLoads() error {
	err := os.Remove(filepath.Join(c.baseDir, loadsFile))
	if os.IsNotExist(err) {
		return nil // Not an error if file doesn't exist
	}
	return err
}

func (c *Cache) read(name string, v any) bool {
	data, err := os.ReadFile(filepath.Join(c.baseDir, name))
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func (c *Cache) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	if err := os.WriteFile(filepath.Join(c.baseDir, name), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s cache: %w", name, err)
	}
	return nil
}
