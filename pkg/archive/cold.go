// Package archive moves old memories out of Redis into monthly JSON files
// on disk, and serves slow substring search over the archived files.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stats summarizes one archival run.
type Stats struct {
	Archived     int      `json:"archived"`
	KeptInRedis  int      `json:"kept_in_redis"`
	FilesCreated int      `json:"files_created"`
	ArchiveFiles []string `json:"archive_files,omitempty"`
}

// HoldingsStats describes what the archive directory contains.
type HoldingsStats struct {
	TotalArchiveFiles     int    `json:"total_archive_files"`
	TotalArchivedMemories int    `json:"total_archived_memories"`
	OldestArchiveDate     string `json:"oldest_archive_date,omitempty"`
	NewestArchiveDate     string `json:"newest_archive_date,omitempty"`
	ArchiveDirectory      string `json:"archive_directory"`
}

// ColdStorage archives memory hashes to dated JSON files. Archived entries
// carry every hash field except the binary embedding; they are searchable
// afterwards only by substring scan.
type ColdStorage struct {
	rdb       *redis.Client
	dir       string
	keyPrefix string
}

// NewColdStorage creates the manager and its archive directory.
func NewColdStorage(rdb *redis.Client, dir, keyPrefix string) (*ColdStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &ColdStorage{rdb: rdb, dir: dir, keyPrefix: keyPrefix}, nil
}

type agedMemory struct {
	key       string
	timestamp int64
	data      map[string]string
}

// Archive moves memories older than olderThanDays out of Redis, always
// keeping the keepRecent newest regardless of age. Entries are appended to
// {dir}/YYYY-MM/memories-YYYYMMDD.json files keyed by each memory's own
// date. Per-memory failures are logged and skipped.
func (c *ColdStorage) Archive(ctx context.Context, olderThanDays, keepRecent int) (*Stats, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays).Unix()

	keys, err := c.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return &Stats{}, nil
	}

	memories := make([]agedMemory, 0, len(keys))
	for _, key := range keys {
		fields, err := c.rdb.HGetAll(ctx, key).Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		ts, err := strconv.ParseFloat(fields["timestamp"], 64)
		if err != nil {
			continue
		}
		delete(fields, "embedding")
		memories = append(memories, agedMemory{key: key, timestamp: int64(ts), data: fields})
	}

	sort.Slice(memories, func(i, j int) bool { return memories[i].timestamp < memories[j].timestamp })

	// The newest keepRecent entries stay no matter how old they are.
	recentStart := len(memories) - keepRecent
	if recentStart < 0 {
		recentStart = 0
	}

	stats := &Stats{}
	files := make(map[string]bool)
	for i, mem := range memories {
		if i >= recentStart || mem.timestamp >= cutoff {
			stats.KeptInRedis++
			continue
		}
		path, err := c.appendToArchive(mem)
		if err != nil {
			slog.Error("Failed to archive memory", "key", mem.key, "error", err)
			stats.KeptInRedis++
			continue
		}
		if err := c.rdb.Del(ctx, mem.key).Err(); err != nil {
			slog.Error("Failed to delete archived memory from Redis", "key", mem.key, "error", err)
			stats.KeptInRedis++
			continue
		}
		stats.Archived++
		files[path] = true
	}

	stats.FilesCreated = len(files)
	for path := range files {
		stats.ArchiveFiles = append(stats.ArchiveFiles, path)
	}
	sort.Strings(stats.ArchiveFiles)
	return stats, nil
}

// appendToArchive read-modify-writes the memory into its dated file and
// returns the file path.
func (c *ColdStorage) appendToArchive(mem agedMemory) (string, error) {
	t := time.Unix(mem.timestamp, 0)
	monthDir := filepath.Join(c.dir, t.Format("2006-01"))
	if err := os.MkdirAll(monthDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(monthDir, "memories-"+t.Format("20060102")+".json")

	var entries []map[string]string
	if raw, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return "", fmt.Errorf("archive file %s is corrupt: %w", path, err)
		}
	}
	entries = append(entries, mem.data)

	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Search scans archive files newest-first for a case-insensitive substring
// match on the message field.
func (c *ColdStorage) Search(query string, maxResults int) ([]map[string]string, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	needle := strings.ToLower(query)
	results := make([]map[string]string, 0, maxResults)

	for _, path := range c.archiveFilesNewestFirst() {
		entries, err := readArchiveFile(path)
		if err != nil {
			slog.Warn("Skipping unreadable archive file", "path", path, "error", err)
			continue
		}
		for _, entry := range entries {
			if strings.Contains(strings.ToLower(entry["message"]), needle) {
				results = append(results, entry)
				if len(results) >= maxResults {
					return results, nil
				}
			}
		}
	}
	return results, nil
}

// Stats walks the archive directory and summarizes its holdings.
func (c *ColdStorage) Stats() (*HoldingsStats, error) {
	stats := &HoldingsStats{ArchiveDirectory: c.dir}
	var oldest, newest int64

	for _, path := range c.archiveFilesNewestFirst() {
		entries, err := readArchiveFile(path)
		if err != nil {
			slog.Warn("Skipping unreadable archive file", "path", path, "error", err)
			continue
		}
		stats.TotalArchiveFiles++
		stats.TotalArchivedMemories += len(entries)
		for _, entry := range entries {
			ts, err := strconv.ParseFloat(entry["timestamp"], 64)
			if err != nil || ts <= 0 {
				continue
			}
			t := int64(ts)
			if oldest == 0 || t < oldest {
				oldest = t
			}
			if t > newest {
				newest = t
			}
		}
	}
	if oldest > 0 {
		stats.OldestArchiveDate = time.Unix(oldest, 0).Format(time.RFC3339)
	}
	if newest > 0 {
		stats.NewestArchiveDate = time.Unix(newest, 0).Format(time.RFC3339)
	}
	return stats, nil
}

// archiveFilesNewestFirst lists memories-*.json paths, newest month and day
// first. The YYYY-MM / YYYYMMDD naming makes lexical order chronological.
func (c *ColdStorage) archiveFilesNewestFirst() []string {
	months, err := os.ReadDir(c.dir)
	if err != nil {
		return nil
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Name() > months[j].Name() })

	var paths []string
	for _, month := range months {
		if !month.IsDir() {
			continue
		}
		files, err := filepath.Glob(filepath.Join(c.dir, month.Name(), "memories-*.json"))
		if err != nil {
			continue
		}
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
		paths = append(paths, files...)
	}
	return paths
}

func readArchiveFile(path string) ([]map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []map[string]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// scanKeys lists memory hash keys without blocking Redis. Bookkeeping keys
// sharing the prefix (the stream cursor, for one) are skipped: memory
// hashes have an all-digit millisecond suffix.
func (c *ColdStorage) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, c.keyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		if !c.isMemoryKey(iter.Val()) {
			continue
		}
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan memory keys: %w", err)
	}
	return keys, nil
}

func (c *ColdStorage) isMemoryKey(key string) bool {
	n, err := strconv.ParseInt(strings.TrimPrefix(key, c.keyPrefix), 10, 64)
	return err == nil && n >= 0
}
