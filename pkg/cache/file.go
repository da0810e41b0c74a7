package cache

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// fileCache persists entries under a directory on local disk. It backs the
// CLI, where each run is a short-lived process that wants warm results
// across invocations without a daemon.
//
// Every entry is a single file: a header line holding the expiry as unix
// seconds (0 for none), followed by the raw payload. Payloads are mostly
// SVG and DOT text, so they are stored verbatim rather than wrapped in an
// encoding that would inflate them.
type fileCache struct {
	dir string
}

// NewFileCache creates a file-based cache rooted at dir, creating the
// directory if needed.
func NewFileCache(dir string) (Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileCache{dir: dir}, nil
}

// Get retrieves a value. Expired or malformed entries are removed and
// reported as misses, so the cache heals itself on read.
func (c *fileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.entryPath(key)

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	header, payload, ok := bytes.Cut(raw, []byte{'\n'})
	if !ok {
		_ = os.Remove(path)
		return nil, false, nil
	}
	expires, err := strconv.ParseInt(string(header), 10, 64)
	if err != nil {
		_ = os.Remove(path)
		return nil, false, nil
	}

	if expires != 0 && time.Now().Unix() > expires {
		_ = os.Remove(path)
		return nil, false, nil
	}

	return payload, true, nil
}

// Set stores a value. A ttl of zero keeps the entry until it is deleted;
// any other ttl sets an absolute expiry, so a negative ttl writes an entry
// that is already stale.
func (c *fileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	var expires int64
	if ttl != 0 {
		expires = time.Now().Add(ttl).Unix()
	}

	path := c.entryPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	entry := append(strconv.AppendInt(nil, expires, 10), '\n')
	entry = append(entry, data...)

	// Write-then-rename keeps a concurrent reader from seeing a torn entry.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".write-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(entry); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes an entry. Deleting a missing key is not an error.
func (c *fileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.entryPath(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close is a no-op; entries hold no open handles between calls.
func (c *fileCache) Close() error {
	return nil
}

// Prune walks every shard and removes entries that have expired or cannot
// be parsed. Live entries are left untouched.
func (c *fileCache) Prune(ctx context.Context) (int, error) {
	removed := 0
	now := time.Now().Unix()

	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		raw, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil
		}
		header, _, ok := bytes.Cut(raw, []byte{'\n'})
		dead := !ok
		if ok {
			expires, perr := strconv.ParseInt(string(header), 10, 64)
			dead = perr != nil || (expires != 0 && now > expires)
		}
		if dead && os.Remove(path) == nil {
			removed++
		}
		return nil
	})
	return removed, err
}

// entryPath maps a key to its file, fanning entries out across 256
// two-character shard directories so no single directory accumulates
// everything.
func (c *fileCache) entryPath(key string) string {
	digest := Hash([]byte(key))
	return filepath.Join(c.dir, digest[:2], digest[2:]+".entry")
}
