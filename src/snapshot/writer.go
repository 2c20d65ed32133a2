// Package snapshot persists the decision context handed to a swarm instance
// so each invocation can be replayed later.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	fileLayout = "20060102T150405.000000Z"
	fileExt    = ".json"
)

// ErrExists is returned when a snapshot with the same name is already on disk.
var ErrExists = errors.New("snapshot already exists")

type Config struct {
	Dir string `envconfig:"LEDGER_SNAPSHOT_DIR" default:"data/snapshots"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// Snapshot is one persisted decision context.
type Snapshot struct {
	InstanceID string          `json:"instance_id"`
	CreatedAt  time.Time       `json:"created_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Writer stores snapshots as individual files under one directory.
type Writer struct {
	dir string
	now func() time.Time
}

// NewWriter creates dir if needed and returns a Writer rooted there.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("snapshot directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &Writer{dir: dir, now: time.Now}, nil
}

// Dir returns the directory snapshots are written to.
func (w *Writer) Dir() string {
	return w.dir
}

// Write durably stores payload for instanceID and returns the file path.
// An empty instanceID is replaced by a random UUID.
func (w *Writer) Write(ctx context.Context, instanceID string, payload any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	if strings.ContainsAny(instanceID, `/\`) || instanceID == "." || instanceID == ".." {
		return "", fmt.Errorf("invalid instance id %q", instanceID)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode snapshot payload: %w", err)
	}

	createdAt := w.now().UTC()
	doc, err := json.MarshalIndent(Snapshot{InstanceID: instanceID, CreatedAt: createdAt, Payload: raw}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	path := filepath.Join(w.dir, createdAt.Format(fileLayout)+"_"+instanceID+fileExt)
	if err := writeExclusive(w.dir, path, doc); err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"component":   "snapshot",
		"instance_id": instanceID,
		"path":        path,
	}).Info("decision snapshot written")

	return path, nil
}

// WriteBefore stores the snapshot and only then calls fn with its path.
// fn is never called if the snapshot could not be made durable.
func (w *Writer) WriteBefore(ctx context.Context, instanceID string, payload any, fn func(ctx context.Context, path string) error) error {
	path, err := w.Write(ctx, instanceID, payload)
	if err != nil {
		return err
	}
	return fn(ctx, path)
}

// List returns the snapshot files in the directory in name order, which is
// also creation order.
func (w *Writer) List() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("read snapshot directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, ".") {
			continue
		}
		paths = append(paths, filepath.Join(w.dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// Load reads a snapshot file back.
func Load(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return &snap, nil
}

// writeExclusive writes data to a hidden temp file, fsyncs it and links it
// into place. The link fails if path exists, so a snapshot is never replaced.
func writeExclusive(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Link(tmpName, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
		return fmt.Errorf("publish snapshot: %w", err)
	}

	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open snapshot directory: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync snapshot directory: %w", err)
	}
	return nil
}
