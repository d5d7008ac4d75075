package worktree

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/basket/murmur/internal/murmurerr"
)

// metadataFile is the sidecar file name written inside every worktree.
const metadataFile = ".murmur-worktree"

// Status is the lifecycle state of a cached worktree.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
	StatusAvailable Status = "available"
)

// Metadata is the on-disk sidecar carried inside every worktree, so a pool
// scan never needs database access to reconstruct a worktree's state.
type Metadata struct {
	TaskID     string
	CreatedAt  time.Time
	LastUsed   time.Time
	BaseCommit string
	Status     Status
	Branch     string
}

// NewMetadata builds fresh metadata for a worktree just created for taskID.
func NewMetadata(taskID, baseCommit, branch string) Metadata {
	now := time.Now()
	return Metadata{
		TaskID:     taskID,
		CreatedAt:  now,
		LastUsed:   now,
		BaseCommit: baseCommit,
		Status:     StatusActive,
		Branch:     branch,
	}
}

// Touch advances LastUsed to now.
func (m *Metadata) Touch() {
	m.LastUsed = time.Now()
}

// LoadMetadata reads the sidecar from a worktree directory.
func LoadMetadata(worktreeDir string) (Metadata, error) {
	path := filepath.Join(worktreeDir, metadataFile)
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, murmurerr.Io(err)
	}
	defer f.Close()

	m := Metadata{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "task_id":
			m.TaskID = value
		case "created_at":
			m.CreatedAt, _ = time.Parse(time.RFC3339, value)
		case "last_used":
			m.LastUsed, _ = time.Parse(time.RFC3339, value)
		case "base_commit":
			m.BaseCommit = value
		case "status":
			m.Status = Status(value)
		case "branch":
			m.Branch = value
		}
	}
	if err := scanner.Err(); err != nil {
		return Metadata{}, murmurerr.Io(err)
	}
	return m, nil
}

// Save writes the sidecar into worktreeDir, overwriting any prior contents.
func (m Metadata) Save(worktreeDir string) error {
	path := filepath.Join(worktreeDir, metadataFile)
	var b strings.Builder
	fmt.Fprintf(&b, "task_id = %s\n", m.TaskID)
	fmt.Fprintf(&b, "created_at = %s\n", m.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "last_used = %s\n", m.LastUsed.Format(time.RFC3339))
	fmt.Fprintf(&b, "base_commit = %s\n", m.BaseCommit)
	fmt.Fprintf(&b, "status = %s\n", m.Status)
	fmt.Fprintf(&b, "branch = %s\n", m.Branch)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return murmurerr.Io(err)
	}
	return nil
}
