package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/quotevault/histprice-service/internal/config"
	"github.com/quotevault/histprice-service/internal/domain"
)

const (
	workDirName = ".work"
	metaSuffix  = ".meta.json"
	tmpSuffix   = ".tmp"
)

// Store is the sole owner of the raw, parsed and deadletter areas and
// of every artifact state transition between them. A rename out of the
// raw area is the only proof of ownership: two concurrent sweeps racing
// for the same artifact resolve at the rename, not before.
type Store struct {
	rawDir        string
	workDir       string
	parsedDir     string
	deadletterDir string
	logger        *slog.Logger
}

// NewStore creates the artifact store. Artifacts left in the work area
// by an interrupted process are returned to the raw area, so nothing is
// lost across a crash. Runs before any sweep starts.
func NewStore(cfg config.ArtifactsConfig, logger *slog.Logger) (*Store, error) {
	s := &Store{
		rawDir:        cfg.RawDir,
		workDir:       filepath.Join(cfg.RawDir, workDirName),
		parsedDir:     cfg.ParsedDir,
		deadletterDir: cfg.DeadletterDir,
		logger:        logger.With("component", "artifact_store"),
	}

	for _, dir := range []string{s.rawDir, s.workDir, s.parsedDir, s.deadletterDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
		}
	}

	if err := s.recoverWorkArea(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) recoverWorkArea() error {
	entries, err := os.ReadDir(s.workDir)
	if err != nil {
		return fmt.Errorf("failed to read work area: %w", err)
	}

	for _, e := range entries {
		name := e.Name()

		// A .tmp entry is a write that never reached its publishing
		// rename; the fetch will be repeated, so drop it.
		if strings.HasSuffix(name, tmpSuffix) {
			if err := os.Remove(filepath.Join(s.workDir, name)); err != nil {
				return fmt.Errorf("failed to discard incomplete write %s: %w", name, err)
			}
			s.logger.Warn("discarded incomplete artifact write", "entry", name)
			continue
		}

		src := filepath.Join(s.workDir, name)
		dst := filepath.Join(s.rawDir, name)
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("failed to recover artifact %s: %w", name, err)
		}
		s.logger.Warn("recovered interrupted artifact", "artifact", name)
	}

	return nil
}

// WriteRaw persists a fetched document as a raw artifact. The body is
// written to the work area first and renamed into place, so a partially
// written artifact is never visible to a sweep.
func (s *Store) WriteRaw(symbol string, fetchedAt time.Time, body []byte) (string, error) {
	name := domain.ArtifactName(symbol, fetchedAt)

	tmp := filepath.Join(s.workDir, name+tmpSuffix)
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", name, err)
	}

	if err := os.Rename(tmp, filepath.Join(s.rawDir, name)); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to publish artifact %s: %w", name, err)
	}

	return name, nil
}

// ListRaw returns the basenames of all unclaimed raw artifacts, sorted.
// Dotfiles are invisible; any other entry that is not a well-formed
// artifact name is a structural integrity failure and aborts the sweep,
// because it means something besides the pipeline writes to this area.
func (s *Store) ListRaw() ([]string, error) {
	entries, err := os.ReadDir(s.rawDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw area: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if _, _, err := domain.ParseArtifactName(name); err != nil || e.IsDir() {
			return nil, fmt.Errorf("%w: unexpected entry %q in raw area", domain.ErrIntegrity, name)
		}
		names = append(names, name)
	}

	sort.Strings(names)
	return names, nil
}

// Claimed is an artifact moved out of the raw area by this process.
// Its terminal state is either the parsed area or the deadletter area.
type Claimed struct {
	store *Store
	Name  string
	path  string
}

// Claim takes ownership of a raw artifact by renaming it into the work
// area. Returns ok=false without error when another sweep claimed the
// artifact first.
func (s *Store) Claim(name string) (*Claimed, bool, error) {
	src := filepath.Join(s.rawDir, name)
	dst := filepath.Join(s.workDir, name)

	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to claim artifact %s: %w", name, err)
	}

	return &Claimed{store: s, Name: name, path: dst}, true, nil
}

// Read returns the artifact's raw bytes
func (c *Claimed) Read() ([]byte, error) {
	body, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", c.Name, err)
	}
	return body, nil
}

// Archive moves a successfully processed artifact to the parsed area
// under the same basename and clears any deadletter metadata left over
// from earlier failed attempts.
func (c *Claimed) Archive() error {
	dst := filepath.Join(c.store.parsedDir, c.Name)
	if err := os.Rename(c.path, dst); err != nil {
		return fmt.Errorf("failed to archive artifact %s: %w", c.Name, err)
	}

	metaPath := c.store.metaPath(c.Name)
	if err := os.Remove(metaPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.store.logger.Warn("failed to remove stale deadletter metadata",
			"artifact", c.Name, "error", err)
	}

	return nil
}

// Deadletter moves a failed artifact to the deadletter area with the
// failure reason recorded. The attempt count of earlier failures for the
// same artifact is preserved so the retry cap holds across requeues.
func (c *Claimed) Deadletter(reason string) error {
	meta, err := c.store.readMeta(c.Name)
	if err != nil {
		return err
	}
	if meta == nil {
		meta = &domain.DeadletterMeta{Artifact: c.Name}
	}
	meta.Reason = reason
	meta.FailedAt = time.Now().UTC()

	if err := c.store.writeMeta(c.Name, meta); err != nil {
		return err
	}

	dst := filepath.Join(c.store.deadletterDir, c.Name)
	if err := os.Rename(c.path, dst); err != nil {
		return fmt.Errorf("failed to deadletter artifact %s: %w", c.Name, err)
	}

	return nil
}

// ListDeadletter returns all deadletter entries with their metadata
func (s *Store) ListDeadletter() ([]domain.DeadletterEntry, error) {
	entries, err := os.ReadDir(s.deadletterDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read deadletter area: %w", err)
	}

	var result []domain.DeadletterEntry
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, metaSuffix) {
			continue
		}
		if _, _, err := domain.ParseArtifactName(name); err != nil || e.IsDir() {
			return nil, fmt.Errorf("%w: unexpected entry %q in deadletter area", domain.ErrIntegrity, name)
		}

		meta, err := s.readMeta(name)
		if err != nil {
			return nil, err
		}
		if meta == nil {
			meta = &domain.DeadletterMeta{Artifact: name, Reason: "unknown"}
		}

		result = append(result, domain.DeadletterEntry{Name: name, Meta: *meta})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Requeue moves a deadletter artifact back to the raw area for another
// processing attempt wearing an incremented attempt count. The metadata
// sidecar stays in the deadletter area so the count survives the retry.
func (s *Store) Requeue(name string) error {
	meta, err := s.readMeta(name)
	if err != nil {
		return err
	}
	if meta == nil {
		meta = &domain.DeadletterMeta{Artifact: name, Reason: "unknown"}
	}

	now := time.Now().UTC()
	meta.Attempts++
	meta.LastRetryAt = &now

	if err := s.writeMeta(name, meta); err != nil {
		return err
	}

	src := filepath.Join(s.deadletterDir, name)
	dst := filepath.Join(s.rawDir, name)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to requeue artifact %s: %w", name, err)
	}

	return nil
}

func (s *Store) metaPath(name string) string {
	return filepath.Join(s.deadletterDir, name+metaSuffix)
}

func (s *Store) readMeta(name string) (*domain.DeadletterMeta, error) {
	data, err := os.ReadFile(s.metaPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read deadletter metadata for %s: %w", name, err)
	}

	var meta domain.DeadletterMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode deadletter metadata for %s: %w", name, err)
	}
	return &meta, nil
}

func (s *Store) writeMeta(name string, meta *domain.DeadletterMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode deadletter metadata for %s: %w", name, err)
	}

	if err := os.WriteFile(s.metaPath(name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write deadletter metadata for %s: %w", name, err)
	}
	return nil
}
