// Package mediastore lays synthesized audio artifacts out on disk under a
// deterministic, versioned conversation folder scheme and persists batch run
// documents next to them. It is the only component that writes below the
// media root.
package mediastore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

const (
	filePermissions = 0o600
	dirPermissions  = 0o750

	versionPrefix    = "v"
	versionSeparator = "__"

	// DocumentFileName is the per-run batch output document.
	DocumentFileName = "tts_output.json"
)

// ErrRunNotFound is returned when a run has no persisted output document.
var ErrRunNotFound = errors.New("run id not found")

// Store owns the artifact layout below {root}/{namespace}. Version allocation
// and the following write happen under a per-conversation lock, so two
// requests for the same conversation can never allocate the same version.
type Store struct {
	root      string
	namespace string

	mu      sync.Mutex
	folders map[string]*sync.Mutex
}

// New creates a store rooted at {root}/{namespace}. Folders are created
// lazily on first write.
func New(root, namespace string) *Store {
	return &Store{
		root:      root,
		namespace: namespace,
		folders:   make(map[string]*sync.Mutex),
	}
}

// Namespace returns the configured media namespace.
func (s *Store) Namespace() string {
	return s.namespace
}

// RunDir returns the folder holding all output of one run.
func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.root, s.namespace, runID)
}

// ConversationDir derives the folder owning one dialogue conversation's
// version sequence:
//
//	{root}/{namespace}/{runID}/{imageStem}_{ext}/dialogue__{dialogueID}
//
// The image extension is joined with "_" instead of "." to keep the folder
// name filesystem-friendly across platforms.
func (s *Store) ConversationDir(runID, imagePath string, dialogueID int) string {
	imagePath = path.Clean(filepath.ToSlash(imagePath))
	ext := strings.TrimPrefix(path.Ext(imagePath), ".")
	stem := strings.TrimSuffix(imagePath, path.Ext(imagePath))

	imageDir := stem
	if ext != "" {
		imageDir = stem + "_" + ext
	}

	dialogueDir := fmt.Sprintf("dialogue%s%d", versionSeparator, dialogueID)

	return filepath.Join(s.RunDir(runID), filepath.FromSlash(imageDir), dialogueDir)
}

// NextVersion scans dir for files named v<digits>__... and returns the
// highest parsed version plus one, or 1 when the folder is empty or absent.
// Entries that do not parse are ignored; gaps from manual deletion are
// tolerated and never reused.
func NextVersion(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}

		return 0, fmt.Errorf("failed to scan conversation folder %s: %w", dir, err)
	}

	maxVersion := 0

	for _, entry := range entries {
		version, ok := parseVersion(entry.Name())
		if ok && version > maxVersion {
			maxVersion = version
		}
	}

	return maxVersion + 1, nil
}

func parseVersion(name string) (int, bool) {
	if !strings.HasPrefix(name, versionPrefix) {
		return 0, false
	}

	rest := name[len(versionPrefix):]

	sep := strings.Index(rest, versionSeparator)
	if sep < 0 {
		return 0, false
	}

	version, err := strconv.Atoi(rest[:sep])
	if err != nil {
		return 0, false
	}

	return version, true
}

// BuildFilename renders the versioned artifact name,
// v{version}__exg{exaggeration}__cfg{cfg}.wav. The numeric knobs keep their
// natural decimal form so the filename doubles as an audit trail of the
// parameters that produced the artifact.
func BuildFilename(version int, exaggeration, cfg float64) string {
	return fmt.Sprintf(
		"v%d%sexg%s%scfg%s.wav",
		version,
		versionSeparator,
		FormatKnob(exaggeration),
		versionSeparator,
		FormatKnob(cfg),
	)
}

// FormatKnob renders a knob value for filenames. Whole numbers keep one
// decimal place (1 renders as "1.0") so filenames stay byte-compatible with
// artifacts produced by earlier pipeline stages.
func FormatKnob(value float64) string {
	rendered := strconv.FormatFloat(value, 'f', -1, 64)
	if !strings.Contains(rendered, ".") {
		rendered += ".0"
	}

	return rendered
}

// SaveVersioned allocates the next version for the conversation folder and
// writes the audio data under the versioned filename, holding the folder's
// lock across the scan and the write. It returns the written path and the
// allocated version.
func (s *Store) SaveVersioned(dir string, exaggeration, cfg float64, data []byte) (string, int, error) {
	lock := s.folderLock(dir)
	lock.Lock()
	defer lock.Unlock()

	err := os.MkdirAll(dir, dirPermissions)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create conversation folder %s: %w", dir, err)
	}

	version, err := NextVersion(dir)
	if err != nil {
		return "", 0, err
	}

	outPath := filepath.Join(dir, BuildFilename(version, exaggeration, cfg))

	err = os.WriteFile(outPath, data, filePermissions)
	if err != nil {
		return "", 0, fmt.Errorf("failed to write audio file %s: %w", outPath, err)
	}

	return outPath, version, nil
}

// SaveNamed writes the audio data under an explicit filename, bypassing
// version allocation. A ".wav" extension is appended when missing.
func (s *Store) SaveNamed(dir, filename string, data []byte) (string, error) {
	err := os.MkdirAll(dir, dirPermissions)
	if err != nil {
		return "", fmt.Errorf("failed to create output folder %s: %w", dir, err)
	}

	if filepath.Ext(filename) == "" {
		filename += ".wav"
	}

	outPath := filepath.Join(dir, filename)

	err = os.WriteFile(outPath, data, filePermissions)
	if err != nil {
		return "", fmt.Errorf("failed to write audio file %s: %w", outPath, err)
	}

	return outPath, nil
}

// Rel rewrites an absolute artifact path as a slash-separated path relative
// to {root}/{namespace}, the form stored in media references.
func (s *Store) Rel(artifactPath string) (string, error) {
	rel, err := filepath.Rel(filepath.Join(s.root, s.namespace), artifactPath)
	if err != nil {
		return "", fmt.Errorf("artifact path %s is outside the media root: %w", artifactPath, err)
	}

	return filepath.ToSlash(rel), nil
}

// SaveDocument persists the batch output document for a run and returns the
// written path.
func (s *Store) SaveDocument(runID string, document any) (string, error) {
	runDir := s.RunDir(runID)

	err := os.MkdirAll(runDir, dirPermissions)
	if err != nil {
		return "", fmt.Errorf("failed to create run folder %s: %w", runDir, err)
	}

	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run document: %w", err)
	}

	outPath := filepath.Join(runDir, DocumentFileName)

	err = os.WriteFile(outPath, data, filePermissions)
	if err != nil {
		return "", fmt.Errorf("failed to write run document %s: %w", outPath, err)
	}

	return outPath, nil
}

// LoadDocument reads back the persisted batch output document of a prior
// run. ErrRunNotFound is returned when the run never produced one.
func (s *Store) LoadDocument(runID string) ([]byte, error) {
	docPath := filepath.Join(s.RunDir(runID), DocumentFileName)

	data, err := os.ReadFile(docPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}

		return nil, fmt.Errorf("failed to read run document %s: %w", docPath, err)
	}

	return data, nil
}

func (s *Store) folderLock(dir string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.folders[dir]
	if !ok {
		lock = &sync.Mutex{}
		s.folders[dir] = lock
	}

	return lock
}
