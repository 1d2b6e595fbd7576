package override

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/0muji4/persona-prompt/internal/docfile"
	"github.com/0muji4/persona-prompt/internal/document"
)

// DefaultDir is where override records live when no directory is configured.
const DefaultDir = "data/persona_overrides"

const fileSuffix = ".override.yaml"

// Store persists one override record per persona id.
type Store struct {
	dir    *docfile.Dir
	logger *zap.Logger
}

// NewStore returns a Store rooted at dir. An empty dir selects DefaultDir.
func NewStore(dir string, logger *zap.Logger) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: docfile.NewDir(dir), logger: logger}
}

// Dir returns the directory holding the override records.
func (s *Store) Dir() string {
	return s.dir.Root()
}

// Path returns the file backing the record for personaID.
func (s *Store) Path(personaID string) (string, error) {
	return s.dir.Path(personaID + fileSuffix)
}

// Load returns the stored record for personaID. A missing or unreadable
// record yields an empty Record; read failures are logged, not returned.
func (s *Store) Load(personaID string) (Record, error) {
	if err := s.dir.Ensure(); err != nil {
		return nil, err
	}
	name := personaID + fileSuffix
	ok, err := s.dir.Exists(name)
	if err != nil {
		return nil, fmt.Errorf("override %q: %w", personaID, err)
	}
	if !ok {
		return Record{}, nil
	}

	doc, err := s.dir.Read(name)
	if err != nil {
		s.logger.Error("Failed to read override record",
			zap.String("persona_id", personaID),
			zap.Error(err))
		return Record{}, nil
	}
	if doc.Kind != document.Mapping {
		s.logger.Error("Override record is not a mapping",
			zap.String("persona_id", personaID),
			zap.String("kind", doc.Kind.String()))
		return Record{}, nil
	}

	rec, _ := doc.Any().(map[string]any)
	return Record(rec), nil
}

// Save replaces the stored record for personaID with rec.
func (s *Store) Save(personaID string, rec Record) error {
	if rec == nil {
		rec = Record{}
	}
	if err := s.dir.Write(personaID+fileSuffix, map[string]any(rec)); err != nil {
		return fmt.Errorf("override %q: %w", personaID, err)
	}
	s.logger.Debug("Saved override record", zap.String("persona_id", personaID), zap.Int("fields", len(rec)))
	return nil
}

// Delete removes the stored record for personaID if there is one.
func (s *Store) Delete(personaID string) error {
	if err := s.dir.Remove(personaID + fileSuffix); err != nil {
		return fmt.Errorf("override %q: %w", personaID, err)
	}
	return nil
}

// LoadOverride loads the record for personaID from dir.
func LoadOverride(personaID, dir string) (Record, error) {
	return NewStore(dir, nil).Load(personaID)
}

// SaveOverride replaces the record for personaID in dir.
func SaveOverride(personaID string, rec Record, dir string) error {
	return NewStore(dir, nil).Save(personaID, rec)
}

// DeleteOverride removes the record for personaID from dir.
func DeleteOverride(personaID, dir string) error {
	return NewStore(dir, nil).Delete(personaID)
}
