package persona

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/0muji4/persona-prompt/internal/docfile"
	"github.com/0muji4/persona-prompt/internal/document"
	"github.com/0muji4/persona-prompt/internal/override"
)

// DefaultDir is where persona documents live when no directory is configured.
const DefaultDir = "persona"

const fileSuffix = ".yaml"

var (
	// ErrNotFound is returned when no document exists for a persona id.
	ErrNotFound = errors.New("persona not found")
	// ErrValidation is returned for malformed persona documents and ids.
	ErrValidation = errors.New("invalid persona")
)

// Meta describes a loaded persona.
type Meta struct {
	ID              string           `json:"id"`
	Name            string           `json:"name,omitempty"`
	Role            string           `json:"role,omitempty"`
	Source          string           `json:"source"`
	OverrideApplied override.Applied `json:"override_applied"`
}

// Store loads persona documents by id from a directory.
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

// Dir returns the directory holding the persona documents.
func (s *Store) Dir() string {
	return s.dir.Root()
}

// List returns the ids of the persona documents in the directory.
func (s *Store) List() ([]string, error) {
	return s.dir.List(fileSuffix)
}

// Document reads the raw persona document for id.
func (s *Store) Document(id string) (*document.Node, string, error) {
	name := id + fileSuffix
	path, err := s.dir.Path(name)
	if err != nil {
		return nil, "", fmt.Errorf("persona %q: %w: %v", id, ErrValidation, err)
	}
	ok, err := s.dir.Exists(name)
	if err != nil {
		return nil, "", fmt.Errorf("persona %q: %w", id, err)
	}
	if !ok {
		return nil, "", fmt.Errorf("persona %q not found in %s: %w", id, s.dir.Root(), ErrNotFound)
	}

	doc, err := s.dir.Read(name)
	if err != nil {
		return nil, "", fmt.Errorf("persona %q: %w: %v", id, ErrValidation, err)
	}
	if doc.Kind != document.Mapping {
		return nil, "", fmt.Errorf("persona %q must be a YAML mapping: %w", id, ErrValidation)
	}
	return doc, path, nil
}

// Load renders the persona id into a prompt, applying rec first when it is
// not empty.
func (s *Store) Load(id string, rec override.Record) (string, Meta, error) {
	doc, path, err := s.Document(id)
	if err != nil {
		return "", Meta{}, err
	}

	applied := override.Applied{}
	if len(rec) > 0 {
		doc, applied = override.Merge(doc, rec)
		if skipped := override.Skipped(rec, applied); len(skipped) > 0 {
			s.logger.Debug("Skipped empty override fields",
				zap.String("persona_id", id),
				zap.Strings("fields", skipped))
		}
	}

	prompt, err := BuildPrompt(doc)
	if err != nil {
		return "", Meta{}, fmt.Errorf("persona %q: %w", id, err)
	}

	header := doc.Get("persona")
	meta := Meta{
		ID:              header.Get("id").Inline(),
		Name:            header.Get("name").Inline(),
		Role:            header.Get("role").Inline(),
		Source:          path,
		OverrideApplied: applied,
	}
	if meta.ID == "" {
		meta.ID = id
	}

	s.logger.Debug("Loaded persona",
		zap.String("persona_id", id),
		zap.String("source", path),
		zap.Strings("override_applied", applied.Names()))
	return prompt, meta, nil
}

// LoadPrompt renders the persona id without overrides.
func (s *Store) LoadPrompt(id string) (string, error) {
	prompt, _, err := s.Load(id, nil)
	return prompt, err
}

// LoadPromptByID renders the persona id found in dir.
func LoadPromptByID(id, dir string) (string, error) {
	return NewStore(dir, nil).LoadPrompt(id)
}

// LoadPromptAndMetaByID renders the persona id found in dir, applying rec.
func LoadPromptAndMetaByID(id, dir string, rec override.Record) (string, Meta, error) {
	return NewStore(dir, nil).Load(id, rec)
}
