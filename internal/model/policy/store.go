package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store exposes the policy corpus to retrieval and HTTP handlers.
type Store interface {
	List() []Document
	FindByID(id string) (Document, bool)
}

// MemoryStore implements Store with an in-memory slice; the corpus is static
// for the lifetime of the process.
type MemoryStore struct {
	items []Document
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied documents.
func NewMemoryStore(items []Document) *MemoryStore {
	return &MemoryStore{items: append([]Document(nil), items...)}
}

// List returns the policy documents.
func (s *MemoryStore) List() []Document {
	return append([]Document(nil), s.items...)
}

// FindByID looks up a document by identifier.
func (s *MemoryStore) FindByID(id string) (Document, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Document{}, false
}

// LoadDir reads every .txt file in dir as one policy document. The file name
// (without extension) becomes both ID and title.
func LoadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy dir: %w", err)
	}

	docs := make([]Document, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read policy file %s: %w", entry.Name(), err)
		}

		name := strings.TrimSuffix(entry.Name(), ".txt")
		docs = append(docs, Document{
			ID:      name,
			Title:   name,
			Content: strings.TrimSpace(string(content)),
		})
	}

	return docs, nil
}
