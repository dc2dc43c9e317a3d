package uploads

import (
	"context"
	"sort"
	"sync"

	"github.com/clinica/clinica/internal/platform/apperr"
)

// MemoryMetadata is a thread-safe in-memory MetadataRepository.
type MemoryMetadata struct {
	mu    sync.RWMutex
	items map[string]Metadata
}

func NewMemoryMetadata() *MemoryMetadata {
	return &MemoryMetadata{items: make(map[string]Metadata)}
}

func (m *MemoryMetadata) Insert(_ context.Context, meta *Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[meta.ID] = *meta
	return nil
}

func (m *MemoryMetadata) Get(_ context.Context, id string) (*Metadata, error) {
	m.mu.RLock()
	meta, ok := m.items[id]
	m.mu.RUnlock()
	if !ok {
		return nil, apperr.NotFound("upload")
	}
	return &meta, nil
}

func (m *MemoryMetadata) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return apperr.NotFound("upload")
	}
	delete(m.items, id)
	return nil
}

func (m *MemoryMetadata) List(_ context.Context, category string, limit, offset int) ([]*Metadata, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*Metadata
	for _, meta := range m.items {
		if category != "" && meta.Category != category {
			continue
		}
		cp := meta
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
