package matching

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/edi/edi/internal/domain/claims"
)

type memoryRef struct {
	headerID  uuid.UUID
	qualifier string
	value     string
}

// MemoryStore is a ClaimStore over claims decoded in the current process.
// Lookups return the earliest added claim that matches.
type MemoryStore struct {
	mu         sync.RWMutex
	byClaimID  map[string]uuid.UUID
	byOriginal map[string]uuid.UUID
	refs       []memoryRef
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byClaimID:  make(map[string]uuid.UUID),
		byOriginal: make(map[string]uuid.UUID),
	}
}

// Add indexes c under c.ID, assigning a new id when it has none.
func (s *MemoryStore) Add(c *claims.Claim) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byClaimID[c.ClaimID]; !exists && c.ClaimID != "" {
		s.byClaimID[c.ClaimID] = c.ID
	}
	if _, exists := s.byOriginal[c.OriginalClaimID]; !exists && c.OriginalClaimID != "" {
		s.byOriginal[c.OriginalClaimID] = c.ID
	}
	for _, ref := range c.References {
		s.refs = append(s.refs, memoryRef{headerID: c.ID, qualifier: ref.Qualifier, value: ref.Value})
	}
}

// Len returns the number of distinct claim ids indexed.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byClaimID)
}

func (s *MemoryStore) FindByClaimID(_ context.Context, claimID string) (uuid.UUID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byClaimID[claimID]
	return id, ok, nil
}

func (s *MemoryStore) FindByOriginalClaimID(_ context.Context, claimID string) (uuid.UUID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byOriginal[claimID]
	return id, ok, nil
}

func (s *MemoryStore) FindByReference(_ context.Context, qualifier, value string) (uuid.UUID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ref := range s.refs {
		if ref.value != value {
			continue
		}
		if qualifier == "" || ref.qualifier == qualifier {
			return ref.headerID, true, nil
		}
	}
	return uuid.Nil, false, nil
}
