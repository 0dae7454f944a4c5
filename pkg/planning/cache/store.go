package cache

import (
	"strings"
	"sync"

	"github.com/quartzerp/mrp/pkg/domain/entities"
)

// Store is the process-wide planning cache. Implementations must be safe
// for concurrent use by chunk workers.
type Store interface {
	Get(key string) (interface{}, bool)
	Put(key string, value interface{})
	Invalidate(key string)
	InvalidatePrefix(prefix string)
}

// Key scheme. Explosion keys carry the company prefix so a company-wide
// invalidation sweeps them too.

// LLCKey returns the cache key for a company's low-level codes
func LLCKey(companyID entities.CompanyID) string {
	return "company:" + string(companyID) + ":llc"
}

// ExplosionKey returns the cache key for one BOM's explosion result
func ExplosionKey(companyID entities.CompanyID, bomID entities.BomID) string {
	return "company:" + string(companyID) + ":bom:" + string(bomID) + ":explosion"
}

// DirtySetKey returns the cache key for a company's dirty-product set
func DirtySetKey(companyID entities.CompanyID) string {
	return "company:" + string(companyID) + ":dirty-set"
}

// CompanyPrefix returns the key prefix shared by all of a company's entries
func CompanyPrefix(companyID entities.CompanyID) string {
	return "company:" + string(companyID) + ":"
}

// MemoryStore is an in-memory Store implementation
type MemoryStore struct {
	mutex   sync.RWMutex
	entries map[string]interface{}
}

// NewMemoryStore creates an empty in-memory cache store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]interface{})}
}

// Verify interface compliance
var _ Store = (*MemoryStore)(nil)

// Get returns the cached value for a key
func (s *MemoryStore) Get(key string) (interface{}, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	value, exists := s.entries[key]
	return value, exists
}

// Put stores a value under a key
func (s *MemoryStore) Put(key string, value interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.entries[key] = value
}

// Invalidate removes a single key
func (s *MemoryStore) Invalidate(key string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.entries, key)
}

// InvalidatePrefix removes every key sharing a prefix
func (s *MemoryStore) InvalidatePrefix(prefix string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
}

// Len returns the number of cached entries
func (s *MemoryStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.entries)
}
