package cache

import (
	"path"
	"sync"
)

// Index maintains the tag -> keys reverse mapping plus a known-keys set
// for glob matching, so tag and pattern invalidation never depend on
// the store's own key scan. The index tolerates stale references: the
// store lookup is authoritative, so a dangling indexed key can only
// cause a redundant delete, never a false hit.
type Index struct {
	mu        sync.RWMutex
	tagToKeys map[string]map[string]struct{}
	keyToTags map[string]map[string]struct{}
}

// NewIndex creates an empty tag index.
func NewIndex() *Index {
	return &Index{
		tagToKeys: make(map[string]map[string]struct{}),
		keyToTags: make(map[string]map[string]struct{}),
	}
}

// AddTags records key under every tag. Re-adding is idempotent.
func (ix *Index) AddTags(key string, tags ...string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.keyToTags[key] == nil {
		ix.keyToTags[key] = make(map[string]struct{})
	}
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if ix.tagToKeys[tag] == nil {
			ix.tagToKeys[tag] = make(map[string]struct{})
		}
		ix.tagToKeys[tag][key] = struct{}{}
		ix.keyToTags[key][tag] = struct{}{}
	}
}

// RemoveKey purges key from every tag bucket and the known-keys set.
func (ix *Index) RemoveKey(key string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for tag := range ix.keyToTags[key] {
		delete(ix.tagToKeys[tag], key)
		if len(ix.tagToKeys[tag]) == 0 {
			delete(ix.tagToKeys, tag)
		}
	}
	delete(ix.keyToTags, key)
}

// KeysForTag returns a copy of the keys recorded under tag.
func (ix *Index) KeysForTag(tag string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	keys := make([]string, 0, len(ix.tagToKeys[tag]))
	for key := range ix.tagToKeys[tag] {
		keys = append(keys, key)
	}
	return keys
}

// DropTag removes the whole tag bucket after its keys were deleted.
func (ix *Index) DropTag(tag string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for key := range ix.tagToKeys[tag] {
		delete(ix.keyToTags[key], tag)
		if len(ix.keyToTags[key]) == 0 {
			delete(ix.keyToTags, key)
		}
	}
	delete(ix.tagToKeys, tag)
}

// KeysMatching returns every known key matching the glob pattern.
func (ix *Index) KeysMatching(pattern string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var keys []string
	for key := range ix.keyToTags {
		if ok, err := path.Match(pattern, key); err == nil && ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// Len returns the number of known keys.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.keyToTags)
}
