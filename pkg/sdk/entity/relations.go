package entity

import "sync"

// Predicate selects related entities. A predicate that panics for a candidate
// skips that candidate only; the rest of the query still runs.
type Predicate func(Entity) bool

// Relations caches the related entities of one owner, grouped by type key.
// A type that was never put or appended is unfetched; a type put with an empty
// list is fetched with zero results.
type Relations struct {
	mu    sync.RWMutex
	cache map[string][]Entity
}

// NewRelations creates an empty relationship cache
func NewRelations() *Relations {
	return &Relations{cache: make(map[string][]Entity)}
}

// Fetched reports whether the type key has a cached list, possibly empty
func (r *Relations) Fetched(typeKey string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.cache[typeKey]
	return ok
}

// Put replaces the cached list of a type and marks it fetched
func (r *Relations) Put(typeKey string, entities []Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]Entity, len(entities))
	copy(list, entities)
	r.cache[typeKey] = list
}

// Append adds an entity to the list of its own type, creating the list if needed
func (r *Relations) Append(e Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache[e.Type()] = append(r.cache[e.Type()], e)
}

// Clear removes the given type keys, or everything when none are given
func (r *Relations) Clear(typeKeys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(typeKeys) == 0 {
		r.cache = make(map[string][]Entity)
		return
	}
	for _, key := range typeKeys {
		delete(r.cache, key)
	}
}

// Get returns the cached entities of a type that match pred, appended to dst.
// A nil predicate matches everything.
func (r *Relations) Get(typeKey string, pred Predicate, dst ...Entity) []Entity {
	r.mu.RLock()
	state := r.cache[typeKey]
	r.mu.RUnlock()

	results := dst
	if results == nil {
		results = make([]Entity, 0, len(state))
	}

	for _, e := range state {
		if pred == nil || matches(pred, e) {
			results = append(results, e)
		}
	}
	return results
}

// First returns the first cached entity of a type matching pred, or nil
func (r *Relations) First(typeKey string, pred Predicate) Entity {
	results := r.Get(typeKey, pred)
	if len(results) == 0 {
		return nil
	}
	return results[0]
}

// Types returns the fetched type keys
func (r *Relations) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.cache))
	for k := range r.cache {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of cached entities of a type
func (r *Relations) Len(typeKey string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.cache[typeKey])
}

func matches(pred Predicate, e Entity) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return pred(e)
}

// GetAs returns the cached entities of a type that are of the concrete type T
// and match pred
func GetAs[T Entity](r *Relations, typeKey string, pred func(T) bool) []T {
	var results []T
	for _, e := range r.Get(typeKey, nil) {
		typed, ok := e.(T)
		if !ok {
			continue
		}
		if pred == nil || matches(func(Entity) bool { return pred(typed) }, e) {
			results = append(results, typed)
		}
	}
	return results
}
