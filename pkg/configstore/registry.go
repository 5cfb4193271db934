package configstore

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vdo-project/vdomgr/pkg/lib/filelock"
)

// DefaultLockPath is the well-known lock file guarding registry mutation
// across processes.
const DefaultLockPath = "/var/lock/vdo-config-singletons"

type RegistryParams struct {
	// LockPath overrides DefaultLockPath, mainly for tests.
	LockPath string
	// Codec is used to construct stores for paths not yet cached.
	Codec Codec
}

// Registry is the process-wide cache mapping a configuration file path to
// the one live writable Store for that path, so independent call sites
// sharing a path observe and mutate the same in-memory state. The file lock
// orders create-or-fetch operations across processes; the mutex covers
// goroutines within this process. It does not order raw file access by
// callers that construct writable stores directly.
type Registry struct {
	mu        sync.Mutex
	lock      *filelock.FileLock
	codec     Codec
	instances map[string]*Store
}

// NewRegistry constructs a registry. One registry per process is expected;
// it is explicitly passed to call sites rather than held as a global.
func NewRegistry(params RegistryParams) *Registry {
	lockPath := params.LockPath
	if lockPath == "" {
		lockPath = DefaultLockPath
	}
	return &Registry{
		lock:      filelock.New(lockPath),
		codec:     params.Codec,
		instances: make(map[string]*Store),
	}
}

// GetOrCreate returns the cached writable store for path, constructing and
// caching one when absent. Exactly one construction occurs per path;
// concurrent callers observe the same instance. The store is writable and
// does not require the file to exist.
func (r *Registry) GetOrCreate(path string) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var store *Store
	err := r.lock.WithLock(func() error {
		if cached, ok := r.instances[path]; ok {
			store = cached
			return nil
		}
		created, err := NewStore(StoreParams{Path: path, Codec: r.codec})
		if err != nil {
			return err
		}
		created.registry = r
		r.instances[path] = created
		store = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// evict drops the binding for path, if present. Called by a store after it
// deletes its backing file; absence is ignored. A caller still holding the
// evicted store has a logically defunct reference until it re-fetches.
func (r *Registry) evict(path string) {
	err := r.lock.WithLock(func() error {
		delete(r.instances, path)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msgf("failed to evict %s from configuration registry", path)
	}
}
