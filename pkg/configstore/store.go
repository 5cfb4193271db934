// Package configstore persists the configuration of a set of managed volumes
// to a single on-disk file shared across cooperating processes. A Store owns
// the in-memory entry set for one file and provides load, mutate, query and
// atomic-persist operations; a Registry guarantees one live writable Store
// per path, guarded by a filesystem lock.
package configstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/vdo-project/vdomgr/pkg/runmode"
)

const (
	// SchemaVersion20170907 is the only on-disk format revision in use.
	SchemaVersion20170907 = 0x20170907

	tempFileSuffix = ".new"
	configFilePerm = 0644

	statusTimeFormat = "2006-01-02 15:04:05"
)

var supportedSchemaVersions = []int{SchemaVersion20170907}

// IsSupportedVersion reports whether the given schema version tag belongs to
// the supported set.
func IsSupportedVersion(version int) bool {
	for _, v := range supportedSchemaVersions {
		if v == version {
			return true
		}
	}
	return false
}

const banner = "####################################################################\n" +
	"# THIS FILE IS MACHINE GENERATED. DO NOT EDIT THIS FILE BY HAND.\n" +
	"####################################################################\n"

type StoreParams struct {
	// Path is the absolute path of the configuration file.
	Path string
	// Codec encodes and decodes the file content.
	Codec Codec
	// ReadOnly forbids all mutation and persist activity.
	ReadOnly bool
	// MustExist makes construction fail when the file is absent.
	MustExist bool
}

// Store is the in-memory representation of one configuration file. Methods
// are not safe for concurrent use from multiple goroutines; callers sharing
// a Store across goroutines must synchronize externally. Cross-process
// coordination happens through the Registry's file lock.
type Store struct {
	entries       map[string]Entry
	path          string
	codec         Codec
	readOnly      bool
	dirty         bool
	schemaVersion int

	// registry is set when the store was created through a Registry, so
	// deleting the backing file also drops the cached binding.
	registry *Registry
}

// NewStore constructs a store for the file at params.Path, loading and
// decoding it when it exists and is non-empty. An absent or empty file
// yields an empty store unless params.MustExist is set.
func NewStore(params StoreParams) (*Store, error) {
	if params.Path == "" {
		return nil, fmt.Errorf("configuration file path is required")
	}
	if params.Codec == nil {
		return nil, fmt.Errorf("configuration codec is required")
	}

	s := &Store{
		entries:       make(map[string]Entry),
		path:          params.Path,
		codec:         params.Codec,
		readOnly:      params.ReadOnly,
		schemaVersion: SchemaVersion20170907,
	}

	if params.MustExist {
		if _, err := os.Stat(s.path); err != nil {
			if os.IsNotExist(err) {
				return nil, NewErrConfigFileNotFound(s.path)
			}
			return nil, fmt.Errorf("checking configuration file %s: %w", s.path, err)
		}
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading configuration file %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return s, nil
	}

	if err := s.load(data); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(data []byte) error {
	log.Debug().Msgf("reading configuration from %s", s.path)

	doc, err := s.codec.Decode(data)
	if err != nil {
		if errors.Is(err, ErrMissingSection) {
			return NewErrBadConfigFile(s.path, "Bad configuration file (missing 'config' section?)", err)
		}
		return NewErrBadConfigFile(s.path, "Bad configuration file", err)
	}

	if !IsSupportedVersion(doc.Version) {
		return NewErrUnsupportedVersion(s.path, doc.Version)
	}

	s.schemaVersion = doc.Version
	s.entries = doc.Entries
	if s.entries == nil {
		s.entries = make(map[string]Entry)
	}
	for _, entry := range s.entries {
		entry.SetStore(s)
	}
	s.dirty = false
	return nil
}

// Path returns the path of the backing configuration file.
func (s *Store) Path() string {
	return s.path
}

// ReadOnly reports whether the store forbids mutation.
func (s *Store) ReadOnly() bool {
	return s.readOnly
}

// Dirty reports whether in-memory state differs from the on-disk state.
func (s *Store) Dirty() bool {
	return s.dirty
}

// Version returns the schema version tag of the loaded document.
func (s *Store) Version() int {
	return s.schemaVersion
}

// Add inserts or, when replace is set, overwrites the named entry. It
// returns false without mutating when the name exists and replace is unset.
func (s *Store) Add(name string, entry Entry, replace bool) (bool, error) {
	if s.readOnly {
		return false, NewErrReadOnlyStore(s.path)
	}
	log.Debug().Msgf("adding volume %q to configuration", name)
	if !replace && s.Has(name) {
		return false, nil
	}
	s.entries[name] = entry
	entry.SetStore(s)
	s.dirty = true
	return true, nil
}

// Remove deletes the named entry.
func (s *Store) Remove(name string) error {
	if s.readOnly {
		return NewErrReadOnlyStore(s.path)
	}
	if !s.Has(name) {
		return NewErrEntryNotFound(name)
	}
	delete(s.entries, name)
	s.dirty = true
	return nil
}

// Get returns the named entry.
func (s *Store) Get(name string) (Entry, error) {
	entry, ok := s.entries[name]
	if !ok {
		return nil, NewErrEntryNotFound(name)
	}
	return entry, nil
}

// Has reports whether the named entry exists.
func (s *Store) Has(name string) bool {
	_, ok := s.entries[name]
	return ok
}

// List returns a copy of the name to entry mapping. Mutating the returned
// map does not affect the store.
func (s *Store) List() map[string]Entry {
	out := make(map[string]Entry, len(s.entries))
	for name, entry := range s.entries {
		out[name] = entry
	}
	return out
}

// Persist writes the configuration out if necessary. It is a no-op on a
// read-only or clean store. An empty entry set deletes the backing file
// instead of writing it. In dry-run mode the would-be content goes to the
// runmode sink and the store is marked clean as if persisted.
//
// A store whose file was deleted (empty-set persist) but which still holds
// entries added afterwards simply recreates the file on the next Persist.
//
// Any I/O failure leaves the store dirty and the canonical file untouched,
// so retrying Persist is safe.
func (s *Store) Persist() error {
	if s.readOnly {
		return nil
	}
	if !s.dirty {
		log.Debug().Msgf("configuration %s is clean, not persisting", s.path)
		return nil
	}

	log.Debug().Msgf("writing configuration to %s", s.path)

	if len(s.entries) == 0 {
		return s.removeFile()
	}

	data, err := s.codec.Encode(&Document{Version: s.schemaVersion, Entries: s.entries})
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}

	if runmode.IsDryRun() {
		out := runmode.Output()
		fmt.Fprintln(out, "New configuration (not written):")
		fmt.Fprint(out, string(data))
		s.dirty = false
		return nil
	}

	if err := s.writeAtomic(data); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// writeAtomic writes banner and data to <path>.new, fsyncs it, renames it
// onto path, and fsyncs the containing directory. The rename is the only
// step that mutates the canonical path.
func (s *Store) writeAtomic(data []byte) error {
	tempPath := s.path + tempFileSuffix
	if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale temp file %s: %w", tempPath, err)
	}

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, configFilePerm)
	if err != nil {
		return fmt.Errorf("creating temp file %s: %w", tempPath, err)
	}

	writeErr := func() error {
		if _, err := f.WriteString(banner); err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			return err
		}
		return f.Sync()
	}()
	if writeErr != nil {
		_ = f.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file %s: %w", tempPath, writeErr)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file %s: %w", tempPath, err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming %s onto %s: %w", tempPath, s.path, err)
	}
	return s.fsyncDirectory()
}

// removeFile deletes the backing file and drops this path's binding from
// the owning registry, if any. In dry-run mode the removal is only logged.
func (s *Store) removeFile() error {
	if runmode.IsDryRun() {
		runmode.LogIntent("remove", s.path)
		return nil
	}

	if _, err := os.Stat(s.path); err == nil {
		if err := os.Remove(s.path); err != nil {
			return fmt.Errorf("removing configuration file %s: %w", s.path, err)
		}
		if err := s.fsyncDirectory(); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking configuration file %s: %w", s.path, err)
	}

	if s.registry != nil {
		s.registry.evict(s.path)
	}
	return nil
}

// fsyncDirectory opens and fsyncs the directory containing the config file,
// making the rename or removal durable.
func (s *Store) fsyncDirectory() error {
	dir := filepath.Dir(s.path)
	if runmode.IsDryRun() {
		runmode.LogIntent("fsync", dir)
		return nil
	}
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("opening directory %s: %w", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("syncing directory %s: %w", dir, err)
	}
	return nil
}

// Status describes the backing file as observed on the filesystem.
type Status struct {
	File         string
	LastModified string
}

// Status reports the backing file's path and last-modified time, or the
// "does not exist" / "not available" placeholders when the file is absent.
func (s *Store) Status() (Status, error) {
	st, err := os.Stat(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Status{}, fmt.Errorf("checking configuration file %s: %w", s.path, err)
		}
		return Status{File: "does not exist", LastModified: "not available"}, nil
	}
	return Status{
		File:         s.path,
		LastModified: st.ModTime().Local().Format(statusTimeFormat),
	}, nil
}
