package configstore

import (
	"errors"
	"fmt"
)

// Sentinels used by Codec implementations to classify decode failures.
var (
	ErrMalformed      = errors.New("malformed configuration content")
	ErrMissingSection = errors.New("missing 'config' section")
)

// ErrEntryNotFound is returned when the named entry is not in the store.
type ErrEntryNotFound struct {
	Name string
}

func NewErrEntryNotFound(name string) ErrEntryNotFound {
	return ErrEntryNotFound{Name: name}
}

func (e ErrEntryNotFound) Error() string {
	return e.Name + " not found"
}

// ErrConfigFileNotFound is returned when the store is constructed with
// MustExist and the backing file is absent.
type ErrConfigFileNotFound struct {
	Path string
}

func NewErrConfigFileNotFound(path string) ErrConfigFileNotFound {
	return ErrConfigFileNotFound{Path: path}
}

func (e ErrConfigFileNotFound) Error() string {
	return fmt.Sprintf("configuration file %s does not exist", e.Path)
}

// ErrBadConfigFile is returned when the backing file cannot be parsed, lacks
// the required top-level section, or declares an unsupported schema version.
type ErrBadConfigFile struct {
	Path   string
	Reason string
	cause  error
}

func NewErrBadConfigFile(path, reason string, cause error) ErrBadConfigFile {
	return ErrBadConfigFile{Path: path, Reason: reason, cause: cause}
}

func NewErrUnsupportedVersion(path string, version int) ErrBadConfigFile {
	return ErrBadConfigFile{
		Path:   path,
		Reason: fmt.Sprintf("Configuration file version 0x%x not supported", version),
	}
}

func (e ErrBadConfigFile) Error() string {
	return e.Reason
}

func (e ErrBadConfigFile) Unwrap() error {
	return e.cause
}

// ErrReadOnlyStore is returned by mutating calls on a read-only store.
type ErrReadOnlyStore struct {
	Path string
}

func NewErrReadOnlyStore(path string) ErrReadOnlyStore {
	return ErrReadOnlyStore{Path: path}
}

func (e ErrReadOnlyStore) Error() string {
	return fmt.Sprintf("configuration store %s is read-only", e.Path)
}
