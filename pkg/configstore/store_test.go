//go:build unit || !integration

package configstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"

	"github.com/vdo-project/vdomgr/pkg/logger"
	"github.com/vdo-project/vdomgr/pkg/runmode"
)

// testEntry is a minimal Entry for exercising the store without pulling in
// the volume package.
type testEntry struct {
	Value string `yaml:"value"`
	store *Store
}

func (e *testEntry) SetStore(s *Store) {
	e.store = s
}

type testDocument struct {
	Config *testSection `yaml:"config"`
}

type testSection struct {
	Version int                   `yaml:"version"`
	Entries map[string]*testEntry `yaml:"vdos"`
}

// testCodec is a YAML codec over testEntry values.
type testCodec struct{}

func (testCodec) Encode(doc *Document) ([]byte, error) {
	entries := make(map[string]*testEntry, len(doc.Entries))
	for name, entry := range doc.Entries {
		e, ok := entry.(*testEntry)
		if !ok {
			return nil, fmt.Errorf("entry %q is not a testEntry", name)
		}
		entries[name] = e
	}
	return yaml.Marshal(testDocument{Config: &testSection{Version: doc.Version, Entries: entries}})
}

func (testCodec) Decode(data []byte) (*Document, error) {
	var doc testDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSection, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	if doc.Config == nil {
		return nil, ErrMissingSection
	}
	entries := make(map[string]Entry, len(doc.Config.Entries))
	for name, e := range doc.Config.Entries {
		entries[name] = e
	}
	return &Document{Version: doc.Config.Version, Entries: entries}, nil
}

type StoreTestSuite struct {
	suite.Suite
	path string
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupTest() {
	logger.ConfigureTestLogging(s.T())
	s.path = filepath.Join(s.T().TempDir(), "vdoconf.yml")
}

func (s *StoreTestSuite) newStore(readOnly, mustExist bool) (*Store, error) {
	return NewStore(StoreParams{
		Path:      s.path,
		Codec:     testCodec{},
		ReadOnly:  readOnly,
		MustExist: mustExist,
	})
}

func (s *StoreTestSuite) TestFreshStoreIsEmptyAndClean() {
	store, err := s.newStore(false, false)
	s.Require().NoError(err)
	s.Empty(store.List())
	s.False(store.Dirty())
	s.Equal(SchemaVersion20170907, store.Version())
}

func (s *StoreTestSuite) TestEmptyFileGivesEmptyStore() {
	s.Require().NoError(os.WriteFile(s.path, []byte{}, 0644))
	store, err := s.newStore(false, false)
	s.Require().NoError(err)
	s.Empty(store.List())
	s.False(store.Dirty())
}

func (s *StoreTestSuite) TestMustExistFailsWhenAbsent() {
	_, err := s.newStore(false, true)
	var notFound ErrConfigFileNotFound
	s.Require().ErrorAs(err, &notFound)
	s.Equal(s.path, notFound.Path)
}

func (s *StoreTestSuite) TestAddGetRemove() {
	store, err := s.newStore(false, false)
	s.Require().NoError(err)

	added, err := store.Add("vol1", &testEntry{Value: "a"}, false)
	s.Require().NoError(err)
	s.True(added)
	s.True(store.Dirty())
	s.True(store.Has("vol1"))

	// duplicate without replace is rejected without error
	added, err = store.Add("vol1", &testEntry{Value: "b"}, false)
	s.Require().NoError(err)
	s.False(added)
	got, err := store.Get("vol1")
	s.Require().NoError(err)
	s.Equal("a", got.(*testEntry).Value)

	// replace overwrites
	added, err = store.Add("vol1", &testEntry{Value: "b"}, true)
	s.Require().NoError(err)
	s.True(added)
	got, err = store.Get("vol1")
	s.Require().NoError(err)
	s.Equal("b", got.(*testEntry).Value)

	_, err = store.Get("ghost")
	var notFound ErrEntryNotFound
	s.Require().ErrorAs(err, &notFound)
	s.Equal("ghost not found", err.Error())

	s.Require().NoError(store.Remove("vol1"))
	s.False(store.Has("vol1"))
	s.Require().ErrorAs(store.Remove("vol1"), &notFound)
}

func (s *StoreTestSuite) TestAddSetsBackReference() {
	store, err := s.newStore(false, false)
	s.Require().NoError(err)
	entry := &testEntry{Value: "a"}
	_, err = store.Add("vol1", entry, false)
	s.Require().NoError(err)
	s.Same(store, entry.store)
}

func (s *StoreTestSuite) TestReadOnlyRejectsMutation() {
	// seed the file through a writable store
	writable, err := s.newStore(false, false)
	s.Require().NoError(err)
	_, err = writable.Add("vol1", &testEntry{Value: "a"}, false)
	s.Require().NoError(err)
	s.Require().NoError(writable.Persist())
	before, err := os.ReadFile(s.path)
	s.Require().NoError(err)

	store, err := s.newStore(true, false)
	s.Require().NoError(err)

	var readOnly ErrReadOnlyStore
	_, err = store.Add("vol2", &testEntry{Value: "b"}, false)
	s.Require().ErrorAs(err, &readOnly)
	s.Require().ErrorAs(store.Remove("vol1"), &readOnly)

	// persisting a read-only store is a silent no-op
	s.Require().NoError(store.Persist())

	after, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.Equal(before, after)
}

func (s *StoreTestSuite) TestPersistRoundTrip() {
	store, err := s.newStore(false, false)
	s.Require().NoError(err)
	_, err = store.Add("vol1", &testEntry{Value: "a"}, false)
	s.Require().NoError(err)
	_, err = store.Add("vol2", &testEntry{Value: "b"}, false)
	s.Require().NoError(err)
	s.Require().NoError(store.Persist())
	s.False(store.Dirty())

	raw, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.True(strings.HasPrefix(string(raw), "####"))
	s.Contains(string(raw), "THIS FILE IS MACHINE GENERATED")

	reloaded, err := s.newStore(false, false)
	s.Require().NoError(err)
	s.False(reloaded.Dirty())
	s.Equal(store.Version(), reloaded.Version())
	s.Len(reloaded.List(), 2)
	got, err := reloaded.Get("vol1")
	s.Require().NoError(err)
	s.Equal("a", got.(*testEntry).Value)
	got, err = reloaded.Get("vol2")
	s.Require().NoError(err)
	s.Equal("b", got.(*testEntry).Value)
}

func (s *StoreTestSuite) TestLoadSetsBackReference() {
	store, err := s.newStore(false, false)
	s.Require().NoError(err)
	_, err = store.Add("vol1", &testEntry{Value: "a"}, false)
	s.Require().NoError(err)
	s.Require().NoError(store.Persist())

	reloaded, err := s.newStore(false, false)
	s.Require().NoError(err)
	got, err := reloaded.Get("vol1")
	s.Require().NoError(err)
	s.Same(reloaded, got.(*testEntry).store)
}

func (s *StoreTestSuite) TestCleanPersistIsNoop() {
	store, err := s.newStore(false, false)
	s.Require().NoError(err)
	_, err = store.Add("vol1", &testEntry{Value: "a"}, false)
	s.Require().NoError(err)
	s.Require().NoError(store.Persist())

	// replace the file out of band; a clean persist must not rewrite it
	sentinel := []byte("sentinel content\n")
	s.Require().NoError(os.WriteFile(s.path, sentinel, 0644))
	s.Require().NoError(store.Persist())

	after, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.Equal(sentinel, after)
}

func (s *StoreTestSuite) TestEmptySetPersistDeletesFile() {
	store, err := s.newStore(false, false)
	s.Require().NoError(err)
	_, err = store.Add("vol1", &testEntry{Value: "a"}, false)
	s.Require().NoError(err)
	s.Require().NoError(store.Persist())
	s.Require().FileExists(s.path)

	s.Require().NoError(store.Remove("vol1"))
	s.Require().NoError(store.Persist())
	s.NoFileExists(s.path)
}

func (s *StoreTestSuite) TestPersistAfterDeletionRecreatesFile() {
	store, err := s.newStore(false, false)
	s.Require().NoError(err)
	_, err = store.Add("vol1", &testEntry{Value: "a"}, false)
	s.Require().NoError(err)
	s.Require().NoError(store.Persist())
	s.Require().NoError(store.Remove("vol1"))
	s.Require().NoError(store.Persist())
	s.NoFileExists(s.path)

	_, err = store.Add("vol2", &testEntry{Value: "b"}, false)
	s.Require().NoError(err)
	s.Require().NoError(store.Persist())
	s.FileExists(s.path)
}

func (s *StoreTestSuite) TestFailedTempWriteLeavesOriginalUntouched() {
	store, err := s.newStore(false, false)
	s.Require().NoError(err)
	_, err = store.Add("vol1", &testEntry{Value: "a"}, false)
	s.Require().NoError(err)
	s.Require().NoError(store.Persist())
	before, err := os.ReadFile(s.path)
	s.Require().NoError(err)

	// squat on the temp path with a non-empty directory so the temp write
	// cannot proceed
	tempPath := s.path + tempFileSuffix
	s.Require().NoError(os.Mkdir(tempPath, 0755))
	s.Require().NoError(os.WriteFile(filepath.Join(tempPath, "block"), []byte("x"), 0644))
	defer os.RemoveAll(tempPath)

	_, err = store.Add("vol2", &testEntry{Value: "b"}, false)
	s.Require().NoError(err)
	s.Require().Error(store.Persist())
	s.True(store.Dirty())

	after, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.Equal(before, after)

	// retry succeeds once the obstruction is gone
	s.Require().NoError(os.RemoveAll(tempPath))
	s.Require().NoError(store.Persist())
	s.False(store.Dirty())
}

func (s *StoreTestSuite) TestUnsupportedVersionRejected() {
	content := "config:\n    version: 1\n    vdos:\n        vol1:\n            value: a\n"
	s.Require().NoError(os.WriteFile(s.path, []byte(content), 0644))

	_, err := s.newStore(false, false)
	var bad ErrBadConfigFile
	s.Require().ErrorAs(err, &bad)
	s.Contains(err.Error(), "version 0x1 not supported")
}

func (s *StoreTestSuite) TestMalformedContentRejected() {
	s.Require().NoError(os.WriteFile(s.path, []byte("\tnot: yaml: at: all ["), 0644))

	_, err := s.newStore(false, false)
	var bad ErrBadConfigFile
	s.Require().ErrorAs(err, &bad)
	s.True(errors.Is(err, ErrMalformed))
	s.Equal("Bad configuration file", err.Error())
}

func (s *StoreTestSuite) TestMissingSectionRejected() {
	s.Require().NoError(os.WriteFile(s.path, []byte("something: else\n"), 0644))

	_, err := s.newStore(false, false)
	var bad ErrBadConfigFile
	s.Require().ErrorAs(err, &bad)
	s.True(errors.Is(err, ErrMissingSection))
	s.Equal("Bad configuration file (missing 'config' section?)", err.Error())
}

func (s *StoreTestSuite) TestDryRunPersistWritesNothing() {
	runmode.SetDryRun(true)
	defer runmode.SetDryRun(false)
	var sink bytes.Buffer
	runmode.SetOutput(&sink)
	defer runmode.SetOutput(nil)

	store, err := s.newStore(false, false)
	s.Require().NoError(err)
	_, err = store.Add("vol1", &testEntry{Value: "a"}, false)
	s.Require().NoError(err)
	s.Require().NoError(store.Persist())

	s.NoFileExists(s.path)
	s.False(store.Dirty())
	s.Contains(sink.String(), "New configuration (not written):")
	s.Contains(sink.String(), "config:")
}

func (s *StoreTestSuite) TestDryRunEmptySetLeavesFile() {
	store, err := s.newStore(false, false)
	s.Require().NoError(err)
	_, err = store.Add("vol1", &testEntry{Value: "a"}, false)
	s.Require().NoError(err)
	s.Require().NoError(store.Persist())

	runmode.SetDryRun(true)
	defer runmode.SetDryRun(false)

	s.Require().NoError(store.Remove("vol1"))
	s.Require().NoError(store.Persist())
	s.FileExists(s.path)
}

func (s *StoreTestSuite) TestStatus() {
	store, err := s.newStore(false, false)
	s.Require().NoError(err)

	status, err := store.Status()
	s.Require().NoError(err)
	s.Equal("does not exist", status.File)
	s.Equal("not available", status.LastModified)

	_, err = store.Add("vol1", &testEntry{Value: "a"}, false)
	s.Require().NoError(err)
	s.Require().NoError(store.Persist())

	status, err = store.Status()
	s.Require().NoError(err)
	s.Equal(s.path, status.File)
	_, err = time.ParseInLocation(statusTimeFormat, status.LastModified, time.Local)
	s.Require().NoError(err)
}

func (s *StoreTestSuite) TestVersionSupport() {
	s.True(IsSupportedVersion(SchemaVersion20170907))
	s.False(IsSupportedVersion(1))
	s.False(IsSupportedVersion(0))
}
