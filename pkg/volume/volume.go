// Package volume defines the managed-volume record stored in a
// configuration file, and the YAML codec for the file's document format.
package volume

import (
	"fmt"

	"github.com/c2h5oh/datasize"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/vdo-project/vdomgr/pkg/configstore"
)

// Write policies accepted for a managed volume.
const (
	WritePolicySync  = "sync"
	WritePolicyAsync = "async"
	WritePolicyAuto  = "auto"
)

// Size is a byte quantity serialized in human-readable form ("10GB").
type Size datasize.ByteSize

func (s Size) MarshalYAML() (interface{}, error) {
	return datasize.ByteSize(s).String(), nil
}

func (s *Size) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	var parsed datasize.ByteSize
	if err := parsed.UnmarshalText([]byte(raw)); err != nil {
		return fmt.Errorf("parsing size %q: %w", raw, err)
	}
	*s = Size(parsed)
	return nil
}

func (s Size) String() string {
	return datasize.ByteSize(s).String()
}

// Volume is one managed volume's settings. The serialized field set is the
// static schema below; the name is the document map key, not a field.
type Volume struct {
	Name              string `yaml:"-"`
	Device            string `yaml:"device"`
	UUID              string `yaml:"uuid,omitempty"`
	LogicalSize       Size   `yaml:"logicalSize,omitempty"`
	PhysicalSize      Size   `yaml:"physicalSize,omitempty"`
	IndexMemory       Size   `yaml:"indexMemory,omitempty"`
	BlockMapCacheSize Size   `yaml:"blockMapCacheSize,omitempty"`
	SlabSize          Size   `yaml:"slabSize,omitempty"`
	WritePolicy       string `yaml:"writePolicy"`
	Compression       bool   `yaml:"compression"`
	Deduplication     bool   `yaml:"deduplication"`
	Activated         bool   `yaml:"activated"`

	store *configstore.Store
}

// New constructs a volume for device with generated UUID and defaults.
func New(name, device string) *Volume {
	return &Volume{
		Name:          name,
		Device:        device,
		UUID:          uuid.NewString(),
		WritePolicy:   WritePolicyAuto,
		Deduplication: true,
		Activated:     true,
	}
}

// SetStore records the owning configuration store. The reference is
// non-owning; the store owns the entry set and the volume never outlives it.
func (v *Volume) SetStore(s *configstore.Store) {
	v.store = s
}

// Store returns the owning configuration store, or nil for a detached
// volume.
func (v *Volume) Store() *configstore.Store {
	return v.store
}

// Validate checks the volume's settings, aggregating every problem found.
func (v *Volume) Validate() error {
	var result *multierror.Error
	if v.Name == "" {
		result = multierror.Append(result, fmt.Errorf("volume name is required"))
	}
	if v.Device == "" {
		result = multierror.Append(result, fmt.Errorf("volume device is required"))
	}
	switch v.WritePolicy {
	case WritePolicySync, WritePolicyAsync, WritePolicyAuto:
	default:
		result = multierror.Append(result,
			fmt.Errorf("write policy %q is not one of sync, async, auto", v.WritePolicy))
	}
	return result.ErrorOrNil()
}

var _ configstore.Entry = (*Volume)(nil)
