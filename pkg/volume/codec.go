package volume

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vdo-project/vdomgr/pkg/configstore"
)

const encodeIndent = 4

// document mirrors the on-disk layout: a top-level 'config' mapping holding
// the version tag and the named volume set.
type document struct {
	Config *section `yaml:"config"`
}

type section struct {
	Version int                `yaml:"version"`
	VDOs    map[string]*Volume `yaml:"vdos"`
}

// Codec is the YAML implementation of configstore.Codec for volume entries.
type Codec struct{}

func NewCodec() Codec {
	return Codec{}
}

func (Codec) Encode(doc *configstore.Document) ([]byte, error) {
	vdos := make(map[string]*Volume, len(doc.Entries))
	for name, entry := range doc.Entries {
		v, ok := entry.(*Volume)
		if !ok {
			return nil, fmt.Errorf("entry %q is not a volume", name)
		}
		vdos[name] = v
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(encodeIndent)
	if err := enc.Encode(document{Config: &section{Version: doc.Version, VDOs: vdos}}); err != nil {
		return nil, fmt.Errorf("encoding configuration document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding configuration document: %w", err)
	}
	return buf.Bytes(), nil
}

func (Codec) Decode(data []byte) (*configstore.Document, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		// A scan or parse failure means garbled content; a type error means
		// the document parsed but the layout is not the expected mapping.
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: %s", configstore.ErrMissingSection, err)
		}
		return nil, fmt.Errorf("%w: %s", configstore.ErrMalformed, err)
	}
	if doc.Config == nil {
		return nil, configstore.ErrMissingSection
	}

	entries := make(map[string]configstore.Entry, len(doc.Config.VDOs))
	for name, v := range doc.Config.VDOs {
		v.Name = name
		entries[name] = v
	}
	return &configstore.Document{Version: doc.Config.Version, Entries: entries}, nil
}

var _ configstore.Codec = Codec{}
