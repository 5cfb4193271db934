package configstore

// Entry is a named record stored in a configuration file. The store treats
// entries as opaque; the codec knows their concrete shape. Entries hold a
// non-owning back-reference to the store that loaded them.
type Entry interface {
	// SetStore records the owning store. Called by the store after load and
	// on insert; entries must not keep the store alive beyond its own scope.
	SetStore(s *Store)
}

// Document is the full on-disk content of one configuration file: the schema
// version tag and the named entry set.
type Document struct {
	Version int
	Entries map[string]Entry
}

// Codec encodes and decodes a Document to and from bytes. Decode reports
// malformed input by wrapping ErrMalformed and an absent or non-mapping
// top-level 'config' section by wrapping ErrMissingSection; it never
// performs I/O.
type Codec interface {
	Encode(doc *Document) ([]byte, error)
	Decode(data []byte) (*Document, error)
}
