package schema

import (
	"bytes"
	"fmt"

	"github.com/ugorji/go/codec"
)

// Kind distinguishes the three generated artifacts of a namespace.
type Kind string

const (
	// Vocab is the RDF vocabulary document listing the namespace terms.
	Vocab Kind = "vocab"

	// Context is the JSON-LD context document mapping short property names
	// to full IRIs.
	Context Kind = "context"

	// Validation is the JSON Schema that documents of the namespace must
	// satisfy.
	Validation Kind = "validation"
)

// CoreNamespace is the name of the fixed, shared namespace that every node
// understands.
const CoreNamespace = "core"

// Version is the only supported schema version.
const Version = "v1"

// Document is a generated schema artifact: a context document, a vocabulary,
// or a JSON Schema.
type Document map[string]interface{}

// Term is a single property definition of a namespace.
type Term struct {
	// Name is the short property name used in documents.
	Name string `json:"name"`

	// IRI is the full identifier the name maps to in the context document.
	IRI string `json:"iri"`

	// Schema is the JSON Schema fragment constraining the property.
	Schema map[string]interface{} `json:"schema,omitempty"`

	// Required marks the property as mandatory in the validation schema.
	Required bool `json:"required,omitempty"`
}

// RawDefinition is the raw, durable definition of a namespace from which all
// of its artifacts are generated. It is the unit held by the store.
type RawDefinition struct {
	// Namespace names the definition. "core" is reserved.
	Namespace string `json:"namespace"`

	// Terms are the top-level properties of incident documents in this
	// namespace.
	Terms []Term `json:"terms"`

	// Types holds term sets for auxiliary document types embedded in
	// incidents, keyed by type name (e.g. "report").
	Types map[string][]Term `json:"types,omitempty"`
}

// Marshal - canonical json encoding of RawDefinition
func (r *RawDefinition) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(r); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (r *RawDefinition) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	if err := dec.Decode(r); err != nil {
		return err
	}

	return nil
}

// RawStore is the slice of the store that the schema accessor relies on.
type RawStore interface {
	// GetRawSchema returns the raw definition of a namespace. A missing
	// namespace is signalled with a KeyNotFound store error.
	GetRawSchema(namespace string) (*RawDefinition, error)

	// SetRawSchema inserts or replaces the raw definition of a namespace.
	SetRawSchema(def *RawDefinition) error
}

// DocumentURL is the deterministic address of a generated artifact:
// <domain>/<namespace>/<kind>/<version>. An optional type name is appended
// for auxiliary types.
func DocumentURL(domain, namespace string, kind Kind, typeName string) string {
	url := fmt.Sprintf("%s/%s/%s/%s", domain, namespace, kind, Version)
	if typeName != "" {
		url = url + "/" + typeName
	}
	return url
}

// Metadata describes a generated artifact without exposing its content.
type Metadata struct {
	Kind      Kind   `json:"kind"`
	Namespace string `json:"namespace"`
	Type      string `json:"type,omitempty"`
	Version   string `json:"version"`
	URL       string `json:"url"`
	Terms     int    `json:"terms"`
}
