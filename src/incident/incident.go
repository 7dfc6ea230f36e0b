package incident

import (
	"bytes"
	"time"

	"github.com/ugorji/go/codec"
)

// SourceLocal is the SourceNode value of incidents authored on this node, as
// opposed to incidents ingested from a peer.
const SourceLocal = "local"

// Type is the JSON-LD @type that every incident document must declare.
const Type = "Incident"

// Document is the raw JSON-LD node of an incident: @context, @id, @type,
// plus namespace-specific fields.
type Document map[string]interface{}

// ID returns the @id of the document, or an empty string.
func (d Document) ID() string {
	if id, ok := d["@id"].(string); ok {
		return id
	}
	return ""
}

// Type returns the @type of the document, or an empty string.
func (d Document) Type() string {
	if t, ok := d["@type"].(string); ok {
		return t
	}
	return ""
}

// Contexts returns the @context values of the document flattened to a list
// of strings. A single string context yields a one-element list; non-string
// entries of a context array are skipped.
func (d Document) Contexts() []string {
	switch ctx := d["@context"].(type) {
	case string:
		return []string{ctx}
	case []interface{}:
		res := []string{}
		for _, c := range ctx {
			if s, ok := c.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}
	return nil
}

// Incident is an immutable record in the content store. URI is the
// federation identity of the record and the primary key.
type Incident struct {
	URI        string
	Data       Document
	SourceNode string
	CreatedAt  time.Time
}

// New wraps a validated document into an Incident record.
func New(data Document, sourceNode string) *Incident {
	return &Incident{
		URI:        data.ID(),
		Data:       data,
		SourceNode: sourceNode,
		CreatedAt:  time.Now(),
	}
}

// Marshal - canonical json encoding of Incident
func (i *Incident) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(i); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (i *Incident) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	if err := dec.Decode(i); err != nil {
		return err
	}

	return nil
}
