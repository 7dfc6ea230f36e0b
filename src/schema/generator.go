package schema

import (
	"github.com/openincident/beacon/src/common"
	"github.com/xeipuuv/gojsonschema"
)

// Generator builds the artifacts of the two namespaces a node knows about:
// the fixed core namespace and the one configured local namespace. Artifacts
// are generated on demand from the raw definitions held by the RawStore.
type Generator struct {
	raws        RawStore
	coreDomain  string
	localDomain string
	namespace   string
}

// NewGenerator ...
func NewGenerator(raws RawStore, coreDomain, localDomain, namespace string) *Generator {
	return &Generator{
		raws:        raws,
		coreDomain:  coreDomain,
		localDomain: localDomain,
		namespace:   namespace,
	}
}

// Namespace returns the name of the configured local namespace.
func (g *Generator) Namespace() string {
	return g.namespace
}

// CoreContextURL is the deterministic address of the core context document.
func (g *Generator) CoreContextURL() string {
	return DocumentURL(g.coreDomain, CoreNamespace, Context, "")
}

// LocalContextURL is the deterministic address of the local context document.
func (g *Generator) LocalContextURL() string {
	return DocumentURL(g.localDomain, g.namespace, Context, "")
}

// HasCoreSchema reports whether the core raw definition exists. It reports
// existence without validating structure, and never fails.
func (g *Generator) HasCoreSchema() bool {
	_, err := g.raws.GetRawSchema(CoreNamespace)
	return err == nil
}

// HasLocalSchema reports whether the local raw definition exists.
func (g *Generator) HasLocalSchema() bool {
	_, err := g.raws.GetRawSchema(g.namespace)
	return err == nil
}

// CoreSchema returns the validation schema of the core namespace.
func (g *Generator) CoreSchema() (Document, error) {
	return g.Get(Validation, CoreNamespace, "")
}

// LocalSchema returns the validation schema of the local namespace.
func (g *Generator) LocalSchema() (Document, error) {
	return g.Get(Validation, g.namespace, "")
}

// CoreContext returns the context document of the core namespace.
func (g *Generator) CoreContext() (Document, error) {
	return g.Get(Context, CoreNamespace, "")
}

// LocalContext returns the context document of the local namespace.
func (g *Generator) LocalContext() (Document, error) {
	return g.Get(Context, g.namespace, "")
}

// MergedSchema combines the core validation schema with the local one. When
// no local definition exists, the core schema is returned unchanged.
func (g *Generator) MergedSchema() (Document, error) {
	core, err := g.CoreSchema()
	if err != nil {
		return nil, err
	}

	if !g.HasLocalSchema() {
		return core, nil
	}

	local, err := g.LocalSchema()
	if err != nil {
		return nil, err
	}

	return Merge(core, local)
}

// Get generates the artifact identified by (kind, namespace, typeName). An
// empty typeName designates the incident document itself; a non-empty one
// designates an auxiliary embedded type. Unknown namespaces or types fail
// with a NotFoundError; malformed raw definitions fail with an InvalidError.
func (g *Generator) Get(kind Kind, namespace, typeName string) (Document, error) {
	domain, err := g.domainFor(kind, namespace, typeName)
	if err != nil {
		return nil, err
	}

	terms, err := g.terms(kind, namespace, typeName)
	if err != nil {
		return nil, err
	}

	url := DocumentURL(domain, namespace, kind, typeName)

	switch kind {
	case Context:
		return g.buildContext(url, terms), nil
	case Vocab:
		return g.buildVocab(url, terms), nil
	case Validation:
		doc := g.buildValidation(url, namespace, typeName, terms)
		// reject definitions that expand to an uncompilable JSON Schema
		if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(map[string]interface{}(doc))); err != nil {
			return nil, &InvalidError{Kind: kind, Namespace: namespace, Type: typeName, Reason: err.Error()}
		}
		return doc, nil
	}

	return nil, &NotFoundError{Kind: kind, Namespace: namespace, Type: typeName}
}

// Metadata describes the artifact identified by (kind, namespace, typeName)
// without generating it in full.
func (g *Generator) Metadata(kind Kind, namespace, typeName string) (*Metadata, error) {
	domain, err := g.domainFor(kind, namespace, typeName)
	if err != nil {
		return nil, err
	}

	terms, err := g.terms(kind, namespace, typeName)
	if err != nil {
		return nil, err
	}

	return &Metadata{
		Kind:      kind,
		Namespace: namespace,
		Type:      typeName,
		Version:   Version,
		URL:       DocumentURL(domain, namespace, kind, typeName),
		Terms:     len(terms),
	}, nil
}

func (g *Generator) domainFor(kind Kind, namespace, typeName string) (string, error) {
	switch namespace {
	case CoreNamespace:
		return g.coreDomain, nil
	case g.namespace:
		return g.localDomain, nil
	}
	return "", &NotFoundError{Kind: kind, Namespace: namespace, Type: typeName}
}

func (g *Generator) terms(kind Kind, namespace, typeName string) ([]Term, error) {
	raw, err := g.raws.GetRawSchema(namespace)
	if err != nil {
		if common.IsStore(err, common.KeyNotFound) {
			return nil, &NotFoundError{Kind: kind, Namespace: namespace, Type: typeName}
		}
		return nil, err
	}

	terms := raw.Terms
	if typeName != "" {
		var ok bool
		terms, ok = raw.Types[typeName]
		if !ok {
			return nil, &NotFoundError{Kind: kind, Namespace: namespace, Type: typeName}
		}
	}

	for _, t := range terms {
		if t.Name == "" || t.IRI == "" {
			return nil, &InvalidError{
				Kind:      kind,
				Namespace: namespace,
				Type:      typeName,
				Reason:    "term with empty name or iri",
			}
		}
	}

	return terms, nil
}

func (g *Generator) buildContext(url string, terms []Term) Document {
	mapping := map[string]interface{}{
		"@version": 1.1,
	}
	for _, t := range terms {
		mapping[t.Name] = t.IRI
	}

	return Document{
		"@id":      url,
		"@context": mapping,
	}
}

func (g *Generator) buildVocab(url string, terms []Term) Document {
	graph := []interface{}{}
	for _, t := range terms {
		graph = append(graph, map[string]interface{}{
			"@id":        t.IRI,
			"@type":      "rdf:Property",
			"rdfs:label": t.Name,
		})
	}

	return Document{
		"@context": map[string]interface{}{
			"rdf":  "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
			"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
		},
		"@id":    url,
		"@graph": graph,
	}
}

// buildValidation produces the JSON Schema of a term set. Incident documents
// of the core namespace additionally carry the base constraints that every
// federated record must satisfy: @context, a URI @id, and @type "Incident".
// Every property referenced here resolves in the context document because
// both are generated from the same term list.
func (g *Generator) buildValidation(url, namespace, typeName string, terms []Term) Document {
	properties := map[string]interface{}{}
	required := []string{}

	if namespace == CoreNamespace && typeName == "" {
		properties["@context"] = map[string]interface{}{}
		properties["@id"] = map[string]interface{}{
			"type":   "string",
			"format": "uri",
		}
		properties["@type"] = map[string]interface{}{
			"const": "Incident",
		}
		required = append(required, "@context", "@id", "@type")
	}

	for _, t := range terms {
		frag := t.Schema
		if frag == nil {
			frag = map[string]interface{}{}
		}
		properties[t.Name] = frag
		if t.Required {
			required = append(required, t.Name)
		}
	}

	doc := Document{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"$id":        url,
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	return doc
}
