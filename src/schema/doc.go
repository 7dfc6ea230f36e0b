// Package schema implements the two-tier schema subsystem of a beacon node.
//
// Every node understands exactly two namespaces: the fixed core namespace,
// shared by the whole federation, and one local namespace configured per
// node. Each namespace is defined by a raw term list held durably in the
// store, from which three artifacts are generated on demand: a JSON-LD
// context document, an RDF vocabulary, and a JSON Schema for validation.
// Artifact URLs are deterministic functions of (domain, namespace, kind,
// version), with version fixed at v1.
//
// A missing raw definition surfaces as a NotFoundError, a present but
// malformed one as an InvalidError. Callers must distinguish the two: the
// former is a configuration gap, the latter a data-integrity bug.
//
// Merge composes the core schema with the local extension into the schema
// that locally-namespaced documents are validated against. The composition
// is a logical conjunction: the local side can add properties and narrow
// core ones but cannot loosen or redefine them.
package schema
