// Package store implements the durable state of a beacon node behind the
// Store interface: ingested incidents keyed by URI, the peer registry, pull
// run history, and the raw schema definitions of the two namespaces.
//
// Two implementations are provided. InmemStore keeps everything in maps and
// is used in tests and ephemeral deployments. BadgerStore persists to a
// Badger database; it is selected with the store configuration option.
//
// The load-bearing part of the contract is SetIncident: insert-if-absent,
// atomic per URI. Re-ingesting a previously seen URI never creates a
// duplicate and never alters the original record, which is what makes pull
// runs idempotent and concurrent runs safe.
package store
