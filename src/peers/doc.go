// Package peers defines the concept of a beacon peer and the file-based
// bootstrap of the peer registry.
//
// A peer is a remote node whose publication feed this node pulls from. Peers
// are registered with a local identifier, a base URL, and the URL of their
// outbox. The outbox may be given relative to the base URL; OutboxURL
// resolves it. Registration requires both URLs to be non-empty.
//
// Upon starting up, beacon looks for a peers.json file in its data directory
// and registers every peer found there. Peers can also be added and removed
// at runtime through the HTTP service; the durable registry lives in the
// store, the JSON file is only a bootstrap.
package peers
