// Package pull implements the federation synchronization engine of a beacon
// node.
//
// A pull is one idempotent, resumable pass over one peer's outbox. Pages are
// fetched strictly in next-link order, one at a time; items on a page are
// validated and upserted individually. The idempotent insert-if-absent of
// the content store makes repeated and overlapping pulls of the same feed
// window safe: the loser of a race on a URI observes "already exists" and
// skips.
//
// Failure handling is asymmetric. A single item failing
// validation is observational: it increments the rejected counter and is
// logged on the run record, and traversal continues. A page failing to
// fetch is fatal to the run, because pagination order cannot be verified
// without it. A missing peer aborts before any run record exists.
//
// There is no automatic retry and no cancellation primitive; retrying a
// failed run is an explicit new call to PullFromPeer.
package pull
