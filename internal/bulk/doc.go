// Package bulk executes batch actions over a user's tasks.
//
// Every call is tracked as an Operation that moves through
// pending -> running -> completed/failed, or to cancelled on request.
// Items run sequentially inside one store transaction; each item is isolated
// by a savepoint so a bad item is counted as failed without aborting the
// batch, while a store-level failure rolls everything back.
//
// Operations that change data record a Reversal. Reversible operations are
// kept on a bounded per-user undo stack held by the Registry, which also
// keeps recent operation status in a size- and TTL-bounded LRU mirrored to
// the key-value cache.
package bulk
