// Package localstore is the durable, local-only home of pages and settings.
//
// The tree rules live in one place, [PageStore], which runs every operation
// inside a transaction of a [Backend]. Backends only know how to read and write
// single pages and the settings record:
//
//   - badgerstore keeps CBOR-encoded values in an embedded Badger database
//   - sqlitestore keeps rows in a SQLite file
//   - memstore keeps everything in memory and forgets it on exit
//
// PageStore guarantees that parent references never dangle and that a page's
// children list always matches the pages naming it as parent. Deletes cascade
// over the whole subtree using an explicit worklist, so arbitrarily deep trees
// do not grow the goroutine stack.
//
// Storage errors are returned as is (wrapped); they are not retried.
package localstore
