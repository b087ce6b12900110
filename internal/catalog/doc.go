// Package catalog persists the scan index in SQLite.
//
// The Store records every scan file found under the data directory together
// with its scan time and grid dimensions, and serves them back in time order
// so playback sessions see a strictly ordered identifier sequence. Rebuilds
// take a file lock so only one writer mutates the catalog at a time.
//
// The database is an index over files on disk, not an archive; deleting it
// and rebuilding is always safe.
package catalog
