/*
Package filedb implements a small embedded document store: named collections
of schemaless records, held in memory and persisted as a single file.

A record is a *Doc, an ordered map of field names to Values. Every record
carries an integer identity in the reserved field "#" (IDField), assigned on
insertion as one more than the largest identity in the collection.

One collection is active at a time; Add, Get, Find, Edit and the Del* family
operate on it. Nothing reaches the disk until Push. AddColl, UseColl and
Reindex push on their own.

# Technical Details

**Snapshot.**
The backing file holds a msgpack map of collection name to an array of
records, collections and fields in insertion order. With Options.Compress,
the same bytes are wrapped into a zstd frame; Open detects the frame by its
magic number, so the option only affects writes.

**Push and compaction.**
Push truncates and rewrites the backing file in place. Compaction writes the
snapshot to <path>.tmp, syncs it and renames it over the backing file, so the
file on disk is always either the old or the new snapshot. Push compacts on
its own whenever something was deleted since the last compaction.

**Backends.**
FileBackend keeps the snapshot as the entire file, on any afero filesystem
(large files on the OS filesystem are loaded through mmap). BoltBackend keeps
the snapshot as a single value in a Bolt file, which gives torn-write
protection to plain pushes as well.

**Backups.**
Backup copies the last pushed state byte for byte and may run concurrently
with the owning goroutine. A push waits for running backups to finish
copying, and a backup never sees a half-written file. Concurrent backups to
the same destination share one copy. A failed backup removes its partial
output.

**Import and export.**
ToJSON and ToYAML dump a collection (or everything) as text. AddJSON and
AddYAML append a list of records from a file; imported records are numbered
from 0 in file order, so Reindex afterwards if identities must stay unique.
*/
package filedb
