// Package directory holds the node's registry of known peers.
//
// The directory is bounded (16 entries by default), keeps insertion order and
// rejects duplicate names. Insertion order matters only for the broadcast
// fallback, which contacts peers one at a time from the first entry.
//
// Entries live in memory for the lifetime of the process. Nothing is restored
// on restart.
package directory
