// Package audit keeps a SQLite log of every command a node handled.
//
// The log is write-mostly history for operators: it is listed through the
// admin API and is never used to rebuild the directory or identity.
//
// Recorder adapts the repository to dispatch.Observer. Entries are queued
// on a bounded channel and written by a single goroutine, so a slow disk
// never delays a UDP reply; when the queue is full the entry is dropped
// and a warning is logged.
package audit
