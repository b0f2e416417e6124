// Package store provides the storage port used by the lifecycle engine.
//
// The core state machine never touches the filesystem directly; it goes
// through the Store interface so it can be tested against an in-memory
// implementation. FSStore is the production implementation: writes go to a
// temp file in the destination directory and are published with an atomic
// rename, so a reader never observes a partially written artifact.
package store
