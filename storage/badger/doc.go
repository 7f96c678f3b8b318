// Package badger implements the storage repositories on an in-memory BadgerDB.
//
// Documents are stored as a small header record under a key derived from
// their name plus one value per chunk, with a second sequence-ordered index
// that preserves insertion order. Conversation turns
// are stored under BadgerDB sequence numbers, so key order is append order.
package badger
