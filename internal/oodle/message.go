// Package oodle defines the Oodle data model and the text codec for the
// on-disk format.
//
// An oodle is a plain-text file holding an ordered sequence of timestamped
// messages. The file is the canonical representation: it stays readable and
// editable in any text editor, and the codec round-trips it without losing
// header fields it does not understand.
package oodle

import "time"

// Message is one entry in an oodle file.
type Message struct {
	// ID is unique within the file, assigned once at creation, never reused.
	ID int

	// Created is set once at creation and is immutable afterwards.
	Created time.Time

	// Modified is updated on every content change. Equals Created until the
	// first edit.
	Modified time.Time

	// Content is the author-editable message body.
	Content string

	// Extra holds header fields this version does not interpret, in file
	// order. They are re-emitted verbatim on encode so a newer writer's
	// metadata survives a load/store cycle through an older binary.
	Extra []Field
}

// Field is a single uninterpreted header line (key: value).
type Field struct {
	Key   string
	Value string
}

// NextID returns the id for the next message appended to msgs: one greater
// than the maximum existing id, or 1 for an empty sequence.
//
// NextID is pure; callers must hold the file's lock between computing the
// id and persisting the append, otherwise two racing creates can both see
// the same maximum.
func NextID(msgs []Message) int {
	next := 1

	for _, m := range msgs {
		if m.ID >= next {
			next = m.ID + 1
		}
	}

	return next
}
