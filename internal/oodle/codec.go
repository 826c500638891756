package oodle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrFormat reports that file contents do not parse as a valid oodle.
// The file is never auto-repaired; decoding leaves the input untouched.
var ErrFormat = errors.New("invalid oodle format")

// Known header keys. Anything else is carried through as an extra field.
const (
	keyID       = "id"
	keyCreated  = "created"
	keyModified = "modified"
)

// terminator ends a message body. Body lines consisting solely of dots are
// escaped with one extra dot so the terminator stays unambiguous.
const terminator = "."

// Decode parses raw file bytes into the ordered message sequence.
//
// Each message is a block of "key: value" header lines, a blank separator
// line, body lines, and a terminator line holding a single dot:
//
//	id: 1
//	created: 2026-08-30T10:00:00Z
//	modified: 2026-08-30T10:00:00Z
//
//	message body
//	.
//
// Decode fails with an error wrapping [ErrFormat] on malformed headers,
// missing required keys, duplicate or non-increasing ids, or a missing
// terminator. An empty input decodes to an empty sequence.
func Decode(data []byte) ([]Message, error) {
	lines := strings.Split(string(data), "\n")

	var msgs []Message

	lastID := 0
	idx := 0

	for {
		// Skip blank lines between blocks.
		for idx < len(lines) && strings.TrimSpace(lines[idx]) == "" {
			idx++
		}

		if idx >= len(lines) {
			return msgs, nil
		}

		msg, next, err := decodeBlock(lines, idx)
		if err != nil {
			return nil, err
		}

		if msg.ID <= lastID {
			return nil, fmt.Errorf("%w: line %d: id %d does not increase (previous %d)",
				ErrFormat, idx+1, msg.ID, lastID)
		}

		lastID = msg.ID
		msgs = append(msgs, msg)
		idx = next
	}
}

// decodeBlock parses one message block starting at lines[start].
// Returns the message and the index of the line after the terminator.
//
//nolint:cyclop // header validation is a flat switch
func decodeBlock(lines []string, start int) (Message, int, error) {
	var msg Message

	var hasID, hasCreated, hasModified bool

	idx := start

	// Header lines until the blank separator.
	for {
		if idx >= len(lines) {
			return Message{}, 0, fmt.Errorf("%w: line %d: unterminated message header", ErrFormat, start+1)
		}

		line := lines[idx]
		if line == "" {
			idx++

			break
		}

		key, value, ok := strings.Cut(line, ": ")
		if !ok || key == "" || strings.ContainsAny(key, " \t") {
			return Message{}, 0, fmt.Errorf("%w: line %d: malformed header %q", ErrFormat, idx+1, line)
		}

		switch key {
		case keyID:
			if hasID {
				return Message{}, 0, fmt.Errorf("%w: line %d: duplicate id header", ErrFormat, idx+1)
			}

			id, convErr := strconv.Atoi(value)
			if convErr != nil || id < 1 {
				return Message{}, 0, fmt.Errorf("%w: line %d: invalid id %q", ErrFormat, idx+1, value)
			}

			msg.ID = id
			hasID = true

		case keyCreated:
			if hasCreated {
				return Message{}, 0, fmt.Errorf("%w: line %d: duplicate created header", ErrFormat, idx+1)
			}

			ts, parseErr := time.Parse(time.RFC3339, value)
			if parseErr != nil {
				return Message{}, 0, fmt.Errorf("%w: line %d: invalid created %q", ErrFormat, idx+1, value)
			}

			msg.Created = ts
			hasCreated = true

		case keyModified:
			if hasModified {
				return Message{}, 0, fmt.Errorf("%w: line %d: duplicate modified header", ErrFormat, idx+1)
			}

			ts, parseErr := time.Parse(time.RFC3339, value)
			if parseErr != nil {
				return Message{}, 0, fmt.Errorf("%w: line %d: invalid modified %q", ErrFormat, idx+1, value)
			}

			msg.Modified = ts
			hasModified = true

		default:
			// Forward compatibility: keep unknown headers exactly as written.
			msg.Extra = append(msg.Extra, Field{Key: key, Value: value})
		}

		idx++
	}

	if !hasID || !hasCreated || !hasModified {
		return Message{}, 0, fmt.Errorf("%w: line %d: message missing required header", ErrFormat, start+1)
	}

	// Body lines until the terminator.
	bodyStart := idx

	for {
		if idx >= len(lines) {
			return Message{}, 0, fmt.Errorf("%w: line %d: message missing terminator", ErrFormat, bodyStart)
		}

		line := lines[idx]
		if line == terminator {
			idx++

			break
		}

		idx++
	}

	body := make([]string, 0, idx-1-bodyStart)
	for _, line := range lines[bodyStart : idx-1] {
		body = append(body, unescapeBodyLine(line))
	}

	msg.Content = strings.Join(body, "\n")

	return msg, idx, nil
}

// Encode serializes the message sequence back to file bytes.
// Encoding is deterministic: known headers in fixed order, extra fields in
// their recorded order, blocks separated by one blank line.
func Encode(msgs []Message) []byte {
	var builder strings.Builder

	for i, msg := range msgs {
		if i > 0 {
			builder.WriteByte('\n')
		}

		builder.WriteString(keyID + ": " + strconv.Itoa(msg.ID) + "\n")
		// RFC3339Nano keeps sub-second precision a hand editor may have
		// written; for whole seconds it prints the same as RFC3339.
		builder.WriteString(keyCreated + ": " + msg.Created.Format(time.RFC3339Nano) + "\n")
		builder.WriteString(keyModified + ": " + msg.Modified.Format(time.RFC3339Nano) + "\n")

		for _, field := range msg.Extra {
			builder.WriteString(field.Key + ": " + field.Value + "\n")
		}

		builder.WriteByte('\n')

		for _, line := range strings.Split(msg.Content, "\n") {
			builder.WriteString(escapeBodyLine(line))
			builder.WriteByte('\n')
		}

		builder.WriteString(terminator + "\n")
	}

	return []byte(builder.String())
}

// isDotRun reports whether line is one or more dots and nothing else.
func isDotRun(line string) bool {
	if line == "" {
		return false
	}

	for _, r := range line {
		if r != '.' {
			return false
		}
	}

	return true
}

func escapeBodyLine(line string) string {
	if isDotRun(line) {
		return "." + line
	}

	return line
}

func unescapeBodyLine(line string) string {
	if isDotRun(line) && len(line) > 1 {
		return line[1:]
	}

	return line
}
