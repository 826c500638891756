package store

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Info summarizes one oodle file for directory listings.
type Info struct {
	Name     string
	Messages int
	Modified time.Time // most recent message modification
	Err      error     // non-nil if the file did not parse
}

// List returns a summary for every oodle file in the store directory, in
// name order. Files that fail to parse are reported with Err set rather
// than aborting the listing, so one corrupt file does not hide the rest.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	entries, readErr := os.ReadDir(s.dir)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return []Info{}, nil
		}

		return nil, fmt.Errorf("reading oodle directory: %w", readErr)
	}

	infos := make([]Info, 0, len(entries))

	for _, entry := range entries {
		// Skip directories and the store's own bookkeeping (.locks etc).
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		name := entry.Name()
		info := Info{Name: name}

		err := s.withFile(ctx, name, true, func(path string) error {
			msgs, loadErr := s.load(name, path)
			if loadErr != nil {
				return loadErr
			}

			info.Messages = len(msgs)

			for _, msg := range msgs {
				if msg.Modified.After(info.Modified) {
					info.Modified = msg.Modified
				}
			}

			return nil
		})
		if err != nil {
			info.Err = err
		}

		infos = append(infos, info)
	}

	return infos, nil
}
