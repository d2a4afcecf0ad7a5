package trajlog

import (
	"fmt"
)

// rawVideoKey names the embedded raw video subtree some logs carry. It is
// frame-indexed separately and never part of a low-dimensional timestep
// read.
const rawVideoKey = "videos"

// TimestepStore wraps a Store with validated random-access timestep reads.
type TimestepStore struct {
	store  Store
	length int
	closed bool
}

// NewTimestepStore validates the log and caches its episode length. Every
// leaf series (outside the raw video subtree) must have the same length;
// a divergence means the log is corrupt and yields ErrInconsistentLength.
func NewTimestepStore(s Store) (*TimestepStore, error) {
	length := -1
	if err := walkLengths(s, nil, &length); err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, fmt.Errorf("trajlog: log contains no data series")
	}
	return &TimestepStore{store: s, length: length}, nil
}

func walkLengths(s Store, path []string, length *int) error {
	groups, series, err := s.Children(path)
	if err != nil {
		return fmt.Errorf("listing %s: %w", pathString(path), err)
	}
	for _, name := range series {
		if name == rawVideoKey {
			continue
		}
		p := append(append([]string{}, path...), name)
		n, err := s.SeriesLen(p)
		if err != nil {
			return fmt.Errorf("length of %s: %w", pathString(p), err)
		}
		if *length < 0 {
			*length = n
		} else if n != *length {
			return fmt.Errorf("%w: %s has %d entries, expected %d",
				ErrInconsistentLength, pathString(p), n, *length)
		}
	}
	for _, name := range groups {
		if name == rawVideoKey {
			continue
		}
		p := append(append([]string{}, path...), name)
		if err := walkLengths(s, p, length); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the cached episode length.
func (t *TimestepStore) Len() int { return t.length }

// ReadTimestep reads every leaf series at index into a nested Record. The
// raw video subtree, when present, is excluded: image data only arrives
// through the camera readers.
func (t *TimestepStore) ReadTimestep(index int) (Record, error) {
	if index < 0 || index >= t.length {
		return nil, rangeErr(index, t.length)
	}
	return t.readGroup(nil, index)
}

func (t *TimestepStore) readGroup(path []string, index int) (Record, error) {
	groups, series, err := t.store.Children(path)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", pathString(path), err)
	}
	rec := make(Record, len(groups)+len(series))
	for _, name := range series {
		if name == rawVideoKey {
			continue
		}
		p := append(append([]string{}, path...), name)
		v, err := t.store.Read(p, index)
		if err != nil {
			return nil, fmt.Errorf("reading %s[%d]: %w", pathString(p), index, err)
		}
		rec[name] = v
	}
	for _, name := range groups {
		if name == rawVideoKey {
			continue
		}
		p := append(append([]string{}, path...), name)
		child, err := t.readGroup(p, index)
		if err != nil {
			return nil, err
		}
		rec[name] = child
	}
	return rec, nil
}

// TaskLabel returns the episode task label from log-level metadata.
func (t *TimestepStore) TaskLabel() (string, error) {
	return t.store.TaskLabel()
}

// Close releases the underlying log handle. Idempotent.
func (t *TimestepStore) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.store.Close()
}
