// Package trajlog reads per-timestep robot trajectory logs.
//
// A trajectory log is a hierarchical file of groups and data series in
// which every leaf series has one entry per timestep. The package exposes
// random-access reads of one timestep at a time plus the episode-level
// task label. The production backend reads HDF5 files; MemStore provides
// an in-memory implementation for tests.
package trajlog

import (
	"errors"
	"fmt"
)

var (
	// ErrInconsistentLength reports leaf series with diverging lengths,
	// which indicates a corrupted log.
	ErrInconsistentLength = errors.New("trajlog: leaf series lengths diverge")

	// ErrIndexOutOfRange reports a timestep read past the episode length.
	ErrIndexOutOfRange = errors.New("trajlog: timestep index out of range")
)

// Store provides access to one hierarchical trajectory log. Paths are
// slices of group names from the root; the empty path is the root group.
type Store interface {
	// Children lists the child groups and child series under path.
	Children(path []string) (groups, series []string, err error)

	// SeriesLen returns the number of entries in the series at path.
	SeriesLen(path []string) (int, error)

	// Read returns the value of the series at path for one timestep.
	// Scalar series yield float64 (or bool), vector series []float64.
	Read(path []string, index int) (any, error)

	// TaskLabel returns the episode's task label from file metadata.
	TaskLabel() (string, error)

	// Close releases the underlying handle. Idempotent.
	Close() error
}

// Record is one timestep's worth of log data: a nested map mirroring the
// group structure of the log, with series values at the leaves.
type Record map[string]any

// Child returns the nested record under name, or nil if absent or not a
// group.
func (r Record) Child(name string) Record {
	if r == nil {
		return nil
	}
	c, _ := r[name].(Record)
	return c
}

// at walks the record along path and returns the leaf value.
func (r Record) at(path ...string) (any, bool) {
	cur := r
	for i, name := range path {
		if cur == nil {
			return nil, false
		}
		v, ok := cur[name]
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return v, true
		}
		cur, ok = v.(Record)
		if !ok {
			return nil, false
		}
	}
	return nil, false
}

// Float returns the scalar value at path.
func (r Record) Float(path ...string) (float64, bool) {
	v, ok := r.at(path...)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// Floats returns the vector value at path.
func (r Record) Floats(path ...string) ([]float64, bool) {
	v, ok := r.at(path...)
	if !ok {
		return nil, false
	}
	fs, ok := v.([]float64)
	return fs, ok
}

// Bool returns the boolean value at path. Numeric values are accepted the
// way HDF5 stores flags: zero is false, anything else true.
func (r Record) Bool(path ...string) (bool, bool) {
	v, ok := r.at(path...)
	if !ok {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case float64:
		return b != 0, true
	}
	return false, false
}

func pathString(path []string) string {
	s := "/"
	for i, p := range path {
		if i > 0 {
			s += "/"
		}
		s += p
	}
	return s
}

func rangeErr(index, length int) error {
	return fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, index, length)
}
