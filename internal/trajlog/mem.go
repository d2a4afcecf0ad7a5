package trajlog

import (
	"fmt"
	"sort"
)

// MemStore is an in-memory Store for tests, mirroring the group/series
// tree of a real log. Use MemoryFileSystem-style construction: build the
// tree with AddSeries/AddGroup and hand it to NewTimestepStore.
type MemStore struct {
	root   *memGroup
	label  string
	closed bool
}

type memGroup struct {
	groups map[string]*memGroup
	series map[string][]any
}

func newMemGroup() *memGroup {
	return &memGroup{groups: map[string]*memGroup{}, series: map[string][]any{}}
}

// NewMemStore creates an empty in-memory log with the given task label.
func NewMemStore(label string) *MemStore {
	return &MemStore{root: newMemGroup(), label: label}
}

// AddSeries stores a per-timestep series at the given path, creating
// intermediate groups as needed. The last path element is the series name.
func (m *MemStore) AddSeries(path []string, values []any) {
	g := m.root
	for _, name := range path[:len(path)-1] {
		child, ok := g.groups[name]
		if !ok {
			child = newMemGroup()
			g.groups[name] = child
		}
		g = child
	}
	g.series[path[len(path)-1]] = values
}

func (m *MemStore) group(path []string) (*memGroup, error) {
	g := m.root
	for _, name := range path {
		child, ok := g.groups[name]
		if !ok {
			return nil, fmt.Errorf("no group %s", pathString(path))
		}
		g = child
	}
	return g, nil
}

// Children lists child groups and series under path, sorted by name.
func (m *MemStore) Children(path []string) ([]string, []string, error) {
	g, err := m.group(path)
	if err != nil {
		return nil, nil, err
	}
	var groups, series []string
	for name := range g.groups {
		groups = append(groups, name)
	}
	for name := range g.series {
		series = append(series, name)
	}
	sort.Strings(groups)
	sort.Strings(series)
	return groups, series, nil
}

// SeriesLen returns the entry count of the series at path.
func (m *MemStore) SeriesLen(path []string) (int, error) {
	g, err := m.group(path[:len(path)-1])
	if err != nil {
		return 0, err
	}
	s, ok := g.series[path[len(path)-1]]
	if !ok {
		return 0, fmt.Errorf("no series %s", pathString(path))
	}
	return len(s), nil
}

// Read returns the series value at index.
func (m *MemStore) Read(path []string, index int) (any, error) {
	g, err := m.group(path[:len(path)-1])
	if err != nil {
		return nil, err
	}
	s, ok := g.series[path[len(path)-1]]
	if !ok {
		return nil, fmt.Errorf("no series %s", pathString(path))
	}
	if index < 0 || index >= len(s) {
		return nil, rangeErr(index, len(s))
	}
	return s[index], nil
}

// TaskLabel returns the label given at construction.
func (m *MemStore) TaskLabel() (string, error) { return m.label, nil }

// Close marks the store closed.
func (m *MemStore) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close has been called, for resource-release
// assertions in tests.
func (m *MemStore) Closed() bool { return m.closed }
