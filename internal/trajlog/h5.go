package trajlog

import (
	"fmt"
	"strings"

	"gonum.org/v1/hdf5"
)

// taskLabelAttr is the file-level attribute carrying the task label.
const taskLabelAttr = "current_task"

// h5Store reads a trajectory.h5 log through the HDF5 C library bindings.
type h5Store struct {
	file   *hdf5.File
	closed bool
}

// Open opens an HDF5 trajectory log read-only and validates it into a
// TimestepStore.
func Open(path string) (*TimestepStore, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("opening trajectory log %s: %w", path, err)
	}
	ts, err := NewTimestepStore(&h5Store{file: f})
	if err != nil {
		f.Close()
		return nil, err
	}
	return ts, nil
}

func h5Path(path []string) string {
	if len(path) == 0 {
		return "/"
	}
	return "/" + strings.Join(path, "/")
}

// Children lists child groups and datasets under path. The binding offers
// no cheap object-type query, so each child is probed as a group first and
// treated as a dataset otherwise.
func (h *h5Store) Children(path []string) ([]string, []string, error) {
	g, err := h.file.OpenGroup(h5Path(path))
	if err != nil {
		return nil, nil, fmt.Errorf("opening group %s: %w", h5Path(path), err)
	}
	defer g.Close()

	n, err := g.NumObjects()
	if err != nil {
		return nil, nil, fmt.Errorf("listing group %s: %w", h5Path(path), err)
	}
	var groups, series []string
	for i := uint(0); i < n; i++ {
		name, err := g.ObjectNameByIndex(i)
		if err != nil {
			return nil, nil, fmt.Errorf("naming child %d of %s: %w", i, h5Path(path), err)
		}
		if child, err := g.OpenGroup(name); err == nil {
			child.Close()
			groups = append(groups, name)
		} else {
			series = append(series, name)
		}
	}
	return groups, series, nil
}

// SeriesLen returns the first dimension of the dataset at path.
func (h *h5Store) SeriesLen(path []string) (int, error) {
	dims, _, err := h.datasetDims(path)
	if err != nil {
		return 0, err
	}
	return int(dims[0]), nil
}

func (h *h5Store) datasetDims(path []string) ([]uint, *hdf5.Dataset, error) {
	ds, err := h.file.OpenDataset(h5Path(path))
	if err != nil {
		return nil, nil, fmt.Errorf("opening dataset %s: %w", h5Path(path), err)
	}
	space := ds.Space()
	dims, _, err := space.SimpleExtentDims()
	space.Close()
	if err != nil {
		ds.Close()
		return nil, nil, fmt.Errorf("shape of %s: %w", h5Path(path), err)
	}
	if len(dims) == 0 {
		ds.Close()
		return nil, nil, fmt.Errorf("dataset %s is scalar, expected a series", h5Path(path))
	}
	return dims, ds, nil
}

// Read returns row index of the dataset at path: a float64 for rank-1
// series, a []float64 for rank-2 series. Numeric types are converted to
// float64 by the HDF5 library on read.
func (h *h5Store) Read(path []string, index int) (any, error) {
	dims, ds, err := h.datasetDims(path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	if index < 0 || index >= int(dims[0]) {
		return nil, rangeErr(index, int(dims[0]))
	}

	cols := uint(1)
	offset := []uint{uint(index)}
	count := []uint{1}
	if len(dims) > 1 {
		cols = dims[1]
		offset = append(offset, 0)
		count = append(count, cols)
	}

	filespace := ds.Space()
	defer filespace.Close()
	if err := filespace.SelectHyperslab(offset, nil, count, nil); err != nil {
		return nil, fmt.Errorf("selecting %s[%d]: %w", h5Path(path), index, err)
	}
	memspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return nil, fmt.Errorf("reading %s[%d]: %w", h5Path(path), index, err)
	}
	defer memspace.Close()

	buf := make([]float64, cols)
	if err := ds.ReadSubset(&buf, memspace, filespace); err != nil {
		return nil, fmt.Errorf("reading %s[%d]: %w", h5Path(path), index, err)
	}
	if len(dims) == 1 {
		return buf[0], nil
	}
	return buf, nil
}

// TaskLabel reads the task label attribute from the file root.
func (h *h5Store) TaskLabel() (string, error) {
	attr, err := h.file.OpenAttribute(taskLabelAttr)
	if err != nil {
		return "", fmt.Errorf("opening attribute %q: %w", taskLabelAttr, err)
	}
	defer attr.Close()

	var label string
	if err := attr.Read(&label, hdf5.T_GO_STRING); err != nil {
		return "", fmt.Errorf("reading attribute %q: %w", taskLabelAttr, err)
	}
	return label, nil
}

// Close releases the file handle. Idempotent.
func (h *h5Store) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.file.Close()
}
