package video

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MultiCameraSource owns one FrameSource per recording in a camera
// directory, keyed by camera identifier.
type MultiCameraSource struct {
	sources map[string]*FrameSource
	options map[Role]ReadOptions
	closed  bool
}

// OpenDirectory discovers one FrameSource per recognized video file in
// dir. Files named <serial>_depth.mp4 decode as single-channel depth,
// <serial>.mp4 as RGB; anything else is a configuration error. A nil
// factory uses the ffmpeg decoder. A nil options map decodes every role.
func OpenDirectory(dir string, options map[Role]ReadOptions, factory DecoderFactory) (*MultiCameraSource, error) {
	if factory == nil {
		factory = OpenFFmpeg
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading camera directory %s: %w", dir, err)
	}

	m := &MultiCameraSource{
		sources: make(map[string]*FrameSource),
		options: options,
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".mp4") {
			m.Close()
			return nil, fmt.Errorf("unrecognized recording file %s in %s", name, dir)
		}
		serial := strings.TrimSuffix(name, ".mp4")
		grayscale := strings.HasSuffix(serial, DepthSuffix)

		dec, err := factory(filepath.Join(dir, name), grayscale)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("opening camera %s: %w", serial, err)
		}
		m.sources[serial] = NewFrameSource(serial, dec)
	}
	if len(m.sources) == 0 {
		return nil, fmt.Errorf("no recordings found in %s", dir)
	}
	return m, nil
}

// NewMultiCameraSource wires pre-built sources directly; used by tests.
func NewMultiCameraSource(sources map[string]*FrameSource, options map[Role]ReadOptions) *MultiCameraSource {
	return &MultiCameraSource{sources: sources, options: options}
}

// Serials lists the known camera identifiers in sorted order.
func (m *MultiCameraSource) Serials() []string {
	out := make([]string, 0, len(m.sources))
	for serial := range m.sources {
		out = append(out, serial)
	}
	sort.Strings(out)
	return out
}

// ReadAll reads the frame at index from every enabled camera. The join is
// all-or-nothing: if any camera's read fails or hits end of stream, no
// frames are returned. Cameras are visited in sorted serial order for
// determinism, though each read is independent.
func (m *MultiCameraSource) ReadAll(index int, roles map[string]Role) (map[string]*Frame, error) {
	frames := make(map[string]*Frame, len(m.sources))
	for _, serial := range m.Serials() {
		role, ok := roles[serial]
		if !ok {
			return nil, fmt.Errorf("camera %s has no role assigned", serial)
		}
		if m.options != nil {
			if opts, ok := m.options[role]; ok && !opts.DecodeImage {
				continue
			}
		}

		src := m.sources[serial]
		if err := src.AdvanceTo(index); err != nil {
			return nil, fmt.Errorf("camera %s read failed at index %d: %w", serial, index, err)
		}
		frame, err := src.ReadCurrent()
		if err != nil {
			return nil, fmt.Errorf("camera %s read failed at index %d: %w", serial, index, err)
		}
		frames[serial] = frame
	}
	return frames, nil
}

// Close releases every camera's decoder. Idempotent.
func (m *MultiCameraSource) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	var firstErr error
	for _, src := range m.sources {
		if err := src.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
