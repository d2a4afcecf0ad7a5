// Package video decodes per-camera MP4 recordings frame by frame.
//
// Each camera recording is exposed as a FrameSource with a forward-seek-only
// cursor: sequential advance is cheap, repositioning backward requires a
// decoder restart. MultiCameraSource joins one frame per camera at a given
// trajectory index. The production decoder pipes raw frames out of ffmpeg;
// FakeDecoder serves tests.
package video

import (
	"errors"
	"fmt"
)

// ErrEndOfStream signals that a recording has no more frames. This is a
// normal termination condition for an episode, not a fault.
var ErrEndOfStream = errors.New("video: end of stream")

// Role is the logical role of a camera in the rig.
type Role string

const (
	RoleWrist  Role = "wrist"
	RoleStatic Role = "static"
)

// DepthSuffix marks depth recordings and depth camera identifiers. A file
// <serial>.mp4 holds the RGB stream, <serial>_depth.mp4 the depth stream.
const DepthSuffix = "_depth"

// Identities names the physical cameras of one collection rig. The log's
// own camera-role tagging is known unreliable and is always overridden by
// these caller-supplied serials.
type Identities struct {
	WristSerial  string `json:"wrist_serial"`
	StaticSerial string `json:"static_serial"`
}

// RoleMap derives the per-identifier role map used to resolve read options,
// covering both the RGB and depth identifier of each camera.
func (ids Identities) RoleMap() map[string]Role {
	return map[string]Role{
		ids.WristSerial:                RoleWrist,
		ids.WristSerial + DepthSuffix:  RoleWrist,
		ids.StaticSerial:               RoleStatic,
		ids.StaticSerial + DepthSuffix: RoleStatic,
	}
}

// ReadOptions configures per-role reading behavior.
type ReadOptions struct {
	// DecodeImage disables frame decoding for a role when false; the
	// camera is then skipped entirely during ReadAll.
	DecodeImage bool
}

// Frame is one decoded video frame. Pix is tightly packed row-major with
// Channels bytes per pixel (3 for RGB, 1 for grayscale depth) and is an
// independent copy, safe to retain across subsequent reads.
type Frame struct {
	Serial   string
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

// Decoder produces consecutive frames of one recording. Implementations
// may reuse their internal pixel buffer between ReadFrame calls; callers
// that retain frame data must copy it first.
type Decoder interface {
	// ReadFrame decodes the next frame and returns its pixel data, or
	// ErrEndOfStream once the recording is exhausted.
	ReadFrame() ([]byte, error)

	// Rewind repositions the decoder to frame zero.
	Rewind() error

	// Resolution returns the frame width and height in pixels.
	Resolution() (int, int)

	// Channels returns the bytes per pixel of decoded frames.
	Channels() int

	// FrameCount returns the container's frame count, or -1 if unknown.
	FrameCount() int

	// Close releases the decoder. Idempotent.
	Close() error
}

// DecoderFactory opens a Decoder for a recording file. The grayscale flag
// selects single-channel decoding for depth streams.
type DecoderFactory func(path string, grayscale bool) (Decoder, error)

// FrameSource wraps one camera recording with a forward-seek-only cursor.
type FrameSource struct {
	serial string
	dec    Decoder
	cursor int
	closed bool
}

// NewFrameSource wraps a decoder for the camera with the given serial.
func NewFrameSource(serial string, dec Decoder) *FrameSource {
	return &FrameSource{serial: serial, dec: dec}
}

// Serial returns the camera identifier this source reads for.
func (f *FrameSource) Serial() string { return f.serial }

// FrameCount reports the container frame count, or -1 if unknown.
func (f *FrameSource) FrameCount() int { return f.dec.FrameCount() }

// Resolution reports the native frame size.
func (f *FrameSource) Resolution() (int, int) { return f.dec.Resolution() }

// AdvanceTo moves the cursor to index. Indices behind the cursor force a
// costly rewind; indices at or ahead are reached by decoding and
// discarding frames one at a time.
func (f *FrameSource) AdvanceTo(index int) error {
	if index < f.cursor {
		if err := f.dec.Rewind(); err != nil {
			return fmt.Errorf("camera %s: rewind to %d: %w", f.serial, index, err)
		}
		f.cursor = 0
	}
	for f.cursor < index {
		if _, err := f.dec.ReadFrame(); err != nil {
			if errors.Is(err, ErrEndOfStream) {
				return ErrEndOfStream
			}
			return fmt.Errorf("camera %s: advancing to %d: %w", f.serial, index, err)
		}
		f.cursor++
	}
	return nil
}

// ReadCurrent decodes the frame at the cursor and advances the cursor by
// one. The returned frame owns a fresh copy of the pixel data; the
// decoder's internal buffer is reused on the next read.
func (f *FrameSource) ReadCurrent() (*Frame, error) {
	pix, err := f.dec.ReadFrame()
	if err != nil {
		if errors.Is(err, ErrEndOfStream) {
			return nil, ErrEndOfStream
		}
		return nil, fmt.Errorf("camera %s: reading frame %d: %w", f.serial, f.cursor, err)
	}
	f.cursor++

	w, h := f.dec.Resolution()
	out := make([]byte, len(pix))
	copy(out, pix)
	return &Frame{
		Serial:   f.serial,
		Width:    w,
		Height:   h,
		Channels: f.dec.Channels(),
		Pix:      out,
	}, nil
}

// Close releases the underlying decoder. Idempotent.
func (f *FrameSource) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.dec.Close()
}
