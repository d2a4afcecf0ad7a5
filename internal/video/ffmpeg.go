package video

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
)

// ffmpegDecoder reads raw frames from an ffmpeg child process writing to a
// pipe. Resolution and frame count come from a one-shot ffprobe run at
// open time. Rewinding restarts the child process, which is why backward
// seeks are costly.
type ffmpegDecoder struct {
	path       string
	width      int
	height     int
	channels   int
	pixFmt     string
	frameCount int

	cmd    *exec.Cmd
	stdout io.ReadCloser
	reader *bufio.Reader
	buf    []byte // reused per frame; callers must copy
	closed bool
}

// OpenFFmpeg opens an MP4 recording through ffmpeg. Depth streams decode
// to single-channel grayscale, color streams to RGB.
func OpenFFmpeg(path string, grayscale bool) (Decoder, error) {
	w, h, frames, err := probe(path)
	if err != nil {
		return nil, err
	}
	d := &ffmpegDecoder{
		path:       path,
		width:      w,
		height:     h,
		channels:   3,
		pixFmt:     "rgb24",
		frameCount: frames,
	}
	if grayscale {
		d.channels = 1
		d.pixFmt = "gray"
	}
	d.buf = make([]byte, w*h*d.channels)
	if err := d.start(); err != nil {
		return nil, err
	}
	return d, nil
}

type probeStream struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	NbFrames string `json:"nb_frames"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

// probe queries the first video stream's resolution and frame count.
func probe(path string) (width, height, frames int, err error) {
	out, err := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,nb_frames",
		"-of", "json",
		path,
	).Output()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("probing %s: %w", path, err)
	}

	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return 0, 0, 0, fmt.Errorf("parsing probe of %s: %w", path, err)
	}
	if len(parsed.Streams) == 0 {
		return 0, 0, 0, fmt.Errorf("no video stream in %s", path)
	}
	s := parsed.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return 0, 0, 0, fmt.Errorf("invalid resolution %dx%d in %s", s.Width, s.Height, path)
	}
	frames = -1
	if n, err := strconv.Atoi(s.NbFrames); err == nil {
		frames = n
	}
	return s.Width, s.Height, frames, nil
}

func (d *ffmpegDecoder) start() error {
	cmd := exec.Command("ffmpeg",
		"-v", "error",
		"-i", d.path,
		"-f", "rawvideo",
		"-pix_fmt", d.pixFmt,
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("opening decode pipe for %s: %w", d.path, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg for %s: %w", d.path, err)
	}
	d.cmd = cmd
	d.stdout = stdout
	d.reader = bufio.NewReaderSize(stdout, 1<<20)
	return nil
}

func (d *ffmpegDecoder) stop() {
	if d.cmd == nil {
		return
	}
	d.stdout.Close()
	if d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	d.cmd.Wait()
	d.cmd = nil
	d.stdout = nil
	d.reader = nil
}

// ReadFrame reads exactly one frame's worth of bytes from the pipe. The
// returned slice aliases the decoder's internal buffer.
func (d *ffmpegDecoder) ReadFrame() ([]byte, error) {
	if d.reader == nil {
		return nil, ErrEndOfStream
	}
	n, err := io.ReadFull(d.reader, d.buf)
	if err != nil {
		if err == io.EOF && n == 0 {
			return nil, ErrEndOfStream
		}
		return nil, fmt.Errorf("decoding %s: short frame (%d of %d bytes): %w",
			d.path, n, len(d.buf), err)
	}
	return d.buf, nil
}

// Rewind restarts the decode process from frame zero.
func (d *ffmpegDecoder) Rewind() error {
	d.stop()
	return d.start()
}

func (d *ffmpegDecoder) Resolution() (int, int) { return d.width, d.height }
func (d *ffmpegDecoder) Channels() int          { return d.channels }
func (d *ffmpegDecoder) FrameCount() int        { return d.frameCount }

// Close terminates the decode process. Idempotent.
func (d *ffmpegDecoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.stop()
	return nil
}
