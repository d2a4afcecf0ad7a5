package video

// FakeDecoder is an in-memory Decoder for tests, serving a fixed sequence
// of frames. It reuses an internal buffer between reads the way the ffmpeg
// decoder does, so copy bugs in callers surface in tests too.
type FakeDecoder struct {
	width    int
	height   int
	channels int
	frames   [][]byte
	pos      int
	buf      []byte

	Rewinds int
	Closed  bool
	FailAt  int // read at this frame index fails with ErrEndOfStream; -1 disables
}

// NewFakeDecoder builds a decoder serving count synthetic frames whose
// first byte encodes the frame index, so tests can identify frames.
func NewFakeDecoder(width, height, channels, count int) *FakeDecoder {
	frames := make([][]byte, count)
	for i := range frames {
		pix := make([]byte, width*height*channels)
		for j := range pix {
			pix[j] = byte(i)
		}
		frames[i] = pix
	}
	return &FakeDecoder{
		width:    width,
		height:   height,
		channels: channels,
		frames:   frames,
		buf:      make([]byte, width*height*channels),
		FailAt:   -1,
	}
}

func (d *FakeDecoder) ReadFrame() ([]byte, error) {
	if d.FailAt >= 0 && d.pos >= d.FailAt {
		return nil, ErrEndOfStream
	}
	if d.pos >= len(d.frames) {
		return nil, ErrEndOfStream
	}
	copy(d.buf, d.frames[d.pos])
	d.pos++
	return d.buf, nil
}

func (d *FakeDecoder) Rewind() error {
	d.pos = 0
	d.Rewinds++
	return nil
}

func (d *FakeDecoder) Resolution() (int, int) { return d.width, d.height }
func (d *FakeDecoder) Channels() int          { return d.channels }
func (d *FakeDecoder) FrameCount() int        { return len(d.frames) }

func (d *FakeDecoder) Close() error {
	d.Closed = true
	return nil
}
