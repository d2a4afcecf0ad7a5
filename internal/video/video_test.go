package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeekThenReadEquivalence(t *testing.T) {
	const frames = 12

	// Reference frames read strictly sequentially.
	ref := make([][]byte, frames)
	seq := NewFrameSource("cam0", NewFakeDecoder(4, 3, 3, frames))
	for i := 0; i < frames; i++ {
		f, err := seq.ReadCurrent()
		require.NoError(t, err)
		ref[i] = f.Pix
	}

	// Every index reached by AdvanceTo must yield the same frame,
	// including backward moves that force a rewind.
	src := NewFrameSource("cam0", NewFakeDecoder(4, 3, 3, frames))
	for _, i := range []int{0, 5, 11, 3, 7, 0} {
		require.NoError(t, src.AdvanceTo(i))
		f, err := src.ReadCurrent()
		require.NoError(t, err)
		assert.Equal(t, ref[i], f.Pix, "frame %d", i)
	}
}

func TestAdvanceBackwardRewinds(t *testing.T) {
	dec := NewFakeDecoder(2, 2, 3, 10)
	src := NewFrameSource("cam0", dec)

	require.NoError(t, src.AdvanceTo(5))
	assert.Equal(t, 0, dec.Rewinds)

	require.NoError(t, src.AdvanceTo(2))
	assert.Equal(t, 1, dec.Rewinds)
}

func TestReadCurrentReturnsIndependentCopy(t *testing.T) {
	src := NewFrameSource("cam0", NewFakeDecoder(2, 2, 3, 5))

	first, err := src.ReadCurrent()
	require.NoError(t, err)
	want := append([]byte(nil), first.Pix...)

	// A subsequent read reuses the decoder buffer; the earlier frame
	// must be unaffected.
	_, err = src.ReadCurrent()
	require.NoError(t, err)
	assert.Equal(t, want, first.Pix)
}

func TestEndOfStream(t *testing.T) {
	src := NewFrameSource("cam0", NewFakeDecoder(2, 2, 1, 2))

	_, err := src.ReadCurrent()
	require.NoError(t, err)
	_, err = src.ReadCurrent()
	require.NoError(t, err)

	_, err = src.ReadCurrent()
	assert.ErrorIs(t, err, ErrEndOfStream)
}

func TestFrameSourceCloseIdempotent(t *testing.T) {
	dec := NewFakeDecoder(2, 2, 3, 1)
	src := NewFrameSource("cam0", dec)
	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	assert.True(t, dec.Closed)
}

func testRig(t *testing.T, frames int) (*MultiCameraSource, Identities) {
	t.Helper()
	ids := Identities{WristSerial: "wrist1", StaticSerial: "static1"}
	sources := map[string]*FrameSource{}
	for _, serial := range []string{"wrist1", "static1"} {
		sources[serial] = NewFrameSource(serial, NewFakeDecoder(4, 3, 3, frames))
		depth := serial + DepthSuffix
		sources[depth] = NewFrameSource(depth, NewFakeDecoder(4, 3, 1, frames))
	}
	return NewMultiCameraSource(sources, nil), ids
}

func TestReadAll(t *testing.T) {
	m, ids := testRig(t, 8)
	frames, err := m.ReadAll(3, ids.RoleMap())
	require.NoError(t, err)
	require.Len(t, frames, 4)

	assert.Equal(t, 3, frames["wrist1"].Channels)
	assert.Equal(t, 1, frames["wrist1"+DepthSuffix].Channels)
	for _, f := range frames {
		assert.Equal(t, byte(3), f.Pix[0], "camera %s", f.Serial)
	}
}

func TestReadAllAllOrNothing(t *testing.T) {
	ids := Identities{WristSerial: "wrist1", StaticSerial: "static1"}
	short := NewFakeDecoder(2, 2, 3, 2) // exhausted before the others
	sources := map[string]*FrameSource{
		"wrist1":  NewFrameSource("wrist1", short),
		"static1": NewFrameSource("static1", NewFakeDecoder(2, 2, 3, 10)),
	}
	m := NewMultiCameraSource(sources, nil)

	roles := ids.RoleMap()
	_, err := m.ReadAll(0, roles)
	require.NoError(t, err)

	frames, err := m.ReadAll(5, roles)
	assert.ErrorIs(t, err, ErrEndOfStream)
	assert.Nil(t, frames)
}

func TestReadAllUnknownRole(t *testing.T) {
	sources := map[string]*FrameSource{
		"mystery": NewFrameSource("mystery", NewFakeDecoder(2, 2, 3, 4)),
	}
	m := NewMultiCameraSource(sources, nil)

	_, err := m.ReadAll(0, map[string]Role{})
	assert.Error(t, err)
}

func TestReadAllDisabledRoleSkipsDecode(t *testing.T) {
	m, ids := testRig(t, 8)
	m.options = map[Role]ReadOptions{
		RoleWrist:  {DecodeImage: true},
		RoleStatic: {DecodeImage: false},
	}

	frames, err := m.ReadAll(0, ids.RoleMap())
	require.NoError(t, err)
	assert.Len(t, frames, 2)
	assert.Contains(t, frames, "wrist1")
	assert.NotContains(t, frames, "static1")
}

func TestRoleMapOverridesLogTagging(t *testing.T) {
	ids := Identities{WristSerial: "111", StaticSerial: "222"}
	roles := ids.RoleMap()
	assert.Equal(t, RoleWrist, roles["111"])
	assert.Equal(t, RoleWrist, roles["111"+DepthSuffix])
	assert.Equal(t, RoleStatic, roles["222"])
	assert.Equal(t, RoleStatic, roles["222"+DepthSuffix])
}
