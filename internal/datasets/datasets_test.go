package datasets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droid-datasets/rldsbuild/internal/fsutil"
	"github.com/droid-datasets/rldsbuild/internal/video"
)

func TestBuiltinVariants(t *testing.T) {
	ppgm, ok := Builtin("ppgm")
	require.True(t, ok)
	assert.Equal(t, "pick %s", ppgm.InstructionFormat)
	assert.Equal(t, "138422074005", ppgm.Cameras.WristSerial)
	assert.Equal(t, "140122076178", ppgm.Cameras.StaticSerial)

	tdroid, ok := Builtin("tdroid_knock_object_over")
	require.True(t, ok)
	assert.Equal(t, "%s", tdroid.InstructionFormat)

	_, ok = Builtin("nope")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	valid := Dataset{
		Name:              "d",
		Roots:             []string{"/data"},
		Cameras:           video.Identities{WristSerial: "a", StaticSerial: "b"},
		InstructionFormat: "%s",
	}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*Dataset)
	}{
		{"no name", func(d *Dataset) { d.Name = "" }},
		{"no roots", func(d *Dataset) { d.Roots = nil }},
		{"no wrist serial", func(d *Dataset) { d.Cameras.WristSerial = "" }},
		{"no static serial", func(d *Dataset) { d.Cameras.StaticSerial = "" }},
		{"no format verb", func(d *Dataset) { d.InstructionFormat = "pick" }},
		{"two format verbs", func(d *Dataset) { d.InstructionFormat = "%s %s" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := valid
			tc.mutate(&d)
			assert.Error(t, d.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	config := `[
		{
			"name": "lab",
			"roots": ["/mnt/lab"],
			"cameras": {"wrist_serial": "111", "static_serial": "222"},
			"instruction_format": "%s"
		},
		{
			"name": "lab2",
			"roots": ["/mnt/lab2"],
			"cameras": {"wrist_serial": "333", "static_serial": "444"},
			"instruction_format": "pick %s"
		}
	]`
	require.NoError(t, fs.WriteFile("/etc/datasets.json", []byte(config), 0644))

	got, err := Load(fs, "/etc/datasets.json")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "111", got["lab"].Cameras.WristSerial)
	assert.Equal(t, []string{"/mnt/lab2"}, got["lab2"].Roots)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(fs, "/missing.json")
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		require.NoError(t, fs.WriteFile("/bad.json", []byte("{"), 0644))
		_, err := Load(fs, "/bad.json")
		assert.Error(t, err)
	})

	t.Run("invalid dataset", func(t *testing.T) {
		require.NoError(t, fs.WriteFile("/noname.json", []byte(`[{"roots": ["/x"]}]`), 0644))
		_, err := Load(fs, "/noname.json")
		assert.Error(t, err)
	})

	t.Run("duplicate name", func(t *testing.T) {
		dup := `[
			{"name": "d", "roots": ["/x"], "cameras": {"wrist_serial": "1", "static_serial": "2"}, "instruction_format": "%s"},
			{"name": "d", "roots": ["/y"], "cameras": {"wrist_serial": "1", "static_serial": "2"}, "instruction_format": "%s"}
		]`
		require.NoError(t, fs.WriteFile("/dup.json", []byte(dup), 0644))
		_, err := Load(fs, "/dup.json")
		assert.Error(t, err)
	})
}

func TestResolve(t *testing.T) {
	configured := map[string]Dataset{
		"custom": {
			Name:              "custom",
			Roots:             []string{"/configured"},
			Cameras:           video.Identities{WristSerial: "1", StaticSerial: "2"},
			InstructionFormat: "%s",
		},
	}

	t.Run("configured wins", func(t *testing.T) {
		d, err := Resolve(configured, "custom", []string{"/flag"})
		require.NoError(t, err)
		assert.Equal(t, []string{"/configured"}, d.Roots)
	})

	t.Run("builtin with flag roots", func(t *testing.T) {
		d, err := Resolve(configured, "ppgm", []string{"/flag"})
		require.NoError(t, err)
		assert.Equal(t, []string{"/flag"}, d.Roots)
		assert.Equal(t, "pick %s", d.InstructionFormat)
	})

	t.Run("builtin without roots fails validation", func(t *testing.T) {
		_, err := Resolve(configured, "ppgm", nil)
		assert.Error(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Resolve(configured, "nope", []string{"/flag"})
		assert.Error(t, err)
	})
}
