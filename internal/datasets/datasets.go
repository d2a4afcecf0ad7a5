// Package datasets defines the named dataset variants a build run can
// target. Each variant fixes the source roots, the camera identities of
// the rig that collected it, and how the task label is rendered into a
// language instruction.
package datasets

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/droid-datasets/rldsbuild/internal/fsutil"
	"github.com/droid-datasets/rldsbuild/internal/video"
)

// Dataset describes one build target.
type Dataset struct {
	// Name identifies the variant, e.g. "ppgm".
	Name string `json:"name"`

	// Roots are the collection directories crawled for episodes. Each
	// root holds a success/ tree of dated episode directories.
	Roots []string `json:"roots"`

	// Cameras maps the rig's camera serials to image roles.
	Cameras video.Identities `json:"cameras"`

	// InstructionFormat renders the logged task label into the emitted
	// language instruction. It must contain exactly one %s verb.
	InstructionFormat string `json:"instruction_format"`
}

// Validate checks that the dataset is complete enough to build.
func (d *Dataset) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("dataset has no name")
	}
	if len(d.Roots) == 0 {
		return fmt.Errorf("dataset %s has no roots", d.Name)
	}
	if d.Cameras.WristSerial == "" || d.Cameras.StaticSerial == "" {
		return fmt.Errorf("dataset %s is missing camera serials", d.Name)
	}
	if strings.Count(d.InstructionFormat, "%s") != 1 {
		return fmt.Errorf("dataset %s: instruction format %q must contain exactly one %%s", d.Name, d.InstructionFormat)
	}
	return nil
}

// Builtin variants cover the standing collection rigs. Config files
// extend or override these.
var builtin = map[string]Dataset{
	"ppgm": {
		Name: "ppgm",
		Cameras: video.Identities{
			WristSerial:  "138422074005",
			StaticSerial: "140122076178",
		},
		InstructionFormat: "pick %s",
	},
	"tdroid_knock_object_over": {
		Name: "tdroid_knock_object_over",
		Cameras: video.Identities{
			WristSerial:  "138422074005",
			StaticSerial: "140122076178",
		},
		InstructionFormat: "%s",
	},
}

// Builtin returns a copy of a named built-in variant.
func Builtin(name string) (Dataset, bool) {
	d, ok := builtin[name]
	return d, ok
}

// BuiltinNames lists the built-in variants, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads a JSON config file holding a list of datasets and returns
// them keyed by name, validated. A nil fs uses the real filesystem.
func Load(fs fsutil.FileSystem, path string) (map[string]Dataset, error) {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset config %s: %w", path, err)
	}

	var list []Dataset
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing dataset config %s: %w", path, err)
	}

	out := make(map[string]Dataset, len(list))
	for i := range list {
		d := list[i]
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("dataset config %s: %w", path, err)
		}
		if _, dup := out[d.Name]; dup {
			return nil, fmt.Errorf("dataset config %s: duplicate dataset %s", path, d.Name)
		}
		out[d.Name] = d
	}
	return out, nil
}

// Resolve looks up a dataset by name, preferring configured datasets
// over built-ins, and applies the given roots when the entry carries
// none of its own.
func Resolve(configured map[string]Dataset, name string, roots []string) (Dataset, error) {
	d, ok := configured[name]
	if !ok {
		d, ok = Builtin(name)
	}
	if !ok {
		return Dataset{}, fmt.Errorf("unknown dataset %s", name)
	}
	if len(d.Roots) == 0 {
		d.Roots = roots
	}
	if err := d.Validate(); err != nil {
		return Dataset{}, err
	}
	return d, nil
}
