// Package assemble turns one episode's trajectory log and camera
// recordings into an ordered sequence of enriched timesteps.
//
// The assembler aligns the index-addressed low-dimensional log with the
// frame-addressed camera readers, visiting indices in ascending order
// because camera cursors only advance cheaply forward. A camera failure
// ends the episode's usable length at that point; timesteps already
// collected are kept.
package assemble

import (
	"fmt"
	"log"
	"math/rand"
	"sort"

	"github.com/droid-datasets/rldsbuild/internal/trajlog"
	"github.com/droid-datasets/rldsbuild/internal/video"
)

// DefaultSampleInflation oversamples the index set when skip filtering is
// active, compensating for steps dropped later.
const DefaultSampleInflation = 1.5

// Timestep is one instant of an episode: the log record at an index,
// enriched with that index's camera frames when video is enabled.
// Timesteps are never mutated after creation; a skipped step is dropped,
// not edited.
type Timestep struct {
	Index  int
	Data   trajlog.Record
	Images map[string]*video.Frame
}

// Episode is one assembled demonstration trial. Truncated reports that a
// camera failure cut collection short; Steps then holds the usable prefix.
type Episode struct {
	LogPath   string
	CameraDir string
	TaskLabel string
	Steps     []Timestep
	Truncated bool
}

// Options controls index selection and filtering during assembly.
type Options struct {
	// SamplesPerTrajectory bounds the number of timesteps kept; zero
	// keeps every timestep.
	SamplesPerTrajectory int

	// SampleInflation oversamples the visited index set when skip
	// filtering is active. Zero means DefaultSampleInflation.
	SampleInflation float64

	// RemoveSkippedSteps drops timesteps whose controller flags report
	// movement disabled.
	RemoveSkippedSteps bool

	// ReadOptions configures per-role camera reading.
	ReadOptions map[video.Role]video.ReadOptions

	// Rand drives subsampling. Required when SamplesPerTrajectory is
	// set; injected so builds are reproducible.
	Rand *rand.Rand
}

// Assemble opens the trajectory log at logPath (and, when cameraDir is
// non-empty, the camera recordings under it) and collects the episode's
// timesteps. Both stores are closed before returning, also on early
// termination.
func Assemble(logPath, cameraDir string, ids video.Identities, opts Options) (*Episode, error) {
	store, err := trajlog.Open(logPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	var cams *video.MultiCameraSource
	if cameraDir != "" {
		cams, err = video.OpenDirectory(cameraDir, opts.ReadOptions, nil)
		if err != nil {
			return nil, err
		}
		defer cams.Close()
	}

	ep, err := AssembleFrom(store, cams, ids, opts)
	if err != nil {
		return nil, err
	}
	ep.LogPath = logPath
	ep.CameraDir = cameraDir
	return ep, nil
}

// AssembleFrom runs the assembly loop over already-opened stores. The
// caller retains ownership of store and cams and must close them; cams may
// be nil to disable video.
func AssembleFrom(store *trajlog.TimestepStore, cams *video.MultiCameraSource, ids video.Identities, opts Options) (*Episode, error) {
	if opts.SamplesPerTrajectory > 0 && opts.Rand == nil {
		return nil, fmt.Errorf("assemble: subsampling requires a random source")
	}

	indices := planIndices(store.Len(), opts)
	roles := ids.RoleMap()

	var steps []Timestep
	truncated := false
	for _, i := range indices {
		rec, err := store.ReadTimestep(i)
		if err != nil {
			return nil, err
		}

		var frames map[string]*video.Frame
		if cams != nil {
			frames, err = cams.ReadAll(i, roles)
			if err != nil {
				// A broken camera stream ends the episode's usable
				// length here; prior timesteps stay valid.
				log.Printf("[Assembler] camera read failed at index %d, truncating episode: %v", i, err)
				truncated = true
				break
			}
		}

		if opts.RemoveSkippedSteps && stepSkipped(rec) {
			continue
		}
		steps = append(steps, Timestep{Index: i, Data: rec, Images: frames})
	}

	if opts.SamplesPerTrajectory > 0 && len(steps) > opts.SamplesPerTrajectory {
		steps = subsample(steps, opts.SamplesPerTrajectory, opts.Rand)
	}

	label, err := store.TaskLabel()
	if err != nil {
		return nil, err
	}
	return &Episode{TaskLabel: label, Steps: steps, Truncated: truncated}, nil
}

// planIndices chooses which timestep indices to visit, always ascending:
// camera advance only supports efficient forward motion.
func planIndices(length int, opts Options) []int {
	if opts.SamplesPerTrajectory <= 0 {
		all := make([]int, length)
		for i := range all {
			all[i] = i
		}
		return all
	}

	want := opts.SamplesPerTrajectory
	if opts.RemoveSkippedSteps {
		inflation := opts.SampleInflation
		if inflation == 0 {
			inflation = DefaultSampleInflation
		}
		want = int(float64(want) * inflation)
	}
	if want > length {
		want = length
	}

	indices := opts.Rand.Perm(length)[:want]
	sort.Ints(indices)
	return indices
}

// stepSkipped reports whether the controller flags mark movement disabled.
// An absent flag means movement was enabled.
func stepSkipped(rec trajlog.Record) bool {
	enabled, ok := rec.Bool("observation", "controller_info", "movement_enabled")
	if !ok {
		return false
	}
	return !enabled
}

// subsample keeps n of the collected steps, chosen uniformly without
// replacement. Kept steps stay in collection order, which is chronological
// because collection visited indices ascending.
func subsample(steps []Timestep, n int, rng *rand.Rand) []Timestep {
	keep := rng.Perm(len(steps))[:n]
	sort.Ints(keep)
	out := make([]Timestep, 0, n)
	for _, pos := range keep {
		out = append(out, steps[pos])
	}
	return out
}
