package rlds

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/droid-datasets/rldsbuild/internal/assemble"
	"github.com/droid-datasets/rldsbuild/internal/trajlog"
	"github.com/droid-datasets/rldsbuild/internal/video"
)

// Target image resolution of emitted records, downsampled from the native
// 480x640 recordings.
const (
	TargetWidth  = 360
	TargetHeight = 270
)

// ErrInconsistentObservations reports timesteps whose observation key sets
// diverge within one episode.
var ErrInconsistentObservations = errors.New("rlds: observation keys diverge across timesteps")

// Encoder converts assembled episodes into emitted records.
type Encoder struct {
	// Identities resolves which camera serial feeds which image slot.
	// RGB-vs-depth pairing is keyed explicitly by the filename-derived
	// depth suffix, never by map iteration order.
	Identities video.Identities

	// InstructionFormat renders the language instruction from the task
	// label, e.g. "pick %s" or "%s".
	InstructionFormat string

	// FrameSkip keeps every n-th collected timestep; values below 1
	// mean 1 (keep all).
	FrameSkip int
}

// Encode converts one assembled episode. An episode with no usable
// timesteps yields (nil, nil): the caller skips it rather than emitting an
// empty record.
func (e *Encoder) Encode(ep *assemble.Episode) (*EpisodeRecord, error) {
	steps := ep.Steps
	if skip := e.FrameSkip; skip > 1 {
		var kept []assemble.Timestep
		for i := 0; i < len(steps); i += skip {
			kept = append(kept, steps[i])
		}
		steps = kept
	}
	if len(steps) == 0 {
		return nil, nil
	}

	if err := validateObservationKeys(steps); err != nil {
		return nil, err
	}

	instruction := fmt.Sprintf(e.InstructionFormat, ep.TaskLabel)
	rec := &EpisodeRecord{
		Steps: make([]Step, 0, len(steps)),
		EpisodeMetadata: EpisodeMetadata{
			FilePath:            ep.LogPath,
			RecordingFolderpath: ep.CameraDir,
		},
	}

	for i, ts := range steps {
		obs, err := e.encodeObservation(ts)
		if err != nil {
			return nil, fmt.Errorf("timestep %d: %w", ts.Index, err)
		}
		actionDict, action, err := encodeAction(ts.Data)
		if err != nil {
			return nil, fmt.Errorf("timestep %d: %w", ts.Index, err)
		}

		last := i == len(steps)-1
		reward := float32(0)
		if last {
			// Demonstrations succeed by construction: reward lands on
			// the final retained step.
			reward = 1
		}
		rec.Steps = append(rec.Steps, Step{
			Observation:         obs,
			ActionDict:          actionDict,
			Action:              action,
			Discount:            1,
			Reward:              reward,
			IsFirst:             i == 0,
			IsLast:              last,
			IsTerminal:          last,
			LanguageInstruction: instruction,
		})
	}
	return rec, nil
}

// validateObservationKeys checks that every timestep carries the same
// observation shape after camera enrichment.
func validateObservationKeys(steps []assemble.Timestep) error {
	ref := observationKeys(steps[0])
	for _, ts := range steps[1:] {
		if got := observationKeys(ts); got != ref {
			return fmt.Errorf("%w: index %d has %s, index %d has %s",
				ErrInconsistentObservations, steps[0].Index, ref, ts.Index, got)
		}
	}
	return nil
}

func observationKeys(ts assemble.Timestep) string {
	var keys []string
	if obs := ts.Data.Child("observation"); obs != nil {
		for k := range obs {
			keys = append(keys, k)
		}
	}
	for serial := range ts.Images {
		keys = append(keys, "image/"+serial)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func (e *Encoder) encodeObservation(ts assemble.Timestep) (Observation, error) {
	obs := Observation{}

	pos, err := floats(ts.Data, 6, "observation", "robot_state", "cartesian_position")
	if err != nil {
		return obs, err
	}
	joints, err := floats(ts.Data, 7, "observation", "robot_state", "joint_positions")
	if err != nil {
		return obs, err
	}
	grip, err := scalar(ts.Data, "observation", "robot_state", "gripper_position")
	if err != nil {
		return obs, err
	}
	obs.CartesianPosition = pos
	obs.JointPosition = joints
	obs.GripperPosition = grip

	if cams := ts.Data.Child("observation").Child("timestamp").Child("cameras"); len(cams) > 0 {
		obs.CameraTimestamps = make(map[string]float64, len(cams))
		for name, v := range cams {
			if f, ok := v.(float64); ok {
				obs.CameraTimestamps[name] = f
			}
		}
	}

	if ts.Images == nil {
		return obs, nil
	}

	slots := []struct {
		serial string
		dst    *[]byte
	}{
		{e.Identities.WristSerial, &obs.WristImage},
		{e.Identities.WristSerial + video.DepthSuffix, &obs.WristDepthImage},
		{e.Identities.StaticSerial, &obs.StaticImage},
		{e.Identities.StaticSerial + video.DepthSuffix, &obs.StaticDepthImage},
	}
	for _, slot := range slots {
		frame, ok := ts.Images[slot.serial]
		if !ok {
			return obs, fmt.Errorf("missing frame for camera %s", slot.serial)
		}
		encoded, err := resizeAndEncode(frame, TargetWidth, TargetHeight)
		if err != nil {
			return obs, err
		}
		*slot.dst = encoded
	}
	return obs, nil
}

func encodeAction(rec trajlog.Record) (ActionDict, []float32, error) {
	dict := ActionDict{}

	var err error
	if dict.CartesianPosition, err = floats(rec, 6, "action", "cartesian_position"); err != nil {
		return dict, nil, err
	}
	if dict.CartesianVelocity, err = floats(rec, 6, "action", "cartesian_velocity"); err != nil {
		return dict, nil, err
	}
	if dict.GripperPosition, err = scalar(rec, "action", "gripper_position"); err != nil {
		return dict, nil, err
	}
	if dict.GripperVelocity, err = scalar(rec, "action", "gripper_velocity"); err != nil {
		return dict, nil, err
	}
	if dict.JointPosition, err = floats(rec, 7, "action", "joint_position"); err != nil {
		return dict, nil, err
	}
	if dict.JointVelocity, err = floats(rec, 7, "action", "joint_velocity"); err != nil {
		return dict, nil, err
	}

	action := make([]float32, 0, len(dict.CartesianVelocity)+1)
	action = append(action, dict.CartesianVelocity...)
	action = append(action, dict.GripperVelocity...)
	return dict, action, nil
}

// floats extracts a fixed-width vector field as float32.
func floats(rec trajlog.Record, want int, path ...string) ([]float32, error) {
	vals, ok := rec.Floats(path...)
	if !ok {
		return nil, fmt.Errorf("missing field %s", strings.Join(path, "/"))
	}
	if len(vals) != want {
		return nil, fmt.Errorf("field %s has %d values, want %d", strings.Join(path, "/"), len(vals), want)
	}
	out := make([]float32, len(vals))
	for i, v := range vals {
		out[i] = float32(v)
	}
	return out, nil
}

// scalar extracts a scalar field as a one-element float32 vector, the
// shape the emitted schema uses for gripper values.
func scalar(rec trajlog.Record, path ...string) ([]float32, error) {
	v, ok := rec.Float(path...)
	if !ok {
		return nil, fmt.Errorf("missing field %s", strings.Join(path, "/"))
	}
	return []float32{float32(v)}, nil
}
