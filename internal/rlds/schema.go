// Package rlds encodes assembled episodes into the emitted dataset record
// schema consumed by the downstream dataset writer.
package rlds

// Observation is the per-step observation. Images are JPEG-encoded at the
// target resolution: RGB streams as 3-channel, depth streams as
// single-channel grayscale.
type Observation struct {
	WristImage       []byte    `json:"wrist_image,omitempty"`
	WristDepthImage  []byte    `json:"wrist_depth_image,omitempty"`
	StaticImage      []byte    `json:"static_image,omitempty"`
	StaticDepthImage []byte    `json:"static_depth_image,omitempty"`
	CartesianPosition []float32 `json:"cartesian_position"`
	JointPosition     []float32 `json:"joint_position"`
	GripperPosition   []float32 `json:"gripper_position"`

	// CameraTimestamps passes through the per-camera capture timestamps
	// when the log records them.
	CameraTimestamps map[string]float64 `json:"camera_timestamps,omitempty"`
}

// ActionDict holds the commanded robot action in all recorded spaces.
type ActionDict struct {
	CartesianPosition []float32 `json:"cartesian_position"`
	CartesianVelocity []float32 `json:"cartesian_velocity"`
	GripperPosition   []float32 `json:"gripper_position"`
	GripperVelocity   []float32 `json:"gripper_velocity"`
	JointPosition     []float32 `json:"joint_position"`
	JointVelocity     []float32 `json:"joint_velocity"`
}

// Step is one emitted timestep.
type Step struct {
	Observation Observation `json:"observation"`
	ActionDict  ActionDict  `json:"action_dict"`

	// Action is the policy-facing action vector: commanded Cartesian
	// velocity followed by commanded gripper velocity.
	Action []float32 `json:"action"`

	Discount            float32 `json:"discount"`
	Reward              float32 `json:"reward"`
	IsFirst             bool    `json:"is_first"`
	IsLast              bool    `json:"is_last"`
	IsTerminal          bool    `json:"is_terminal"`
	LanguageInstruction string  `json:"language_instruction"`
}

// EpisodeMetadata locates the source data of an emitted episode.
type EpisodeMetadata struct {
	FilePath            string `json:"file_path"`
	RecordingFolderpath string `json:"recording_folderpath"`
}

// EpisodeRecord is one emitted episode.
type EpisodeRecord struct {
	Steps           []Step          `json:"steps"`
	EpisodeMetadata EpisodeMetadata `json:"episode_metadata"`
}
