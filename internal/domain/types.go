package domain

// BatchStatus tracks the lifecycle of one batch run.
type BatchStatus string

const (
	BatchStatusIdle      BatchStatus = "idle"
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusDone      BatchStatus = "done"
	BatchStatusFailed    BatchStatus = "failed"
	BatchStatusCancelled BatchStatus = "cancelled"
)

// Settings contains user-selectable runtime configuration.
type Settings struct {
	InputDir        string            `json:"inputDir" yaml:"inputDir,omitempty"`
	OutputDir       string            `json:"outputDir" yaml:"outputDir,omitempty"`
	Transformations []string          `json:"transformations" yaml:"transformations,omitempty"`
	Topology        string            `json:"topology" yaml:"topology,omitempty"`
	Workers         int               `json:"workers" yaml:"workers,omitempty"`
	CancelMode      string            `json:"cancelMode" yaml:"cancelMode,omitempty"`
	FFmpegPath      string            `json:"ffmpegPath" yaml:"ffmpegPath,omitempty"`
	FFprobePath     string            `json:"ffprobePath" yaml:"ffprobePath,omitempty"`
	Params          map[string]any    `json:"params,omitempty" yaml:"params,omitempty"`
	Materials       map[string]string `json:"materials,omitempty" yaml:"materials,omitempty"`
	PresetPath      string            `json:"presetPath,omitempty" yaml:"-"`
}

// Batch stores the current batch identity and lifecycle status.
type Batch struct {
	ID       string      `json:"id"`
	Status   BatchStatus `json:"status"`
	Total    int         `json:"total"`
	Files    int         `json:"files"`
	Progress float64     `json:"progress"`
}
