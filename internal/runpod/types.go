// Package runpod provides an HTTP client for the RunPod lip-sync service used
// to render the presenter avatar for a scene from a portrait and its narration.
package runpod

// Status is the lifecycle state RunPod reports for a serverless job.
type Status string

const (
	StatusInQueue    Status = "IN_QUEUE"
	StatusRunning    Status = "RUNNING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
	StatusTimedOut   Status = "TIMED_OUT"
)

// IsTerminal reports whether the job will not change state again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled || s == StatusTimedOut
}

// SubmitOptions tunes the lip-sync render. Empty fields take the value from
// DefaultSubmitOptions.
type SubmitOptions struct {
	Prompt      string
	Width       int
	Height      int
	InputType   string // "image" renders from a still portrait
	PersonCount string
}

// DefaultSubmitOptions returns the settings used for the news presenter.
func DefaultSubmitOptions() SubmitOptions {
	return SubmitOptions{
		Prompt:      "news presenter, high quality, realistic, speaking naturally",
		Width:       512,
		Height:      512,
		InputType:   "image",
		PersonCount: "single",
	}
}

func (o SubmitOptions) withDefaults() SubmitOptions {
	d := DefaultSubmitOptions()
	if o.Prompt == "" {
		o.Prompt = d.Prompt
	}
	if o.InputType == "" {
		o.InputType = d.InputType
	}
	if o.PersonCount == "" {
		o.PersonCount = d.PersonCount
	}
	return o
}

// PollResult is one status observation of a job.
type PollResult struct {
	Status      Status
	VideoBase64 string // set once the job completed
	Error       string // set when the job failed
}

// lipSyncInput is the worker payload wrapped in {"input": ...}.
type lipSyncInput struct {
	InputType   string `json:"input_type"`
	PersonCount string `json:"person_count"`
	Prompt      string `json:"prompt"`
	ImageBase64 string `json:"image_base64"`
	WavBase64   string `json:"wav_base64"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// job is the envelope returned by both /run and /status.
type job struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
	Output struct {
		Video string `json:"video"`
	} `json:"output"`
	Error string `json:"error"`
}
