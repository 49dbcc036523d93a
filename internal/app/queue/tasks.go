// Package queue is the redis-backed job queue used when processing runs
// in separate worker processes.
package queue

// Task type names routed through asynq.
const (
	TypeTranscriptionProcess = "transcription:process"
	TypeExportRegenerate     = "export:regenerate"
)

// TranscriptionProcessPayload identifies the job a worker should drive
// to a terminal state.
type TranscriptionProcessPayload struct {
	JobID string `json:"job_id"`
}

// ExportRegeneratePayload asks a worker to re-render the artifacts of a
// completed job.
type ExportRegeneratePayload struct {
	JobID string `json:"job_id"`
}
