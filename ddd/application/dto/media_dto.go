package dto

import "time"

// ProcessRequest is the submission payload for a new media-processing job.
type ProcessRequest struct {
	MediaURL string `json:"media_url"`
}

// ProcessResponse acknowledges an accepted submission.
type ProcessResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// InfoRequest addresses an existing job by id. The id may arrive via query
// string or JSON body.
type InfoRequest struct {
	JobID string `json:"job_id" form:"job_id"`
}

// JobInfoResponse is the job record projection served on the polling path.
type JobInfoResponse struct {
	JobID      string    `json:"job_id"`
	Status     string    `json:"status"`
	Stage      string    `json:"stage"`
	Progress   int       `json:"progress"`
	Error      string    `json:"error,omitempty"`
	Conversion string    `json:"conversion,omitempty"`
	Clips      []string  `json:"clips,omitempty"`
	Thumbnails []string  `json:"thumbnails,omitempty"`
	Subtitles  []string  `json:"subtitles,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CancelResponse reports the record state after a cancellation.
type CancelResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Stage  string `json:"stage"`
}
