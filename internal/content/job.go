package content

import "time"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// VideoJob tracks one asynchronous video generation. The HTTP layer
// only enqueues and polls it; the worker owns the provider operation.
type VideoJob struct {
	ID string `gorm:"primaryKey;size:26" json:"id"` // ULID length

	UserID string `gorm:"type:varchar(36);index;not null" json:"user_id"`

	Prompt    string `gorm:"type:text;not null" json:"prompt"`
	ModelUsed string `gorm:"type:varchar(100);not null" json:"model_used"`
	Ratio     string `gorm:"type:varchar(20)" json:"ratio"`

	Status JobStatus `gorm:"type:varchar(16);index;not null" json:"status"`

	// Filled when succeeded.
	ResultContentID *string `gorm:"type:varchar(36);index" json:"result_content_id"`

	// Filled when failed.
	Error *string `gorm:"type:text" json:"error"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (VideoJob) TableName() string { return "video_jobs" }
