package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// JobStatus represents the lifecycle stage of a lesson processing job.
// A job moves forward through the pipeline stages and terminates in
// either JobStatusCompleted or JobStatusError.
type JobStatus string

const (
	JobStatusPending      JobStatus = "pending"
	JobStatusDownloading  JobStatus = "downloading"
	JobStatusSplitting    JobStatus = "splitting"
	JobStatusTranscribing JobStatus = "transcribing"
	JobStatusSummarizing  JobStatus = "summarizing"
	JobStatusTagging      JobStatus = "tagging"
	JobStatusCompleted    JobStatus = "completed"
	JobStatusError        JobStatus = "error"
)

// Terminal reports whether the status ends the job lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// JobIDPrefix is the canonical prefix of normalized job identifiers.
// Records created before the prefix convention may still carry bare
// ids, so lookups try both forms.
const JobIDPrefix = "job_"

// NormalizeJobID returns id with the canonical prefix applied.
func NormalizeJobID(id string) string {
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, JobIDPrefix) {
		return id
	}
	return JobIDPrefix + id
}

// BareJobID returns id with the canonical prefix stripped.
func BareJobID(id string) string {
	return strings.TrimPrefix(id, JobIDPrefix)
}

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// Job represents a lesson audio processing job and its accumulated
// results. Progress moves monotonically from 0 to 100 as the pipeline
// advances; results written at earlier checkpoints survive a later
// failure.
type Job struct {
	ID                 string      `gorm:"type:text;primaryKey" json:"id"`
	JobID              string      `gorm:"type:text;index:idx_jobs_job_id" json:"job_id"`
	OwnerID            string      `gorm:"type:text;index:idx_jobs_owner" json:"owner_id"`
	SourceURL          string      `gorm:"type:text" json:"source_url"`
	Category           string      `gorm:"type:text;default:unknown" json:"category"`
	CustomInstructions string      `json:"custom_instructions,omitempty"`
	Status             JobStatus   `gorm:"type:text;index:idx_jobs_status;default:pending" json:"status"`
	Progress           int         `gorm:"default:0" json:"progress"`
	ProcessingMessage  string      `json:"processing_message,omitempty"`
	Transcription      string      `json:"transcription,omitempty"`
	TranscriptionID    string      `json:"transcription_id,omitempty"`
	Summary            string      `json:"summary,omitempty"`
	Tags               StringArray `gorm:"type:text" json:"tags"`
	AudioDuration      int         `json:"audio_duration,omitempty"`
	AudioSizeMB        float64     `gorm:"column:audio_size_mb" json:"audio_size_mb,omitempty"`
	Error              string      `json:"error,omitempty"`
	ErrorKind          string      `json:"error_kind,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Job.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Job) TableName() string {
	return "jobs"
}
