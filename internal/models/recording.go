package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Recording is an uploaded audio or video file owned by one user.
// JobID and ResultURL are set together when a transcription has been
// requested; Result holds the provider payload verbatim once fetched.
type Recording struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	FilePath  string          `json:"filePath"`
	UserID    uuid.UUID       `json:"userId"`
	JobID     string          `json:"gladiaId,omitempty"`
	ResultURL string          `json:"gladiaResultUrl,omitempty"`
	Result    json.RawMessage `json:"transcriptionResult,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`

	// Owner is populated on reads that join the users table.
	Owner *Owner `json:"user,omitempty"`
}

// ListItem is Recording without the raw transcription payload, used by
// the paginated listing.
type ListItem struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	FilePath  string    `json:"filePath"`
	JobID     string    `json:"gladiaId,omitempty"`
	ResultURL string    `json:"gladiaResultUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Owner     Owner     `json:"user"`
}
