package models

import "time"

// Status is the user activity state reported with every activity record.
type Status string

const (
	StatusWorking Status = "working"
	StatusIdle    Status = "idle"
)

func (s Status) String() string {
	return string(s)
}

// ActivityRecord is the body of a single log-activity call.
type ActivityRecord struct {
	AppName         string `json:"app_name"`
	Status          Status `json:"status"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// ScreenshotBlob holds one compressed capture until its upload attempt ends.
type ScreenshotBlob struct {
	Data       []byte
	CapturedAt time.Time
}

func (b *ScreenshotBlob) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}
