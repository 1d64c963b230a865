package models

import (
	"time"

	"gorm.io/gorm"
)

// Delivery kinds
const (
	KindActivity   = "activity"
	KindScreenshot = "screenshot"
	KindValidation = "validation"
)

// Delivery records the outcome of one submission attempt. Payloads are
// never stored here and rows are never replayed.
type Delivery struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	RunID      string         `gorm:"not null;index;size:26" json:"run_id"`
	Kind       string         `gorm:"not null;index" json:"kind"` // "activity", "screenshot" or "validation"
	AppName    string         `json:"app_name,omitempty"`
	Status     string         `json:"status,omitempty"`
	StatusCode int            `gorm:"not null;default:0" json:"status_code"`
	Bytes      int64          `gorm:"not null;default:0" json:"bytes"`
	Success    bool           `gorm:"not null;default:false;index" json:"success"`
	ErrorMsg   string         `json:"error_msg,omitempty"`
	Timestamp  time.Time      `gorm:"not null;index" json:"timestamp"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

type DeliverySummary struct {
	Kind      string `json:"kind"`
	Attempts  int64  `json:"attempts"`
	Successes int64  `json:"successes"`
	Failures  int64  `json:"failures"`
	Bytes     int64  `json:"bytes"`
}

type HistoryPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type History struct {
	Period      HistoryPeriod     `json:"period"`
	Kinds       []DeliverySummary `json:"kinds"`
	Attempts    int64             `json:"attempts"`
	Failures    int64             `json:"failures"`
	SuccessRate float64           `json:"success_rate"`
	GeneratedAt time.Time         `json:"generated_at"`
}
