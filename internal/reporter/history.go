package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"workagent/internal/models"
)

var ErrInvalidPeriod = errors.New("invalid period type")

// SummarySource is the journal query used to build histories.
type SummarySource interface {
	GetDeliverySummarySince(since time.Time) ([]models.DeliverySummary, error)
}

// History builds delivery histories from the local journal
type History struct {
	source SummarySource
	now    func() time.Time
}

// NewHistory creates a new history builder
func NewHistory(source SummarySource) *History {
	return &History{
		source: source,
		now:    time.Now,
	}
}

// Generate builds the history for the specified period
func (h *History) Generate(periodType string) (*models.History, error) {
	period, err := GetPeriod(periodType, h.now())
	if err != nil {
		return nil, err
	}

	// Get raw summaries from database (SQL does the SUM)
	summaries, err := h.source.GetDeliverySummarySince(period.Start)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get delivery summary")
	}

	var attempts, failures int64
	for _, s := range summaries {
		attempts += s.Attempts
		failures += s.Failures
	}

	history := &models.History{
		Period:      *period,
		Kinds:       summaries,
		Attempts:    attempts,
		Failures:    failures,
		GeneratedAt: h.now(),
	}
	if attempts > 0 {
		history.SuccessRate = float64(attempts-failures) / float64(attempts) * 100.0
	}

	return history, nil
}

// GetPeriod calculates the time range for a history period
func GetPeriod(periodType string, now time.Time) (*models.HistoryPeriod, error) {
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 0, 1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, errors.Wrapf(ErrInvalidPeriod, "%q (valid: day, week, month)", periodType)
	}

	return &models.HistoryPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatHistoryText formats the history as human-readable text
func FormatHistoryText(history *models.History) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Delivery History - %s\n", history.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n",
		history.Period.Start.Format("2006-01-02 15:04"),
		history.Period.End.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Attempts: %d (%d failed, %.1f%% delivered)\n\n",
		history.Attempts, history.Failures, history.SuccessRate)

	if len(history.Kinds) == 0 {
		b.WriteString("No deliveries recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-14s %10s %10s %10s %12s\n", "Kind", "Attempts", "Delivered", "Failed", "Uploaded")
	b.WriteString(strings.Repeat("-", 60) + "\n")

	for _, k := range history.Kinds {
		uploaded := "-"
		if k.Bytes > 0 {
			uploaded = humanize.Bytes(uint64(k.Bytes))
		}
		fmt.Fprintf(&b, "%-14s %10d %10d %10d %12s\n",
			truncate(k.Kind, 14),
			k.Attempts,
			k.Successes,
			k.Failures,
			uploaded)
	}

	return b.String()
}

// FormatHistoryJSON formats the history as JSON
func FormatHistoryJSON(history *models.History) (string, error) {
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}

// FormatDeliveryLine renders one journal row for listings
func FormatDeliveryLine(d *models.Delivery, now time.Time) string {
	outcome := "ok"
	if !d.Success {
		outcome = "failed"
		if d.StatusCode > 0 {
			outcome = fmt.Sprintf("failed (%d)", d.StatusCode)
		}
	}

	detail := ""
	switch d.Kind {
	case models.KindActivity, models.KindValidation:
		detail = fmt.Sprintf("%s (%s)", truncate(d.AppName, 30), d.Status)
	case models.KindScreenshot:
		if d.Bytes > 0 {
			detail = humanize.Bytes(uint64(d.Bytes))
		}
	}

	return fmt.Sprintf("%-16s %-11s %-14s %s",
		humanize.RelTime(d.Timestamp, now, "ago", "from now"),
		d.Kind,
		outcome,
		detail)
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
