package tracker

import (
	"context"

	log "github.com/sirupsen/logrus"

	"workagent/internal/models"
	"workagent/internal/reporter"
	"workagent/pkg/window"
)

// trackActivity builds one activity record and submits it. Failures are
// logged and journaled; the next attempt is the next natural tick.
func (s *Service) trackActivity(ctx context.Context) {
	start := s.clock.Now()

	status := s.watermark.Status(s.config.Tracker.IdleThreshold)

	appName, err := window.ActiveTitleErr(s.detector)
	if err != nil {
		log.WithError(err).Debug("Foreground window lookup failed")
	}

	rec := models.ActivityRecord{
		AppName:         appName,
		Status:          status,
		DurationSeconds: s.config.GetActivityIntervalSeconds(),
	}

	err = s.reporter.SendActivity(ctx, rec)

	delivery := &models.Delivery{
		Kind:       models.KindActivity,
		AppName:    rec.AppName,
		Status:     rec.Status.String(),
		StatusCode: reporter.StatusCode(err),
		Success:    err == nil,
		Timestamp:  start,
	}
	if err != nil {
		delivery.ErrorMsg = err.Error()
	}
	s.recordDelivery(delivery)

	fields := log.Fields{
		"app":     truncate(rec.AppName, 30),
		"status":  rec.Status,
		"elapsed": elapsedSince(s.clock, start),
	}
	if err != nil {
		log.WithFields(fields).WithError(err).Warn("Failed to log activity")
		return
	}
	log.WithFields(fields).Info("Activity logged")
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}
