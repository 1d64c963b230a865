package tracker

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"workagent/internal/models"
	"workagent/internal/reporter"
	"workagent/pkg/screenshot"
)

// captureScreenshot grabs, compresses and uploads one screenshot. The blob
// is dropped once the upload attempt ends, whatever its outcome.
func (s *Service) captureScreenshot(ctx context.Context) {
	start := s.clock.Now()

	img, err := s.capturer.Capture()
	if err != nil {
		s.storeError(models.KindScreenshot, errors.Wrap(err, "capture failed"))
		return
	}

	data, err := screenshot.Encode(img, s.config.Screenshot.Quality)
	if err != nil {
		s.storeError(models.KindScreenshot, err)
		return
	}

	shot := &models.ScreenshotBlob{Data: data, CapturedAt: start}
	err = s.reporter.UploadScreenshot(ctx, shot)

	delivery := &models.Delivery{
		Kind:       models.KindScreenshot,
		StatusCode: reporter.StatusCode(err),
		Bytes:      int64(shot.Size()),
		Success:    err == nil,
		Timestamp:  start,
	}
	if err != nil {
		delivery.ErrorMsg = err.Error()
	}
	s.recordDelivery(delivery)

	fields := log.Fields{
		"bytes":   shot.Size(),
		"elapsed": elapsedSince(s.clock, start),
	}
	if err != nil {
		log.WithFields(fields).WithError(err).Warn("Failed to upload screenshot")
		return
	}
	log.WithFields(fields).Info("Screenshot uploaded")
}
