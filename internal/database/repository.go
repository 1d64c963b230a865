package database

import (
	"time"

	"workagent/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles all database operations for the delivery journal
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// RecordDelivery inserts the outcome of one submission attempt
func (r *Repository) RecordDelivery(d *models.Delivery) error {
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now()
	}
	result := r.db.Create(d)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert delivery")
	}
	return nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// GetRecentDeliveries returns the newest deliveries first
func (r *Repository) GetRecentDeliveries(limit int) ([]*models.Delivery, error) {
	var deliveries []*models.Delivery
	result := r.db.Order("timestamp DESC").Order("id DESC").Limit(limit).Find(&deliveries)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query deliveries")
	}
	return deliveries, nil
}

// GetLatestDelivery retrieves the most recent delivery of a kind, nil if none
func (r *Repository) GetLatestDelivery(kind string) (*models.Delivery, error) {
	var d models.Delivery
	result := r.db.Where("kind = ?", kind).Order("timestamp DESC").Order("id DESC").First(&d)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest delivery")
	}
	return &d, nil
}

// GetDeliverySummarySince aggregates deliveries per kind
// Uses SQL SUM for efficiency - runtime derives the remaining fields
func (r *Repository) GetDeliverySummarySince(since time.Time) ([]models.DeliverySummary, error) {
	var summaries []models.DeliverySummary

	result := r.db.Model(&models.Delivery{}).
		Select("kind, COUNT(*) as attempts, SUM(CASE WHEN success THEN 1 ELSE 0 END) as successes, SUM(bytes) as bytes").
		Where("timestamp >= ?", since).
		Group("kind").
		Order("kind ASC").
		Scan(&summaries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query delivery summary")
	}

	for i := range summaries {
		summaries[i].Failures = summaries[i].Attempts - summaries[i].Successes
	}

	return summaries, nil
}

// GetErrorLogsSince returns error logs newer than since, oldest first
func (r *Repository) GetErrorLogsSince(since time.Time) ([]*models.ErrorLog, error) {
	var logs []*models.ErrorLog
	result := r.db.Where("timestamp >= ?", since).Order("timestamp ASC").Find(&logs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error logs")
	}
	return logs, nil
}

// DeleteOlderThan removes deliveries and error logs older than before
func (r *Repository) DeleteOlderThan(before time.Time) (int64, error) {
	var total int64

	result := r.db.Unscoped().Where("timestamp < ?", before).Delete(&models.Delivery{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old deliveries")
	}
	total += result.RowsAffected

	result = r.db.Unscoped().Where("timestamp < ?", before).Delete(&models.ErrorLog{})
	if result.Error != nil {
		return total, errors.Wrap(result.Error, "failed to delete old error logs")
	}
	total += result.RowsAffected

	return total, nil
}

// Clear removes all journal rows from the database
func (r *Repository) Clear() error {
	if result := r.db.Exec("DELETE FROM deliveries"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear deliveries")
	}
	if result := r.db.Exec("DELETE FROM error_logs"); result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear error logs")
	}
	return nil
}
