package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smart-thermostat/backend/internal/storage/models"
)

// StatisticsRepository provides data access for daily usage statistics.
// Samples accumulate into one row per property and day.
type StatisticsRepository struct {
	BaseRepository
}

// NewStatisticsRepository creates a new statistics repository.
func NewStatisticsRepository(db *DB) *StatisticsRepository {
	return &StatisticsRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// statDate is the stored representation of the date column. Dates are UTC
// days so that range filters compare lexically.
const statDate = "2006-01-02"

// classifySample buckets an observed mode into the daily counters. A mixed
// mode such as heatcool counts as heating.
func classifySample(mode string) (heating, cooling, idle int) {
	m := strings.ToLower(mode)
	switch {
	case strings.Contains(m, "heat"):
		return 1, 0, 0
	case strings.Contains(m, "cool"):
		return 0, 1, 0
	default:
		return 0, 0, 1
	}
}

// RecordSample folds one status observation into the property's row for the
// current UTC day, creating it when absent.
func (r *StatisticsRepository) RecordSample(ctx context.Context, propertyID, mode string, temperature, humidity *float64) error {
	now := r.Now()
	heating, cooling, idle := classifySample(mode)

	tempSum, tempSamples := 0.0, 0
	if temperature != nil {
		tempSum, tempSamples = *temperature, 1
	}
	humSum, humSamples := 0.0, 0
	if humidity != nil {
		humSum, humSamples = *humidity, 1
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO usage_statistics (
			id, property_id, date, sample_count,
			heating_samples, cooling_samples, idle_samples,
			temperature_sum, temperature_samples, humidity_sum, humidity_samples,
			created_at, updated_at
		) VALUES (?, ?, ?, 1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(property_id, date) DO UPDATE SET
			sample_count        = sample_count + 1,
			heating_samples     = heating_samples + excluded.heating_samples,
			cooling_samples     = cooling_samples + excluded.cooling_samples,
			idle_samples        = idle_samples + excluded.idle_samples,
			temperature_sum     = temperature_sum + excluded.temperature_sum,
			temperature_samples = temperature_samples + excluded.temperature_samples,
			humidity_sum        = humidity_sum + excluded.humidity_sum,
			humidity_samples    = humidity_samples + excluded.humidity_samples,
			updated_at          = excluded.updated_at
	`,
		GenerateID(), propertyID, now.Format(statDate),
		heating, cooling, idle,
		tempSum, tempSamples, humSum, humSamples,
		now, now,
	)

	if err != nil {
		return fmt.Errorf("recording usage sample: %w", err)
	}

	return nil
}

const statisticsColumns = `id, property_id, date, sample_count,
	heating_samples, cooling_samples, idle_samples,
	CASE WHEN temperature_samples > 0 THEN temperature_sum / temperature_samples END,
	CASE WHEN humidity_samples > 0 THEN humidity_sum / humidity_samples END,
	created_at, updated_at`

func (r *StatisticsRepository) query(ctx context.Context, where string, args ...any) ([]models.UsageStatistics, error) {
	rows, err := r.DB().QueryContext(ctx,
		"SELECT "+statisticsColumns+" FROM usage_statistics "+where+" ORDER BY date DESC, property_id",
		args...)
	if err != nil {
		return nil, fmt.Errorf("querying usage statistics: %w", err)
	}
	defer rows.Close()

	var stats []models.UsageStatistics
	for rows.Next() {
		var s models.UsageStatistics
		if err := rows.Scan(
			&s.ID, &s.PropertyID, &s.Date, &s.SampleCount,
			&s.HeatingSamples, &s.CoolingSamples, &s.IdleSamples,
			&s.AverageTemperature, &s.AverageHumidity,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning usage statistics: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// ListByProperty returns the property's daily rows, newest first, optionally
// restricted to days at or after since.
func (r *StatisticsRepository) ListByProperty(ctx context.Context, propertyID string, since *time.Time) ([]models.UsageStatistics, error) {
	if since == nil {
		return r.query(ctx, "WHERE property_id = ?", propertyID)
	}
	return r.query(ctx, "WHERE property_id = ? AND date >= ?", propertyID, since.UTC().Format(statDate))
}

// List returns daily rows across all properties, newest first, optionally
// restricted to days at or after since.
func (r *StatisticsRepository) List(ctx context.Context, since *time.Time) ([]models.UsageStatistics, error) {
	if since == nil {
		return r.query(ctx, "")
	}
	return r.query(ctx, "WHERE date >= ?", since.UTC().Format(statDate))
}
