package models

import (
	"time"

	"github.com/google/uuid"
)

func (r *PostgresRepository) CreateCheckIn(c *CheckIn) error {
	return r.db.Create(c).Error
}

func (r *PostgresRepository) GetCheckInByID(id uuid.UUID) (*CheckIn, error) {
	var c CheckIn
	err := r.db.Preload("Client").First(&c, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &c, nil
}

func (r *PostgresRepository) ListClientCheckIns(clientID uuid.UUID, limit, offset int) ([]CheckIn, error) {
	var checkins []CheckIn
	err := r.db.Preload("Client").
		Where("client_id = ?", clientID).
		Order("happened_at DESC").
		Limit(limit).Offset(offset).
		Find(&checkins).Error
	if err != nil {
		return nil, err
	}
	return checkins, nil
}

func (r *PostgresRepository) ListRecentCheckIns(limit, offset int) ([]CheckIn, error) {
	var checkins []CheckIn
	err := r.db.Preload("Client").
		Order("happened_at DESC").
		Limit(limit).Offset(offset).
		Find(&checkins).Error
	if err != nil {
		return nil, err
	}
	return checkins, nil
}

func (r *PostgresRepository) ListCheckInsByDateRange(start, end time.Time) ([]CheckIn, error) {
	// End bound is inclusive of the whole day.
	var checkins []CheckIn
	err := r.db.Preload("Client").
		Where("happened_at >= ? AND happened_at < ?", start, end.AddDate(0, 0, 1)).
		Order("happened_at DESC").
		Find(&checkins).Error
	if err != nil {
		return nil, err
	}
	return checkins, nil
}

func (r *PostgresRepository) CheckInStats(now time.Time) (*CheckInStats, error) {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	weekStart := today.AddDate(0, 0, -int((now.Weekday()+6)%7)) // Monday
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	stats := &CheckInStats{PopularStations: map[string]int64{}}

	counts := []struct {
		dst      *int64
		from     time.Time
		distinct bool
	}{
		{&stats.Today, today, false},
		{&stats.ThisWeek, weekStart, false},
		{&stats.ThisMonth, monthStart, false},
		{&stats.UniqueClientsToday, today, true},
		{&stats.UniqueClientsWeek, weekStart, true},
		{&stats.UniqueClientsMonth, monthStart, true},
	}
	for _, c := range counts {
		q := r.db.Model(&CheckIn{}).Where("happened_at >= ?", c.from)
		if c.distinct {
			q = q.Distinct("client_id")
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	rows, err := r.db.Model(&CheckIn{}).
		Select("station, COUNT(id) AS count").
		Where("happened_at >= ? AND station <> ''", monthStart).
		Group("station").
		Order("count DESC").
		Limit(10).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var station string
		var count int64
		if err := rows.Scan(&station, &count); err != nil {
			return nil, err
		}
		stats.PopularStations[station] = count
	}
	return stats, rows.Err()
}

// ListClientsWithoutCheckInSince returns clients holding an active
// membership who have not checked in since the given instant. Used by the
// mid-month reminder job.
func (r *PostgresRepository) ListClientsWithoutCheckInSince(since, now time.Time) ([]Client, error) {
	today := asDate(now)
	var clients []Client
	err := r.db.
		Joins("JOIN memberships ON memberships.client_id = clients.id AND memberships.starts_on <= ? AND memberships.ends_on >= ?", today, today).
		Where("NOT EXISTS (SELECT 1 FROM check_ins WHERE check_ins.client_id = clients.id AND check_ins.happened_at >= ?)", since).
		Distinct("clients.*").
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}
