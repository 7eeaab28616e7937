package models

import (
	"time"

	"github.com/google/uuid"
)

func (r *PostgresRepository) CreateMembership(m *Membership) error {
	return r.db.Create(m).Error
}

func (r *PostgresRepository) GetMembershipByID(id uuid.UUID) (*Membership, error) {
	var m Membership
	err := r.db.Preload("Client").First(&m, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &m, nil
}

// GetCurrentMembership returns the most recently created membership for a
// client, whatever its derived status.
func (r *PostgresRepository) GetCurrentMembership(clientID uuid.UUID) (*Membership, error) {
	var m Membership
	err := r.db.Where("client_id = ?", clientID).Order("created_at DESC").First(&m).Error
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &m, nil
}

func (r *PostgresRepository) ListClientMemberships(clientID uuid.UUID) ([]Membership, error) {
	var memberships []Membership
	err := r.db.Where("client_id = ?", clientID).Order("created_at DESC").Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *PostgresRepository) FindOverlappingMembership(clientID uuid.UUID, startsOn, endsOn time.Time, excludeID uuid.UUID) (*Membership, error) {
	q := r.db.Where("client_id = ? AND starts_on <= ? AND ends_on >= ?",
		clientID, asDate(endsOn), asDate(startsOn))
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}

	var m Membership
	if err := q.First(&m).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &m, nil
}

func (r *PostgresRepository) UpdateMembership(m *Membership) error {
	return r.db.Save(m).Error
}

func (r *PostgresRepository) DeleteMembership(id uuid.UUID) error {
	res := r.db.Delete(&Membership{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListMembershipsByStatus(status string, now time.Time, limit, offset int) ([]Membership, int64, error) {
	today := asDate(now)
	q := r.db.Model(&Membership{})
	order := "ends_on"

	switch status {
	case StatusActive:
		q = q.Where("starts_on <= ? AND ends_on >= ?", today, today)
	case StatusExpired:
		q = q.Where("ends_on < ?", today)
	case StatusPending:
		q = q.Where("starts_on > ?", today)
		order = "starts_on"
	default:
		return nil, 0, ErrNotFound
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var memberships []Membership
	err := q.Preload("Client").Order(order).Limit(limit).Offset(offset).Find(&memberships).Error
	if err != nil {
		return nil, 0, err
	}
	return memberships, total, nil
}

// ListExpiringMemberships returns not-yet-expired memberships ending within
// the given window, soonest first.
func (r *PostgresRepository) ListExpiringMemberships(now time.Time, days int, planCodes []string) ([]Membership, error) {
	cutoff := now.AddDate(0, 0, days)
	q := r.db.Where("ends_on <= ? AND ends_on >= ?", asDate(cutoff), asDate(now))
	if len(planCodes) > 0 {
		q = q.Where("plan_code IN ?", planCodes)
	}

	var memberships []Membership
	err := q.Preload("Client").Order("ends_on").Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *PostgresRepository) MembershipStats(now time.Time) (*MembershipStats, error) {
	today := asDate(now)
	stats := &MembershipStats{Plans: map[string]int64{}}

	counts := []struct {
		dst  *int64
		cond string
		args []interface{}
	}{
		{&stats.TotalActive, "starts_on <= ? AND ends_on >= ?", []interface{}{today, today}},
		{&stats.TotalExpired, "ends_on < ?", []interface{}{today}},
		{&stats.TotalPending, "starts_on > ?", []interface{}{today}},
		{&stats.Expiring30Days, "ends_on >= ? AND ends_on <= ?", []interface{}{today, asDate(now.AddDate(0, 0, 30))}},
		{&stats.Expiring7Days, "ends_on >= ? AND ends_on <= ?", []interface{}{today, asDate(now.AddDate(0, 0, 7))}},
	}
	for _, c := range counts {
		if err := r.db.Model(&Membership{}).Where(c.cond, c.args...).Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	rows, err := r.db.Model(&Membership{}).
		Select("plan_code, COUNT(id) AS count").
		Where("starts_on <= ? AND ends_on >= ?", today, today).
		Group("plan_code").Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var plan string
		var count int64
		if err := rows.Scan(&plan, &count); err != nil {
			return nil, err
		}
		stats.Plans[plan] = count
	}
	return stats, rows.Err()
}
