package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

func (r *PostgresRepository) CreateGgleapLink(link *GgleapLink) error {
	return r.db.Create(link).Error
}

func (r *PostgresRepository) GetGgleapLink(clientID uuid.UUID) (*GgleapLink, error) {
	var link GgleapLink
	if err := r.db.Where("client_id = ?", clientID).First(&link).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &link, nil
}

func (r *PostgresRepository) DeleteGgleapLink(clientID uuid.UUID) error {
	res := r.db.Where("client_id = ?", clientID).Delete(&GgleapLink{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListGgleapLinks() ([]GgleapLink, error) {
	var links []GgleapLink
	if err := r.db.Order("created_at").Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (r *PostgresRepository) GetGgleapGroup(mapKey string) (*GgleapGroup, error) {
	var group GgleapGroup
	if err := r.db.Where("map_key = ?", mapKey).First(&group).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &group, nil
}

func (r *PostgresRepository) UpsertGgleapGroup(group *GgleapGroup) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "map_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"ggleap_group_id", "group_name", "updated_at"}),
	}).Create(group).Error
}
