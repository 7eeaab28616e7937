package models

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *PostgresRepository) CreateUser(u *User) error {
	var existing User
	err := r.db.Where("email = ?", u.Email).First(&existing).Error
	if err == nil {
		return ErrDuplicate
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.Create(u).Error
}

func (r *PostgresRepository) GetUserByID(id uuid.UUID) (*User, error) {
	var u User
	if err := r.db.First(&u, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &u, nil
}

func (r *PostgresRepository) GetUserByEmail(email string) (*User, error) {
	var u User
	if err := r.db.Where("email = ?", email).First(&u).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &u, nil
}

func (r *PostgresRepository) UpdateUser(u *User) error {
	return r.db.Save(u).Error
}

// DeactivateUser soft-deletes: the account stays for audit history but can
// no longer log in.
func (r *PostgresRepository) DeactivateUser(id uuid.UUID) error {
	res := r.db.Model(&User{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListUsers() ([]User, error) {
	var users []User
	if err := r.db.Order("created_at").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *PostgresRepository) CreatePasswordResetToken(t *PasswordResetToken) error {
	return r.db.Create(t).Error
}

func (r *PostgresRepository) GetPasswordResetToken(token string) (*PasswordResetToken, error) {
	var t PasswordResetToken
	if err := r.db.Where("token = ?", token).First(&t).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &t, nil
}

func (r *PostgresRepository) UpdatePasswordResetToken(t *PasswordResetToken) error {
	return r.db.Save(t).Error
}
