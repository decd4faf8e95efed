package db

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserSession struct {
	tx *gorm.DB
}

// CreateUser — upsert по user_id, возвращает строку из БД
func (s *UserSession) CreateUser(userID int64, fullName string, username *string) (*User, error) {
	user := User{UserID: userID, FullName: fullName, Username: username}
	err := s.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "full_name", "updated_at"}),
	}).Create(&user).Error
	if err != nil {
		return nil, fmt.Errorf("upsert user %d: %w", userID, err)
	}
	var stored User
	if err := s.tx.First(&stored, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	return &stored, nil
}

func (s *UserSession) Count() (int64, error) {
	var count int64
	err := s.tx.Model(&User{}).Count(&count).Error
	return count, err
}

// ListIDs возвращает Telegram ID всех пользователей (для рассылки)
func (s *UserSession) ListIDs() ([]int64, error) {
	var ids []int64
	err := s.tx.Model(&User{}).Order("user_id").Pluck("user_id", &ids).Error
	return ids, err
}
