package model

import "time"

type User struct {
	Id        string    `gorm:"primaryKey"`
	Email     string    `gorm:"uniqueIndex"`
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string {
	return "app_user"
}
