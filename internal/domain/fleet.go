package domain

import "time"

type Vehicle struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Name            string    `json:"name" gorm:"size:128"`
	LicensePlate    string    `json:"license_plate" gorm:"size:16;index"`
	DefaultDriverID *uint     `json:"default_driver_id,omitempty"`
	Active          bool      `json:"active" gorm:"default:true"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Driver struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:128"`
	Document  string    `json:"document,omitempty" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
