package model

import "time"

type ClassType struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	MaxCapacity     int       `json:"max_capacity"`
	Price           int       `json:"price"`
	Color           string    `json:"color"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}
