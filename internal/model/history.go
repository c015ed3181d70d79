package model

import (
	"time"

	"gorm.io/gorm"
)

// History is one processed worker report.
type History struct {
	gorm.Model
	Src        string `gorm:"not null;index"`
	Dst        string `gorm:"not null"`
	File       string `gorm:"not null"`
	Operation  string `gorm:"not null"`
	Status     string `gorm:"not null"`
	Details    string
	ErrorCount int
	WorkerPID  int
	FinishedAt time.Time `gorm:"not null"`
}
