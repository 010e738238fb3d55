package model

import (
	"time"

	"github.com/google/uuid"
)

type Notebook struct {
	Id               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title            string    `gorm:"type:varchar(255);not null;default:'Untitled notebook'"`
	Description      *string   `gorm:"type:text"`
	UserId           uuid.UUID `gorm:"type:uuid;not null;index"`
	GenerationStatus string    `gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

func (Notebook) TableName() string {
	return "notebooks"
}
