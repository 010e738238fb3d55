package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Source struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NotebookId       uuid.UUID      `gorm:"type:uuid;not null;index"`
	Type             string         `gorm:"type:varchar(20);not null"`
	Title            string         `gorm:"type:varchar(255);not null"`
	Content          *string        `gorm:"type:text"`
	Url              *string        `gorm:"type:text"`
	FilePath         *string        `gorm:"type:text"`
	FileSize         *int64         `gorm:"type:bigint"`
	ProcessingStatus *string        `gorm:"type:varchar(50)"`
	Metadata         datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
	CreatedAt        time.Time      `gorm:"autoCreateTime;index"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`

	Notebook *Notebook `gorm:"foreignKey:NotebookId;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (Source) TableName() string {
	return "sources"
}
