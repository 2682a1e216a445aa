package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Type discriminates GeneratedContent rows. One table, one tag, with
// nullable type-specific columns instead of subtype tables.
type Type string

const (
	TypeText  Type = "text"
	TypeImage Type = "image"
	TypeVideo Type = "video"
)

type GeneratedContent struct {
	ID          string `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string `gorm:"type:varchar(36);index;not null" json:"user_id"`
	ContentType Type   `gorm:"type:varchar(50);index;not null" json:"content_type"`
	Prompt      string `gorm:"type:text;not null" json:"prompt"`
	ModelUsed   string `gorm:"type:varchar(100);not null" json:"model_used"`
	ContentData string `gorm:"type:text" json:"content_data,omitempty"`
	FilePath    string `gorm:"type:varchar(500)" json:"file_path,omitempty"`

	// Text payload.
	Temperature *float64 `json:"temperature,omitempty"`

	// Image/video payload.
	Style string `gorm:"type:varchar(50)" json:"style,omitempty"`
	Ratio string `gorm:"type:varchar(20)" json:"ratio,omitempty"`

	// Video payload, seconds.
	Duration *int `json:"duration,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	Projects []Project `gorm:"many2many:project_content_association;" json:"-"`
}

func (GeneratedContent) TableName() string { return "generated_contents" }

func (c *GeneratedContent) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type Project struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	UserID      string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Contents []GeneratedContent `gorm:"many2many:project_content_association;" json:"contents,omitempty"`
}

func (Project) TableName() string { return "projects" }

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
