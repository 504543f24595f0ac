package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Processing states of a generated coloring page.
const (
	ColoringStatusPending    = "pending"
	ColoringStatusProcessing = "processing"
	ColoringStatusCompleted  = "completed"
	ColoringStatusFailed     = "failed"
)

// ColoringPage is a line-art page generated from a user's photo.
type ColoringPage struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UUID          string         `gorm:"type:char(36);uniqueIndex" json:"uuid"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	User          *User          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ThemeID       string         `gorm:"type:varchar(64);index" json:"theme_id"`
	Title         string         `gorm:"type:varchar(150)" json:"title"`
	Detail        string         `gorm:"type:varchar(16);not null;default:'medium'" json:"detail"`
	Status        string         `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	ShareSlug     string         `gorm:"type:varchar(16);uniqueIndex" json:"share_slug"`
	OriginalPath  string         `gorm:"type:varchar(255)" json:"-"`
	LineArtPath   string         `gorm:"type:varchar(255)" json:"line_art_path"`
	PreviewPath   string         `gorm:"type:varchar(255)" json:"preview_path"`
	ThumbnailPath string         `gorm:"type:varchar(255)" json:"thumbnail_path"`
	Width         int            `json:"width"`
	Height        int            `json:"height"`
	DownloadCount int            `gorm:"default:0" json:"download_count"`
	ErrorMessage  string         `gorm:"type:text" json:"-"`
	MirroredAt    *time.Time     `gorm:"type:timestamp;default:null" json:"mirrored_at,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a UUID when none was set.
func (p *ColoringPage) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == "" {
		p.UUID = uuid.NewString()
	}
	return nil
}

// IsReady reports whether the generated files can be shown.
func (p *ColoringPage) IsReady() bool {
	return p.Status == ColoringStatusCompleted && p.LineArtPath != ""
}

// FindColoringPageByUUID loads a page by its public UUID.
func FindColoringPageByUUID(db *gorm.DB, pageUUID string) (*ColoringPage, error) {
	var page ColoringPage
	if err := db.Where("uuid = ?", pageUUID).First(&page).Error; err != nil {
		return nil, err
	}
	return &page, nil
}

// FindColoringPageBySlug loads a page by its share slug.
func FindColoringPageBySlug(db *gorm.DB, slug string) (*ColoringPage, error) {
	var page ColoringPage
	if err := db.Where("share_slug = ?", slug).First(&page).Error; err != nil {
		return nil, err
	}
	return &page, nil
}
