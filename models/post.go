package models

import (
	"fmt"
	"time"
)

// Post is an uploaded image together with its metadata and reaction counters.
type Post struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)" firestore:"-"`
	Name          string    `json:"name" gorm:"size:100;not null" firestore:"name"`
	Category      Category  `json:"category" gorm:"size:32;not null;index" firestore:"category"`
	Author        string    `json:"author" gorm:"size:100" firestore:"author"`
	Description   string    `json:"description" gorm:"size:1000" firestore:"description"`
	Uploader      string    `json:"uploader" gorm:"size:255;not null;index" firestore:"uploader"`
	URL           string    `json:"url" gorm:"not null" firestore:"url"`
	ThumbnailURL  string    `json:"thumbnail_url" firestore:"thumbnailUrl"`
	StoragePath   string    `json:"-" firestore:"storagePath"`
	ThumbnailPath string    `json:"-" firestore:"thumbnailPath"`
	Likes         int       `json:"likes" gorm:"not null;default:0" firestore:"likes"`
	Dislikes      int       `json:"dislikes" gorm:"not null;default:0" firestore:"dislikes"`
	CreatedAt     time.Time `json:"created_at" firestore:"timestamp,serverTimestamp"`
}

func (Post) TableName() string {
	return "images"
}

// Validate checks the shape of a post read back from a store.
func (p *Post) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("post has no id")
	}
	if !p.Category.Valid() {
		return fmt.Errorf("post %s has unknown category %q", p.ID, p.Category)
	}
	if p.Uploader == "" {
		return fmt.Errorf("post %s has no uploader", p.ID)
	}
	if p.Likes < 0 || p.Dislikes < 0 {
		return fmt.Errorf("post %s has negative counters (likes=%d, dislikes=%d)", p.ID, p.Likes, p.Dislikes)
	}
	return nil
}

// PostDetails holds the metadata fields an uploader may edit after upload.
type PostDetails struct {
	Name        string   `json:"name" validate:"required,max=100" conform:"trim"`
	Category    Category `json:"category" validate:"required,category" conform:"trim,lower"`
	Author      string   `json:"author" validate:"required,max=100" conform:"trim"`
	Description string   `json:"description" validate:"max=1000" conform:"trim"`
}

// PostFilter narrows a post listing. Empty fields match everything.
type PostFilter struct {
	Category Category
	Uploader string
}

func (f PostFilter) Matches(p *Post) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Uploader != "" && p.Uploader != f.Uploader {
		return false
	}
	return true
}
