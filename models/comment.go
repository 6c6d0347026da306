package models

import "time"

// Comment is an append-only entry in a post's comment thread. Timestamp is
// assigned by the store when the comment is committed.
type Comment struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" firestore:"-"`
	PostID    string    `json:"post_id" gorm:"type:varchar(36);not null;index:idx_comment_thread,priority:1" firestore:"-"`
	Seq       int64     `json:"-" gorm:"autoIncrement;not null;index:idx_comment_thread,priority:3" firestore:"-"`
	Author    string    `json:"author" gorm:"size:255;not null" firestore:"author"`
	Text      string    `json:"text" gorm:"size:2000;not null" firestore:"text"`
	Timestamp time.Time `json:"timestamp" gorm:"column:posted_at;type:timestamptz;not null;default:now();index:idx_comment_thread,priority:2" firestore:"timestamp,serverTimestamp"`
}

func (Comment) TableName() string {
	return "image_comments"
}
