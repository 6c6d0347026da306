package models

// Reaction is one user's like/dislike state for a post. Like and Dislike
// are never both true.
type Reaction struct {
	PostID  string `json:"-" gorm:"primaryKey;type:varchar(36)" firestore:"-"`
	UserID  string `json:"-" gorm:"primaryKey;size:255" firestore:"-"`
	Like    bool   `json:"like" gorm:"column:liked;not null;default:false" firestore:"like"`
	Dislike bool   `json:"dislike" gorm:"column:disliked;not null;default:false" firestore:"dislike"`
}

func (Reaction) TableName() string {
	return "image_reactions"
}

func (r Reaction) Valid() bool {
	return !(r.Like && r.Dislike)
}

// ReactionResult is what a caller renders after a reaction: the post's
// counters and the viewer's own state.
type ReactionResult struct {
	Likes    int  `json:"likes"`
	Dislikes int  `json:"dislikes"`
	Like     bool `json:"like"`
	Dislike  bool `json:"dislike"`
}
