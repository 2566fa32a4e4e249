package model

import (
	"encoding/json"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is unique per (book, user).
type Review struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	BookID    uint      `gorm:"not null;uniqueIndex:idx_reviews_book_user" json:"book"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_reviews_book_user;index" json:"-"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Text      string    `gorm:"type:text" json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
	Book *Book `gorm:"foreignKey:BookID" json:"-"`
}

func (Review) TableName() string {
	return "reviews"
}

// MarshalJSON nests the author under "user".
func (r Review) MarshalJSON() ([]byte, error) {
	type review Review
	return json.Marshal(struct {
		review
		User *UserSummary `json:"user"`
	}{review(r), summarize(r.UserID, r.User)})
}
