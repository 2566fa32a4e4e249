package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Book struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	Title         string          `gorm:"type:varchar(200);not null;index" json:"title"`
	Author        string          `gorm:"type:varchar(100);not null;index" json:"author"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	ISBN          string          `gorm:"column:isbn;type:varchar(13);not null;uniqueIndex:idx_books_isbn_active,where:deleted_at IS NULL" json:"isbn"`
	Genre         string          `gorm:"type:varchar(50);index" json:"genre"`
	PublishedDate *DateOnly       `gorm:"type:date" json:"published_date"`
	StockQuantity int             `gorm:"not null;default:0;check:stock_quantity >= 0" json:"stock_quantity"`
	CoverImage    string          `gorm:"type:varchar(500)" json:"cover_image"`
	UserID        uint            `gorm:"not null;index" json:"-"` // owner (creator)
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`

	// computed on read, null when the book has no reviews
	AverageRating *float64 `gorm:"-" json:"average_rating"`

	Owner *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Book) TableName() string {
	return "books"
}

// MarshalJSON nests the owner under "user".
func (b Book) MarshalJSON() ([]byte, error) {
	type book Book
	return json.Marshal(struct {
		book
		User *UserSummary `json:"user"`
	}{book(b), summarize(b.UserID, b.Owner)})
}

// Subtotal is price × quantity.
func (b *Book) Subtotal(quantity int) decimal.Decimal {
	return b.Price.Mul(decimal.NewFromInt(int64(quantity)))
}
