package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the single shopping cart of a user; the unique index on user_id keeps it single.
type Cart struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items      []CartItem      `gorm:"foreignKey:CartID" json:"items"`
	TotalPrice decimal.Decimal `gorm:"-" json:"total_price"`
}

func (Cart) TableName() string {
	return "carts"
}

// ComputeTotals fills the item subtotals and the cart total from the preloaded books.
func (c *Cart) ComputeTotals() {
	if c.Items == nil {
		c.Items = []CartItem{}
	}
	total := decimal.Zero
	for i := range c.Items {
		item := &c.Items[i]
		item.TotalPrice = item.Book.Subtotal(item.Quantity)
		total = total.Add(item.TotalPrice)
	}
	c.TotalPrice = total
}

// CartItem rows are hard deleted; (cart_id, book_id) is unique so a book appears once per cart.
type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_items_cart_book" json:"-"`
	BookID    uint      `gorm:"not null;uniqueIndex:idx_cart_items_cart_book;index" json:"book_id"`
	Quantity  int       `gorm:"not null;default:1;check:quantity > 0" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Book       Book            `gorm:"foreignKey:BookID" json:"book"`
	TotalPrice decimal.Decimal `gorm:"-" json:"total_price"`
}

func (CartItem) TableName() string {
	return "cart_items"
}
