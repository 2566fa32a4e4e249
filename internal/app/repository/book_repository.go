package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/pkg/logger"
	"gorm.io/gorm"
)

// BookOrderFields maps the public ordering names to columns.
var BookOrderFields = map[string]string{
	"title":          "title",
	"author":         "author",
	"price":          "price",
	"published_date": "published_date",
}

// BookOrdering is one sort key; Field must be a key of BookOrderFields.
type BookOrdering struct {
	Field      string
	Descending bool
}

type BookFilter struct {
	Genre    string // exact
	Author   string // exact
	Search   string // case-insensitive over title, author, isbn, description
	Ordering []BookOrdering
	Limit    int
	Offset   int
}

type BookRepository interface {
	Create(book *model.Book) error
	FindByID(id uint) (*model.Book, error)
	FindWithFilter(filter BookFilter) ([]model.Book, int64, error)
	FindAll() ([]model.Book, error)
	FindLowStock(threshold int) ([]model.Book, error)
	Update(id uint, changes map[string]interface{}) error
	Delete(id uint) error
	DecrementStock(id uint, quantity int) (bool, error)
	AverageRatings(bookIDs []uint) (map[uint]float64, error)
	WithTx(tx *gorm.DB) BookRepository
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) WithTx(tx *gorm.DB) BookRepository {
	return &bookRepository{db: tx}
}

func (r *bookRepository) Create(book *model.Book) error {
	logger.Debug("Creating book in database", logger.Fields{
		"title":   book.Title,
		"isbn":    book.ISBN,
		"user_id": book.UserID,
	})

	if err := r.db.Omit("Owner").Create(book).Error; err != nil {
		logger.Error("Failed to create book in database", err, logger.Fields{
			"title": book.Title,
			"isbn":  book.ISBN,
		})
		return err
	}

	logger.Debug("Book created in database", logger.Fields{
		"book_id": book.ID,
	})
	return nil
}

func (r *bookRepository) FindByID(id uint) (*model.Book, error) {
	var book model.Book
	if err := r.db.Preload("Owner").First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) filtered(filter BookFilter) *gorm.DB {
	query := r.db.Model(&model.Book{})

	if filter.Genre != "" {
		query = query.Where("genre = ?", filter.Genre)
	}
	if filter.Author != "" {
		query = query.Where("author = ?", filter.Author)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"(LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR LOWER(isbn) LIKE ? OR LOWER(description) LIKE ?)",
			pattern, pattern, pattern, pattern,
		)
	}
	return query
}

func (r *bookRepository) FindWithFilter(filter BookFilter) ([]model.Book, int64, error) {
	logger.Debug("Finding books with filter in database", logger.Fields{
		"genre":  filter.Genre,
		"author": filter.Author,
		"search": filter.Search,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})

	var total int64
	if err := r.filtered(filter).Count(&total).Error; err != nil {
		logger.Error("Failed to count books in database", err)
		return nil, 0, err
	}

	query := r.filtered(filter)
	for _, o := range filter.Ordering {
		column, ok := BookOrderFields[o.Field]
		if !ok {
			return nil, 0, fmt.Errorf("unsupported ordering field %q", o.Field)
		}
		if o.Descending {
			column += " DESC"
		}
		query = query.Order(column)
	}
	query = query.Order("id")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var books []model.Book
	if err := query.Preload("Owner").Find(&books).Error; err != nil {
		logger.Error("Failed to find books with filter in database", err)
		return nil, 0, err
	}

	logger.Debug("Books found with filter in database", logger.Fields{
		"count": len(books),
		"total": total,
	})
	return books, total, nil
}

func (r *bookRepository) FindAll() ([]model.Book, error) {
	var books []model.Book
	if err := r.db.Order("id").Find(&books).Error; err != nil {
		logger.Error("Failed to find all books in database", err)
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) FindLowStock(threshold int) ([]model.Book, error) {
	var books []model.Book
	err := r.db.Where("stock_quantity <= ?", threshold).
		Order("stock_quantity").
		Order("id").
		Find(&books).Error
	if err != nil {
		logger.Error("Failed to find low stock books in database", err, logger.Fields{
			"threshold": threshold,
		})
		return nil, err
	}
	return books, nil
}

// Update writes only the given columns, so concurrent stock decrements are never
// overwritten by a stale read.
func (r *bookRepository) Update(id uint, changes map[string]interface{}) error {
	logger.Debug("Updating book in database", logger.Fields{
		"book_id": id,
		"columns": len(changes),
	})

	if len(changes) == 0 {
		return nil
	}
	changes["updated_at"] = time.Now()

	result := r.db.Model(&model.Book{}).Where("id = ?", id).Updates(changes)
	if result.Error != nil {
		logger.Error("Failed to update book in database", result.Error, logger.Fields{
			"book_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete soft deletes the book and hard deletes any cart items pointing at it.
// Order items keep referencing the soft deleted row.
func (r *bookRepository) Delete(id uint) error {
	logger.Debug("Deleting book from database", logger.Fields{
		"book_id": id,
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", id).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.Book{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to delete book from database", err, logger.Fields{
			"book_id": id,
		})
		return err
	}

	logger.Debug("Book deleted from database", logger.Fields{
		"book_id": id,
	})
	return nil
}

// DecrementStock subtracts quantity only if enough stock remains. It reports false
// when the guard rejected the update (insufficient stock or missing book).
func (r *bookRepository) DecrementStock(id uint, quantity int) (bool, error) {
	result := r.db.Model(&model.Book{}).
		Where("id = ? AND stock_quantity >= ?", id, quantity).
		Updates(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity - ?", quantity),
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		logger.Error("Failed to decrement book stock", result.Error, logger.Fields{
			"book_id":  id,
			"quantity": quantity,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// AverageRatings returns the mean rating per book; books without reviews are absent.
func (r *bookRepository) AverageRatings(bookIDs []uint) (map[uint]float64, error) {
	averages := make(map[uint]float64, len(bookIDs))
	if len(bookIDs) == 0 {
		return averages, nil
	}

	var rows []struct {
		BookID  uint
		Average float64
	}
	err := r.db.Model(&model.Review{}).
		Select("book_id, AVG(rating) AS average").
		Where("book_id IN ?", bookIDs).
		Group("book_id").
		Scan(&rows).Error
	if err != nil {
		logger.Error("Failed to compute average ratings", err, logger.Fields{
			"book_count": len(bookIDs),
		})
		return nil, err
	}

	for _, row := range rows {
		averages[row.BookID] = row.Average
	}
	return averages, nil
}
