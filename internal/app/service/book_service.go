package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/internal/app/repository"
	"github.com/ikkim/bookstore-backend/internal/storage"
	"github.com/ikkim/bookstore-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrBookNotFound     = errors.New("book not found")
	ErrForbidden        = errors.New("you do not have permission to perform this action")
	ErrISBNExists       = errors.New("book with this isbn already exists")
	ErrInvalidOrdering  = errors.New("invalid ordering field")
	ErrInvalidCoverType = errors.New("unsupported cover image type")
	ErrStorageDisabled  = errors.New("cover storage is not configured")
)

const coverFolder = "covers"

// CoverStorage issues presigned uploads; *storage.S3Storage implements it.
type CoverStorage interface {
	PresignUpload(ctx context.Context, filename, contentType, folder string) (*storage.PresignedURLResponse, error)
}

type BookInput struct {
	Title         string
	Author        string
	Description   string
	Price         decimal.Decimal
	ISBN          string
	Genre         string
	PublishedDate *model.DateOnly
	StockQuantity int
	CoverImage    string
}

// BookUpdate holds the fields to change; nil fields are left untouched.
type BookUpdate struct {
	Title         *string
	Author        *string
	Description   *string
	Price         *decimal.Decimal
	ISBN          *string
	Genre         *string
	PublishedDate **model.DateOnly
	StockQuantity *int
	CoverImage    *string
}

// columns maps the set fields to their column names.
func (u BookUpdate) columns() map[string]interface{} {
	changes := map[string]interface{}{}
	if u.Title != nil {
		changes["title"] = *u.Title
	}
	if u.Author != nil {
		changes["author"] = *u.Author
	}
	if u.Description != nil {
		changes["description"] = *u.Description
	}
	if u.Price != nil {
		changes["price"] = *u.Price
	}
	if u.ISBN != nil {
		changes["isbn"] = *u.ISBN
	}
	if u.Genre != nil {
		changes["genre"] = *u.Genre
	}
	if u.PublishedDate != nil {
		if date := *u.PublishedDate; date != nil {
			changes["published_date"] = *date
		} else {
			changes["published_date"] = nil
		}
	}
	if u.StockQuantity != nil {
		changes["stock_quantity"] = *u.StockQuantity
	}
	if u.CoverImage != nil {
		changes["cover_image"] = *u.CoverImage
	}
	return changes
}

type BookService interface {
	ListBooks(filter repository.BookFilter) ([]model.Book, int64, error)
	AllBooks() ([]model.Book, error)
	GetBook(id uint) (*model.Book, error)
	CreateBook(requester Requester, input BookInput) (*model.Book, error)
	ImportBooks(ownerID uint, inputs []BookInput) (int, error)
	UpdateBook(requester Requester, id uint, update BookUpdate) (*model.Book, error)
	DeleteBook(requester Requester, id uint) error
	PresignCover(ctx context.Context, requester Requester, id uint, filename, contentType string) (*storage.PresignedURLResponse, *model.Book, error)
	LowStock(threshold int) ([]model.Book, error)
}

type bookService struct {
	bookRepo repository.BookRepository
	covers   CoverStorage
}

// NewBookService builds the service. covers may be nil when S3 is not configured.
func NewBookService(bookRepo repository.BookRepository, covers CoverStorage) BookService {
	return &bookService{
		bookRepo: bookRepo,
		covers:   covers,
	}
}

// ParseOrdering turns "price,-title" into sort keys. Unknown fields are rejected.
func ParseOrdering(raw string) ([]repository.BookOrdering, error) {
	var ordering []repository.BookOrdering
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		o := repository.BookOrdering{Field: part}
		if strings.HasPrefix(part, "-") {
			o = repository.BookOrdering{Field: part[1:], Descending: true}
		}
		if _, ok := repository.BookOrderFields[o.Field]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidOrdering, o.Field)
		}
		ordering = append(ordering, o)
	}
	return ordering, nil
}

func (s *bookService) ListBooks(filter repository.BookFilter) ([]model.Book, int64, error) {
	books, total, err := s.bookRepo.FindWithFilter(filter)
	if err != nil {
		logger.Error("Failed to list books", err)
		return nil, 0, err
	}
	if err := s.attachRatings(books); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (s *bookService) AllBooks() ([]model.Book, error) {
	books, err := s.bookRepo.FindAll()
	if err != nil {
		return nil, err
	}
	if err := s.attachRatings(books); err != nil {
		return nil, err
	}
	return books, nil
}

// attachRatings fills AverageRating; books without reviews keep nil.
func (s *bookService) attachRatings(books []model.Book) error {
	ids := make([]uint, len(books))
	for i := range books {
		ids[i] = books[i].ID
	}
	averages, err := s.bookRepo.AverageRatings(ids)
	if err != nil {
		return err
	}
	for i := range books {
		if avg, ok := averages[books[i].ID]; ok {
			avg := avg
			books[i].AverageRating = &avg
		}
	}
	return nil
}

func (s *bookService) GetBook(id uint) (*model.Book, error) {
	book, err := s.findBook(id)
	if err != nil {
		return nil, err
	}
	single := []model.Book{*book}
	if err := s.attachRatings(single); err != nil {
		return nil, err
	}
	return &single[0], nil
}

func (s *bookService) findBook(id uint) (*model.Book, error) {
	book, err := s.bookRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		logger.Error("Failed to find book", err, logger.Fields{
			"book_id": id,
		})
		return nil, err
	}
	return book, nil
}

// findModifiable loads the book and checks CanModifyBook before any change.
func (s *bookService) findModifiable(requester Requester, id uint) (*model.Book, error) {
	book, err := s.findBook(id)
	if err != nil {
		return nil, err
	}
	if !CanModifyBook(requester, book) {
		logger.Warn("Book modification denied", logger.Fields{
			"book_id":  id,
			"user_id":  requester.UserID,
			"owner_id": book.UserID,
		})
		return nil, ErrForbidden
	}
	return book, nil
}

func (s *bookService) CreateBook(requester Requester, input BookInput) (*model.Book, error) {
	book := &model.Book{
		Title:         input.Title,
		Author:        input.Author,
		Description:   input.Description,
		Price:         input.Price,
		ISBN:          input.ISBN,
		Genre:         input.Genre,
		PublishedDate: input.PublishedDate,
		StockQuantity: input.StockQuantity,
		CoverImage:    input.CoverImage,
		UserID:        requester.UserID,
	}

	if err := s.bookRepo.Create(book); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrISBNExists
		}
		return nil, err
	}

	logger.Info("Book created", logger.Fields{
		"book_id": book.ID,
		"user_id": requester.UserID,
	})
	return s.findBook(book.ID)
}

// ImportBooks creates books owned by ownerID, skipping ISBNs that already exist.
// It returns how many were created.
func (s *bookService) ImportBooks(ownerID uint, inputs []BookInput) (int, error) {
	created := 0
	for _, input := range inputs {
		_, err := s.CreateBook(Requester{UserID: ownerID, Role: model.RoleAdmin}, input)
		if errors.Is(err, ErrISBNExists) {
			logger.Debug("Skipping existing ISBN during import", logger.Fields{
				"isbn": input.ISBN,
			})
			continue
		}
		if err != nil {
			return created, fmt.Errorf("import %s: %w", input.ISBN, err)
		}
		created++
	}

	logger.Info("Books imported", logger.Fields{
		"created": created,
		"total":   len(inputs),
	})
	return created, nil
}

func (s *bookService) UpdateBook(requester Requester, id uint, update BookUpdate) (*model.Book, error) {
	if _, err := s.findModifiable(requester, id); err != nil {
		return nil, err
	}

	changes := update.columns()
	if err := s.bookRepo.Update(id, changes); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrISBNExists
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	logger.Info("Book updated", logger.Fields{
		"book_id": id,
		"user_id": requester.UserID,
		"columns": len(changes),
	})
	return s.GetBook(id)
}

func (s *bookService) DeleteBook(requester Requester, id uint) error {
	if _, err := s.findModifiable(requester, id); err != nil {
		return err
	}

	if err := s.bookRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookNotFound
		}
		return err
	}

	logger.Info("Book deleted", logger.Fields{
		"book_id": id,
		"user_id": requester.UserID,
	})
	return nil
}

// PresignCover issues an upload URL for a new cover and stores the resulting file
// URL on the book.
func (s *bookService) PresignCover(ctx context.Context, requester Requester, id uint, filename, contentType string) (*storage.PresignedURLResponse, *model.Book, error) {
	if s.covers == nil {
		return nil, nil, ErrStorageDisabled
	}
	if err := storage.ValidateContentType(contentType, storage.CoverContentTypes); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidCoverType, err)
	}

	book, err := s.findModifiable(requester, id)
	if err != nil {
		return nil, nil, err
	}

	upload, err := s.covers.PresignUpload(ctx, filename, contentType, coverFolder)
	if err != nil {
		logger.Error("Failed to presign cover upload", err, logger.Fields{
			"book_id": id,
		})
		return nil, nil, err
	}

	if err := s.bookRepo.Update(id, map[string]interface{}{"cover_image": upload.FileURL}); err != nil {
		return nil, nil, err
	}
	book.CoverImage = upload.FileURL

	logger.Info("Book cover upload issued", logger.Fields{
		"book_id": id,
		"key":     upload.Key,
	})
	return upload, book, nil
}

func (s *bookService) LowStock(threshold int) ([]model.Book, error) {
	return s.bookRepo.FindLowStock(threshold)
}
