package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/internal/app/repository"
	"github.com/ikkim/bookstore-backend/internal/app/service"
	apperrors "github.com/ikkim/bookstore-backend/internal/errors"
	"github.com/ikkim/bookstore-backend/internal/middleware"
	"github.com/ikkim/bookstore-backend/internal/spreadsheet"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var maxPrice = decimal.New(1, 8) // decimal(10,2)

type BookController struct {
	bookService service.BookService
}

func NewBookController(bookService service.BookService) *BookController {
	return &BookController{
		bookService: bookService,
	}
}

type BookRequest struct {
	Title         string           `json:"title" binding:"required,max=200"`
	Author        string           `json:"author" binding:"required,max=100"`
	Description   string           `json:"description"`
	Price         *decimal.Decimal `json:"price" binding:"required"`
	ISBN          string           `json:"isbn" binding:"required,max=13"`
	Genre         string           `json:"genre" binding:"max=50"`
	PublishedDate *model.DateOnly  `json:"published_date"`
	StockQuantity int              `json:"stock_quantity" binding:"gte=0"`
	CoverImage    string           `json:"cover_image" binding:"max=500"`
}

// PatchBookRequest carries only the provided fields.
type PatchBookRequest struct {
	Title         *string          `json:"title" binding:"omitempty,min=1,max=200"`
	Author        *string          `json:"author" binding:"omitempty,min=1,max=100"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	ISBN          *string          `json:"isbn" binding:"omitempty,min=1,max=13"`
	Genre         *string          `json:"genre" binding:"omitempty,max=50"`
	PublishedDate *model.DateOnly  `json:"published_date"`
	StockQuantity *int             `json:"stock_quantity" binding:"omitempty,gte=0"`
	CoverImage    *string          `json:"cover_image" binding:"omitempty,max=500"`
}

type CoverUploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

func priceProblem(price *decimal.Decimal) string {
	switch {
	case price == nil:
		return ""
	case price.IsNegative():
		return "Ensure this value is greater than or equal to 0."
	case !price.Equal(price.Round(2)):
		return "Ensure that there are no more than 2 decimal places."
	case price.GreaterThanOrEqual(maxPrice):
		return "Ensure that there are no more than 10 digits in total."
	}
	return ""
}

// ListBooks returns the catalog, filtered, searched, ordered and optionally paginated.
// GET /api/books/
func (ctrl *BookController) ListBooks(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	ordering, err := service.ParseOrdering(c.Query("ordering"))
	if err != nil {
		log.Warn("Invalid ordering requested", map[string]interface{}{
			"ordering": c.Query("ordering"),
		})
		apperrors.BadRequest(c, apperrors.BookInvalidSort, "Invalid ordering field. Allowed: title, author, price, published_date.")
		return
	}

	filter := repository.BookFilter{
		Genre:    c.Query("genre"),
		Author:   c.Query("author"),
		Search:   c.Query("search"),
		Ordering: ordering,
	}

	page, pageSize, ok := parsePagination(c)
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "page and page_size must be positive integers.")
		return
	}
	if page > 0 {
		filter.Limit = pageSize
		filter.Offset = (page - 1) * pageSize
	}

	books, total, err := ctrl.bookService.ListBooks(filter)
	if err != nil {
		log.Error("Failed to list books", err)
		apperrors.InternalError(c, "")
		return
	}
	if books == nil {
		books = []model.Book{}
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   total,
		"results": books,
	})
}

// parsePagination returns page 0 when no pagination was requested.
func parsePagination(c *gin.Context) (page, pageSize int, ok bool) {
	rawPage, rawSize := c.Query("page"), c.Query("page_size")
	if rawPage == "" && rawSize == "" {
		return 0, 0, true
	}

	page, pageSize = 1, defaultPageSize
	var err error
	if rawPage != "" {
		if page, err = strconv.Atoi(rawPage); err != nil || page < 1 {
			return 0, 0, false
		}
	}
	if rawSize != "" {
		if pageSize, err = strconv.Atoi(rawSize); err != nil || pageSize < 1 {
			return 0, 0, false
		}
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize, true
}

// GetBook returns one book with its average rating.
// GET /api/books/:id/
func (ctrl *BookController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := ctrl.bookService.GetBook(id)
	if err != nil {
		ctrl.respondBookError(c, err, id)
		return
	}
	c.JSON(http.StatusOK, book)
}

// CreateBook adds a book owned by the requester.
// POST /api/books/
func (ctrl *BookController) CreateBook(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	requester, ok := currentRequester(c)
	if !ok {
		return
	}

	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid book request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}
	if msg := priceProblem(req.Price); msg != "" {
		apperrors.RespondWithValidationError(c, map[string]string{"price": msg})
		return
	}

	book, err := ctrl.bookService.CreateBook(requester, service.BookInput{
		Title:         req.Title,
		Author:        req.Author,
		Description:   req.Description,
		Price:         *req.Price,
		ISBN:          req.ISBN,
		Genre:         req.Genre,
		PublishedDate: req.PublishedDate,
		StockQuantity: req.StockQuantity,
		CoverImage:    req.CoverImage,
	})
	if err != nil {
		ctrl.respondBookError(c, err, 0)
		return
	}

	log.Info("Book created", map[string]interface{}{
		"book_id": book.ID,
		"user_id": requester.UserID,
	})
	c.JSON(http.StatusCreated, book)
}

// UpdateBook replaces every writable field.
// PUT /api/books/:id/
func (ctrl *BookController) UpdateBook(c *gin.Context) {
	requester, ok := currentRequester(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}
	if msg := priceProblem(req.Price); msg != "" {
		apperrors.RespondWithValidationError(c, map[string]string{"price": msg})
		return
	}

	ctrl.applyUpdate(c, requester, id, service.BookUpdate{
		Title:         &req.Title,
		Author:        &req.Author,
		Description:   &req.Description,
		Price:         req.Price,
		ISBN:          &req.ISBN,
		Genre:         &req.Genre,
		PublishedDate: &req.PublishedDate,
		StockQuantity: &req.StockQuantity,
		CoverImage:    &req.CoverImage,
	})
}

// PatchBook updates only the fields present in the body.
// PATCH /api/books/:id/
func (ctrl *BookController) PatchBook(c *gin.Context) {
	requester, ok := currentRequester(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req PatchBookRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}
	// published_date may be explicitly cleared with null
	var present map[string]interface{}
	if err := c.ShouldBindBodyWith(&present, binding.JSON); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}
	if msg := priceProblem(req.Price); msg != "" {
		apperrors.RespondWithValidationError(c, map[string]string{"price": msg})
		return
	}

	update := service.BookUpdate{
		Title:         req.Title,
		Author:        req.Author,
		Description:   req.Description,
		Price:         req.Price,
		ISBN:          req.ISBN,
		Genre:         req.Genre,
		StockQuantity: req.StockQuantity,
		CoverImage:    req.CoverImage,
	}
	if _, ok := present["published_date"]; ok {
		update.PublishedDate = &req.PublishedDate
	}

	ctrl.applyUpdate(c, requester, id, update)
}

func (ctrl *BookController) applyUpdate(c *gin.Context, requester service.Requester, id uint, update service.BookUpdate) {
	book, err := ctrl.bookService.UpdateBook(requester, id, update)
	if err != nil {
		ctrl.respondBookError(c, err, id)
		return
	}

	middleware.GetLoggerFromContext(c).Info("Book updated", map[string]interface{}{
		"book_id": id,
		"user_id": requester.UserID,
	})
	c.JSON(http.StatusOK, book)
}

// DeleteBook soft deletes the book.
// DELETE /api/books/:id/
func (ctrl *BookController) DeleteBook(c *gin.Context) {
	requester, ok := currentRequester(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.bookService.DeleteBook(requester, id); err != nil {
		ctrl.respondBookError(c, err, id)
		return
	}

	middleware.GetLoggerFromContext(c).Info("Book deleted", map[string]interface{}{
		"book_id": id,
		"user_id": requester.UserID,
	})
	c.Status(http.StatusNoContent)
}

// UploadCover returns a presigned PUT URL for the book's cover image.
// POST /api/books/:id/cover/
func (ctrl *BookController) UploadCover(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	requester, ok := currentRequester(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CoverUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	upload, book, err := ctrl.bookService.PresignCover(c.Request.Context(), requester, id, req.Filename, req.ContentType)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCoverType):
			apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Only image files are allowed (JPEG, PNG, WEBP).")
		case errors.Is(err, service.ErrStorageDisabled):
			log.Error("Cover upload requested but storage is not configured", err)
			apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.UploadFailed, "File storage is not available.")
		default:
			ctrl.respondBookError(c, err, id)
		}
		return
	}

	log.Info("Cover upload URL issued", map[string]interface{}{
		"book_id": id,
		"key":     upload.Key,
	})
	c.JSON(http.StatusOK, gin.H{
		"upload_url": upload.UploadURL,
		"file_url":   upload.FileURL,
		"key":        upload.Key,
		"expires_at": upload.ExpiresAt,
		"book":       book,
	})
}

// ExportBooks streams the catalog as an xlsx workbook.
// GET /api/books/export/
func (ctrl *BookController) ExportBooks(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	books, err := ctrl.bookService.AllBooks()
	if err != nil {
		log.Error("Failed to load books for export", err)
		apperrors.InternalError(c, "")
		return
	}

	filename := fmt.Sprintf("books-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Type", spreadsheet.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)
	if err := spreadsheet.WriteBooks(c.Writer, books); err != nil {
		log.Error("Failed to write export", err)
		c.Abort()
		return
	}

	log.Info("Books exported", map[string]interface{}{
		"count": len(books),
	})
}

func (ctrl *BookController) respondBookError(c *gin.Context, err error, id uint) {
	switch {
	case errors.Is(err, service.ErrBookNotFound):
		apperrors.NotFound(c, apperrors.BookNotFound, "Not found.")
	case errors.Is(err, service.ErrForbidden):
		apperrors.Forbidden(c, "")
	case errors.Is(err, service.ErrISBNExists):
		apperrors.RespondWithValidationError(c, map[string]string{
			"isbn": "book with this isbn already exists.",
		})
	default:
		middleware.GetLoggerFromContext(c).Error("Book operation failed", err, map[string]interface{}{
			"book_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "save book")
	}
}
