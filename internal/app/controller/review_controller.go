package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/internal/app/service"
	apperrors "github.com/ikkim/bookstore-backend/internal/errors"
	"github.com/ikkim/bookstore-backend/internal/middleware"
)

type ReviewController struct {
	reviewService service.ReviewService
}

func NewReviewController(reviewService service.ReviewService) *ReviewController {
	return &ReviewController{
		reviewService: reviewService,
	}
}

type ReviewRequest struct {
	Rating int    `json:"rating" binding:"required,gte=1,lte=5"`
	Text   string `json:"text"`
}

type PatchReviewRequest struct {
	Rating *int    `json:"rating" binding:"omitempty,gte=1,lte=5"`
	Text   *string `json:"text"`
}

// ListBookReviews returns a book's reviews, newest first.
// GET /api/books/:id/reviews/
func (ctrl *ReviewController) ListBookReviews(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	reviews, err := ctrl.reviewService.ListForBook(bookID)
	if err != nil {
		ctrl.respondReviewError(c, err)
		return
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	c.JSON(http.StatusOK, reviews)
}

// CreateBookReview adds the requester's review of a book.
// POST /api/books/:id/reviews/
func (ctrl *ReviewController) CreateBookReview(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid review request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	review, err := ctrl.reviewService.CreateReview(userID, bookID, req.Rating, req.Text)
	if err != nil {
		ctrl.respondReviewError(c, err)
		return
	}

	log.Info("Review created", map[string]interface{}{
		"review_id": review.ID,
		"book_id":   bookID,
		"user_id":   userID,
	})
	c.JSON(http.StatusCreated, review)
}

// ListReviews returns every review, newest first. ?user=<id> narrows the list to
// one author.
// GET /api/reviews/
func (ctrl *ReviewController) ListReviews(c *gin.Context) {
	if _, ok := middleware.GetUserID(c); !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var (
		reviews []model.Review
		err     error
	)
	if raw := c.Query("user"); raw != "" {
		userID, parseErr := strconv.ParseUint(raw, 10, 64)
		if parseErr != nil || userID == 0 {
			apperrors.RespondWithValidationError(c, map[string]string{
				"user": "A valid user id is required.",
			})
			return
		}
		reviews, err = ctrl.reviewService.ListByUser(uint(userID))
	} else {
		reviews, err = ctrl.reviewService.ListAll()
	}
	if err != nil {
		ctrl.respondReviewError(c, err)
		return
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	c.JSON(http.StatusOK, reviews)
}

// GET /api/reviews/:id/
func (ctrl *ReviewController) GetReview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	review, err := ctrl.reviewService.GetReview(id)
	if err != nil {
		ctrl.respondReviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// PUT /api/reviews/:id/
func (ctrl *ReviewController) UpdateReview(c *gin.Context) {
	requester, ok := currentRequester(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	ctrl.applyUpdate(c, requester, id, service.ReviewUpdate{
		Rating: &req.Rating,
		Text:   &req.Text,
	})
}

// PATCH /api/reviews/:id/
func (ctrl *ReviewController) PatchReview(c *gin.Context) {
	requester, ok := currentRequester(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req PatchReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	ctrl.applyUpdate(c, requester, id, service.ReviewUpdate{
		Rating: req.Rating,
		Text:   req.Text,
	})
}

func (ctrl *ReviewController) applyUpdate(c *gin.Context, requester service.Requester, id uint, update service.ReviewUpdate) {
	review, err := ctrl.reviewService.UpdateReview(requester, id, update)
	if err != nil {
		ctrl.respondReviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// DELETE /api/reviews/:id/
func (ctrl *ReviewController) DeleteReview(c *gin.Context) {
	requester, ok := currentRequester(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.reviewService.DeleteReview(requester, id); err != nil {
		ctrl.respondReviewError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (ctrl *ReviewController) respondReviewError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBookNotFound):
		apperrors.NotFound(c, apperrors.BookNotFound, "Not found.")
	case errors.Is(err, service.ErrReviewNotFound):
		apperrors.NotFound(c, apperrors.ReviewNotFound, "Not found.")
	case errors.Is(err, service.ErrForbidden):
		apperrors.Forbidden(c, "")
	case errors.Is(err, service.ErrAlreadyReviewed):
		apperrors.BadRequest(c, apperrors.ReviewAlreadyExists, "You have already reviewed this book.")
	case errors.Is(err, service.ErrInvalidRating):
		apperrors.RespondWithValidationError(c, map[string]string{
			"rating": "Ensure this value is between 1 and 5.",
		})
	default:
		middleware.GetLoggerFromContext(c).Error("Review operation failed", err)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "save review")
	}
}
