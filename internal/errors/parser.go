package errors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ErrorInfo is a code/message pair derived from a storage error.
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError maps gorm and driver errors to client-safe codes. Driver messages are
// never echoed back; context names the failed operation for the fallback message.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "Internal server error."}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: "Not found."}
	}

	if IsDuplicateKey(err) {
		return parseDuplicateKeyError(strings.ToLower(err.Error()))
	}

	lower := strings.ToLower(err.Error())

	// postgres 23514 / sqlite "CHECK constraint failed"
	if strings.Contains(lower, "check constraint") {
		if strings.Contains(lower, "rating") {
			return ErrorInfo{Code: ReviewInvalidRating, Message: "Rating must be between 1 and 5."}
		}
		if strings.Contains(lower, "stock_quantity") {
			return ErrorInfo{Code: OrderInsufficientStock, Message: "Not enough stock."}
		}
		return ErrorInfo{Code: ValidationInvalidInput, Message: "Invalid input."}
	}

	if strings.Contains(lower, "foreign key constraint") {
		return ErrorInfo{Code: ResourceConflict, Message: "The resource is referenced by other records."}
	}

	if strings.Contains(lower, "connection refused") || strings.Contains(lower, "timeout") {
		return ErrorInfo{Code: InternalDatabaseError, Message: "Storage is temporarily unavailable."}
	}

	message := "Internal server error."
	if context != "" {
		message = "Failed to " + context + "."
	}
	return ErrorInfo{Code: InternalServerError, Message: message}
}

// IsDuplicateKey reports a unique constraint violation for postgres or sqlite.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "duplicate key") || strings.Contains(lower, "unique constraint")
}

func parseDuplicateKeyError(lower string) ErrorInfo {
	switch {
	case strings.Contains(lower, "isbn"):
		return ErrorInfo{Code: BookISBNExists, Message: "book with this isbn already exists."}
	case strings.Contains(lower, "username"):
		return ErrorInfo{Code: AuthUsernameExists, Message: "A user with that username already exists."}
	case strings.Contains(lower, "review"):
		return ErrorInfo{Code: ReviewAlreadyExists, Message: "You have already reviewed this book."}
	default:
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "Resource already exists."}
	}
}

// ParseAndRespond writes the parsed error. Not-found and conflicts get their own status;
// everything else uses defaultStatus.
func ParseAndRespond(c *gin.Context, defaultStatus int, err error, context string) {
	info := ParseError(err, context)
	status := defaultStatus
	switch info.Code {
	case ResourceNotFound:
		status = http.StatusNotFound
	case BookISBNExists, AuthUsernameExists, ReviewAlreadyExists, ReviewInvalidRating, OrderInsufficientStock:
		status = http.StatusBadRequest
	case ResourceAlreadyExists, ResourceConflict:
		status = http.StatusConflict
	}
	RespondWithError(c, status, info.Code, info.Message)
}
