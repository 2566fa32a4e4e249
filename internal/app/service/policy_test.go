package service

import (
	"testing"

	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
)

func TestCanModify(t *testing.T) {
	owner := Requester{UserID: 1, Role: model.RoleUser}
	other := Requester{UserID: 2, Role: model.RoleUser}
	admin := Requester{UserID: 3, Role: model.RoleAdmin}

	book := &model.Book{UserID: 1}
	review := &model.Review{UserID: 1}
	order := &model.Order{UserID: 1}

	tests := []struct {
		name      string
		requester Requester
		want      bool
	}{
		{name: "owner", requester: owner, want: true},
		{name: "other user", requester: other, want: false},
		{name: "admin", requester: admin, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanModifyBook(tt.requester, book))
			assert.Equal(t, tt.want, CanModifyReview(tt.requester, review))
			assert.Equal(t, tt.want, CanModifyOrder(tt.requester, order))
		})
	}
}
