package scheduler

import (
	"context"

	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/internal/events"
	"github.com/ikkim/bookstore-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// LowStockSource is satisfied by service.BookService.
type LowStockSource interface {
	LowStock(threshold int) ([]model.Book, error)
}

type lowStockItem struct {
	BookID        uint   `json:"book_id"`
	Title         string `json:"title"`
	ISBN          string `json:"isbn"`
	StockQuantity int    `json:"stock_quantity"`
}

// LowStockScheduler periodically publishes an inventory.low_stock event listing
// books at or below the threshold.
type LowStockScheduler struct {
	cron      *cron.Cron
	spec      string
	threshold int
	books     LowStockSource
	publisher events.Publisher
}

func NewLowStockScheduler(spec string, threshold int, books LowStockSource, publisher events.Publisher) *LowStockScheduler {
	return &LowStockScheduler{
		cron:      cron.New(),
		spec:      spec,
		threshold: threshold,
		books:     books,
		publisher: publisher,
	}
}

func (s *LowStockScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		if err := s.RunOnce(context.Background()); err != nil {
			logger.Error("Scheduled low stock report failed", err)
		}
	}); err != nil {
		logger.Error("Failed to add cron job for low stock report", err, logger.Fields{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Low stock scheduler started", logger.Fields{
		"spec":      s.spec,
		"threshold": s.threshold,
	})
	return nil
}

// RunOnce runs the report immediately. Nothing is published when no book is low.
func (s *LowStockScheduler) RunOnce(ctx context.Context) error {
	books, err := s.books.LowStock(s.threshold)
	if err != nil {
		return err
	}
	if len(books) == 0 {
		logger.Debug("No low stock books")
		return nil
	}

	items := make([]lowStockItem, 0, len(books))
	for _, b := range books {
		items = append(items, lowStockItem{
			BookID:        b.ID,
			Title:         b.Title,
			ISBN:          b.ISBN,
			StockQuantity: b.StockQuantity,
		})
	}

	logger.Info("Publishing low stock report", logger.Fields{
		"count":     len(items),
		"threshold": s.threshold,
	})
	return s.publisher.Publish(ctx, events.New(events.InventoryLowStock, 0, map[string]interface{}{
		"threshold": s.threshold,
		"books":     items,
	}))
}

// Stop waits for a running job to finish.
func (s *LowStockScheduler) Stop() {
	logger.Info("Stopping low stock scheduler")
	<-s.cron.Stop().Done()
	logger.Info("Low stock scheduler stopped")
}
