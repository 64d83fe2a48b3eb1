package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/geekyair/restaurant-backoffice/config"
	"github.com/geekyair/restaurant-backoffice/repository"
	"github.com/geekyair/restaurant-backoffice/sender"
	"github.com/geekyair/restaurant-backoffice/services"
)

const jobTimeout = 5 * time.Minute

// RegisterAll wires the recurring back-office jobs onto the scheduler.
func RegisterAll(
	s *Scheduler,
	cfg config.JobsConfig,
	orders *services.OrderService,
	items *services.ItemService,
	reports *services.ReportService,
	store repository.Store,
	email sender.EmailSender,
	logger *zap.Logger,
) error {
	if err := s.Register("order-expiry", cfg.OrderExpirySchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		_, _ = orders.ExpireStaleOrders(ctx)
	}); err != nil {
		return err
	}

	if err := s.Register("item-expiry-alerts", cfg.ItemExpirySchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		_ = items.ExpiryAlerts(ctx, 5)
	}); err != nil {
		return err
	}

	if err := s.Register("expiry-discounts", cfg.DiscountSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		_ = items.ApplyExpiryDiscounts(ctx, 20*24*time.Hour)
	}); err != nil {
		return err
	}

	return s.Register("weekly-sales-report", cfg.SalesReportSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		sendWeeklySalesReport(ctx, reports, store, email, logger)
	})
}

// sendWeeklySalesReport emails admins a CSV of the last seven days of
// orders. Failures are logged only.
func sendWeeklySalesReport(
	ctx context.Context,
	reports *services.ReportService,
	store repository.Store,
	email sender.EmailSender,
	logger *zap.Logger,
) {
	if email == nil {
		return
	}

	end := time.Now()
	start := end.AddDate(0, 0, -7)
	data, err := reports.SalesReportCSV(ctx, start, end)
	if err != nil {
		return
	}
	if data == "" {
		logger.Info("No orders in the past week, skipping sales report")
		return
	}

	emails, err := store.Users().AdminEmails(ctx, true)
	if err != nil {
		logger.Error("Failed to load admin emails for sales report", zap.Error(err))
		return
	}
	if len(emails) == 0 {
		logger.Info("No admins/managers found to receive the sales report")
		return
	}

	subject := "Weekly Sales Report " + start.Format("2006-01-02") + " to " + end.Format("2006-01-02")
	body := "Weekly sales report attached below as CSV.\n\n" + data
	if _, err := email.SendEmail(ctx, emails, subject, body); err != nil {
		logger.Warn("Weekly sales report email failed", zap.Error(err))
	}
}
