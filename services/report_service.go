package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/geekyair/restaurant-backoffice/models"
	"github.com/geekyair/restaurant-backoffice/repository"
)

const reportCacheTTL = 5 * time.Minute

// ReportQuery bounds a commission report request. EndDate is inclusive of
// the whole end day.
type ReportQuery struct {
	StartDate  time.Time
	EndDate    time.Time
	WaiterName string
}

// ReportService computes read-only aggregates over completed orders. An
// optional redis client caches report rows for a short TTL; cache failures
// are never surfaced.
type ReportService struct {
	store  repository.Store
	cache  *redis.Client
	logger *zap.Logger
}

func NewReportService(store repository.Store, cache *redis.Client, logger *zap.Logger) *ReportService {
	return &ReportService{store: store, cache: cache, logger: logger}
}

// WaiterCommissionReport aggregates completed orders per waiter over the
// date range. Waiters see only their own row; other roles may filter by a
// partial, case-insensitive waiter name.
func (s *ReportService) WaiterCommissionReport(ctx context.Context, query ReportQuery, actor *models.User) ([]repository.CommissionRow, *ServiceError) {
	if query.EndDate.Before(query.StartDate) {
		return nil, badRequest("End date must not be before start date")
	}

	q := repository.CommissionQuery{
		Start: query.StartDate,
		// Inclusive of the full end day.
		End: query.EndDate.AddDate(0, 0, 1).Add(-time.Nanosecond),
	}
	switch {
	case actor.Role == models.RoleWaiter:
		q.WaiterID = &actor.ID
	case actor.Role == models.RoleSuperAdmin, actor.Role == models.RoleManager, actor.Role == models.RoleCashier:
		q.WaiterName = query.WaiterName
	default:
		return nil, forbidden("Insufficient permissions")
	}

	cacheKey := s.cacheKey(q)
	if rows, ok := s.cachedRows(ctx, cacheKey); ok {
		return rows, nil
	}

	rows, err := s.store.Reports().WaiterCommission(ctx, q)
	if err != nil {
		s.logger.Error("Failed to generate waiter commission report", zap.Error(err))
		return nil, internal("Failed to generate report")
	}
	for i := range rows {
		rows[i].TotalRevenue = rows[i].TotalRevenue.Round(2)
		rows[i].TotalCommission = rows[i].TotalCommission.Round(2)
	}

	s.storeRows(ctx, cacheKey, rows)
	return rows, nil
}

// WaiterCommissionCSV renders the report as CSV.
func (s *ReportService) WaiterCommissionCSV(ctx context.Context, query ReportQuery, actor *models.User) (string, *ServiceError) {
	rows, serr := s.WaiterCommissionReport(ctx, query, actor)
	if serr != nil {
		return "", serr
	}
	if len(rows) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{
		"waiter_id", "waiter_name", "total_items_sold",
		"items_sold_food", "items_sold_beverages", "items_sold_others",
		"total_revenue", "total_commission",
	})
	for _, row := range rows {
		_ = w.Write([]string{
			strconv.FormatUint(uint64(row.WaiterID), 10),
			row.WaiterName,
			strconv.FormatInt(row.TotalItemsSold, 10),
			strconv.FormatInt(row.ItemsSoldFood, 10),
			strconv.FormatInt(row.ItemsSoldBeverages, 10),
			strconv.FormatInt(row.ItemsSoldOthers, 10),
			row.TotalRevenue.StringFixed(2),
			row.TotalCommission.StringFixed(2),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", internal("Failed to generate report CSV")
	}
	return buf.String(), nil
}

// SalesReportCSV renders all orders created in [start, end) with their lines
// as CSV rows, for the weekly report job.
func (s *ReportService) SalesReportCSV(ctx context.Context, start, end time.Time) (string, error) {
	orders, err := s.store.Orders().CreatedBetween(ctx, start, end)
	if err != nil {
		s.logger.Error("Failed to load orders for sales report", zap.Error(err))
		return "", err
	}
	if len(orders) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"order_id", "status", "waiter", "items", "total_cost", "created_at"})
	for _, order := range orders {
		if len(order.Lines) == 0 {
			continue
		}
		waiter := ""
		if order.Waiter != nil {
			waiter = order.Waiter.Name
		}
		var items []string
		for _, line := range order.Lines {
			name := fmt.Sprintf("item %d", line.ItemID)
			if line.Item != nil {
				name = line.Item.Name
			}
			items = append(items, fmt.Sprintf("%s (x%d)", name, line.Quantity))
		}
		_ = w.Write([]string{
			strconv.FormatUint(uint64(order.ID), 10),
			string(order.Status),
			waiter,
			strings.Join(items, ", "),
			order.TotalCost.StringFixed(2),
			order.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Flush()
	return buf.String(), w.Error()
}

func (s *ReportService) cacheKey(q repository.CommissionQuery) string {
	waiter := q.WaiterName
	if q.WaiterID != nil {
		waiter = fmt.Sprintf("id:%d", *q.WaiterID)
	}
	return fmt.Sprintf("report:commission:%s:%s:%s",
		q.Start.Format("2006-01-02"), q.End.Format("2006-01-02"), strings.ToLower(waiter))
}

func (s *ReportService) cachedRows(ctx context.Context, key string) ([]repository.CommissionRow, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var rows []repository.CommissionRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func (s *ReportService) storeRows(ctx context.Context, key string, rows []repository.CommissionRow) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, reportCacheTTL).Err(); err != nil {
		s.logger.Debug("Report cache write failed", zap.Error(err))
	}
}
