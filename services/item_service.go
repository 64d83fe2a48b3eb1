package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/geekyair/restaurant-backoffice/kafka"
	"github.com/geekyair/restaurant-backoffice/models"
	"github.com/geekyair/restaurant-backoffice/repository"
	"github.com/geekyair/restaurant-backoffice/sender"
)

// ItemCreateRequest carries the POST body for a new inventory item.
type ItemCreateRequest struct {
	Name          string          `json:"name" binding:"required"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price" binding:"required"`
	Category      models.Category `json:"category" binding:"required"`
	ExpiryDate    *time.Time      `json:"expiry_date"`
	StockQuantity int             `json:"stock_quantity"`
}

// ItemUpdateRequest carries the PATCH body for an item. Nil fields are
// left unchanged.
type ItemUpdateRequest struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	Category      *models.Category `json:"category"`
	ExpiryDate    *time.Time       `json:"expiry_date"`
	StockQuantity *int             `json:"stock_quantity"`
}

// ItemQuery filters and pages an item listing.
type ItemQuery struct {
	Category  *models.Category
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// ItemPage is a paginated item listing.
type ItemPage struct {
	Results      []models.Item `json:"results"`
	Page         int           `json:"page"`
	TotalPages   int64         `json:"total_pages"`
	TotalResults int64         `json:"total_results"`
}

// ItemService handles inventory management. Stock adjustments for orders go
// through OrderService; this service owns creation, pricing, expiry and
// discount concerns.
type ItemService struct {
	store    repository.Store
	producer kafka.ProducerAPI
	email    sender.EmailSender
	logger   *zap.Logger

	eventsTopic      string
	premiumFoodFloor decimal.Decimal
}

func NewItemService(
	store repository.Store,
	producer kafka.ProducerAPI,
	email sender.EmailSender,
	logger *zap.Logger,
	eventsTopic string,
	premiumFoodFloor float64,
) *ItemService {
	return &ItemService{
		store:            store,
		producer:         producer,
		email:            email,
		logger:           logger,
		eventsTopic:      eventsTopic,
		premiumFoodFloor: decimal.NewFromFloat(premiumFoodFloor),
	}
}

// CreateItem adds a new inventory item. Premium food items (price at or
// above the configured floor) trigger a best-effort admin notification.
func (s *ItemService) CreateItem(ctx context.Context, req ItemCreateRequest) (*models.Item, *ServiceError) {
	if !models.ValidCategory(req.Category) {
		return nil, badRequest(fmt.Sprintf("Invalid category %q", req.Category))
	}
	if req.Price.IsNegative() {
		return nil, badRequest("Price must not be negative")
	}
	if req.StockQuantity < 0 {
		return nil, badRequest("Stock quantity must not be negative")
	}

	if _, err := s.store.Items().FindByName(ctx, req.Name); err == nil {
		return nil, conflict("Item name already taken")
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("Failed to check item name", zap.Error(err))
		return nil, internal("Failed to create item")
	}

	item := &models.Item{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price.Round(2),
		Category:      req.Category,
		ExpiryDate:    req.ExpiryDate,
		StockQuantity: req.StockQuantity,
	}
	if err := s.store.Items().Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("Item name already taken")
		}
		s.logger.Error("Failed to create item", zap.Error(err))
		return nil, internal("Failed to create item")
	}

	if item.Category == models.CategoryFood && item.Price.GreaterThanOrEqual(s.premiumFoodFloor) {
		go s.notifyPremiumFoodItem(context.Background(), item)
	}

	return item, nil
}

// notifyPremiumFoodItem emails admins about a new premium food item and
// publishes a matching event. Failures are logged only.
func (s *ItemService) notifyPremiumFoodItem(ctx context.Context, item *models.Item) {
	if s.producer != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"event":     "premium_food_item",
			"item_id":   item.ID,
			"name":      item.Name,
			"price":     item.Price,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		if err := s.producer.Publish(ctx, s.eventsTopic, []byte("premium_food_item"), payload); err != nil {
			s.logger.Warn("Premium item event publish failed", zap.Error(err))
		}
	}

	if s.email == nil {
		return
	}
	emails, err := s.store.Users().AdminEmails(ctx, false)
	if err != nil {
		s.logger.Error("Failed to load admin emails for premium item", zap.Error(err))
		return
	}
	if len(emails) == 0 {
		s.logger.Info("No admin users found to notify about premium food item")
		return
	}

	expiry := "N/A"
	if item.ExpiryDate != nil {
		expiry = item.ExpiryDate.Format("2006-01-02")
	}
	subject := fmt.Sprintf("New Premium Food Item Added: %s", item.Name)
	body := fmt.Sprintf(
		"A new premium food item has been added to the inventory:\n\n"+
			"Name: %s\nDescription: %s\nPrice: $%s\nCategory: %s\nExpiry Date: %s\nStock Quantity: %d\n\n"+
			"This notification is sent automatically for all new food items priced at $%s or higher.",
		item.Name, item.Description, item.Price.StringFixed(2), item.Category, expiry, item.StockQuantity,
		s.premiumFoodFloor.StringFixed(2),
	)
	if _, err := s.email.SendEmail(ctx, emails, subject, body); err != nil {
		s.logger.Warn("Premium item email failed", zap.Error(err), zap.String("item", item.Name))
	}
}

// GetItem returns a single item by ID.
func (s *ItemService) GetItem(ctx context.Context, id uint) (*models.Item, *ServiceError) {
	item, err := s.store.Items().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound(fmt.Sprintf("Item with ID %d not found", id))
	}
	if err != nil {
		s.logger.Error("Failed to fetch item", zap.Error(err))
		return nil, internal("Failed to fetch item")
	}
	return item, nil
}

// QueryItems lists items. Waiters never see already-expired stock.
func (s *ItemService) QueryItems(ctx context.Context, query ItemQuery, actor *models.User) (*ItemPage, *ServiceError) {
	if query.Category != nil && !models.ValidCategory(*query.Category) {
		return nil, badRequest(fmt.Sprintf("Invalid category %q", *query.Category))
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}
	page := query.Page
	if page < 1 {
		page = 1
	}

	filter := repository.ItemFilter{
		Category:       query.Category,
		ExcludeExpired: actor.Role == models.RoleWaiter,
		SortBy:         query.SortBy,
		SortOrder:      query.SortOrder,
		Page:           page,
		Limit:          limit,
	}
	items, total, err := s.store.Items().FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to query items", zap.Error(err))
		return nil, internal("Failed to fetch items")
	}

	return &ItemPage{
		Results:      items,
		Page:         page,
		TotalPages:   (total + int64(limit) - 1) / int64(limit),
		TotalResults: total,
	}, nil
}

// UpdateItem applies a partial update to an item.
func (s *ItemService) UpdateItem(ctx context.Context, id uint, req ItemUpdateRequest) (*models.Item, *ServiceError) {
	item, err := s.store.Items().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound(fmt.Sprintf("Item with ID %d not found", id))
	}
	if err != nil {
		s.logger.Error("Failed to fetch item", zap.Error(err))
		return nil, internal("Failed to update item")
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, badRequest("Price must not be negative")
		}
		item.Price = req.Price.Round(2)
	}
	if req.Category != nil {
		if !models.ValidCategory(*req.Category) {
			return nil, badRequest(fmt.Sprintf("Invalid category %q", *req.Category))
		}
		item.Category = *req.Category
	}
	if req.ExpiryDate != nil {
		item.ExpiryDate = req.ExpiryDate
	}
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			return nil, badRequest("Stock quantity must not be negative")
		}
		item.StockQuantity = *req.StockQuantity
	}

	if err := s.store.Items().Save(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("Item name already taken")
		}
		s.logger.Error("Failed to save item", zap.Error(err))
		return nil, internal("Failed to update item")
	}
	return item, nil
}

// DeleteItem removes an item unless any order line still references it.
func (s *ItemService) DeleteItem(ctx context.Context, id uint) *ServiceError {
	err := s.store.Items().Delete(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound(fmt.Sprintf("Item with ID %d not found", id))
	case errors.Is(err, repository.ErrItemReferenced):
		return conflict("Item is referenced by existing orders and cannot be deleted")
	default:
		s.logger.Error("Failed to delete item", zap.Error(err))
		return internal("Failed to delete item")
	}
}

// ExportCSV renders the full item list as CSV.
func (s *ItemService) ExportCSV(ctx context.Context) (string, *ServiceError) {
	items, _, err := s.store.Items().FindAll(ctx, repository.ItemFilter{})
	if err != nil {
		s.logger.Error("Failed to export items", zap.Error(err))
		return "", internal("Failed to export items to CSV")
	}
	if len(items) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "name", "description", "price", "category", "expiry_date", "stock_quantity"})
	for _, item := range items {
		expiry := ""
		if item.ExpiryDate != nil {
			expiry = item.ExpiryDate.Format("2006-01-02")
		}
		_ = w.Write([]string{
			strconv.FormatUint(uint64(item.ID), 10),
			item.Name,
			item.Description,
			item.Price.StringFixed(2),
			string(item.Category),
			expiry,
			strconv.Itoa(item.StockQuantity),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", internal("Failed to export items to CSV")
	}
	return buf.String(), nil
}

// ApplyExpiryDiscounts marks down items expiring within the window by 25%
// and emails verified admins a summary. Called by the scheduler.
func (s *ItemService) ApplyExpiryDiscounts(ctx context.Context, window time.Duration) error {
	now := time.Now()
	items, err := s.store.Items().ExpiringBetween(ctx, now, now.Add(window))
	if err != nil {
		s.logger.Error("Discount job query failed", zap.Error(err))
		return err
	}
	if len(items) == 0 {
		s.logger.Info("No items eligible for expiry discount")
		return nil
	}

	var lines []string
	for i := range items {
		item := &items[i]
		discounted := item.Price.Mul(decimal.NewFromFloat(0.75)).Round(2)
		if err := s.store.Items().ApplyDiscount(ctx, item.ID, discounted); err != nil {
			s.logger.Error("Failed to apply discount", zap.Uint("item_id", item.ID), zap.Error(err))
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s (ID: %d), Quantity: %d, Original Price: $%s, Discounted Price: $%s",
			item.Name, item.ID, item.StockQuantity, item.Price.StringFixed(2), discounted.StringFixed(2)))
	}
	if len(lines) == 0 {
		return nil
	}

	s.logger.Info("Applied expiry discounts", zap.Int("count", len(lines)))
	s.sendAdminAlert(ctx,
		"Expiring Items Discounted",
		"The following items expiring soon received a 25% discount:\n\n"+strings.Join(lines, "\n"),
	)
	return nil
}

// ExpiryAlerts emails verified admins about items expiring in soonDays days
// and items expiring today. Called by the scheduler.
func (s *ItemService) ExpiryAlerts(ctx context.Context, soonDays int) error {
	today := time.Now()
	soon := today.AddDate(0, 0, soonDays)

	expiringSoon, err := s.store.Items().ExpiringOn(ctx, soon)
	if err != nil {
		s.logger.Error("Expiry alert query failed", zap.Error(err))
		return err
	}
	expiredToday, err := s.store.Items().ExpiringOn(ctx, today)
	if err != nil {
		s.logger.Error("Expiry alert query failed", zap.Error(err))
		return err
	}
	if len(expiringSoon) == 0 && len(expiredToday) == 0 {
		s.logger.Info("No items expiring soon or today requiring notification")
		return nil
	}

	var body strings.Builder
	if len(expiringSoon) > 0 {
		fmt.Fprintf(&body, "The following items are expiring in %d days:\n", soonDays)
		for _, item := range expiringSoon {
			fmt.Fprintf(&body, "- %s (ID: %d), Quantity: %d\n", item.Name, item.ID, item.StockQuantity)
		}
		body.WriteString("\n")
	}
	if len(expiredToday) > 0 {
		body.WriteString("The following items expired today:\n")
		for _, item := range expiredToday {
			fmt.Fprintf(&body, "- %s (ID: %d), Quantity: %d\n", item.Name, item.ID, item.StockQuantity)
		}
	}

	s.sendAdminAlert(ctx, "Item Expiry Alert", body.String())
	return nil
}

// sendAdminAlert emails verified admins; failures are logged only.
func (s *ItemService) sendAdminAlert(ctx context.Context, subject, body string) {
	if s.email == nil {
		return
	}
	emails, err := s.store.Users().AdminEmails(ctx, true)
	if err != nil {
		s.logger.Error("Failed to load admin emails", zap.Error(err))
		return
	}
	if len(emails) == 0 {
		s.logger.Info("No admins/managers found to notify", zap.String("subject", subject))
		return
	}
	if _, err := s.email.SendEmail(ctx, emails, subject, body); err != nil {
		s.logger.Warn("Admin alert email failed", zap.Error(err), zap.String("subject", subject))
	}
}
