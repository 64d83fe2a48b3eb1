package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/geekyair/restaurant-backoffice/kafka"
	"github.com/geekyair/restaurant-backoffice/models"
	"github.com/geekyair/restaurant-backoffice/repository"
	"github.com/geekyair/restaurant-backoffice/sender"
)

// LineRequest is one item of an add-items call. Quantity is the new absolute
// quantity for the line, not an increment.
type LineRequest struct {
	ItemID   uint `json:"item_id" binding:"required"`
	Quantity int  `json:"quantity" binding:"required,min=1"`
}

// OrderUpdateRequest carries the PATCH body for an order.
type OrderUpdateRequest struct {
	Status   *models.OrderStatus `json:"status,omitempty"`
	WaiterID *uint               `json:"waiter_id,omitempty"`
}

// OrderQuery filters and pages an order listing.
type OrderQuery struct {
	Status    *models.OrderStatus
	WaiterID  *uint
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// OrderPage is a paginated order listing.
type OrderPage struct {
	Results      []models.Order `json:"results"`
	Page         int            `json:"page"`
	Limit        int            `json:"limit"`
	TotalPages   int64          `json:"total_pages"`
	TotalResults int64          `json:"total_results"`
}

// orderUpdatePolicy describes what a role may do in UpdateOrder. Guarded
// roles get the pending/waiter/non-empty completion checks; unguarded roles
// may force any status.
type orderUpdatePolicy struct {
	settableStatuses map[models.OrderStatus]bool
	guarded          bool
	assignWaiter     bool
}

var anyStatus = map[models.OrderStatus]bool{
	models.OrderStatusPending:   true,
	models.OrderStatusCompleted: true,
	models.OrderStatusExpired:   true,
	models.OrderStatusCancelled: true,
}

var orderUpdatePolicies = map[models.Role]orderUpdatePolicy{
	models.RoleCashier: {
		settableStatuses: map[models.OrderStatus]bool{models.OrderStatusCompleted: true},
		guarded:          true,
		assignWaiter:     true,
	},
	models.RoleManager: {
		settableStatuses: anyStatus,
		assignWaiter:     true,
	},
	models.RoleSuperAdmin: {
		settableStatuses: anyStatus,
		assignWaiter:     true,
	},
}

// OrderService orchestrates order and stock mutations. Every multi-step
// mutation runs inside one store transaction with the item row locked, so a
// failure at any step leaves no partial stock or line state behind.
type OrderService struct {
	store       repository.Store
	producer    kafka.ProducerAPI
	email       sender.EmailSender
	logger      *zap.Logger
	eventsTopic string

	milestoneCount  int
	milestoneWindow time.Duration
	expiryCutoff    time.Duration
}

func NewOrderService(
	store repository.Store,
	producer kafka.ProducerAPI,
	email sender.EmailSender,
	logger *zap.Logger,
	eventsTopic string,
	milestoneCount int,
	milestoneWindow time.Duration,
	expiryCutoff time.Duration,
) *OrderService {
	return &OrderService{
		store:           store,
		producer:        producer,
		email:           email,
		logger:          logger,
		eventsTopic:     eventsTopic,
		milestoneCount:  milestoneCount,
		milestoneWindow: milestoneWindow,
		expiryCutoff:    expiryCutoff,
	}
}

// CreateOrder inserts a new empty pending order. No stock effect.
func (s *OrderService) CreateOrder(ctx context.Context) (*models.Order, *ServiceError) {
	order := &models.Order{
		Status:    models.OrderStatusPending,
		TotalCost: decimal.Zero,
	}
	if err := s.store.Orders().Create(ctx, order); err != nil {
		s.logger.Error("Failed to create order", zap.Error(err))
		return nil, internal("Failed to create order")
	}
	return order, nil
}

// AddItem adds an item to a pending order or replaces the quantity of an
// existing line, deducting stock accordingly. The whole mutation is atomic.
func (s *OrderService) AddItem(ctx context.Context, orderID, itemID uint, quantity int) (*models.Order, *ServiceError) {
	return s.addLines(ctx, orderID, []LineRequest{{ItemID: itemID, Quantity: quantity}})
}

// AddItems applies a batch of line requests to a pending order. If any item
// fails validation the whole batch is rejected and nothing changes.
func (s *OrderService) AddItems(ctx context.Context, orderID uint, items []LineRequest) (*models.Order, *ServiceError) {
	if len(items) == 0 {
		return nil, badRequest("At least one item is required")
	}
	return s.addLines(ctx, orderID, items)
}

func (s *OrderService) addLines(ctx context.Context, orderID uint, items []LineRequest) (*models.Order, *ServiceError) {
	for _, req := range items {
		if req.Quantity < 1 {
			return nil, badRequest("Quantity must be at least 1")
		}
	}

	txErr := s.store.Transaction(ctx, func(st repository.Store) error {
		order, err := st.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Order not found")
		}
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusPending {
			return conflict("Cannot modify items in a non-pending order")
		}

		for _, req := range items {
			if serr := s.applyLine(ctx, st, orderID, req); serr != nil {
				return serr
			}
		}

		return s.recomputeTotal(ctx, st, order)
	})
	if txErr != nil {
		return nil, asServiceError(s.logger, txErr, "Failed to add items to order")
	}

	// Post-commit hook: best-effort, must never affect the request outcome.
	go s.checkSalesMilestone(context.Background())

	return s.loadDetailed(ctx, orderID)
}

// applyLine mutates one order line and its item's stock inside the caller's
// transaction. The item row is locked first so the stock check-then-adjust
// sequence serializes with concurrent calls.
func (s *OrderService) applyLine(ctx context.Context, st repository.Store, orderID uint, req LineRequest) error {
	item, err := st.Items().LockByID(ctx, req.ItemID)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(fmt.Sprintf("Item with ID %d not found", req.ItemID))
	}
	if err != nil {
		return err
	}
	if item.Expired(time.Now()) {
		return conflict(fmt.Sprintf("Item %q is expired and cannot be added to the order", item.Name))
	}
	if item.StockQuantity <= 0 {
		return conflict(fmt.Sprintf("Item %q is out of stock and cannot be added to the order", item.Name))
	}

	line, err := st.Orders().FindLine(ctx, orderID, req.ItemID)
	switch {
	case err == nil:
		quantityChange := req.Quantity - line.Quantity
		if quantityChange > item.StockQuantity {
			return conflict(fmt.Sprintf("Insufficient stock for item %q. Available: %d", item.Name, item.StockQuantity))
		}
		line.Quantity = req.Quantity
		line.PriceAtOrder = item.Price
		if err := st.Orders().SaveLine(ctx, line); err != nil {
			return err
		}
		if quantityChange != 0 {
			if err := st.Items().AdjustStock(ctx, req.ItemID, -quantityChange); err != nil {
				return translateStockError(err, item.Name)
			}
		}
	case errors.Is(err, repository.ErrNotFound):
		if req.Quantity > item.StockQuantity {
			return conflict(fmt.Sprintf("Insufficient stock for item %q. Available: %d", item.Name, item.StockQuantity))
		}
		line = &models.OrderLine{
			OrderID:      orderID,
			ItemID:       req.ItemID,
			Quantity:     req.Quantity,
			PriceAtOrder: item.Price,
		}
		if err := st.Orders().SaveLine(ctx, line); err != nil {
			return err
		}
		if err := st.Items().AdjustStock(ctx, req.ItemID, -req.Quantity); err != nil {
			return translateStockError(err, item.Name)
		}
	default:
		return err
	}
	return nil
}

// RemoveItem deletes a line from a pending order and restores its stock.
func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID uint) (*models.Order, *ServiceError) {
	txErr := s.store.Transaction(ctx, func(st repository.Store) error {
		order, err := st.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Order not found")
		}
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusPending {
			return conflict("Cannot modify items in a non-pending order")
		}

		line, err := st.Orders().FindLine(ctx, orderID, itemID)
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Item not found in this order")
		}
		if err != nil {
			return err
		}

		if err := st.Orders().DeleteLine(ctx, line); err != nil {
			return err
		}
		if err := st.Items().AdjustStock(ctx, itemID, line.Quantity); err != nil {
			return err
		}

		return s.recomputeTotal(ctx, st, order)
	})
	if txErr != nil {
		return nil, asServiceError(s.logger, txErr, "Failed to remove item from order")
	}

	return s.loadDetailed(ctx, orderID)
}

// UpdateOrder applies a status change and/or waiter assignment, gated by the
// acting user's role via the policy table.
func (s *OrderService) UpdateOrder(ctx context.Context, orderID uint, req OrderUpdateRequest, actor *models.User) (*models.Order, *ServiceError) {
	policy, ok := orderUpdatePolicies[actor.Role]
	if !ok {
		return nil, forbidden("You cannot update orders")
	}
	if req.Status == nil && req.WaiterID == nil {
		return nil, conflict("No valid fields provided for update")
	}
	if req.Status != nil && !models.ValidOrderStatus(*req.Status) {
		return nil, badRequest(fmt.Sprintf("Invalid status %q", *req.Status))
	}

	txErr := s.store.Transaction(ctx, func(st repository.Store) error {
		order, err := st.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Order not found")
		}
		if err != nil {
			return err
		}

		if req.WaiterID != nil {
			if !policy.assignWaiter {
				return forbidden("You cannot assign waiters")
			}
			if policy.guarded && order.Status == models.OrderStatusCompleted {
				return conflict("Cannot assign a waiter to a completed order")
			}
			if _, err := st.Users().FindWaiter(ctx, *req.WaiterID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return conflict("Invalid waiter ID provided")
				}
				return err
			}
			order.WaiterID = req.WaiterID
		}

		if req.Status != nil {
			if !policy.settableStatuses[*req.Status] {
				return forbidden("Cashiers can only mark orders as completed")
			}
			if policy.guarded {
				if order.Status != models.OrderStatusPending {
					return conflict("Only pending orders can be marked as completed")
				}
				if order.WaiterID == nil {
					return conflict("Cannot complete order without an assigned waiter")
				}
				count, err := st.Orders().CountLines(ctx, orderID)
				if err != nil {
					return err
				}
				if count == 0 {
					return conflict("Cannot complete an empty order")
				}
			}
			order.Status = *req.Status
		}

		return st.Orders().Save(ctx, order)
	})
	if txErr != nil {
		return nil, asServiceError(s.logger, txErr, "Failed to update order")
	}

	return s.loadDetailed(ctx, orderID)
}

// GetOrder returns an order with lines and waiter. Waiters may only fetch
// orders assigned to them.
func (s *OrderService) GetOrder(ctx context.Context, orderID uint, actor *models.User) (*models.Order, *ServiceError) {
	order, serr := s.loadDetailed(ctx, orderID)
	if serr != nil {
		return nil, serr
	}
	if actor.Role == models.RoleWaiter {
		if order.WaiterID == nil || *order.WaiterID != actor.ID {
			return nil, forbidden("You can only view orders assigned to you")
		}
	}
	return order, nil
}

// QueryOrders lists orders matching the filter. Waiters are implicitly
// scoped to their own orders.
func (s *OrderService) QueryOrders(ctx context.Context, query OrderQuery, actor *models.User) (*OrderPage, *ServiceError) {
	if actor.Role == models.RoleWaiter {
		query.WaiterID = &actor.ID
	}

	filter := repository.OrderFilter{
		Status:    query.Status,
		WaiterID:  query.WaiterID,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
		Page:      query.Page,
		Limit:     query.Limit,
	}
	orders, total, err := s.store.Orders().FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to query orders", zap.Error(err))
		return nil, internal("Failed to fetch orders")
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	totalPages := int64(1)
	if limit > 0 {
		totalPages = (total + int64(limit) - 1) / int64(limit)
	} else {
		limit = int(total)
	}

	return &OrderPage{
		Results:      orders,
		Page:         page,
		Limit:        limit,
		TotalPages:   totalPages,
		TotalResults: total,
	}, nil
}

// ExpireStaleOrders marks pending orders older than the configured cutoff as
// expired. Called by the scheduler.
func (s *OrderService) ExpireStaleOrders(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.expiryCutoff)
	count, err := s.store.Orders().ExpirePending(ctx, cutoff)
	if err != nil {
		s.logger.Error("Expired order sweep failed", zap.Error(err))
		return 0, err
	}
	if count > 0 {
		s.logger.Info("Expired stale pending orders", zap.Int64("count", count))
	}
	return count, nil
}

// recomputeTotal persists the derived order total from its current lines.
func (s *OrderService) recomputeTotal(ctx context.Context, st repository.Store, order *models.Order) error {
	lines, err := st.Orders().LinesByOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.PriceAtOrder.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	order.TotalCost = total.Round(2)
	return st.Orders().Save(ctx, order)
}

// checkSalesMilestone notifies admins when completed-order volume over the
// window crosses the threshold. Runs after commit; all failures are logged
// and swallowed.
func (s *OrderService) checkSalesMilestone(ctx context.Context) {
	since := time.Now().Add(-s.milestoneWindow)
	count, totalSales, err := s.store.Orders().CompletedSince(ctx, since)
	if err != nil {
		s.logger.Error("Sales milestone check failed", zap.Error(err))
		return
	}
	if count < int64(s.milestoneCount) {
		return
	}

	windowDays := int(s.milestoneWindow.Hours() / 24)
	s.logger.Info("Sales milestone reached",
		zap.Int64("order_count", count),
		zap.Int("window_days", windowDays),
	)

	if s.producer != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"event":       "sales_milestone",
			"order_count": count,
			"total_sales": totalSales,
			"window_days": windowDays,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		})
		if err := s.producer.Publish(ctx, s.eventsTopic, []byte("sales_milestone"), payload); err != nil {
			s.logger.Warn("Milestone event publish failed", zap.Error(err))
		}
	}

	if s.email != nil {
		emails, err := s.store.Users().AdminEmails(ctx, false)
		if err != nil {
			s.logger.Error("Failed to load admin emails for milestone", zap.Error(err))
			return
		}
		if len(emails) == 0 {
			s.logger.Info("No admin users found to notify about sales milestone")
			return
		}
		subject := fmt.Sprintf("Sales Milestone Reached: %d+ Orders in %d Days", s.milestoneCount, windowDays)
		body := fmt.Sprintf(
			"Congratulations! The restaurant has reached a sales milestone.\n\n"+
				"Orders in the last %d days: %d\nTotal sales amount: $%s\n\n"+
				"This notification is triggered when %d or more orders are completed within a %d-day period.",
			windowDays, count, totalSales.Round(2).StringFixed(2), s.milestoneCount, windowDays,
		)
		if _, err := s.email.SendEmail(ctx, emails, subject, body); err != nil {
			s.logger.Warn("Milestone email failed", zap.Error(err))
		}
	}
}

func (s *OrderService) loadDetailed(ctx context.Context, orderID uint) (*models.Order, *ServiceError) {
	order, err := s.store.Orders().FindByIDDetailed(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Order not found")
	}
	if err != nil {
		s.logger.Error("Failed to load order", zap.Error(err))
		return nil, internal("Failed to fetch order")
	}
	return order, nil
}

func translateStockError(err error, itemName string) error {
	if errors.Is(err, repository.ErrInsufficientStock) {
		return conflict(fmt.Sprintf("Insufficient stock for item %q", itemName))
	}
	return err
}

// asServiceError passes through service errors from inside a transaction and
// wraps anything else as an internal failure.
func asServiceError(logger *zap.Logger, err error, fallback string) *ServiceError {
	var serr *ServiceError
	if errors.As(err, &serr) {
		return serr
	}
	logger.Error(fallback, zap.Error(err))
	return internal(fallback)
}
