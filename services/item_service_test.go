package services

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geekyair/restaurant-backoffice/models"
)

func newTestItemService(store *memStore) (*ItemService, *fakeProducer, *fakeEmailSender) {
	producer := &fakeProducer{}
	email := &fakeEmailSender{}
	svc := NewItemService(store, producer, email, zap.NewNop(), "test.events", 200)
	return svc, producer, email
}

func TestCreateItem(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestItemService(store)

	item, serr := svc.CreateItem(context.Background(), ItemCreateRequest{
		Name:          "Pasta",
		Price:         price("14.995"),
		Category:      models.CategoryFood,
		StockQuantity: 12,
	})
	require.Nil(t, serr)
	assert.True(t, item.Price.Equal(price("15.00")), "price rounds to 2dp, got %s", item.Price)
	assert.Equal(t, 12, item.StockQuantity)
}

func TestCreateItemValidation(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestItemService(store)

	_, serr := svc.CreateItem(context.Background(), ItemCreateRequest{
		Name: "Bad", Price: price("1.00"), Category: "sweets",
	})
	require.NotNil(t, serr)
	assert.Equal(t, http.StatusBadRequest, serr.StatusCode)

	_, serr = svc.CreateItem(context.Background(), ItemCreateRequest{
		Name: "Bad", Price: price("-1.00"), Category: models.CategoryFood,
	})
	require.NotNil(t, serr)
	assert.Equal(t, http.StatusBadRequest, serr.StatusCode)

	_, serr = svc.CreateItem(context.Background(), ItemCreateRequest{
		Name: "Bad", Price: price("1.00"), Category: models.CategoryFood, StockQuantity: -2,
	})
	require.NotNil(t, serr)
	assert.Equal(t, http.StatusBadRequest, serr.StatusCode)
}

func TestCreateItemDuplicateName(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestItemService(store)
	store.seedItem(models.Item{Name: "Pasta", Price: price("10.00"), Category: models.CategoryFood})

	_, serr := svc.CreateItem(context.Background(), ItemCreateRequest{
		Name: "Pasta", Price: price("12.00"), Category: models.CategoryFood,
	})
	require.NotNil(t, serr)
	assert.Equal(t, http.StatusConflict, serr.StatusCode)
}

func TestPremiumFoodItemNotifiesAdmins(t *testing.T) {
	store := newMemStore()
	svc, producer, email := newTestItemService(store)
	store.seedUser(models.User{Name: "Boss", Email: "boss@test.com", Role: models.RoleSuperAdmin})

	item := store.seedItem(models.Item{Name: "Truffle Steak", Price: price("250.00"), Category: models.CategoryFood, StockQuantity: 3})

	// Invoked synchronously here; CreateItem fires it in a goroutine.
	svc.notifyPremiumFoodItem(context.Background(), item)

	assert.Equal(t, []string{"premium_food_item"}, producer.messages)
	require.Equal(t, 1, email.count())
	assert.Contains(t, email.sent[0].Subject, "Truffle Steak")
}

func TestQueryItemsWaiterExcludesExpired(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestItemService(store)

	past := time.Now().AddDate(0, 0, -2)
	store.seedItem(models.Item{Name: "Fresh", Price: price("5.00"), Category: models.CategoryFood, StockQuantity: 5})
	store.seedItem(models.Item{Name: "Stale", Price: price("5.00"), Category: models.CategoryFood, StockQuantity: 5, ExpiryDate: &past})

	waiter := &models.User{ID: 1, Role: models.RoleWaiter}
	page, serr := svc.QueryItems(context.Background(), ItemQuery{}, waiter)
	require.Nil(t, serr)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Fresh", page.Results[0].Name)

	manager := &models.User{ID: 2, Role: models.RoleManager}
	page, serr = svc.QueryItems(context.Background(), ItemQuery{}, manager)
	require.Nil(t, serr)
	assert.Len(t, page.Results, 2)
}

func TestUpdateItemPartial(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestItemService(store)
	item := store.seedItem(models.Item{Name: "Pasta", Price: price("10.00"), Category: models.CategoryFood, StockQuantity: 5})

	newPrice := price("11.50")
	newStock := 8
	got, serr := svc.UpdateItem(context.Background(), item.ID, ItemUpdateRequest{
		Price:         &newPrice,
		StockQuantity: &newStock,
	})
	require.Nil(t, serr)
	assert.True(t, got.Price.Equal(newPrice))
	assert.Equal(t, 8, got.StockQuantity)
	assert.Equal(t, "Pasta", got.Name)
}

func TestDeleteItemReferencedByOrder(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestItemService(store)

	item := store.seedItem(models.Item{Name: "Pasta", Price: price("10.00"), Category: models.CategoryFood, StockQuantity: 5})
	order := store.seedOrder(models.Order{Status: models.OrderStatusPending})
	store.seedLine(models.OrderLine{OrderID: order.ID, ItemID: item.ID, Quantity: 1, PriceAtOrder: item.Price})

	serr := svc.DeleteItem(context.Background(), item.ID)
	require.NotNil(t, serr)
	assert.Equal(t, http.StatusConflict, serr.StatusCode)

	free := store.seedItem(models.Item{Name: "Unused", Price: price("1.00"), Category: models.CategoryOthers})
	assert.Nil(t, svc.DeleteItem(context.Background(), free.ID))
}

func TestExportCSV(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestItemService(store)
	store.seedItem(models.Item{Name: "Pasta", Price: price("10.00"), Category: models.CategoryFood, StockQuantity: 5})

	data, serr := svc.ExportCSV(context.Background())
	require.Nil(t, serr)
	lines := strings.Split(strings.TrimSpace(data), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "stock_quantity")
	assert.Contains(t, lines[1], "Pasta")
}

func TestApplyExpiryDiscounts(t *testing.T) {
	store := newMemStore()
	svc, _, email := newTestItemService(store)
	store.seedUser(models.User{Name: "Boss", Email: "boss@test.com", Role: models.RoleManager, EmailVerified: true})

	soon := time.Now().AddDate(0, 0, 10)
	far := time.Now().AddDate(0, 0, 60)
	eligible := store.seedItem(models.Item{Name: "Cheese", Price: price("20.00"), Category: models.CategoryFood, StockQuantity: 4, ExpiryDate: &soon})
	untouched := store.seedItem(models.Item{Name: "Wine", Price: price("30.00"), Category: models.CategoryBeverages, StockQuantity: 4, ExpiryDate: &far})
	already := store.seedItem(models.Item{Name: "Ham", Price: price("10.00"), Category: models.CategoryFood, StockQuantity: 4, ExpiryDate: &soon, DiscountApplied: true})

	err := svc.ApplyExpiryDiscounts(context.Background(), 20*24*time.Hour)
	require.NoError(t, err)

	got := store.item(eligible.ID)
	assert.True(t, got.DiscountApplied)
	require.NotNil(t, got.DiscountedPrice)
	assert.True(t, got.DiscountedPrice.Equal(price("15.00")), "discounted price was %s", got.DiscountedPrice)

	assert.False(t, store.item(untouched.ID).DiscountApplied)
	assert.Nil(t, store.item(already.ID).DiscountedPrice)

	require.Equal(t, 1, email.count())
	assert.Contains(t, email.sent[0].Body, "Cheese")
}

func TestExpiryAlerts(t *testing.T) {
	store := newMemStore()
	svc, _, email := newTestItemService(store)
	store.seedUser(models.User{Name: "Boss", Email: "boss@test.com", Role: models.RoleManager, EmailVerified: true})
	store.seedUser(models.User{Name: "Unverified", Email: "nope@test.com", Role: models.RoleManager, EmailVerified: false})

	inFive := time.Now().AddDate(0, 0, 5)
	today := time.Now()
	store.seedItem(models.Item{Name: "Yogurt", Price: price("3.00"), Category: models.CategoryFood, StockQuantity: 6, ExpiryDate: &inFive})
	store.seedItem(models.Item{Name: "Bread", Price: price("2.00"), Category: models.CategoryFood, StockQuantity: 2, ExpiryDate: &today})

	err := svc.ExpiryAlerts(context.Background(), 5)
	require.NoError(t, err)

	require.Equal(t, 1, email.count())
	assert.Equal(t, []string{"boss@test.com"}, email.sent[0].To)
	assert.Contains(t, email.sent[0].Body, "Yogurt")
	assert.Contains(t, email.sent[0].Body, "Bread")
}
