package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/geekyair/restaurant-backoffice/models"
	"github.com/geekyair/restaurant-backoffice/repository"
	"github.com/geekyair/restaurant-backoffice/sender"
)

// memData is the backing state of the in-memory store. Transactions clone
// it and swap the clone back in only on success, giving the same
// all-or-nothing behavior the real store gets from postgres.
type memData struct {
	users  map[uint]*models.User
	items  map[uint]*models.Item
	orders map[uint]*models.Order
	lines  map[uint]*models.OrderLine
	nextID uint
}

func newMemData() *memData {
	return &memData{
		users:  make(map[uint]*models.User),
		items:  make(map[uint]*models.Item),
		orders: make(map[uint]*models.Order),
		lines:  make(map[uint]*models.OrderLine),
		nextID: 1,
	}
}

func (d *memData) id() uint {
	id := d.nextID
	d.nextID++
	return id
}

func (d *memData) clone() *memData {
	c := newMemData()
	c.nextID = d.nextID
	for id, u := range d.users {
		cp := *u
		c.users[id] = &cp
	}
	for id, i := range d.items {
		cp := *i
		c.items[id] = &cp
	}
	for id, o := range d.orders {
		cp := *o
		cp.Waiter = nil
		cp.Lines = nil
		c.orders[id] = &cp
	}
	for id, l := range d.lines {
		cp := *l
		cp.Order = nil
		cp.Item = nil
		c.lines[id] = &cp
	}
	return c
}

func (d *memData) orderLines(orderID uint) []models.OrderLine {
	var out []models.OrderLine
	for _, l := range d.lines {
		if l.OrderID == orderID {
			out = append(out, *l)
		}
	}
	return out
}

func (d *memData) detailedOrder(id uint) (*models.Order, bool) {
	o, ok := d.orders[id]
	if !ok {
		return nil, false
	}
	cp := *o
	for _, line := range d.orderLines(id) {
		if item, ok := d.items[line.ItemID]; ok {
			icp := *item
			line.Item = &icp
		}
		cp.Lines = append(cp.Lines, line)
	}
	if cp.WaiterID != nil {
		if w, ok := d.users[*cp.WaiterID]; ok {
			wcp := *w
			cp.Waiter = &wcp
		}
	}
	return &cp, true
}

// memStore guards memData with one mutex. Every repository method and seed
// helper locks it, so background goroutines spawned by the services (the
// post-commit milestone check) never race with committing transactions.
type memStore struct {
	mu   sync.Mutex
	data *memData
}

func newMemStore() *memStore {
	return &memStore{data: newMemData()}
}

func (s *memStore) Orders() repository.OrderRepository   { return &memOrders{s: s} }
func (s *memStore) Items() repository.ItemRepository     { return &memItems{s: s} }
func (s *memStore) Users() repository.UserRepository     { return &memUsers{s: s} }
func (s *memStore) Reports() repository.ReportRepository { return &memReports{s: s} }

func (s *memStore) Transaction(ctx context.Context, fn func(repository.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memStore{data: s.data.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

// Seed helpers

func (s *memStore) seedUser(u models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.data.id()
	s.data.users[u.ID] = &u
	return &u
}

func (s *memStore) seedItem(i models.Item) *models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	i.ID = s.data.id()
	s.data.items[i.ID] = &i
	return &i
}

func (s *memStore) seedOrder(o models.Order) *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.data.id()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	s.data.orders[o.ID] = &o
	return &o
}

func (s *memStore) seedLine(l models.OrderLine) *models.OrderLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.data.id()
	s.data.lines[l.ID] = &l
	return &l
}

func (s *memStore) item(id uint) *models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.items[id]
}

func (s *memStore) order(id uint) *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.orders[id]
}

func (s *memStore) orderLines(orderID uint) []models.OrderLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.orderLines(orderID)
}

// memOrders

type memOrders struct {
	s *memStore
}

func (r *memOrders) Create(ctx context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order.ID = r.s.data.id()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	cp := *order
	r.s.data.orders[cp.ID] = &cp
	return nil
}

func (r *memOrders) FindByID(ctx context.Context, id uint) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.data.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOrders) FindByIDDetailed(ctx context.Context, id uint) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.data.detailedOrder(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return o, nil
}

func (r *memOrders) Save(ctx context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.orders[order.ID]; !ok {
		return repository.ErrNotFound
	}
	order.UpdatedAt = time.Now()
	cp := *order
	cp.Lines = nil
	cp.Waiter = nil
	r.s.data.orders[cp.ID] = &cp
	return nil
}

func (r *memOrders) FindAll(ctx context.Context, filter repository.OrderFilter) ([]models.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Order
	for _, o := range r.s.data.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.WaiterID != nil && (o.WaiterID == nil || *o.WaiterID != *filter.WaiterID) {
			continue
		}
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (r *memOrders) FindLine(ctx context.Context, orderID, itemID uint) (*models.OrderLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.data.lines {
		if l.OrderID == orderID && l.ItemID == itemID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memOrders) LinesByOrder(ctx context.Context, orderID uint) ([]models.OrderLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.data.orderLines(orderID), nil
}

func (r *memOrders) CountLines(ctx context.Context, orderID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.data.orderLines(orderID))), nil
}

func (r *memOrders) SaveLine(ctx context.Context, line *models.OrderLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if line.ID == 0 {
		line.ID = r.s.data.id()
	}
	cp := *line
	cp.Order = nil
	cp.Item = nil
	r.s.data.lines[cp.ID] = &cp
	return nil
}

func (r *memOrders) DeleteLine(ctx context.Context, line *models.OrderLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.lines[line.ID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.data.lines, line.ID)
	return nil
}

func (r *memOrders) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, o := range r.s.data.orders {
		if o.Status == models.OrderStatusPending && o.CreatedAt.Before(cutoff) {
			o.Status = models.OrderStatusExpired
			count++
		}
	}
	return count, nil
}

func (r *memOrders) CompletedSince(ctx context.Context, since time.Time) (int64, decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	total := decimal.Zero
	for _, o := range r.s.data.orders {
		if o.Status == models.OrderStatusCompleted && !o.CreatedAt.Before(since) {
			count++
			total = total.Add(o.TotalCost)
		}
	}
	return count, total, nil
}

func (r *memOrders) CreatedBetween(ctx context.Context, start, end time.Time) ([]models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Order
	for _, o := range r.s.data.orders {
		if !o.CreatedAt.Before(start) && o.CreatedAt.Before(end) {
			detailed, _ := r.s.data.detailedOrder(o.ID)
			out = append(out, *detailed)
		}
	}
	return out, nil
}

// memItems

type memItems struct {
	s *memStore
}

func (r *memItems) Create(ctx context.Context, item *models.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.items {
		if existing.Name == item.Name {
			return repository.ErrDuplicate
		}
	}
	item.ID = r.s.data.id()
	cp := *item
	r.s.data.items[cp.ID] = &cp
	return nil
}

func (r *memItems) FindByID(ctx context.Context, id uint) (*models.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.data.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (r *memItems) FindByName(ctx context.Context, name string) (*models.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, i := range r.s.data.items {
		if i.Name == name {
			cp := *i
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memItems) Save(ctx context.Context, item *models.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.items[item.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *item
	r.s.data.items[cp.ID] = &cp
	return nil
}

func (r *memItems) Delete(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.items[id]; !ok {
		return repository.ErrNotFound
	}
	for _, l := range r.s.data.lines {
		if l.ItemID == id {
			return repository.ErrItemReferenced
		}
	}
	delete(r.s.data.items, id)
	return nil
}

func (r *memItems) FindAll(ctx context.Context, filter repository.ItemFilter) ([]models.Item, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Item
	now := time.Now()
	for _, i := range r.s.data.items {
		if filter.Category != nil && i.Category != *filter.Category {
			continue
		}
		if filter.ExcludeExpired && i.Expired(now) {
			continue
		}
		out = append(out, *i)
	}
	return out, int64(len(out)), nil
}

func (r *memItems) LockByID(ctx context.Context, id uint) (*models.Item, error) {
	return r.FindByID(ctx, id)
}

func (r *memItems) AdjustStock(ctx context.Context, id uint, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.data.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if i.StockQuantity+delta < 0 {
		return repository.ErrInsufficientStock
	}
	i.StockQuantity += delta
	return nil
}

func (r *memItems) ExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Item
	for _, i := range r.s.data.items {
		if i.ExpiryDate == nil || i.StockQuantity <= 0 || i.DiscountApplied {
			continue
		}
		if i.ExpiryDate.After(from) && !i.ExpiryDate.After(to) {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (r *memItems) ExpiringOn(ctx context.Context, day time.Time) ([]models.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Item
	for _, i := range r.s.data.items {
		if i.ExpiryDate == nil || i.StockQuantity <= 0 {
			continue
		}
		if i.ExpiryDate.Format("2006-01-02") == day.Format("2006-01-02") {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (r *memItems) ApplyDiscount(ctx context.Context, id uint, discounted decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.data.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	i.DiscountedPrice = &discounted
	i.DiscountApplied = true
	return nil
}

// memUsers

type memUsers struct {
	s *memStore
}

func (r *memUsers) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = r.s.data.id()
	cp := *user
	r.s.data.users[cp.ID] = &cp
	return nil
}

func (r *memUsers) FindByID(ctx context.Context, id uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) FindByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if u.VerificationToken != "" && u.VerificationToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) Save(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *user
	r.s.data.users[cp.ID] = &cp
	return nil
}

func (r *memUsers) FindWaiter(ctx context.Context, id uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok || u.Role != models.RoleWaiter {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) AdminEmails(ctx context.Context, verifiedOnly bool) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []string
	for _, u := range r.s.data.users {
		if !u.Role.IsAdmin() {
			continue
		}
		if verifiedOnly && !u.EmailVerified {
			continue
		}
		out = append(out, u.Email)
	}
	return out, nil
}

// memReports computes the commission aggregate in Go with the same
// weights the SQL report uses.

type memReports struct {
	s *memStore
}

var commissionWeights = map[models.Category]decimal.Decimal{
	models.CategoryFood:      decimal.NewFromFloat(0.01),
	models.CategoryBeverages: decimal.NewFromFloat(0.005),
	models.CategoryOthers:    decimal.NewFromFloat(0.0025),
}

func (r *memReports) WaiterCommission(ctx context.Context, q repository.CommissionQuery) ([]repository.CommissionRow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := make(map[uint]*repository.CommissionRow)

	for _, o := range r.s.data.orders {
		if o.Status != models.OrderStatusCompleted || o.WaiterID == nil {
			continue
		}
		if o.UpdatedAt.Before(q.Start) || o.UpdatedAt.After(q.End) {
			continue
		}
		waiter, ok := r.s.data.users[*o.WaiterID]
		if !ok || waiter.Role != models.RoleWaiter {
			continue
		}
		if q.WaiterID != nil && waiter.ID != *q.WaiterID {
			continue
		}
		if q.WaiterName != "" && !strings.Contains(strings.ToLower(waiter.Name), strings.ToLower(q.WaiterName)) {
			continue
		}

		row, ok := rows[waiter.ID]
		if !ok {
			row = &repository.CommissionRow{
				WaiterID:        waiter.ID,
				WaiterName:      waiter.Name,
				TotalRevenue:    decimal.Zero,
				TotalCommission: decimal.Zero,
			}
			rows[waiter.ID] = row
		}

		for _, l := range r.s.data.lines {
			if l.OrderID != o.ID {
				continue
			}
			item := r.s.data.items[l.ItemID]
			revenue := l.PriceAtOrder.Mul(decimal.NewFromInt(int64(l.Quantity)))
			row.TotalItemsSold++
			switch item.Category {
			case models.CategoryFood:
				row.ItemsSoldFood += int64(l.Quantity)
			case models.CategoryBeverages:
				row.ItemsSoldBeverages += int64(l.Quantity)
			case models.CategoryOthers:
				row.ItemsSoldOthers += int64(l.Quantity)
			}
			row.TotalRevenue = row.TotalRevenue.Add(revenue)
			row.TotalCommission = row.TotalCommission.Add(revenue.Mul(commissionWeights[item.Category]))
		}
	}

	var out []repository.CommissionRow
	for _, row := range rows {
		out = append(out, *row)
	}
	return out, nil
}

// fakeProducer records published events.

type fakeProducer struct {
	mu       sync.Mutex
	messages []string
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key, message []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, string(key))
	return nil
}

func (p *fakeProducer) Close() error { return nil }

// fakeEmailSender records sent mail.

type sentMail struct {
	To      []string
	Subject string
	Body    string
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeEmailSender) SendEmail(ctx context.Context, to []string, subject, body string) (sender.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return sender.SendResult{MessageID: "fake"}, nil
}

func (f *fakeEmailSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
