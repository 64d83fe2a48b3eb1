package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Sentinel errors returned by repositories. Services translate these into
// caller-facing status errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("record already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrItemReferenced    = errors.New("item is referenced by order lines")
)

// Store bundles the repositories behind a single transaction boundary.
// Transaction runs fn against a Store bound to one database transaction;
// any error rolls back every write made through that Store.
type Store interface {
	Orders() OrderRepository
	Items() ItemRepository
	Users() UserRepository
	Reports() ReportRepository
	Transaction(ctx context.Context, fn func(Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a gorm-backed Store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Orders() OrderRepository   { return &orderRepository{db: s.db} }
func (s *gormStore) Items() ItemRepository     { return &itemRepository{db: s.db} }
func (s *gormStore) Users() UserRepository     { return &userRepository{db: s.db} }
func (s *gormStore) Reports() ReportRepository { return &reportRepository{db: s.db} }

func (s *gormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
