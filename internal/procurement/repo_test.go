package procurement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vosmiarka/warehouse-backend/pkg/db/models"
	"github.com/vosmiarka/warehouse-backend/pkg/pagination"
)

func setupProcurementTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS requests (
  id TEXT PRIMARY KEY,
  is_completed INTEGER NOT NULL DEFAULT 0,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS request_items (
  id TEXT PRIMARY KEY,
  request_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity_ordered INTEGER NOT NULL,
  price_per_unit NUMERIC NOT NULL,
  is_customer_order INTEGER NOT NULL DEFAULT 0,
  customer_id TEXT,
  supplier_id TEXT,
  quantity_received INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS deliveries (
  id TEXT PRIMARY KEY,
  supplier_id TEXT NOT NULL,
  delivery_date DATETIME NOT NULL,
  total_amount NUMERIC NOT NULL DEFAULT 0,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS delivery_items (
  id TEXT PRIMARY KEY,
  delivery_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity_received INTEGER NOT NULL,
  price_per_unit NUMERIC NOT NULL,
  request_item_id TEXT,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS product_units (
  id TEXT PRIMARY KEY,
  serial_number TEXT NOT NULL CONSTRAINT ux_product_units_serial UNIQUE,
  product_id TEXT NOT NULL,
  request_item_id TEXT,
  delivery_item_id TEXT,
  status TEXT NOT NULL DEFAULT 'in_request',
  sold_at DATETIME,
  sale_price NUMERIC,
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	for _, table := range []string{"product_units", "delivery_items", "deliveries", "request_items", "requests"} {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}
	return db
}

func TestRepoRequestRoundTrip(t *testing.T) {
	db := setupProcurementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	request := &models.Request{ID: uuid.New()}
	require.NoError(t, repo.CreateRequest(ctx, request))

	items := []models.RequestItem{
		{
			ID:              uuid.New(),
			RequestID:       request.ID,
			ProductID:       uuid.New(),
			QuantityOrdered: 3,
			PricePerUnit:    decimal.NewFromInt(10),
			IsCustomerOrder: true,
		},
	}
	require.NoError(t, repo.CreateRequestItems(ctx, items))

	found, err := repo.FindRequestByID(ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, 3, found.Items[0].QuantityOrdered)
	assert.False(t, found.IsCompleted)

	require.NoError(t, repo.UpdateRequest(ctx, request.ID, map[string]any{"is_completed": true}))
	found, err = repo.FindRequestByID(ctx, request.ID)
	require.NoError(t, err)
	assert.True(t, found.IsCompleted)
}

func TestRepoIncrementRequestItemReceived(t *testing.T) {
	db := setupProcurementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	item := models.RequestItem{
		ID:              uuid.New(),
		RequestID:       uuid.New(),
		ProductID:       uuid.New(),
		QuantityOrdered: 5,
		PricePerUnit:    decimal.NewFromInt(10),
	}
	require.NoError(t, repo.CreateRequestItems(ctx, []models.RequestItem{item}))

	require.NoError(t, repo.IncrementRequestItemReceived(ctx, item.ID, 2))
	require.NoError(t, repo.IncrementRequestItemReceived(ctx, item.ID, 1))

	found, err := repo.FindRequestItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, found.QuantityReceived)
}

func TestRepoRecomputeDeliveryTotal(t *testing.T) {
	db := setupProcurementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	delivery := &models.Delivery{
		ID:           uuid.New(),
		SupplierID:   uuid.New(),
		DeliveryDate: time.Now(),
	}
	require.NoError(t, repo.CreateDelivery(ctx, delivery))

	itemA := &models.DeliveryItem{
		ID:               uuid.New(),
		DeliveryID:       delivery.ID,
		ProductID:        uuid.New(),
		QuantityReceived: 3,
		PricePerUnit:     decimal.NewFromFloat(2.50),
	}
	itemB := &models.DeliveryItem{
		ID:               uuid.New(),
		DeliveryID:       delivery.ID,
		ProductID:        uuid.New(),
		QuantityReceived: 1,
		PricePerUnit:     decimal.NewFromInt(4),
	}
	require.NoError(t, repo.CreateDeliveryItem(ctx, itemA))
	require.NoError(t, repo.CreateDeliveryItem(ctx, itemB))

	total, err := repo.RecomputeDeliveryTotal(ctx, delivery.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromFloat(11.50)), "got %s", total)

	found, err := repo.FindDeliveryByID(ctx, delivery.ID)
	require.NoError(t, err)
	assert.True(t, found.TotalAmount.Equal(decimal.NewFromFloat(11.50)))

	require.NoError(t, repo.DeleteDeliveryItem(ctx, itemB.ID))
	total, err = repo.RecomputeDeliveryTotal(ctx, delivery.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromFloat(7.50)), "got %s", total)
}

func TestRepoListDeliveriesFilter(t *testing.T) {
	db := setupProcurementTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	supplierID := uuid.New()
	for i := 0; i < 2; i++ {
		require.NoError(t, repo.CreateDelivery(ctx, &models.Delivery{
			ID:           uuid.New(),
			SupplierID:   supplierID,
			DeliveryDate: time.Now(),
		}))
	}
	require.NoError(t, repo.CreateDelivery(ctx, &models.Delivery{
		ID:           uuid.New(),
		SupplierID:   uuid.New(),
		DeliveryDate: time.Now(),
	}))

	found, err := repo.ListDeliveries(ctx, DeliveryFilter{SupplierID: &supplierID}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, found, 2)
}
