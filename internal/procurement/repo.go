package procurement

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vosmiarka/warehouse-backend/pkg/db/models"
	pkgerrors "github.com/vosmiarka/warehouse-backend/pkg/errors"
	"github.com/vosmiarka/warehouse-backend/pkg/pagination"
)

// Repository persists the procurement documents: requests and deliveries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateRequest(ctx context.Context, request *models.Request) error
	CreateRequestItems(ctx context.Context, items []models.RequestItem) error
	FindRequestByID(ctx context.Context, id uuid.UUID) (*models.Request, error)
	FindRequestItemByID(ctx context.Context, id uuid.UUID) (*models.RequestItem, error)
	UpdateRequest(ctx context.Context, id uuid.UUID, updates map[string]any) error
	IncrementRequestItemReceived(ctx context.Context, id uuid.UUID, delta int) error
	ListRequests(ctx context.Context, filter RequestFilter, params pagination.Params) ([]models.Request, error)

	CreateDelivery(ctx context.Context, delivery *models.Delivery) error
	CreateDeliveryItem(ctx context.Context, item *models.DeliveryItem) error
	FindDeliveryByID(ctx context.Context, id uuid.UUID) (*models.Delivery, error)
	FindDeliveryItemByID(ctx context.Context, id uuid.UUID) (*models.DeliveryItem, error)
	UpdateDeliveryItem(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteDeliveryItem(ctx context.Context, id uuid.UUID) error
	// RecomputeDeliveryTotal rewrites the delivery total from its current
	// items and returns the new value.
	RecomputeDeliveryTotal(ctx context.Context, deliveryID uuid.UUID) (decimal.Decimal, error)
	ListDeliveries(ctx context.Context, filter DeliveryFilter, params pagination.Params) ([]models.Delivery, error)
}

// RequestFilter narrows request listings.
type RequestFilter struct {
	IsCompleted *bool
}

// DeliveryFilter narrows delivery listings.
type DeliveryFilter struct {
	SupplierID *uuid.UUID
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a procurement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRequest(ctx context.Context, request *models.Request) error {
	return r.db.WithContext(ctx).Omit("Items").Create(request).Error
}

func (r *repository) CreateRequestItems(ctx context.Context, items []models.RequestItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindRequestByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	var request models.Request
	if err := r.db.WithContext(ctx).Preload("Items").First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindRequestItemByID(ctx context.Context, id uuid.UUID) (*models.RequestItem, error) {
	var item models.RequestItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpdateRequest(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Request{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) IncrementRequestItemReceived(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.RequestItem{}).
		Where("id = ?", id).
		Update("quantity_received", gorm.Expr("quantity_received + ?", delta)).Error
}

func (r *repository) ListRequests(ctx context.Context, filter RequestFilter, params pagination.Params) ([]models.Request, error) {
	query := r.db.WithContext(ctx).Model(&models.Request{}).Preload("Items")
	if filter.IsCompleted != nil {
		query = query.Where("is_completed = ?", *filter.IsCompleted)
	}
	query, err := cursorQuery(query, params)
	if err != nil {
		return nil, err
	}
	var found []models.Request
	if err := query.Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

func (r *repository) CreateDelivery(ctx context.Context, delivery *models.Delivery) error {
	return r.db.WithContext(ctx).Omit("Items", "Supplier").Create(delivery).Error
}

func (r *repository) CreateDeliveryItem(ctx context.Context, item *models.DeliveryItem) error {
	return r.db.WithContext(ctx).Omit("Product", "RequestItem", "ReceivedUnits").Create(item).Error
}

func (r *repository) FindDeliveryByID(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.ReceivedUnits").
		First(&delivery, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) FindDeliveryItemByID(ctx context.Context, id uuid.UUID) (*models.DeliveryItem, error) {
	var item models.DeliveryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpdateDeliveryItem(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.DeliveryItem{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) DeleteDeliveryItem(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.DeliveryItem{}, "id = ?", id).Error
}

func (r *repository) RecomputeDeliveryTotal(ctx context.Context, deliveryID uuid.UUID) (decimal.Decimal, error) {
	var items []models.DeliveryItem
	if err := r.db.WithContext(ctx).
		Where("delivery_id = ?", deliveryID).
		Find(&items).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.PricePerUnit.Mul(decimal.NewFromInt(int64(item.QuantityReceived))))
	}
	err := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ?", deliveryID).
		Update("total_amount", total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *repository) ListDeliveries(ctx context.Context, filter DeliveryFilter, params pagination.Params) ([]models.Delivery, error) {
	query := r.db.WithContext(ctx).Model(&models.Delivery{}).Preload("Items")
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	query, err := cursorQuery(query, params)
	if err != nil {
		return nil, err
	}
	var found []models.Delivery
	if err := query.Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

func cursorQuery(query *gorm.DB, params pagination.Params) (*gorm.DB, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse cursor")
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	return query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)), nil
}
