package sales

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vosmiarka/warehouse-backend/pkg/db/models"
	pkgerrors "github.com/vosmiarka/warehouse-backend/pkg/errors"
	"github.com/vosmiarka/warehouse-backend/pkg/pagination"
)

// Repository persists sale documents and their cancellations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateSale(ctx context.Context, sale *models.Sale) error
	CreateSaleItems(ctx context.Context, items []models.SaleItem) error
	FindSaleByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	// MarkSaleItemsCancelled flips the cancelled flag on the sale's items
	// for the given units.
	MarkSaleItemsCancelled(ctx context.Context, saleID uuid.UUID, unitIDs []uuid.UUID) error
	// RecomputeSaleTotal rewrites the sale total from its non-cancelled
	// items and returns the new value.
	RecomputeSaleTotal(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error)
	ListSales(ctx context.Context, filter SaleFilter, params pagination.Params) ([]models.Sale, error)

	FindCancellationBySale(ctx context.Context, saleID uuid.UUID) (*models.SaleCancellation, error)
	CreateCancellation(ctx context.Context, cancellation *models.SaleCancellation) error
}

// SaleFilter narrows sale listings.
type SaleFilter struct {
	CustomerID *uuid.UUID
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a sales repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSale(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Omit("Items", "Customer", "RequestItem").Create(sale).Error
}

func (r *repository) CreateSaleItems(ctx context.Context, items []models.SaleItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("ProductUnit").Create(&items).Error
}

func (r *repository) FindSaleByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) MarkSaleItemsCancelled(ctx context.Context, saleID uuid.UUID, unitIDs []uuid.UUID) error {
	if len(unitIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.SaleItem{}).
		Where("sale_id = ? AND product_unit_id IN ?", saleID, unitIDs).
		Update("cancelled", true).Error
}

func (r *repository) RecomputeSaleTotal(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error) {
	var items []models.SaleItem
	if err := r.db.WithContext(ctx).
		Where("sale_id = ? AND cancelled = ?", saleID, false).
		Find(&items).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.ActualPrice)
	}
	err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ?", saleID).
		Update("total_amount", total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *repository) ListSales(ctx context.Context, filter SaleFilter, params pagination.Params) ([]models.Sale, error) {
	query := r.db.WithContext(ctx).Model(&models.Sale{}).Preload("Items")
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}

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

	var found []models.Sale
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

func (r *repository) FindCancellationBySale(ctx context.Context, saleID uuid.UUID) (*models.SaleCancellation, error) {
	var cancellation models.SaleCancellation
	if err := r.db.WithContext(ctx).
		Preload("RestoredUnits").
		First(&cancellation, "sale_id = ?", saleID).Error; err != nil {
		return nil, err
	}
	return &cancellation, nil
}

func (r *repository) CreateCancellation(ctx context.Context, cancellation *models.SaleCancellation) error {
	// RestoredUnits.* keeps gorm from upserting the units themselves;
	// only the join rows are written.
	return r.db.WithContext(ctx).
		Omit("Sale", "RestoredUnits.*").
		Create(cancellation).Error
}
