package units

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vosmiarka/warehouse-backend/pkg/db/models"
	"github.com/vosmiarka/warehouse-backend/pkg/enums"
	pkgerrors "github.com/vosmiarka/warehouse-backend/pkg/errors"
	"github.com/vosmiarka/warehouse-backend/pkg/pagination"
)

// Repository manages persistence for product units.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, unit *models.ProductUnit) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProductUnit, error)
	// FindRequestUnitsForProduct returns in_request units of a product,
	// those without a delivery binding first, oldest first.
	FindRequestUnitsForProduct(ctx context.Context, productID uuid.UUID, limit int) ([]models.ProductUnit, error)
	// TransitionStatus applies updates to the unit only when its current
	// status matches from, and reports whether a row was changed. This is
	// the per-row exclusivity guard: of several racing transitions exactly
	// one observes the expected status.
	TransitionStatus(ctx context.Context, id uuid.UUID, from enums.UnitStatus, updates map[string]any) (bool, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.ProductUnit, error)
}

// ListFilter narrows unit listings.
type ListFilter struct {
	ProductID *uuid.UUID
	Status    *enums.UnitStatus
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a unit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the unit inside its own savepoint. On Postgres a failed
// INSERT aborts the surrounding transaction, so without the savepoint a
// serial collision would poison the caller's transaction and make the
// retry in the service unreachable.
func (r *repository) Create(ctx context.Context, unit *models.ProductUnit) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(unit).Error
	})
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductUnit, error) {
	var unit models.ProductUnit
	if err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) FindRequestUnitsForProduct(ctx context.Context, productID uuid.UUID, limit int) ([]models.ProductUnit, error) {
	var found []models.ProductUnit
	query := r.db.WithContext(ctx).
		Where("product_id = ? AND status = ?", productID, enums.UnitStatusInRequest).
		Order("delivery_item_id IS NOT NULL").
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from enums.UnitStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProductUnit{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.ProductUnit, error) {
	query := r.db.WithContext(ctx).Model(&models.ProductUnit{})
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
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

	var found []models.ProductUnit
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}
