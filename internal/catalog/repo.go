package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vosmiarka/warehouse-backend/pkg/db/models"
	pkgerrors "github.com/vosmiarka/warehouse-backend/pkg/errors"
	"github.com/vosmiarka/warehouse-backend/pkg/pagination"
)

// Repository stores catalog reference data: products, customers, suppliers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateProduct(ctx context.Context, product *models.Product) error
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProductByCode(ctx context.Context, code string) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListProducts(ctx context.Context, params pagination.Params) ([]models.Product, error)
	CountUnitsForProduct(ctx context.Context, productID uuid.UUID) (int64, error)

	CreateCustomer(ctx context.Context, customer *models.Customer) error
	FindCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
	ListCustomers(ctx context.Context, params pagination.Params) ([]models.Customer, error)
	CountSalesForCustomer(ctx context.Context, customerID uuid.UUID) (int64, error)

	CreateSupplier(ctx context.Context, supplier *models.Supplier) error
	FindSupplierByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	UpdateSupplier(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteSupplier(ctx context.Context, id uuid.UUID) error
	ListSuppliers(ctx context.Context, params pagination.Params) ([]models.Supplier, error)
	CountDeliveriesForSupplier(ctx context.Context, supplierID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindProductByCode(ctx context.Context, code string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

func (r *repository) ListProducts(ctx context.Context, params pagination.Params) ([]models.Product, error) {
	var found []models.Product
	query, err := cursorQuery(r.db.WithContext(ctx).Model(&models.Product{}), params)
	if err != nil {
		return nil, err
	}
	if err := query.Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

func (r *repository) CountUnitsForProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductUnit{}).
		Where("product_id = ?", productID).
		Count(&count).Error
	return count, err
}

func (r *repository) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) FindCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) UpdateCustomer(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Customer{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Customer{}, "id = ?", id).Error
}

func (r *repository) ListCustomers(ctx context.Context, params pagination.Params) ([]models.Customer, error) {
	var found []models.Customer
	query, err := cursorQuery(r.db.WithContext(ctx).Model(&models.Customer{}), params)
	if err != nil {
		return nil, err
	}
	if err := query.Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

func (r *repository) CountSalesForCustomer(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("customer_id = ?", customerID).
		Count(&count).Error
	return count, err
}

func (r *repository) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

func (r *repository) FindSupplierByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) UpdateSupplier(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Supplier{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Supplier{}, "id = ?", id).Error
}

func (r *repository) ListSuppliers(ctx context.Context, params pagination.Params) ([]models.Supplier, error) {
	var found []models.Supplier
	query, err := cursorQuery(r.db.WithContext(ctx).Model(&models.Supplier{}), params)
	if err != nil {
		return nil, err
	}
	if err := query.Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

func (r *repository) CountDeliveriesForSupplier(ctx context.Context, supplierID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("supplier_id = ?", supplierID).
		Count(&count).Error
	return count, err
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
