package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vosmiarka/warehouse-backend/pkg/db"
	"github.com/vosmiarka/warehouse-backend/pkg/db/models"
	pkgerrors "github.com/vosmiarka/warehouse-backend/pkg/errors"
	"github.com/vosmiarka/warehouse-backend/pkg/pagination"
)

const productCodeConstraint = "ux_products_code"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages catalog reference data.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListProducts(ctx context.Context, params pagination.Params) ([]models.Product, *string, error)

	CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, input UpdateCustomerInput) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
	ListCustomers(ctx context.Context, params pagination.Params) ([]models.Customer, *string, error)

	CreateSupplier(ctx context.Context, input CreateSupplierInput) (*models.Supplier, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	UpdateSupplier(ctx context.Context, id uuid.UUID, input UpdateSupplierInput) (*models.Supplier, error)
	DeleteSupplier(ctx context.Context, id uuid.UUID) error
	ListSuppliers(ctx context.Context, params pagination.Params) ([]models.Supplier, *string, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name  string
	Code  string
	Notes *string
}

// UpdateProductInput holds optional mutation values for a product.
// The product code is immutable: existing unit serials embed it.
type UpdateProductInput struct {
	Name  *string
	Notes *string
}

// CreateCustomerInput holds the validated payload to create a customer.
type CreateCustomerInput struct {
	Name  string
	Phone string
	Email *string
	Notes *string
}

// UpdateCustomerInput holds optional mutation values for a customer.
type UpdateCustomerInput struct {
	Name  *string
	Phone *string
	Email *string
	Notes *string
}

// CreateSupplierInput holds the validated payload to create a supplier.
type CreateSupplierInput struct {
	Name          string
	ContactPerson string
	Phone         string
	Notes         *string
}

// UpdateSupplierInput holds optional mutation values for a supplier.
type UpdateSupplierInput struct {
	Name          *string
	ContactPerson *string
	Phone         *string
	Notes         *string
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService constructs a catalog service instance.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product code required")
	}
	if strings.Contains(code, " ") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product code cannot contain spaces")
	}

	product := &models.Product{Name: name, Code: code, Notes: input.Notes}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if db.IsUniqueViolation(err, productCodeConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product code already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}

	if _, err := s.GetProduct(ctx, id); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateProduct(ctx, id, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct removes a product that has no units. Any unit, whatever
// its status, pins the product.
func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindProductByID(ctx, id); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		count, err := repo.CountUnitsForProduct(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count product units")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeReferentialViolation, "product has units").
				WithDetails(map[string]any{"unit_count": count})
		}
		if err := repo.DeleteProduct(ctx, id); err != nil {
			if db.IsForeignKeyViolation(err) {
				return pkgerrors.New(pkgerrors.CodeReferentialViolation, "product is referenced")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
		}
		return nil
	})
}

func (s *service) ListProducts(ctx context.Context, params pagination.Params) ([]models.Product, *string, error) {
	params.Limit = pagination.NormalizeLimit(params.Limit)
	found, err := s.repo.ListProducts(ctx, params)
	if err != nil {
		return nil, nil, listError(err, "list products")
	}
	var next *string
	if len(found) > params.Limit {
		found = found[:params.Limit]
		last := found[len(found)-1]
		cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		next = &cursor
	}
	return found, next, nil
}

func (s *service) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error) {
	name := strings.TrimSpace(input.Name)
	phone := strings.TrimSpace(input.Phone)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer phone required")
	}
	customer := &models.Customer{Name: name, Phone: phone, Email: input.Email, Notes: input.Notes}
	if err := s.repo.CreateCustomer(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
	}
	return customer, nil
}

func (s *service) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.FindCustomerByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return customer, nil
}

func (s *service) UpdateCustomer(ctx context.Context, id uuid.UUID, input UpdateCustomerInput) (*models.Customer, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer phone cannot be empty")
		}
		updates["phone"] = phone
	}
	if input.Email != nil {
		updates["email"] = *input.Email
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}

	if _, err := s.GetCustomer(ctx, id); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateCustomer(ctx, id, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer")
		}
	}
	return s.GetCustomer(ctx, id)
}

// DeleteCustomer removes a customer with no sales on record.
func (s *service) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindCustomerByID(ctx, id); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
		}
		count, err := repo.CountSalesForCustomer(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count customer sales")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeReferentialViolation, "customer has sales").
				WithDetails(map[string]any{"sale_count": count})
		}
		if err := repo.DeleteCustomer(ctx, id); err != nil {
			if db.IsForeignKeyViolation(err) {
				return pkgerrors.New(pkgerrors.CodeReferentialViolation, "customer is referenced")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete customer")
		}
		return nil
	})
}

func (s *service) ListCustomers(ctx context.Context, params pagination.Params) ([]models.Customer, *string, error) {
	params.Limit = pagination.NormalizeLimit(params.Limit)
	found, err := s.repo.ListCustomers(ctx, params)
	if err != nil {
		return nil, nil, listError(err, "list customers")
	}
	var next *string
	if len(found) > params.Limit {
		found = found[:params.Limit]
		last := found[len(found)-1]
		cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		next = &cursor
	}
	return found, next, nil
}

func (s *service) CreateSupplier(ctx context.Context, input CreateSupplierInput) (*models.Supplier, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier name required")
	}
	supplier := &models.Supplier{
		Name:          name,
		ContactPerson: strings.TrimSpace(input.ContactPerson),
		Phone:         strings.TrimSpace(input.Phone),
		Notes:         input.Notes,
	}
	if err := s.repo.CreateSupplier(ctx, supplier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create supplier")
	}
	return supplier, nil
}

func (s *service) GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	supplier, err := s.repo.FindSupplierByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	return supplier, nil
}

func (s *service) UpdateSupplier(ctx context.Context, id uuid.UUID, input UpdateSupplierInput) (*models.Supplier, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier name cannot be empty")
		}
		updates["name"] = name
	}
	if input.ContactPerson != nil {
		updates["contact_person"] = strings.TrimSpace(*input.ContactPerson)
	}
	if input.Phone != nil {
		updates["phone"] = strings.TrimSpace(*input.Phone)
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}

	if _, err := s.GetSupplier(ctx, id); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateSupplier(ctx, id, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update supplier")
		}
	}
	return s.GetSupplier(ctx, id)
}

// DeleteSupplier removes a supplier that has no deliveries. Request items
// keep their history with the supplier reference cleared.
func (s *service) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindSupplierByID(ctx, id); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
		}
		count, err := repo.CountDeliveriesForSupplier(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count supplier deliveries")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeReferentialViolation, "supplier has deliveries").
				WithDetails(map[string]any{"delivery_count": count})
		}
		if err := repo.DeleteSupplier(ctx, id); err != nil {
			if db.IsForeignKeyViolation(err) {
				return pkgerrors.New(pkgerrors.CodeReferentialViolation, "supplier is referenced")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete supplier")
		}
		return nil
	})
}

func (s *service) ListSuppliers(ctx context.Context, params pagination.Params) ([]models.Supplier, *string, error) {
	params.Limit = pagination.NormalizeLimit(params.Limit)
	found, err := s.repo.ListSuppliers(ctx, params)
	if err != nil {
		return nil, nil, listError(err, "list suppliers")
	}
	var next *string
	if len(found) > params.Limit {
		found = found[:params.Limit]
		last := found[len(found)-1]
		cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		next = &cursor
	}
	return found, next, nil
}

func listError(err error, message string) error {
	if pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
