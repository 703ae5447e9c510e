package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vosmiarka/warehouse-backend/pkg/db/models"
	pkgerrors "github.com/vosmiarka/warehouse-backend/pkg/errors"
	"github.com/vosmiarka/warehouse-backend/pkg/pagination"
)

type stubCatalogRepo struct {
	products  map[uuid.UUID]*models.Product
	customers map[uuid.UUID]*models.Customer
	suppliers map[uuid.UUID]*models.Supplier

	unitCounts     map[uuid.UUID]int64
	saleCounts     map[uuid.UUID]int64
	deliveryCounts map[uuid.UUID]int64

	createProductErr error
	deleted          []uuid.UUID
}

func newStubCatalogRepo() *stubCatalogRepo {
	return &stubCatalogRepo{
		products:       make(map[uuid.UUID]*models.Product),
		customers:      make(map[uuid.UUID]*models.Customer),
		suppliers:      make(map[uuid.UUID]*models.Supplier),
		unitCounts:     make(map[uuid.UUID]int64),
		saleCounts:     make(map[uuid.UUID]int64),
		deliveryCounts: make(map[uuid.UUID]int64),
	}
}

func (s *stubCatalogRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCatalogRepo) CreateProduct(ctx context.Context, product *models.Product) error {
	if s.createProductErr != nil {
		return s.createProductErr
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	s.products[product.ID] = product
	return nil
}

func (s *stubCatalogRepo) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

func (s *stubCatalogRepo) FindProductByCode(ctx context.Context, code string) (*models.Product, error) {
	for _, product := range s.products {
		if product.Code == code {
			return product, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogRepo) UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	product, ok := s.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if name, ok := updates["name"].(string); ok {
		product.Name = name
	}
	return nil
}

func (s *stubCatalogRepo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	delete(s.products, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubCatalogRepo) ListProducts(ctx context.Context, params pagination.Params) ([]models.Product, error) {
	var found []models.Product
	for _, product := range s.products {
		found = append(found, *product)
	}
	return found, nil
}

func (s *stubCatalogRepo) CountUnitsForProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	return s.unitCounts[productID], nil
}

func (s *stubCatalogRepo) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	s.customers[customer.ID] = customer
	return nil
}

func (s *stubCatalogRepo) FindCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, ok := s.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return customer, nil
}

func (s *stubCatalogRepo) UpdateCustomer(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	customer, ok := s.customers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if phone, ok := updates["phone"].(string); ok {
		customer.Phone = phone
	}
	return nil
}

func (s *stubCatalogRepo) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	delete(s.customers, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubCatalogRepo) ListCustomers(ctx context.Context, params pagination.Params) ([]models.Customer, error) {
	var found []models.Customer
	for _, customer := range s.customers {
		found = append(found, *customer)
	}
	return found, nil
}

func (s *stubCatalogRepo) CountSalesForCustomer(ctx context.Context, customerID uuid.UUID) (int64, error) {
	return s.saleCounts[customerID], nil
}

func (s *stubCatalogRepo) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	if supplier.ID == uuid.Nil {
		supplier.ID = uuid.New()
	}
	s.suppliers[supplier.ID] = supplier
	return nil
}

func (s *stubCatalogRepo) FindSupplierByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	supplier, ok := s.suppliers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return supplier, nil
}

func (s *stubCatalogRepo) UpdateSupplier(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubCatalogRepo) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	delete(s.suppliers, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubCatalogRepo) ListSuppliers(ctx context.Context, params pagination.Params) ([]models.Supplier, error) {
	var found []models.Supplier
	for _, supplier := range s.suppliers {
		found = append(found, *supplier)
	}
	return found, nil
}

func (s *stubCatalogRepo) CountDeliveriesForSupplier(ctx context.Context, supplierID uuid.UUID) (int64, error) {
	return s.deliveryCounts[supplierID], nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func TestCreateProductNormalizesCode(t *testing.T) {
	repo := newStubCatalogRepo()
	svc := newTestService(t, repo)

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name: "  Widget ",
		Code: " widget ",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if product.Code != "WIDGET" {
		t.Fatalf("expected upper-cased code, got %q", product.Code)
	}
	if product.Name != "Widget" {
		t.Fatalf("expected trimmed name, got %q", product.Name)
	}
}

func TestCreateProductDuplicateCode(t *testing.T) {
	repo := newStubCatalogRepo()
	repo.createProductErr = errors.New(`duplicate key value violates unique constraint "ux_products_code"`)
	svc := newTestService(t, repo)

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{Name: "A", Code: "DUP"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc := newTestService(t, newStubCatalogRepo())

	cases := []CreateProductInput{
		{Name: "", Code: "W"},
		{Name: "Widget", Code: ""},
		{Name: "Widget", Code: "HAS SPACE"},
	}
	for _, input := range cases {
		if _, err := svc.CreateProduct(context.Background(), input); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %+v, got %v", input, err)
		}
	}
}

func TestDeleteProductWithUnits(t *testing.T) {
	repo := newStubCatalogRepo()
	productID := uuid.New()
	repo.products[productID] = &models.Product{ID: productID, Name: "Widget", Code: "W"}
	repo.unitCounts[productID] = 3
	svc := newTestService(t, repo)

	err := svc.DeleteProduct(context.Background(), productID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeReferentialViolation) {
		t.Fatalf("expected referential violation, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatal("delete should not run when units exist")
	}
}

func TestDeleteProductWithoutUnits(t *testing.T) {
	repo := newStubCatalogRepo()
	productID := uuid.New()
	repo.products[productID] = &models.Product{ID: productID, Name: "Widget", Code: "W"}
	svc := newTestService(t, repo)

	if err := svc.DeleteProduct(context.Background(), productID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(repo.deleted) != 1 {
		t.Fatal("expected delete to run")
	}
}

func TestDeleteCustomerWithSales(t *testing.T) {
	repo := newStubCatalogRepo()
	customerID := uuid.New()
	repo.customers[customerID] = &models.Customer{ID: customerID, Name: "C", Phone: "555"}
	repo.saleCounts[customerID] = 1
	svc := newTestService(t, repo)

	err := svc.DeleteCustomer(context.Background(), customerID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeReferentialViolation) {
		t.Fatalf("expected referential violation, got %v", err)
	}
}

func TestUpdateCustomerRejectsEmptyPhone(t *testing.T) {
	repo := newStubCatalogRepo()
	customerID := uuid.New()
	repo.customers[customerID] = &models.Customer{ID: customerID, Name: "C", Phone: "555"}
	svc := newTestService(t, repo)

	empty := " "
	_, err := svc.UpdateCustomer(context.Background(), customerID, UpdateCustomerInput{Phone: &empty})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetSupplierNotFound(t *testing.T) {
	svc := newTestService(t, newStubCatalogRepo())
	_, err := svc.GetSupplier(context.Background(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteSupplierAllowed(t *testing.T) {
	repo := newStubCatalogRepo()
	supplierID := uuid.New()
	repo.suppliers[supplierID] = &models.Supplier{ID: supplierID, Name: "S"}
	svc := newTestService(t, repo)

	if err := svc.DeleteSupplier(context.Background(), supplierID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
}

func TestDeleteSupplierWithDeliveriesBlocked(t *testing.T) {
	repo := newStubCatalogRepo()
	supplierID := uuid.New()
	repo.suppliers[supplierID] = &models.Supplier{ID: supplierID, Name: "S"}
	repo.deliveryCounts[supplierID] = 2
	svc := newTestService(t, repo)

	err := svc.DeleteSupplier(context.Background(), supplierID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeReferentialViolation) {
		t.Fatalf("expected referential violation, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatalf("supplier must not be deleted while deliveries reference it")
	}
}
