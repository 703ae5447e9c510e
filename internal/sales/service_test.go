package sales

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vosmiarka/warehouse-backend/pkg/db/models"
	"github.com/vosmiarka/warehouse-backend/pkg/enums"
	pkgerrors "github.com/vosmiarka/warehouse-backend/pkg/errors"
	"github.com/vosmiarka/warehouse-backend/pkg/pagination"
)

type stubSalesRepo struct {
	sales         map[uuid.UUID]*models.Sale
	cancellations map[uuid.UUID]*models.SaleCancellation

	markedCancelled []uuid.UUID
	recomputedFor   []uuid.UUID
}

func newStubSalesRepo() *stubSalesRepo {
	return &stubSalesRepo{
		sales:         make(map[uuid.UUID]*models.Sale),
		cancellations: make(map[uuid.UUID]*models.SaleCancellation),
	}
}

func (s *stubSalesRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubSalesRepo) CreateSale(ctx context.Context, sale *models.Sale) error {
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	s.sales[sale.ID] = sale
	return nil
}

func (s *stubSalesRepo) CreateSaleItems(ctx context.Context, items []models.SaleItem) error {
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		sale, ok := s.sales[items[i].SaleID]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		sale.Items = append(sale.Items, items[i])
	}
	return nil
}

func (s *stubSalesRepo) FindSaleByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	sale, ok := s.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return sale, nil
}

func (s *stubSalesRepo) MarkSaleItemsCancelled(ctx context.Context, saleID uuid.UUID, unitIDs []uuid.UUID) error {
	sale, ok := s.sales[saleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	lookup := make(map[uuid.UUID]struct{}, len(unitIDs))
	for _, id := range unitIDs {
		lookup[id] = struct{}{}
		s.markedCancelled = append(s.markedCancelled, id)
	}
	for i := range sale.Items {
		if _, ok := lookup[sale.Items[i].ProductUnitID]; ok {
			sale.Items[i].Cancelled = true
		}
	}
	return nil
}

func (s *stubSalesRepo) RecomputeSaleTotal(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error) {
	s.recomputedFor = append(s.recomputedFor, saleID)
	sale, ok := s.sales[saleID]
	if !ok {
		return decimal.Zero, gorm.ErrRecordNotFound
	}
	total := decimal.Zero
	for _, item := range sale.Items {
		if !item.Cancelled {
			total = total.Add(item.ActualPrice)
		}
	}
	sale.TotalAmount = total
	return total, nil
}

func (s *stubSalesRepo) ListSales(ctx context.Context, filter SaleFilter, params pagination.Params) ([]models.Sale, error) {
	var found []models.Sale
	for _, sale := range s.sales {
		found = append(found, *sale)
	}
	return found, nil
}

func (s *stubSalesRepo) FindCancellationBySale(ctx context.Context, saleID uuid.UUID) (*models.SaleCancellation, error) {
	cancellation, ok := s.cancellations[saleID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cancellation, nil
}

func (s *stubSalesRepo) CreateCancellation(ctx context.Context, cancellation *models.SaleCancellation) error {
	if cancellation.ID == uuid.Nil {
		cancellation.ID = uuid.New()
	}
	s.cancellations[cancellation.SaleID] = cancellation
	return nil
}

type stubLedger struct {
	statuses map[uuid.UUID]enums.UnitStatus
	sells    []uuid.UUID
	restores []uuid.UUID
}

func newStubLedger() *stubLedger {
	return &stubLedger{statuses: make(map[uuid.UUID]enums.UnitStatus)}
}

func (s *stubLedger) Sell(ctx context.Context, tx *gorm.DB, unitID uuid.UUID, price decimal.Decimal) error {
	status, ok := s.statuses[unitID]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
	}
	if status != enums.UnitStatusInStore {
		return pkgerrors.New(pkgerrors.CodeUnitNotSellable, "unit is not in store")
	}
	s.statuses[unitID] = enums.UnitStatusSold
	s.sells = append(s.sells, unitID)
	return nil
}

func (s *stubLedger) Restore(ctx context.Context, tx *gorm.DB, unitID uuid.UUID) error {
	s.statuses[unitID] = enums.UnitStatusInStore
	s.restores = append(s.restores, unitID)
	return nil
}

type stubCustomerLoader struct {
	customers map[uuid.UUID]*models.Customer
}

func (s *stubCustomerLoader) FindCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, ok := s.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return customer, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type testFixture struct {
	repo       *stubSalesRepo
	ledger     *stubLedger
	customers  *stubCustomerLoader
	svc        Service
	customerID uuid.UUID
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		repo:       newStubSalesRepo(),
		ledger:     newStubLedger(),
		customers:  &stubCustomerLoader{customers: make(map[uuid.UUID]*models.Customer)},
		customerID: uuid.New(),
	}
	f.customers.customers[f.customerID] = &models.Customer{ID: f.customerID, Name: "Customer", Phone: "555"}

	svc, err := NewService(f.repo, stubTxRunner{}, f.ledger, f.customers)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	f.svc = svc
	return f
}

func (f *testFixture) stockUnit() uuid.UUID {
	unitID := uuid.New()
	f.ledger.statuses[unitID] = enums.UnitStatusInStore
	return unitID
}

func TestRecordSale(t *testing.T) {
	f := newFixture(t)
	unitA := f.stockUnit()
	unitB := f.stockUnit()

	sale, err := f.svc.RecordSale(context.Background(), RecordSaleInput{
		CustomerID: &f.customerID,
		Items: []SaleItemInput{
			{ProductUnitID: unitA, ActualPrice: decimal.NewFromInt(10)},
			{ProductUnitID: unitB, ActualPrice: decimal.NewFromInt(15)},
		},
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}
	if !sale.TotalAmount.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected total 25, got %s", sale.TotalAmount)
	}
	if len(f.ledger.sells) != 2 {
		t.Fatalf("expected 2 units sold, got %d", len(f.ledger.sells))
	}
	if f.ledger.statuses[unitA] != enums.UnitStatusSold {
		t.Fatalf("expected unit sold, got %s", f.ledger.statuses[unitA])
	}
	if sale.SaleType != enums.SaleTypeRegular {
		t.Fatalf("expected regular sale default, got %s", sale.SaleType)
	}
}

func TestRecordSaleRejectsUnitNotInStock(t *testing.T) {
	f := newFixture(t)
	good := f.stockUnit()
	bad := uuid.New()
	f.ledger.statuses[bad] = enums.UnitStatusSold

	_, err := f.svc.RecordSale(context.Background(), RecordSaleInput{
		Items: []SaleItemInput{
			{ProductUnitID: good, ActualPrice: decimal.NewFromInt(10)},
			{ProductUnitID: bad, ActualPrice: decimal.NewFromInt(15)},
		},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnitNotSellable) {
		t.Fatalf("expected unit not sellable, got %v", err)
	}
}

func TestRecordSaleValidation(t *testing.T) {
	f := newFixture(t)
	unitID := f.stockUnit()
	unknownCustomer := uuid.New()

	cases := []RecordSaleInput{
		{},
		{Items: []SaleItemInput{{ProductUnitID: uuid.Nil, ActualPrice: decimal.NewFromInt(1)}}},
		{Items: []SaleItemInput{{ProductUnitID: unitID, ActualPrice: decimal.NewFromInt(-1)}}},
		{Items: []SaleItemInput{
			{ProductUnitID: unitID, ActualPrice: decimal.NewFromInt(1)},
			{ProductUnitID: unitID, ActualPrice: decimal.NewFromInt(2)},
		}},
		{SaleType: enums.SaleTypeOrder, Items: []SaleItemInput{{ProductUnitID: unitID, ActualPrice: decimal.NewFromInt(1)}}},
		{CustomerID: &unknownCustomer, Items: []SaleItemInput{{ProductUnitID: unitID, ActualPrice: decimal.NewFromInt(1)}}},
	}
	for i, input := range cases {
		_, err := f.svc.RecordSale(context.Background(), input)
		if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	if len(f.ledger.sells) != 0 {
		t.Fatal("no unit may be sold on validation failure")
	}
}

func recordTestSale(t *testing.T, f *testFixture, unitIDs ...uuid.UUID) *models.Sale {
	t.Helper()
	items := make([]SaleItemInput, len(unitIDs))
	for i, id := range unitIDs {
		items[i] = SaleItemInput{ProductUnitID: id, ActualPrice: decimal.NewFromInt(10)}
	}
	sale, err := f.svc.RecordSale(context.Background(), RecordSaleInput{
		CustomerID: &f.customerID,
		Items:      items,
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}
	return sale
}

func TestCancelSaleRestoresUnitsAndMarksItems(t *testing.T) {
	f := newFixture(t)
	unitA := f.stockUnit()
	unitB := f.stockUnit()
	sale := recordTestSale(t, f, unitA, unitB)

	cancellation, err := f.svc.CancelSale(context.Background(), CancelSaleInput{
		SaleID:         sale.ID,
		Reason:         "damaged on pickup",
		UnitsToRestore: []uuid.UUID{unitA},
	})
	if err != nil {
		t.Fatalf("cancel sale failed: %v", err)
	}
	if cancellation.Reason != "damaged on pickup" {
		t.Fatalf("unexpected reason %q", cancellation.Reason)
	}
	if f.ledger.statuses[unitA] != enums.UnitStatusInStore {
		t.Fatalf("expected restored unit in store, got %s", f.ledger.statuses[unitA])
	}
	if f.ledger.statuses[unitB] != enums.UnitStatusSold {
		t.Fatalf("unit not listed for restore must stay sold, got %s", f.ledger.statuses[unitB])
	}

	updated, err := f.svc.GetSale(context.Background(), sale.ID)
	if err != nil {
		t.Fatalf("get sale failed: %v", err)
	}
	if !updated.TotalAmount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected total 10 after partial cancel, got %s", updated.TotalAmount)
	}
	for _, item := range updated.Items {
		if item.ProductUnitID == unitA && !item.Cancelled {
			t.Fatal("expected restored unit's item marked cancelled")
		}
		if item.ProductUnitID == unitB && item.Cancelled {
			t.Fatal("unaffected item must not be marked cancelled")
		}
	}
}

func TestCancelSaleTwice(t *testing.T) {
	f := newFixture(t)
	unitID := f.stockUnit()
	sale := recordTestSale(t, f, unitID)

	_, err := f.svc.CancelSale(context.Background(), CancelSaleInput{
		SaleID:         sale.ID,
		Reason:         "first",
		UnitsToRestore: []uuid.UUID{unitID},
	})
	if err != nil {
		t.Fatalf("first cancel failed: %v", err)
	}

	_, err = f.svc.CancelSale(context.Background(), CancelSaleInput{
		SaleID:         sale.ID,
		Reason:         "second",
		UnitsToRestore: []uuid.UUID{unitID},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeAlreadyCancelled) {
		t.Fatalf("expected already cancelled, got %v", err)
	}
}

func TestCancelSaleRejectsForeignUnit(t *testing.T) {
	f := newFixture(t)
	unitID := f.stockUnit()
	sale := recordTestSale(t, f, unitID)
	foreign := f.stockUnit()

	_, err := f.svc.CancelSale(context.Background(), CancelSaleInput{
		SaleID:         sale.ID,
		Reason:         "wrong unit",
		UnitsToRestore: []uuid.UUID{foreign},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.ledger.restores) != 0 {
		t.Fatal("no unit may be restored when membership check fails")
	}
}

func TestCancelSaleRequiresReason(t *testing.T) {
	f := newFixture(t)
	unitID := f.stockUnit()
	sale := recordTestSale(t, f, unitID)

	_, err := f.svc.CancelSale(context.Background(), CancelSaleInput{
		SaleID:         sale.ID,
		Reason:         "  ",
		UnitsToRestore: []uuid.UUID{unitID},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
