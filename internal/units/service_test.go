package units

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vosmiarka/warehouse-backend/pkg/db/models"
	"github.com/vosmiarka/warehouse-backend/pkg/enums"
	pkgerrors "github.com/vosmiarka/warehouse-backend/pkg/errors"
	"github.com/vosmiarka/warehouse-backend/pkg/pagination"
)

type stubUnitsRepo struct {
	units       map[uuid.UUID]*models.ProductUnit
	createErrs  []error
	created     []*models.ProductUnit
	transitions []stubTransition
}

type stubTransition struct {
	id      uuid.UUID
	from    enums.UnitStatus
	updates map[string]any
}

func newStubUnitsRepo() *stubUnitsRepo {
	return &stubUnitsRepo{units: make(map[uuid.UUID]*models.ProductUnit)}
}

func (s *stubUnitsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubUnitsRepo) Create(ctx context.Context, unit *models.ProductUnit) error {
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if unit.ID == uuid.Nil {
		unit.ID = uuid.New()
	}
	s.units[unit.ID] = unit
	s.created = append(s.created, unit)
	return nil
}

func (s *stubUnitsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductUnit, error) {
	unit, ok := s.units[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return unit, nil
}

func (s *stubUnitsRepo) FindRequestUnitsForProduct(ctx context.Context, productID uuid.UUID, limit int) ([]models.ProductUnit, error) {
	var found []models.ProductUnit
	for _, unit := range s.units {
		if unit.ProductID == productID && unit.Status == enums.UnitStatusInRequest {
			found = append(found, *unit)
		}
	}
	return found, nil
}

func (s *stubUnitsRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from enums.UnitStatus, updates map[string]any) (bool, error) {
	s.transitions = append(s.transitions, stubTransition{id: id, from: from, updates: updates})
	unit, ok := s.units[id]
	if !ok || unit.Status != from {
		return false, nil
	}
	if status, ok := updates["status"].(enums.UnitStatus); ok {
		unit.Status = status
	}
	return true, nil
}

func (s *stubUnitsRepo) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.ProductUnit, error) {
	var found []models.ProductUnit
	for _, unit := range s.units {
		found = append(found, *unit)
	}
	return found, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubSerials struct {
	serials []string
	err     error
	calls   int
}

func (s *stubSerials) Next(productCode string, at time.Time) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.serials) == 0 {
		return productCode + "-202603011430-000", nil
	}
	next := s.serials[0]
	s.serials = s.serials[1:]
	return next, nil
}

func newTestService(t *testing.T, repo Repository, serials SerialGenerator) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, serials)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func TestCreateGeneratesSerial(t *testing.T) {
	repo := newStubUnitsRepo()
	svc := newTestService(t, repo, &stubSerials{serials: []string{"WIDGET-202603011430-042"}})

	unit, err := svc.Create(context.Background(), nil, CreateInput{
		ProductID:   uuid.New(),
		ProductCode: "WIDGET",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if unit.SerialNumber != "WIDGET-202603011430-042" {
		t.Fatalf("unexpected serial %q", unit.SerialNumber)
	}
	if unit.Status != enums.UnitStatusInRequest {
		t.Fatalf("expected in_request default, got %s", unit.Status)
	}
}

func TestCreateStockedForcesInStore(t *testing.T) {
	repo := newStubUnitsRepo()
	svc := newTestService(t, repo, &stubSerials{serials: []string{"GAD-202603011430-007"}})

	requestItemID := uuid.New()
	unit, err := svc.CreateStocked(context.Background(), CreateInput{
		ProductID:     uuid.New(),
		ProductCode:   "GAD",
		Status:        enums.UnitStatusInRequest,
		RequestItemID: &requestItemID,
	})
	if err != nil {
		t.Fatalf("create stocked failed: %v", err)
	}
	if unit.Status != enums.UnitStatusInStore {
		t.Fatalf("expected in_store, got %s", unit.Status)
	}
	if unit.RequestItemID != nil || unit.DeliveryItemID != nil {
		t.Fatalf("operator-created unit must not carry request or delivery bindings")
	}
}

func TestCreateRetriesOnSerialCollision(t *testing.T) {
	repo := newStubUnitsRepo()
	repo.createErrs = []error{
		errors.New(`duplicate key value violates unique constraint "ux_product_units_serial"`),
		nil,
	}
	serials := &stubSerials{serials: []string{"W-1", "W-2"}}
	svc := newTestService(t, repo, serials)

	unit, err := svc.Create(context.Background(), nil, CreateInput{
		ProductID:   uuid.New(),
		ProductCode: "W",
		Status:      enums.UnitStatusInStore,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if serials.calls != 2 {
		t.Fatalf("expected 2 serial attempts, got %d", serials.calls)
	}
	if unit.SerialNumber != "W-2" {
		t.Fatalf("expected retried serial, got %q", unit.SerialNumber)
	}
}

func TestCreateConsumesFullRetryBudget(t *testing.T) {
	repo := newStubUnitsRepo()
	for i := 0; i < serialAttempts-1; i++ {
		repo.createErrs = append(repo.createErrs, &pgconn.PgError{
			Code:           "23505",
			ConstraintName: serialConstraint,
		})
	}
	repo.createErrs = append(repo.createErrs, nil)
	serials := &stubSerials{}
	svc := newTestService(t, repo, serials)

	unit, err := svc.Create(context.Background(), nil, CreateInput{
		ProductID:   uuid.New(),
		ProductCode: "W",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if serials.calls != serialAttempts {
		t.Fatalf("expected %d serial attempts, got %d", serialAttempts, serials.calls)
	}
	if unit == nil || unit.SerialNumber == "" {
		t.Fatalf("expected a unit after retries, got %+v", unit)
	}
}

func TestCreateReportsExhaustion(t *testing.T) {
	repo := newStubUnitsRepo()
	collision := errors.New(`duplicate key value violates unique constraint "ux_product_units_serial"`)
	for i := 0; i < serialAttempts; i++ {
		repo.createErrs = append(repo.createErrs, collision)
	}
	svc := newTestService(t, repo, &stubSerials{})

	_, err := svc.Create(context.Background(), nil, CreateInput{
		ProductID:   uuid.New(),
		ProductCode: "W",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeGenerationExhausted) {
		t.Fatalf("expected generation exhausted, got %v", err)
	}
}

func TestCreateRejectsTerminalStartingStatus(t *testing.T) {
	svc := newTestService(t, newStubUnitsRepo(), &stubSerials{})
	_, err := svc.Create(context.Background(), nil, CreateInput{
		ProductID:   uuid.New(),
		ProductCode: "W",
		Status:      enums.UnitStatusSold,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSell(t *testing.T) {
	repo := newStubUnitsRepo()
	unitID := uuid.New()
	repo.units[unitID] = &models.ProductUnit{ID: unitID, Status: enums.UnitStatusInStore}
	svc := newTestService(t, repo, &stubSerials{})

	if err := svc.Sell(context.Background(), nil, unitID, decimal.NewFromInt(25)); err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	if repo.units[unitID].Status != enums.UnitStatusSold {
		t.Fatalf("expected sold, got %s", repo.units[unitID].Status)
	}
	last := repo.transitions[len(repo.transitions)-1]
	if last.from != enums.UnitStatusInStore {
		t.Fatalf("expected guard on in_store, got %s", last.from)
	}
	if _, ok := last.updates["sale_price"]; !ok {
		t.Fatal("expected sale price in updates")
	}
}

func TestSellRejectsUnitNotInStore(t *testing.T) {
	repo := newStubUnitsRepo()
	unitID := uuid.New()
	repo.units[unitID] = &models.ProductUnit{ID: unitID, Status: enums.UnitStatusInRequest}
	svc := newTestService(t, repo, &stubSerials{})

	err := svc.Sell(context.Background(), nil, unitID, decimal.NewFromInt(25))
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnitNotSellable) {
		t.Fatalf("expected unit not sellable, got %v", err)
	}
}

func TestSellMissingUnit(t *testing.T) {
	svc := newTestService(t, newStubUnitsRepo(), &stubSerials{})
	err := svc.Sell(context.Background(), nil, uuid.New(), decimal.NewFromInt(10))
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRestoreClearsSaleStamp(t *testing.T) {
	repo := newStubUnitsRepo()
	unitID := uuid.New()
	repo.units[unitID] = &models.ProductUnit{ID: unitID, Status: enums.UnitStatusSold}
	svc := newTestService(t, repo, &stubSerials{})

	if err := svc.Restore(context.Background(), nil, unitID); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if repo.units[unitID].Status != enums.UnitStatusInStore {
		t.Fatalf("expected in_store, got %s", repo.units[unitID].Status)
	}
	last := repo.transitions[len(repo.transitions)-1]
	if price, ok := last.updates["sale_price"]; !ok || price != nil {
		t.Fatalf("expected sale_price cleared, got %v", price)
	}
	if soldAt, ok := last.updates["sold_at"]; !ok || soldAt != nil {
		t.Fatalf("expected sold_at cleared, got %v", soldAt)
	}
}

func TestRestoreRequiresSoldUnit(t *testing.T) {
	repo := newStubUnitsRepo()
	unitID := uuid.New()
	repo.units[unitID] = &models.ProductUnit{ID: unitID, Status: enums.UnitStatusInStore}
	svc := newTestService(t, repo, &stubSerials{})

	err := svc.Restore(context.Background(), nil, unitID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestReceiveIntoStock(t *testing.T) {
	repo := newStubUnitsRepo()
	unitID := uuid.New()
	deliveryItemID := uuid.New()
	repo.units[unitID] = &models.ProductUnit{ID: unitID, Status: enums.UnitStatusInRequest}
	svc := newTestService(t, repo, &stubSerials{})

	if err := svc.ReceiveIntoStock(context.Background(), nil, unitID, deliveryItemID); err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if repo.units[unitID].Status != enums.UnitStatusInStore {
		t.Fatalf("expected in_store, got %s", repo.units[unitID].Status)
	}
	last := repo.transitions[len(repo.transitions)-1]
	if got := last.updates["delivery_item_id"]; got != deliveryItemID {
		t.Fatalf("expected delivery item binding, got %v", got)
	}
}

func TestReport(t *testing.T) {
	cases := []enums.UnitStatus{
		enums.UnitStatusBroken,
		enums.UnitStatusLost,
		enums.UnitStatusTransferred,
	}
	for _, status := range cases {
		t.Run(status.String(), func(t *testing.T) {
			repo := newStubUnitsRepo()
			unitID := uuid.New()
			repo.units[unitID] = &models.ProductUnit{ID: unitID, Status: enums.UnitStatusInStore}
			svc := newTestService(t, repo, &stubSerials{})

			if err := svc.Report(context.Background(), unitID, status); err != nil {
				t.Fatalf("report failed: %v", err)
			}
			if repo.units[unitID].Status != status {
				t.Fatalf("expected %s, got %s", status, repo.units[unitID].Status)
			}
		})
	}
}

func TestReportRejectsNonReportableStatus(t *testing.T) {
	svc := newTestService(t, newStubUnitsRepo(), &stubSerials{})
	err := svc.Report(context.Background(), uuid.New(), enums.UnitStatusSold)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCancelRequested(t *testing.T) {
	repo := newStubUnitsRepo()
	unitID := uuid.New()
	repo.units[unitID] = &models.ProductUnit{ID: unitID, Status: enums.UnitStatusInRequest}
	svc := newTestService(t, repo, &stubSerials{})

	if err := svc.CancelRequested(context.Background(), unitID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if repo.units[unitID].Status != enums.UnitStatusInRequestCancelled {
		t.Fatalf("expected in_request_cancelled, got %s", repo.units[unitID].Status)
	}
}

func TestCancelRequestedRejectsStockedUnit(t *testing.T) {
	repo := newStubUnitsRepo()
	unitID := uuid.New()
	repo.units[unitID] = &models.ProductUnit{ID: unitID, Status: enums.UnitStatusInStore}
	svc := newTestService(t, repo, &stubSerials{})

	err := svc.CancelRequested(context.Background(), unitID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestTransitionTable(t *testing.T) {
	allowed := []struct {
		from, to enums.UnitStatus
	}{
		{enums.UnitStatusInRequest, enums.UnitStatusInStore},
		{enums.UnitStatusInRequest, enums.UnitStatusInRequestCancelled},
		{enums.UnitStatusInStore, enums.UnitStatusSold},
		{enums.UnitStatusInStore, enums.UnitStatusBroken},
		{enums.UnitStatusInStore, enums.UnitStatusLost},
		{enums.UnitStatusInStore, enums.UnitStatusTransferred},
		{enums.UnitStatusSold, enums.UnitStatusInStore},
	}
	for _, pair := range allowed {
		if !transitionAllowed(pair.from, pair.to) {
			t.Fatalf("expected %s -> %s allowed", pair.from, pair.to)
		}
	}

	denied := []struct {
		from, to enums.UnitStatus
	}{
		{enums.UnitStatusBroken, enums.UnitStatusInStore},
		{enums.UnitStatusLost, enums.UnitStatusInStore},
		{enums.UnitStatusTransferred, enums.UnitStatusInStore},
		{enums.UnitStatusInRequestCancelled, enums.UnitStatusInStore},
		{enums.UnitStatusInRequest, enums.UnitStatusSold},
		{enums.UnitStatusSold, enums.UnitStatusBroken},
	}
	for _, pair := range denied {
		if transitionAllowed(pair.from, pair.to) {
			t.Fatalf("expected %s -> %s denied", pair.from, pair.to)
		}
	}
}
