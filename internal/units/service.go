package units

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vosmiarka/warehouse-backend/pkg/db"
	"github.com/vosmiarka/warehouse-backend/pkg/db/models"
	"github.com/vosmiarka/warehouse-backend/pkg/enums"
	pkgerrors "github.com/vosmiarka/warehouse-backend/pkg/errors"
	"github.com/vosmiarka/warehouse-backend/pkg/pagination"
)

// serialAttempts bounds how many serial candidates a single create will
// try before reporting exhaustion.
const serialAttempts = 5

const serialConstraint = "ux_product_units_serial"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// allowedTransitions is the status machine for product units. Any pair
// not listed here is rejected.
var allowedTransitions = map[enums.UnitStatus][]enums.UnitStatus{
	enums.UnitStatusInRequest: {
		enums.UnitStatusInStore,
		enums.UnitStatusInRequestCancelled,
	},
	enums.UnitStatusInStore: {
		enums.UnitStatusSold,
		enums.UnitStatusBroken,
		enums.UnitStatusLost,
		enums.UnitStatusTransferred,
	},
	enums.UnitStatusSold: {
		enums.UnitStatusInStore,
	},
}

func transitionAllowed(from, to enums.UnitStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// CreateInput describes a unit to materialize.
type CreateInput struct {
	ProductID      uuid.UUID
	ProductCode    string
	Status         enums.UnitStatus
	RequestItemID  *uuid.UUID
	DeliveryItemID *uuid.UUID
}

// Service is the unit ledger: every unit creation and status change in
// the system funnels through it.
type Service interface {
	// Create materializes a unit inside the caller's transaction,
	// generating a fresh serial and retrying on collision.
	Create(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.ProductUnit, error)
	// CreateStocked materializes an operator-entered unit directly in
	// store, outside any request or delivery flow.
	CreateStocked(ctx context.Context, input CreateInput) (*models.ProductUnit, error)
	// ReceiveIntoStock moves an in_request unit to in_store and binds it
	// to the delivery item that supplied it.
	ReceiveIntoStock(ctx context.Context, tx *gorm.DB, unitID uuid.UUID, deliveryItemID uuid.UUID) error
	// Sell moves an in_store unit to sold and stamps the sale price.
	Sell(ctx context.Context, tx *gorm.DB, unitID uuid.UUID, price decimal.Decimal) error
	// Restore returns a sold unit to in_store, clearing the sale stamp.
	Restore(ctx context.Context, tx *gorm.DB, unitID uuid.UUID) error
	// RequestCandidates returns in_request units of a product eligible for
	// delivery binding, units without a delivery binding first.
	RequestCandidates(ctx context.Context, tx *gorm.DB, productID uuid.UUID, limit int) ([]models.ProductUnit, error)
	// Report records an in_store unit as broken, lost, or transferred.
	Report(ctx context.Context, unitID uuid.UUID, status enums.UnitStatus) error
	// CancelRequested retires an in_request unit that will never arrive.
	CancelRequested(ctx context.Context, unitID uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.ProductUnit, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.ProductUnit, *string, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	serials SerialGenerator
	now     func() time.Time
}

// NewService builds the unit ledger service.
func NewService(repo Repository, tx txRunner, serials SerialGenerator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("units repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if serials == nil {
		return nil, fmt.Errorf("serial generator required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		serials: serials,
		now:     time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.ProductUnit, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.ProductCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product code required")
	}
	status := input.Status
	if status == "" {
		status = enums.UnitStatusInRequest
	}
	if status != enums.UnitStatusInRequest && status != enums.UnitStatusInStore {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "units start in_request or in_store")
	}

	repo := s.repo.WithTx(tx)
	for attempt := 0; attempt < serialAttempts; attempt++ {
		serial, err := s.serials.Next(input.ProductCode, s.now())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate serial")
		}
		unit := &models.ProductUnit{
			SerialNumber:   serial,
			ProductID:      input.ProductID,
			RequestItemID:  input.RequestItemID,
			DeliveryItemID: input.DeliveryItemID,
			Status:         status,
		}
		err = repo.Create(ctx, unit)
		if err == nil {
			return unit, nil
		}
		if !db.IsUniqueViolation(err, serialConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product unit")
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeGenerationExhausted, "serial generation exhausted").
		WithDetails(map[string]any{"attempts": serialAttempts})
}

func (s *service) CreateStocked(ctx context.Context, input CreateInput) (*models.ProductUnit, error) {
	input.Status = enums.UnitStatusInStore
	input.RequestItemID = nil
	input.DeliveryItemID = nil
	var unit *models.ProductUnit
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, createErr := s.Create(ctx, tx, input)
		if createErr != nil {
			return createErr
		}
		unit = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return unit, nil
}

func (s *service) ReceiveIntoStock(ctx context.Context, tx *gorm.DB, unitID uuid.UUID, deliveryItemID uuid.UUID) error {
	if unitID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit id required")
	}
	if deliveryItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery item id required")
	}
	return s.transition(ctx, s.repo.WithTx(tx), unitID, enums.UnitStatusInRequest, enums.UnitStatusInStore, map[string]any{
		"status":           enums.UnitStatusInStore,
		"delivery_item_id": deliveryItemID,
	})
}

func (s *service) Sell(ctx context.Context, tx *gorm.DB, unitID uuid.UUID, price decimal.Decimal) error {
	if unitID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit id required")
	}
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale price cannot be negative")
	}
	repo := s.repo.WithTx(tx)
	unit, err := repo.FindByID(ctx, unitID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unit")
	}
	if unit.Status != enums.UnitStatusInStore {
		return pkgerrors.New(pkgerrors.CodeUnitNotSellable, "unit is not in store").
			WithDetails(map[string]any{"unit_id": unitID, "status": unit.Status.String()})
	}
	changed, err := repo.TransitionStatus(ctx, unitID, enums.UnitStatusInStore, map[string]any{
		"status":     enums.UnitStatusSold,
		"sold_at":    s.now().UTC(),
		"sale_price": price,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sell unit")
	}
	if !changed {
		return pkgerrors.New(pkgerrors.CodeUnitNotSellable, "unit is not in store").
			WithDetails(map[string]any{"unit_id": unitID})
	}
	return nil
}

func (s *service) Restore(ctx context.Context, tx *gorm.DB, unitID uuid.UUID) error {
	if unitID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit id required")
	}
	return s.transition(ctx, s.repo.WithTx(tx), unitID, enums.UnitStatusSold, enums.UnitStatusInStore, map[string]any{
		"status":     enums.UnitStatusInStore,
		"sold_at":    nil,
		"sale_price": nil,
	})
}

func (s *service) RequestCandidates(ctx context.Context, tx *gorm.DB, productID uuid.UUID, limit int) ([]models.ProductUnit, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	found, err := s.repo.WithTx(tx).FindRequestUnitsForProduct(ctx, productID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find request units")
	}
	return found, nil
}

func (s *service) Report(ctx context.Context, unitID uuid.UUID, status enums.UnitStatus) error {
	if unitID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit id required")
	}
	switch status {
	case enums.UnitStatusBroken, enums.UnitStatusLost, enums.UnitStatusTransferred:
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "reportable statuses are broken, lost, transferred")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.transition(ctx, s.repo.WithTx(tx), unitID, enums.UnitStatusInStore, status, map[string]any{
			"status": status,
		})
	})
}

func (s *service) CancelRequested(ctx context.Context, unitID uuid.UUID) error {
	if unitID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.transition(ctx, s.repo.WithTx(tx), unitID, enums.UnitStatusInRequest, enums.UnitStatusInRequestCancelled, map[string]any{
			"status": enums.UnitStatusInRequestCancelled,
		})
	})
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.ProductUnit, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit id required")
	}
	unit, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unit")
	}
	return unit, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.ProductUnit, *string, error) {
	params.Limit = pagination.NormalizeLimit(params.Limit)
	found, err := s.repo.List(ctx, filter, params)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			return nil, nil, err
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list units")
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

// transition performs a guarded status change and maps the failure mode:
// missing row reports not found, a row in another state reports an
// invalid transition.
func (s *service) transition(ctx context.Context, repo Repository, unitID uuid.UUID, from, to enums.UnitStatus, updates map[string]any) error {
	if !transitionAllowed(from, to) {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "status transition not allowed").
			WithDetails(map[string]any{"from": from.String(), "to": to.String()})
	}
	changed, err := repo.TransitionStatus(ctx, unitID, from, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition unit status")
	}
	if changed {
		return nil
	}
	unit, err := repo.FindByID(ctx, unitID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unit not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unit")
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "status transition not allowed").
		WithDetails(map[string]any{
			"unit_id": unitID,
			"from":    unit.Status.String(),
			"to":      to.String(),
		})
}
