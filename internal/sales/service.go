package sales

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vosmiarka/warehouse-backend/pkg/db"
	"github.com/vosmiarka/warehouse-backend/pkg/db/models"
	"github.com/vosmiarka/warehouse-backend/pkg/enums"
	pkgerrors "github.com/vosmiarka/warehouse-backend/pkg/errors"
	"github.com/vosmiarka/warehouse-backend/pkg/pagination"
)

const cancellationConstraint = "ux_sale_cancellations_sale"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// unitLedger is the slice of the unit ledger sales drives: selling units
// and restoring them on cancellation.
type unitLedger interface {
	Sell(ctx context.Context, tx *gorm.DB, unitID uuid.UUID, price decimal.Decimal) error
	Restore(ctx context.Context, tx *gorm.DB, unitID uuid.UUID) error
}

type customerLoader interface {
	FindCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// Service drives the sales flow: recording sales and reversing them.
type Service interface {
	RecordSale(ctx context.Context, input RecordSaleInput) (*models.Sale, error)
	CancelSale(ctx context.Context, input CancelSaleInput) (*models.SaleCancellation, error)
	GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	GetCancellation(ctx context.Context, saleID uuid.UUID) (*models.SaleCancellation, error)
	ListSales(ctx context.Context, filter SaleFilter, params pagination.Params) ([]models.Sale, *string, error)
}

// SaleItemInput is one (unit, price) pair to sell.
type SaleItemInput struct {
	ProductUnitID uuid.UUID
	ActualPrice   decimal.Decimal
}

// RecordSaleInput is the payload for a new sale document.
type RecordSaleInput struct {
	CustomerID    *uuid.UUID
	SaleType      enums.SaleType
	RequestItemID *uuid.UUID
	Notes         *string
	Items         []SaleItemInput
}

// CancelSaleInput reverses a sale. Every unit listed is restored to stock
// and its sale item marked cancelled.
type CancelSaleInput struct {
	SaleID         uuid.UUID
	Reason         string
	UnitsToRestore []uuid.UUID
}

type service struct {
	repo      Repository
	tx        txRunner
	ledger    unitLedger
	customers customerLoader
}

// NewService builds a sales service with the required dependencies.
func NewService(repo Repository, tx txRunner, ledger unitLedger, customers customerLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("unit ledger required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer loader required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		ledger:    ledger,
		customers: customers,
	}, nil
}

func (s *service) RecordSale(ctx context.Context, input RecordSaleInput) (*models.Sale, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale needs at least one item")
	}
	saleType := input.SaleType
	if saleType == "" {
		saleType = enums.SaleTypeRegular
	}
	if !saleType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sale type")
	}
	if saleType == enums.SaleTypeOrder && input.RequestItemID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order sale needs a request item")
	}
	seen := make(map[uuid.UUID]struct{}, len(input.Items))
	for i, item := range input.Items {
		if item.ProductUnitID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: unit id required", i))
		}
		if item.ActualPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: price cannot be negative", i))
		}
		if _, dup := seen[item.ProductUnitID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: unit listed twice", i))
		}
		seen[item.ProductUnitID] = struct{}{}
	}
	if input.CustomerID != nil {
		if _, err := s.customers.FindCustomerByID(ctx, *input.CustomerID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown customer")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
		}
	}

	var saleID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sale := &models.Sale{
			CustomerID:    input.CustomerID,
			SaleType:      saleType,
			RequestItemID: input.RequestItemID,
			Notes:         input.Notes,
		}
		if err := repo.CreateSale(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale")
		}
		saleID = sale.ID

		items := make([]models.SaleItem, len(input.Items))
		for i, item := range input.Items {
			// Sell aborts the whole sale when any unit is not in stock.
			if err := s.ledger.Sell(ctx, tx, item.ProductUnitID, item.ActualPrice); err != nil {
				return err
			}
			items[i] = models.SaleItem{
				SaleID:        sale.ID,
				ProductUnitID: item.ProductUnitID,
				ActualPrice:   item.ActualPrice,
			}
		}
		if err := repo.CreateSaleItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale items")
		}
		if _, err := repo.RecomputeSaleTotal(ctx, sale.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute sale total")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetSale(ctx, saleID)
}

func (s *service) CancelSale(ctx context.Context, input CancelSaleInput) (*models.SaleCancellation, error) {
	if input.SaleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
	}
	if len(input.UnitsToRestore) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one unit to restore required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sale, err := repo.FindSaleByID(ctx, input.SaleID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
		}
		if _, err := repo.FindCancellationBySale(ctx, sale.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeAlreadyCancelled, "sale already cancelled")
		} else if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing cancellation")
		}

		// A unit may only be restored through the sale that sold it.
		saleUnits := make(map[uuid.UUID]bool, len(sale.Items))
		for _, item := range sale.Items {
			saleUnits[item.ProductUnitID] = item.Cancelled
		}
		restored := make([]models.ProductUnit, 0, len(input.UnitsToRestore))
		for _, unitID := range input.UnitsToRestore {
			cancelled, ok := saleUnits[unitID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "unit does not belong to sale").
					WithDetails(map[string]any{"unit_id": unitID})
			}
			if cancelled {
				return pkgerrors.New(pkgerrors.CodeAlreadyCancelled, "sale item already cancelled").
					WithDetails(map[string]any{"unit_id": unitID})
			}
			if err := s.ledger.Restore(ctx, tx, unitID); err != nil {
				return err
			}
			restored = append(restored, models.ProductUnit{ID: unitID})
		}

		cancellation := &models.SaleCancellation{
			SaleID:        sale.ID,
			Reason:        strings.TrimSpace(input.Reason),
			RestoredUnits: restored,
		}
		if err := repo.CreateCancellation(ctx, cancellation); err != nil {
			if db.IsUniqueViolation(err, cancellationConstraint) {
				return pkgerrors.New(pkgerrors.CodeAlreadyCancelled, "sale already cancelled")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cancellation")
		}

		if err := repo.MarkSaleItemsCancelled(ctx, sale.ID, input.UnitsToRestore); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark sale items cancelled")
		}
		if _, err := repo.RecomputeSaleTotal(ctx, sale.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute sale total")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCancellation(ctx, input.SaleID)
}

func (s *service) GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	sale, err := s.repo.FindSaleByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	return sale, nil
}

func (s *service) GetCancellation(ctx context.Context, saleID uuid.UUID) (*models.SaleCancellation, error) {
	if saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	cancellation, err := s.repo.FindCancellationBySale(ctx, saleID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cancellation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cancellation")
	}
	return cancellation, nil
}

func (s *service) ListSales(ctx context.Context, filter SaleFilter, params pagination.Params) ([]models.Sale, *string, error) {
	params.Limit = pagination.NormalizeLimit(params.Limit)
	found, err := s.repo.ListSales(ctx, filter, params)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			return nil, nil, err
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
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
