package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vosmiarka/warehouse-backend/internal/units"
	"github.com/vosmiarka/warehouse-backend/pkg/db/models"
	"github.com/vosmiarka/warehouse-backend/pkg/enums"
	pkgerrors "github.com/vosmiarka/warehouse-backend/pkg/errors"
	"github.com/vosmiarka/warehouse-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// unitLedger is the slice of the unit ledger procurement drives: it
// materializes request placeholders and receives units into stock.
type unitLedger interface {
	Create(ctx context.Context, tx *gorm.DB, input units.CreateInput) (*models.ProductUnit, error)
	ReceiveIntoStock(ctx context.Context, tx *gorm.DB, unitID uuid.UUID, deliveryItemID uuid.UUID) error
	RequestCandidates(ctx context.Context, tx *gorm.DB, productID uuid.UUID, limit int) ([]models.ProductUnit, error)
}

type productLoader interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type supplierLoader interface {
	FindSupplierByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
}

// Service drives the procurement flow: demand via requests, supply via
// deliveries, both moving units through the ledger.
type Service interface {
	PlaceRequest(ctx context.Context, input PlaceRequestInput) (*PlacedRequest, error)
	CompleteRequest(ctx context.Context, id uuid.UUID) error
	GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error)
	ListRequests(ctx context.Context, filter RequestFilter, params pagination.Params) ([]models.Request, *string, error)

	ReceiveDelivery(ctx context.Context, input ReceiveDeliveryInput) (*models.Delivery, error)
	AddDeliveryItem(ctx context.Context, deliveryID uuid.UUID, input DeliveryItemInput) (*models.Delivery, error)
	UpdateDeliveryItem(ctx context.Context, deliveryID, itemID uuid.UUID, input UpdateDeliveryItemInput) (*models.Delivery, error)
	RemoveDeliveryItem(ctx context.Context, deliveryID, itemID uuid.UUID) (*models.Delivery, error)
	GetDelivery(ctx context.Context, id uuid.UUID) (*models.Delivery, error)
	ListDeliveries(ctx context.Context, filter DeliveryFilter, params pagination.Params) ([]models.Delivery, *string, error)
}

// RequestItemInput is one requested product line.
type RequestItemInput struct {
	ProductID       uuid.UUID
	QuantityOrdered int
	PricePerUnit    decimal.Decimal
	IsCustomerOrder bool
	CustomerID      *uuid.UUID
	SupplierID      *uuid.UUID
}

// PlaceRequestInput is the payload for a new request document.
type PlaceRequestInput struct {
	Notes *string
	Items []RequestItemInput
}

// PlacedRequest is the full effect set of PlaceRequest: the document and
// every unit pre-materialized for its customer-order lines.
type PlacedRequest struct {
	Request      *models.Request
	CreatedUnits []models.ProductUnit
}

// DeliveryItemInput is one received product line.
type DeliveryItemInput struct {
	ProductID        uuid.UUID
	QuantityReceived int
	PricePerUnit     decimal.Decimal
	RequestItemID    *uuid.UUID
	Notes            *string
}

// ReceiveDeliveryInput is the payload for a new delivery document.
type ReceiveDeliveryInput struct {
	SupplierID   uuid.UUID
	DeliveryDate time.Time
	Notes        *string
	Items        []DeliveryItemInput
}

// UpdateDeliveryItemInput mutates a delivery item. Quantity is immutable
// after receipt because the received units already exist.
type UpdateDeliveryItemInput struct {
	PricePerUnit *decimal.Decimal
	Notes        *string
}

type service struct {
	repo      Repository
	tx        txRunner
	ledger    unitLedger
	products  productLoader
	suppliers supplierLoader
}

// NewService builds a procurement service with the required dependencies.
func NewService(repo Repository, tx txRunner, ledger unitLedger, products productLoader, suppliers supplierLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("procurement repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("unit ledger required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if suppliers == nil {
		return nil, fmt.Errorf("supplier loader required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		ledger:    ledger,
		products:  products,
		suppliers: suppliers,
	}, nil
}

func (s *service) PlaceRequest(ctx context.Context, input PlaceRequestInput) (*PlacedRequest, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request needs at least one item")
	}
	productCodes := make(map[uuid.UUID]string, len(input.Items))
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: product id required", i))
		}
		if item.QuantityOrdered <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: quantity must be positive", i))
		}
		if item.PricePerUnit.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: price cannot be negative", i))
		}
		if item.IsCustomerOrder && item.CustomerID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: customer order needs a customer", i))
		}
		if _, ok := productCodes[item.ProductID]; !ok {
			product, err := s.products.FindProductByID(ctx, item.ProductID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: unknown product", i))
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}
			productCodes[item.ProductID] = product.Code
		}
	}

	result := &PlacedRequest{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request := &models.Request{Notes: input.Notes}
		if err := repo.CreateRequest(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request")
		}

		items := make([]models.RequestItem, len(input.Items))
		for i, item := range input.Items {
			items[i] = models.RequestItem{
				RequestID:       request.ID,
				ProductID:       item.ProductID,
				QuantityOrdered: item.QuantityOrdered,
				PricePerUnit:    item.PricePerUnit,
				IsCustomerOrder: item.IsCustomerOrder,
				CustomerID:      item.CustomerID,
				SupplierID:      item.SupplierID,
			}
		}
		if err := repo.CreateRequestItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request items")
		}

		// Customer-order lines pre-materialize their units so the stock
		// picture reflects the demand immediately.
		for i := range items {
			if !items[i].IsCustomerOrder {
				continue
			}
			for n := 0; n < items[i].QuantityOrdered; n++ {
				unit, err := s.ledger.Create(ctx, tx, units.CreateInput{
					ProductID:     items[i].ProductID,
					ProductCode:   productCodes[items[i].ProductID],
					RequestItemID: &items[i].ID,
				})
				if err != nil {
					return err
				}
				result.CreatedUnits = append(result.CreatedUnits, *unit)
			}
		}

		request.Items = items
		result.Request = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) CompleteRequest(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := repo.FindRequestByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		if request.IsCompleted {
			return pkgerrors.New(pkgerrors.CodeConflict, "request already completed")
		}
		if err := repo.UpdateRequest(ctx, id, map[string]any{"is_completed": true}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete request")
		}
		return nil
	})
}

func (s *service) GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	request, err := s.repo.FindRequestByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	return request, nil
}

func (s *service) ListRequests(ctx context.Context, filter RequestFilter, params pagination.Params) ([]models.Request, *string, error) {
	params.Limit = pagination.NormalizeLimit(params.Limit)
	found, err := s.repo.ListRequests(ctx, filter, params)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			return nil, nil, err
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requests")
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

func (s *service) ReceiveDelivery(ctx context.Context, input ReceiveDeliveryInput) (*models.Delivery, error) {
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery needs at least one item")
	}
	// Every line is validated before any unit is touched; one bad item
	// aborts the whole receipt.
	productCodes := make(map[uuid.UUID]string, len(input.Items))
	for i, item := range input.Items {
		if err := s.validateDeliveryItem(ctx, i, item, productCodes); err != nil {
			return nil, err
		}
	}
	if _, err := s.suppliers.FindSupplierByID(ctx, input.SupplierID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown supplier")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}

	deliveryDate := input.DeliveryDate
	if deliveryDate.IsZero() {
		deliveryDate = time.Now().UTC()
	}

	var deliveryID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		delivery := &models.Delivery{
			SupplierID:   input.SupplierID,
			DeliveryDate: deliveryDate,
			Notes:        input.Notes,
		}
		if err := repo.CreateDelivery(ctx, delivery); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery")
		}
		deliveryID = delivery.ID

		for _, item := range input.Items {
			if err := s.receiveItem(ctx, tx, repo, delivery.ID, item, productCodes[item.ProductID]); err != nil {
				return err
			}
		}
		if _, err := repo.RecomputeDeliveryTotal(ctx, delivery.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute delivery total")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetDelivery(ctx, deliveryID)
}

func (s *service) AddDeliveryItem(ctx context.Context, deliveryID uuid.UUID, input DeliveryItemInput) (*models.Delivery, error) {
	if deliveryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}
	productCodes := make(map[uuid.UUID]string, 1)
	if err := s.validateDeliveryItem(ctx, 0, input, productCodes); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindDeliveryByID(ctx, deliveryID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
		}
		if err := s.receiveItem(ctx, tx, repo, deliveryID, input, productCodes[input.ProductID]); err != nil {
			return err
		}
		if _, err := repo.RecomputeDeliveryTotal(ctx, deliveryID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute delivery total")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetDelivery(ctx, deliveryID)
}

func (s *service) UpdateDeliveryItem(ctx context.Context, deliveryID, itemID uuid.UUID, input UpdateDeliveryItemInput) (*models.Delivery, error) {
	if deliveryID == uuid.Nil || itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery and item ids required")
	}
	updates := map[string]any{}
	if input.PricePerUnit != nil {
		if !input.PricePerUnit.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidDeliveryItem, "price must be positive")
		}
		updates["price_per_unit"] = *input.PricePerUnit
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindDeliveryItemByID(ctx, itemID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "delivery item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery item")
		}
		if item.DeliveryID != deliveryID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "delivery item not found")
		}
		if len(updates) > 0 {
			if err := repo.UpdateDeliveryItem(ctx, itemID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery item")
			}
		}
		if _, err := repo.RecomputeDeliveryTotal(ctx, deliveryID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute delivery total")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetDelivery(ctx, deliveryID)
}

func (s *service) RemoveDeliveryItem(ctx context.Context, deliveryID, itemID uuid.UUID) (*models.Delivery, error) {
	if deliveryID == uuid.Nil || itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery and item ids required")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindDeliveryItemByID(ctx, itemID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "delivery item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery item")
		}
		if item.DeliveryID != deliveryID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "delivery item not found")
		}
		if err := repo.DeleteDeliveryItem(ctx, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete delivery item")
		}
		if _, err := repo.RecomputeDeliveryTotal(ctx, deliveryID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute delivery total")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetDelivery(ctx, deliveryID)
}

func (s *service) GetDelivery(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}
	delivery, err := s.repo.FindDeliveryByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
	}
	return delivery, nil
}

func (s *service) ListDeliveries(ctx context.Context, filter DeliveryFilter, params pagination.Params) ([]models.Delivery, *string, error) {
	params.Limit = pagination.NormalizeLimit(params.Limit)
	found, err := s.repo.ListDeliveries(ctx, filter, params)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			return nil, nil, err
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deliveries")
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

func (s *service) validateDeliveryItem(ctx context.Context, index int, item DeliveryItemInput, productCodes map[uuid.UUID]string) error {
	if item.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeInvalidDeliveryItem, fmt.Sprintf("item %d: product id required", index))
	}
	if item.QuantityReceived <= 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidDeliveryItem, fmt.Sprintf("item %d: quantity must be positive", index))
	}
	if !item.PricePerUnit.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeInvalidDeliveryItem, fmt.Sprintf("item %d: price must be positive", index))
	}
	if _, ok := productCodes[item.ProductID]; !ok {
		product, err := s.products.FindProductByID(ctx, item.ProductID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeInvalidDeliveryItem, fmt.Sprintf("item %d: unknown product", index))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		productCodes[item.ProductID] = product.Code
	}
	return nil
}

// receiveItem creates one delivery item and settles its units: existing
// in_request units of the product are received first, the remainder is
// created directly in stock.
func (s *service) receiveItem(ctx context.Context, tx *gorm.DB, repo Repository, deliveryID uuid.UUID, input DeliveryItemInput, productCode string) error {
	item := &models.DeliveryItem{
		DeliveryID:       deliveryID,
		ProductID:        input.ProductID,
		QuantityReceived: input.QuantityReceived,
		PricePerUnit:     input.PricePerUnit,
		RequestItemID:    input.RequestItemID,
		Notes:            input.Notes,
	}
	if err := repo.CreateDeliveryItem(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery item")
	}

	candidates, err := s.ledger.RequestCandidates(ctx, tx, input.ProductID, input.QuantityReceived)
	if err != nil {
		return err
	}
	received := make(map[uuid.UUID]int)
	for _, candidate := range candidates {
		if err := s.ledger.ReceiveIntoStock(ctx, tx, candidate.ID, item.ID); err != nil {
			return err
		}
		if candidate.RequestItemID != nil {
			received[*candidate.RequestItemID]++
		}
	}

	for n := len(candidates); n < input.QuantityReceived; n++ {
		if _, err := s.ledger.Create(ctx, tx, units.CreateInput{
			ProductID:      input.ProductID,
			ProductCode:    productCode,
			Status:         enums.UnitStatusInStore,
			RequestItemID:  input.RequestItemID,
			DeliveryItemID: &item.ID,
		}); err != nil {
			return err
		}
		if input.RequestItemID != nil {
			received[*input.RequestItemID]++
		}
	}

	for requestItemID, count := range received {
		if err := repo.IncrementRequestItemReceived(ctx, requestItemID, count); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request item received count")
		}
	}
	return nil
}
