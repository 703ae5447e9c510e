package controllers

import (
	"net/http"
	"strings"

	"github.com/vosmiarka/warehouse-backend/api/responses"
	"github.com/vosmiarka/warehouse-backend/api/validators"
	"github.com/vosmiarka/warehouse-backend/internal/sales"
	"github.com/vosmiarka/warehouse-backend/pkg/enums"
	pkgerrors "github.com/vosmiarka/warehouse-backend/pkg/errors"
	"github.com/vosmiarka/warehouse-backend/pkg/logger"
)

type recordSaleRequest struct {
	CustomerID    *string           `json:"customer_id,omitempty" validate:"omitempty,uuid"`
	SaleType      *string           `json:"sale_type,omitempty"`
	RequestItemID *string           `json:"request_item_id,omitempty" validate:"omitempty,uuid"`
	Notes         *string           `json:"notes,omitempty"`
	Items         []saleItemRequest `json:"items" validate:"required,min=1,dive"`
}

type saleItemRequest struct {
	ProductUnitID string `json:"product_unit_id" validate:"required,uuid"`
	ActualPrice   string `json:"actual_price" validate:"required"`
}

type cancelSaleRequest struct {
	Reason         string   `json:"reason" validate:"required,min=1"`
	UnitsToRestore []string `json:"units_to_restore" validate:"required,min=1,dive,uuid"`
}

func (s recordSaleRequest) toInput() (sales.RecordSaleInput, error) {
	customerID, err := parseOptionalUUIDField(s.CustomerID, "customer_id")
	if err != nil {
		return sales.RecordSaleInput{}, err
	}
	requestItemID, err := parseOptionalUUIDField(s.RequestItemID, "request_item_id")
	if err != nil {
		return sales.RecordSaleInput{}, err
	}

	var saleType enums.SaleType
	if s.SaleType != nil && strings.TrimSpace(*s.SaleType) != "" {
		parsed, parseErr := enums.ParseSaleType(strings.TrimSpace(*s.SaleType))
		if parseErr != nil {
			return sales.RecordSaleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid sale type")
		}
		saleType = parsed
	}

	items := make([]sales.SaleItemInput, 0, len(s.Items))
	for _, item := range s.Items {
		unitID, itemErr := parseUUIDField(item.ProductUnitID, "product_unit_id")
		if itemErr != nil {
			return sales.RecordSaleInput{}, itemErr
		}
		price, itemErr := parseDecimalField(item.ActualPrice, "actual_price")
		if itemErr != nil {
			return sales.RecordSaleInput{}, itemErr
		}
		items = append(items, sales.SaleItemInput{
			ProductUnitID: unitID,
			ActualPrice:   price,
		})
	}

	return sales.RecordSaleInput{
		CustomerID:    customerID,
		SaleType:      saleType,
		RequestItemID: requestItemID,
		Notes:         validators.SanitizeOptional(s.Notes, notesMaxLen),
		Items:         items,
	}, nil
}

// RecordSale sells a batch of units atomically: every unit must be in
// stock or the whole document is rejected.
func RecordSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		var payload recordSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.RecordSale(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}

// CancelSale reverses a sale: restores the named units to stock and
// marks their items cancelled. A sale can only be cancelled once.
func CancelSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saleID, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unitIDs, err := parseUUIDList(payload.UnitsToRestore, "units_to_restore")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cancellation, err := svc.CancelSale(r.Context(), sales.CancelSaleInput{
			SaleID:         saleID,
			Reason:         validators.SanitizeString(payload.Reason, notesMaxLen),
			UnitsToRestore: unitIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, cancellation)
	}
}

func GetSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.GetSale(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sale)
	}
}

func GetSaleCancellation(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cancellation, err := svc.GetCancellation(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cancellation)
	}
}

func ListSales(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.PageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID, err := validators.QueryUUID(r, "customer_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		found, next, err := svc.ListSales(r.Context(), sales.SaleFilter{CustomerID: customerID}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteList(w, found, next)
	}
}
