package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/vosmiarka/warehouse-backend/api/responses"
	"github.com/vosmiarka/warehouse-backend/api/validators"
	"github.com/vosmiarka/warehouse-backend/internal/procurement"
	pkgerrors "github.com/vosmiarka/warehouse-backend/pkg/errors"
	"github.com/vosmiarka/warehouse-backend/pkg/logger"
)

type placeRequestRequest struct {
	Notes *string                 `json:"notes,omitempty"`
	Items []placeRequestItemInput `json:"items" validate:"required,min=1,dive"`
}

type placeRequestItemInput struct {
	ProductID       string  `json:"product_id" validate:"required,uuid"`
	QuantityOrdered int     `json:"quantity_ordered" validate:"required,min=1"`
	PricePerUnit    string  `json:"price_per_unit" validate:"required"`
	IsCustomerOrder bool    `json:"is_customer_order"`
	CustomerID      *string `json:"customer_id,omitempty" validate:"omitempty,uuid"`
	SupplierID      *string `json:"supplier_id,omitempty" validate:"omitempty,uuid"`
}

func (p placeRequestRequest) toInput() (procurement.PlaceRequestInput, error) {
	items := make([]procurement.RequestItemInput, 0, len(p.Items))
	for _, item := range p.Items {
		productID, err := parseUUIDField(item.ProductID, "product_id")
		if err != nil {
			return procurement.PlaceRequestInput{}, err
		}
		price, err := parseDecimalField(item.PricePerUnit, "price_per_unit")
		if err != nil {
			return procurement.PlaceRequestInput{}, err
		}
		customerID, err := parseOptionalUUIDField(item.CustomerID, "customer_id")
		if err != nil {
			return procurement.PlaceRequestInput{}, err
		}
		supplierID, err := parseOptionalUUIDField(item.SupplierID, "supplier_id")
		if err != nil {
			return procurement.PlaceRequestInput{}, err
		}
		items = append(items, procurement.RequestItemInput{
			ProductID:       productID,
			QuantityOrdered: item.QuantityOrdered,
			PricePerUnit:    price,
			IsCustomerOrder: item.IsCustomerOrder,
			CustomerID:      customerID,
			SupplierID:      supplierID,
		})
	}
	return procurement.PlaceRequestInput{
		Notes: validators.SanitizeOptional(p.Notes, notesMaxLen),
		Items: items,
	}, nil
}

// PlaceRequest creates a request document. Customer-order lines come back
// with their pre-materialized units so the caller sees the full effect.
func PlaceRequest(svc procurement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "procurement service unavailable"))
			return
		}

		var payload placeRequestRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		placed, err := svc.PlaceRequest(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"request":       placed.Request,
			"created_units": placed.CreatedUnits,
		})
	}
}

func CompleteRequest(svc procurement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.CompleteRequest(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.GetRequest(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, request)
	}
}

func GetRequest(svc procurement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.GetRequest(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, request)
	}
}

func ListRequests(svc procurement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.PageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := procurement.RequestFilter{}
		if raw := strings.TrimSpace(r.URL.Query().Get("is_completed")); raw != "" {
			completed, parseErr := strconv.ParseBool(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be boolean").
					WithDetails(map[string]any{"field": "is_completed"}))
				return
			}
			filter.IsCompleted = &completed
		}

		found, next, err := svc.ListRequests(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteList(w, found, next)
	}
}
