package controllers

import (
	"net/http"
	"time"

	"github.com/vosmiarka/warehouse-backend/api/responses"
	"github.com/vosmiarka/warehouse-backend/api/validators"
	"github.com/vosmiarka/warehouse-backend/internal/procurement"
	pkgerrors "github.com/vosmiarka/warehouse-backend/pkg/errors"
	"github.com/vosmiarka/warehouse-backend/pkg/logger"
)

type receiveDeliveryRequest struct {
	SupplierID   string                `json:"supplier_id" validate:"required,uuid"`
	DeliveryDate *time.Time            `json:"delivery_date,omitempty"`
	Notes        *string               `json:"notes,omitempty"`
	Items        []deliveryItemRequest `json:"items" validate:"required,min=1,dive"`
}

type deliveryItemRequest struct {
	ProductID        string  `json:"product_id" validate:"required,uuid"`
	QuantityReceived int     `json:"quantity_received" validate:"required,min=1"`
	PricePerUnit     string  `json:"price_per_unit" validate:"required"`
	RequestItemID    *string `json:"request_item_id,omitempty" validate:"omitempty,uuid"`
	Notes            *string `json:"notes,omitempty"`
}

type updateDeliveryItemRequest struct {
	PricePerUnit *string `json:"price_per_unit,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

func (d deliveryItemRequest) toInput() (procurement.DeliveryItemInput, error) {
	productID, err := parseUUIDField(d.ProductID, "product_id")
	if err != nil {
		return procurement.DeliveryItemInput{}, err
	}
	price, err := parseDecimalField(d.PricePerUnit, "price_per_unit")
	if err != nil {
		return procurement.DeliveryItemInput{}, err
	}
	requestItemID, err := parseOptionalUUIDField(d.RequestItemID, "request_item_id")
	if err != nil {
		return procurement.DeliveryItemInput{}, err
	}
	return procurement.DeliveryItemInput{
		ProductID:        productID,
		QuantityReceived: d.QuantityReceived,
		PricePerUnit:     price,
		RequestItemID:    requestItemID,
		Notes:            validators.SanitizeOptional(d.Notes, notesMaxLen),
	}, nil
}

func (d receiveDeliveryRequest) toInput() (procurement.ReceiveDeliveryInput, error) {
	supplierID, err := parseUUIDField(d.SupplierID, "supplier_id")
	if err != nil {
		return procurement.ReceiveDeliveryInput{}, err
	}
	items := make([]procurement.DeliveryItemInput, 0, len(d.Items))
	for _, item := range d.Items {
		input, itemErr := item.toInput()
		if itemErr != nil {
			return procurement.ReceiveDeliveryInput{}, itemErr
		}
		items = append(items, input)
	}
	input := procurement.ReceiveDeliveryInput{
		SupplierID: supplierID,
		Notes:      validators.SanitizeOptional(d.Notes, notesMaxLen),
		Items:      items,
	}
	if d.DeliveryDate != nil {
		input.DeliveryDate = *d.DeliveryDate
	}
	return input, nil
}

// ReceiveDelivery books an incoming delivery and moves its units into
// stock in one transaction.
func ReceiveDelivery(svc procurement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "procurement service unavailable"))
			return
		}

		var payload receiveDeliveryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := svc.ReceiveDelivery(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, delivery)
	}
}

func GetDelivery(svc procurement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := svc.GetDelivery(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, delivery)
	}
}

func ListDeliveries(svc procurement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.PageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		supplierID, err := validators.QueryUUID(r, "supplier_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		found, next, err := svc.ListDeliveries(r.Context(), procurement.DeliveryFilter{SupplierID: supplierID}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteList(w, found, next)
	}
}

func AddDeliveryItem(svc procurement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deliveryID, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload deliveryItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := svc.AddDeliveryItem(r.Context(), deliveryID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, delivery)
	}
}

func UpdateDeliveryItem(svc procurement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deliveryID, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.PathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateDeliveryItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := procurement.UpdateDeliveryItemInput{Notes: validators.SanitizeOptional(payload.Notes, notesMaxLen)}
		if payload.PricePerUnit != nil {
			price, parseErr := parseDecimalField(*payload.PricePerUnit, "price_per_unit")
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, parseErr)
				return
			}
			input.PricePerUnit = &price
		}

		delivery, err := svc.UpdateDeliveryItem(r.Context(), deliveryID, itemID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, delivery)
	}
}

func RemoveDeliveryItem(svc procurement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deliveryID, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.PathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := svc.RemoveDeliveryItem(r.Context(), deliveryID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, delivery)
	}
}
