package controllers

import (
	"net/http"

	"github.com/vosmiarka/warehouse-backend/api/responses"
	"github.com/vosmiarka/warehouse-backend/api/validators"
	"github.com/vosmiarka/warehouse-backend/internal/catalog"
	pkgerrors "github.com/vosmiarka/warehouse-backend/pkg/errors"
	"github.com/vosmiarka/warehouse-backend/pkg/logger"
)

type createSupplierRequest struct {
	Name          string  `json:"name" validate:"required,min=1,max=255"`
	ContactPerson string  `json:"contact_person" validate:"required,min=1,max=255"`
	Phone         string  `json:"phone" validate:"required,min=3,max=32"`
	Notes         *string `json:"notes,omitempty"`
}

type updateSupplierRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	ContactPerson *string `json:"contact_person,omitempty" validate:"omitempty,min=1,max=255"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty,min=3,max=32"`
	Notes         *string `json:"notes,omitempty"`
}

func CreateSupplier(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createSupplierRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		supplier, err := svc.CreateSupplier(r.Context(), catalog.CreateSupplierInput{
			Name:          validators.SanitizeString(payload.Name, 255),
			ContactPerson: validators.SanitizeString(payload.ContactPerson, 255),
			Phone:         payload.Phone,
			Notes:         validators.SanitizeOptional(payload.Notes, notesMaxLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, supplier)
	}
}

func GetSupplier(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		supplier, err := svc.GetSupplier(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, supplier)
	}
}

func UpdateSupplier(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateSupplierRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		supplier, err := svc.UpdateSupplier(r.Context(), id, catalog.UpdateSupplierInput{
			Name:          validators.SanitizeOptional(payload.Name, 255),
			ContactPerson: validators.SanitizeOptional(payload.ContactPerson, 255),
			Phone:         payload.Phone,
			Notes:         validators.SanitizeOptional(payload.Notes, notesMaxLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, supplier)
	}
}

func DeleteSupplier(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteSupplier(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func ListSuppliers(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.PageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		suppliers, next, err := svc.ListSuppliers(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteList(w, suppliers, next)
	}
}
