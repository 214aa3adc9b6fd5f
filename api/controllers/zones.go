package controllers

import (
	"net/http"

	"github.com/gelatokw/scoops-backend/api/responses"
	"github.com/gelatokw/scoops-backend/api/validators"
	zonesvc "github.com/gelatokw/scoops-backend/internal/zones"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
	"github.com/gelatokw/scoops-backend/pkg/logger"
)

// ZoneList returns the active delivery zones.
func ZoneList(svc zonesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "zones service unavailable"))
			return
		}
		zones, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, zones)
	}
}

// AdminZoneList returns every delivery zone including deactivated ones.
func AdminZoneList(svc zonesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "zones service unavailable"))
			return
		}
		zones, err := svc.ListAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, zones)
	}
}

// AdminZoneCreate adds a serviceable city and province pair.
func AdminZoneCreate(svc zonesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "zones service unavailable"))
			return
		}

		var body zonesvc.UpsertZoneRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		zone, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, zone)
	}
}

// AdminZoneUpdate edits or toggles one delivery zone.
func AdminZoneUpdate(svc zonesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "zones service unavailable"))
			return
		}
		zoneID, err := pathUUID(r, "zoneId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body zonesvc.UpsertZoneRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		zone, err := svc.Update(r.Context(), zoneID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, zone)
	}
}
