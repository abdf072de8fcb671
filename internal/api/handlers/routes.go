package handlers

import (
	"net/http"
	"parcel-dispatch-service/internal/api/dto"
	"parcel-dispatch-service/internal/ports"
	"strings"

	"github.com/go-chi/chi/v5"
)

type RouteHandler struct {
	Dispatcher Dispatcher
	Routes     ports.RouteStore
}

func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	route, err := h.Routes.GetRoute(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "get route", err)
		return
	}
	stops, err := h.Routes.ListStops(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "list stops", err)
		return
	}
	links, err := h.Routes.ListRoutePackages(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "list route packages", err)
		return
	}

	res := dto.RouteResponse{
		ID:          route.ID,
		VehicleID:   route.VehicleID,
		DriverID:    route.DriverID,
		ServiceDate: route.ServiceDate,
		Status:      string(route.Status),
		CreatedAt:   route.CreatedAt,
		Stops:       toStopResponses(stops),
		Packages:    make([]dto.RoutePackageResponse, 0, len(links)),
	}
	for _, l := range links {
		res.Packages = append(res.Packages, dto.RoutePackageResponse{
			PackageID:     l.PackageID,
			PickupStopID:  l.PickupStopID,
			DropoffStopID: l.DropoffStopID,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

// Resequence reorders a pending route from its vehicle's current position.
func (h *RouteHandler) Resequence(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	changed, err := h.Dispatcher.ResequenceRoute(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "resequence route", err)
		return
	}

	stops, err := h.Routes.ListStops(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "list stops", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.ResequenceResponse{
		RouteID: id,
		Changed: changed,
		Stops:   toStopResponses(stops),
	})
}
