package handlers

import (
	"context"
	"net/http"
	"parcel-dispatch-service/internal/api/dto"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/ports"
	"parcel-dispatch-service/internal/services"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Dispatcher is the slice of the assignment engine the HTTP layer drives.
type Dispatcher interface {
	RegisterPackage(ctx context.Context, in services.RegisterPackageInput) (domain.Package, services.Assignment, error)
	AssignPackage(ctx context.Context, packageID string) (services.Assignment, error)
	ResequenceRoute(ctx context.Context, routeID string) (bool, error)
}

// PackageHandler exposes package registration, lookup and manual assignment.
type PackageHandler struct {
	Dispatcher Dispatcher
	Packages   ports.PackageStore
}

func (h *PackageHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterPackageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pkg, a, err := h.Dispatcher.RegisterPackage(r.Context(), services.RegisterPackageInput{
		OriginAddress:      req.OriginAddress,
		DestinationAddress: req.DestinationAddress,
		Origin:             fromCoordinates(req.Origin),
		Destination:        fromCoordinates(req.Destination),
		Contents:           req.Contents,
		WeightKg:           req.WeightKg,
		LengthCm:           req.LengthCm,
		WidthCm:            req.WidthCm,
		HeightCm:           req.HeightCm,
		ActorID:            req.ActorID,
	})
	if err != nil {
		writeServiceError(w, r, "register package", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.RegisterPackageResponse{
		Package:    toPackageResponse(pkg),
		Assignment: toAssignmentResponse(a),
	})
}

func (h *PackageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	pkg, err := h.Packages.GetPackage(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "get package", err)
		return
	}

	history, err := h.Packages.ListStatusHistory(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "list status history", err)
		return
	}

	res := dto.PackageDetailResponse{
		Package: toPackageResponse(pkg),
		History: make([]dto.StatusEntryResponse, 0, len(history)),
	}
	for _, e := range history {
		res.History = append(res.History, dto.StatusEntryResponse{
			Status:  string(e.Status),
			ActorID: e.ActorID,
			Note:    e.Note,
			At:      e.At,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

// Assign retries assignment for a registered package. Unassigned outcomes
// are still 200; only a missing package is a 404.
func (h *PackageHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	a, err := h.Dispatcher.AssignPackage(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "assign package", err)
		return
	}
	if a.Reason == services.ReasonPackageNotFound {
		writeError(w, r, http.StatusNotFound, "package not found")
		return
	}

	writeJSON(w, r, http.StatusOK, toAssignmentResponse(a))
}
