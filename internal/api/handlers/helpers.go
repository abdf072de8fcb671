package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"parcel-dispatch-service/internal/api/dto"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/services"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// decodeJSON reads exactly one JSON object and rejects unknown fields.
// It writes the 400 response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

// writeServiceError maps domain sentinels to status codes. Anything else is a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidPackage):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrRouteNotPending):
		writeError(w, r, http.StatusConflict, "route is not pending")
	default:
		log.Printf("%s failed: %v", op, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func toCoordinates(c *domain.Coordinates) *dto.Coordinates {
	if c == nil {
		return nil
	}
	return &dto.Coordinates{Lat: c.Lat, Lon: c.Lon}
}

func fromCoordinates(c *dto.Coordinates) *domain.Coordinates {
	if c == nil {
		return nil
	}
	return &domain.Coordinates{Lon: c.Lon, Lat: c.Lat}
}

func toPackageResponse(p domain.Package) dto.PackageResponse {
	return dto.PackageResponse{
		ID:                 p.ID,
		TrackingCode:       p.TrackingCode,
		OriginAddress:      p.OriginAddress,
		DestinationAddress: p.DestinationAddress,
		Origin:             toCoordinates(p.Origin),
		Destination:        toCoordinates(p.Destination),
		Contents:           p.Contents,
		WeightKg:           p.WeightKg,
		VolumeM3:           p.VolumeM3,
		Status:             string(p.Status),
		AssignedVehicleID:  p.AssignedVehicleID,
		OriginDepotID:      p.OriginDepotID,
		DestinationDepotID: p.DestinationDepotID,
		CreatedAt:          p.CreatedAt,
	}
}

func toAssignmentResponse(a services.Assignment) dto.AssignmentResponse {
	return dto.AssignmentResponse{
		PackageID:          a.PackageID,
		Outcome:            string(a.Outcome),
		Reason:             string(a.Reason),
		VehicleID:          a.VehicleID,
		VehiclePlate:       a.VehiclePlate,
		RouteID:            a.RouteID,
		OriginDepotID:      a.OriginDepotID,
		DestinationDepotID: a.DestinationDepotID,
		Score:              a.Score,
	}
}

func toStopResponses(stops []domain.RouteStop) []dto.RouteStopResponse {
	out := make([]dto.RouteStopResponse, 0, len(stops))
	for _, s := range stops {
		out = append(out, dto.RouteStopResponse{
			ID:         s.ID,
			DepotID:    s.DepotID,
			Order:      s.Order,
			ArrivedAt:  s.ArrivedAt,
			DepartedAt: s.DepartedAt,
		})
	}
	return out
}
