package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/garagebook/internal/common"
	"github.com/dmitrijs2005/garagebook/internal/server/models"
	"github.com/dmitrijs2005/garagebook/internal/server/services"
	"github.com/dmitrijs2005/garagebook/internal/timex"
)

// vehicleRequest is the wire form of a record body. Dates stay strings here
// so a malformed one can be reported against its field.
type vehicleRequest struct {
	OwnerName       string `json:"ownerName"`
	Phone           string `json:"phone"`
	VehicleNumber   string `json:"vehicleNumber"`
	Make            string `json:"make"`
	Model           string `json:"model"`
	LastServiceDate string `json:"lastServiceDate"`
	NextServiceDate string `json:"nextServiceDate"`
	Notes           string `json:"notes"`
}

func (req vehicleRequest) toInput() (services.VehicleInput, error) {
	in := services.VehicleInput{
		OwnerName:     req.OwnerName,
		Phone:         req.Phone,
		VehicleNumber: req.VehicleNumber,
		Make:          req.Make,
		Model:         req.Model,
		Notes:         req.Notes,
	}

	verr := &services.ValidationError{}
	parse := func(field, raw string, dst *timex.Date) {
		if raw == "" {
			return
		}
		d, err := timex.ParseDate(raw)
		if errors.Is(err, timex.ErrInvalidDate) {
			verr.Fields = append(verr.Fields, services.FieldError{Field: field, Rule: "date"})
			return
		}
		*dst = d
	}
	parse("lastServiceDate", req.LastServiceDate, &in.LastServiceDate)
	parse("nextServiceDate", req.NextServiceDate, &in.NextServiceDate)

	if len(verr.Fields) > 0 {
		return in, verr
	}
	return in, nil
}

type updateResponse struct {
	Success bool               `json:"success"`
	Vehicle models.VehicleView `json:"vehicle"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// accountID is only ever read from the verified claim.
func (h *handler) accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	claim, ok := ClaimFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, common.ErrUnauthenticated.Error())
		return 0, false
	}
	return claim.AccountID, true
}

// pathID parses {id}. Anything that is not a positive integer cannot name a
// record and is answered like an unknown id.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeErr(w, http.StatusNotFound, common.ErrNotFound.Error())
		return 0, false
	}
	return id, true
}

func (h *handler) decodeVehicle(w http.ResponseWriter, r *http.Request) (services.VehicleInput, bool) {
	var req vehicleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return services.VehicleInput{}, false
	}
	in, err := req.toInput()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return services.VehicleInput{}, false
	}
	return in, true
}

// GET /api/vehicles
func (h *handler) listVehicles(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	list, err := h.vehicles.List(r.Context(), accountID, h.now())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// POST /api/vehicles
func (h *handler) createVehicle(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeVehicle(w, r)
	if !ok {
		return
	}

	v, err := h.vehicles.Create(r.Context(), accountID, in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v.ViewAt(h.now()))
}

// GET /api/vehicles/{id}
func (h *handler) getVehicle(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	v, err := h.vehicles.Get(r.Context(), accountID, id, h.now())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// PUT /api/vehicles/{id}
func (h *handler) updateVehicle(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeVehicle(w, r)
	if !ok {
		return
	}

	v, err := h.vehicles.Update(r.Context(), accountID, id, in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{Success: true, Vehicle: v.ViewAt(h.now())})
}

// DELETE /api/vehicles/{id}
func (h *handler) deleteVehicle(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.vehicles.Delete(r.Context(), accountID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// GET /api/vehicles/summary
func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	sum, err := h.vehicles.Summary(r.Context(), accountID, h.now())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// POST /api/vehicles/export
func (h *handler) export(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}
	if h.exports == nil {
		writeErr(w, http.StatusNotImplemented, "export disabled")
		return
	}

	exp, err := h.exports.Export(r.Context(), accountID, h.now())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info(r.Context(), "records exported", "key", exp.Key)
	writeJSON(w, http.StatusOK, exp)
}
