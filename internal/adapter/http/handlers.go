package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/tree-request-service/internal/domain"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 64 << 10

type plantRequestBody struct {
	Address  string   `json:"address"`
	NumTrees int      `json:"numTrees"`
	Location string   `json:"location"`
	Lat      *float64 `json:"lat" validate:"omitempty,latitude"`
	Lng      *float64 `json:"lng" validate:"omitempty,longitude"`
}

type plantResponse struct {
	Success       bool   `json:"success"`
	SRNumber      string `json:"srNumber,omitempty"`
	Message       string `json:"message"`
	AlreadyExists bool   `json:"alreadyExists,omitempty"`
	ErrorKind     string `json:"errorKind,omitempty"`
}

type confirmPlantedBody struct {
	Confirmed *bool `json:"confirmed" validate:"required"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handlePlant(w http.ResponseWriter, r *http.Request) {
	var body plantRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, plantResponse{Message: err.Error(), ErrorKind: "InvalidRequest"})
		return
	}
	if err := s.validate.Struct(body); err != nil {
		writeJSON(w, http.StatusBadRequest, plantResponse{
			Message:   coordinatesMessage(err),
			ErrorKind: string(domain.KindInvalidCoordinates),
		})
		return
	}

	out := s.planter.Handle(r.Context(), domain.PlantRequest{
		Address:  body.Address,
		NumTrees: body.NumTrees,
		Location: body.Location,
		Lat:      body.Lat,
		Lng:      body.Lng,
	})

	resp := plantResponse{
		Success:       out.Succeeded(),
		SRNumber:      out.SRNumber,
		Message:       out.Message,
		AlreadyExists: out.AlreadyExists(),
		ErrorKind:     string(out.Kind),
	}
	writeJSON(w, statusFor(out), resp)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.requests.List(r.Context())
	if err != nil {
		s.logger.Error("list tree requests failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load tree requests"})
		return
	}
	if reqs == nil {
		reqs = []domain.TreeRequest{}
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (s *Server) handleConfirmPlanted(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "id must be a positive integer"})
		return
	}

	var body confirmPlantedBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.validate.Struct(body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "confirmed is required"})
		return
	}

	updated, err := s.requests.MarkPlanted(r.Context(), id, *body.Confirmed)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("tree request %d not found", id)})
	case err != nil:
		s.logger.Error("confirm planted failed", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to update tree request"})
	default:
		writeJSON(w, http.StatusOK, updated)
	}
}

// statusFor maps an outcome to its HTTP status. Duplicates are a normal
// answer, not an error.
func statusFor(out domain.SubmissionOutcome) int {
	switch out.Status {
	case domain.OutcomeSuccess, domain.OutcomeAlreadyExists:
		return http.StatusOK
	case domain.OutcomeValidationFailure:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func coordinatesMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid coordinates"
	}
	switch verrs[0].Field() {
	case "Lat":
		return "lat must be between -90 and 90"
	case "Lng":
		return "lng must be between -180 and 180"
	default:
		return verrs[0].Error()
	}
}
