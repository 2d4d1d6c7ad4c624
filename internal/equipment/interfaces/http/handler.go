package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	equipment "equipment-api/internal/equipment/domain"
)

const timestampLayout = "2006-01-02T15:04:05.000000"

// Handler provides the /equipment list and create endpoints.
type Handler struct {
	repo   equipment.ReadingRepository
	logger *log.Logger
}

// NewHandler constructs a handler.
func NewHandler(repo equipment.ReadingRepository, logger *log.Logger) (*Handler, error) {
	if repo == nil {
		return nil, errors.New("equipment handler: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{repo: repo, logger: logger}, nil
}

// ServeHTTP handles GET and POST /equipment.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page, perPage := parsePagination(r, 1, 100)

	readings, total, err := h.repo.List(r.Context(), page, perPage)
	if err != nil {
		h.logger.Printf("equipment list: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Unable to get equipment list")
		return
	}

	message := "Request happened successfully"
	if len(readings) == 0 {
		message = "No equipment was found"
	}
	respond(w, http.StatusOK, map[string]any{
		"total":      total,
		"equipments": toDTOs(readings),
		"message":    message,
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EquipmentID string   `json:"equipmentId"`
		Value       *float64 `json:"value"`
	}
	// An absent body behaves like an empty object, matching the missing
	// field error below.
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		respondMessage(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.EquipmentID == "" {
		respondMessage(w, http.StatusBadRequest, "equipmentId field must be sent")
		return
	}

	reading := equipment.Reading{
		EquipmentID: body.EquipmentID,
		Timestamp:   equipment.CanonicalTimestamp(time.Now()),
		Value:       body.Value,
	}
	if err := h.repo.Insert(r.Context(), reading); err != nil {
		h.logger.Printf("equipment create: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Unable to create equipment reading")
		return
	}

	h.logger.Printf("equipment created: %s", reading.EquipmentID)
	respond(w, http.StatusCreated, toDTO(reading))
}

type readingDTO struct {
	EquipmentID string   `json:"equipmentId"`
	Timestamp   string   `json:"timestamp"`
	Value       *float64 `json:"value"`
}

func toDTO(reading equipment.Reading) readingDTO {
	return readingDTO{
		EquipmentID: reading.EquipmentID,
		Timestamp:   reading.Timestamp.Format(timestampLayout),
		Value:       reading.Value,
	}
}

func toDTOs(readings []equipment.Reading) []readingDTO {
	dtos := make([]readingDTO, 0, len(readings))
	for _, reading := range readings {
		dtos = append(dtos, toDTO(reading))
	}
	return dtos
}

func parsePagination(r *http.Request, defaultPage, defaultPerPage int) (int, int) {
	page := defaultPage
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	perPage := defaultPerPage
	if raw := r.URL.Query().Get("per_page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			perPage = parsed
		}
	}
	return page, perPage
}

func respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"message": message})
}
