package rates

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/freightdesk/freightdesk/internal/platform/httpx"
)

// QuoteRequest prices one shipment. Dimensions are optional; when present
// the volumetric weight competes with the actual weight.
type QuoteRequest struct {
	Zone     string  `json:"zone"`
	City     string  `json:"city"`
	ActualKg float64 `json:"actual_kg" validate:"required,gt=0"`
	LengthCm float64 `json:"length_cm" validate:"gte=0"`
	WidthCm  float64 `json:"width_cm" validate:"gte=0"`
	HeightCm float64 `json:"height_cm" validate:"gte=0"`
}

// Handler exposes the rate calculator. Public: prospects price shipments
// before any quote exists.
type Handler struct {
	logger   *slog.Logger
	engine   *Engine
	validate *validator.Validate
}

// NewHandler builds the rates handler.
func NewHandler(logger *slog.Logger, engine *Engine) *Handler {
	return &Handler{logger: logger, engine: engine, validate: validator.New()}
}

// MountRoutes attaches rate routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/quote", h.Quote)
	r.Get("/card", h.Card)
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var volumetric float64
	if req.LengthCm > 0 && req.WidthCm > 0 && req.HeightCm > 0 {
		volumetric = VolumetricWeight(req.LengthCm, req.WidthCm, req.HeightCm)
	}
	breakdown := h.engine.Quote(Input{
		Destination:  Selector{Zone: req.Zone, City: req.City},
		ActualKg:     req.ActualKg,
		VolumetricKg: volumetric,
	})
	httpx.JSON(w, http.StatusOK, breakdown)
}

func (h *Handler) Card(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.engine.Card())
}
