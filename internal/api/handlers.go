package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/crop-advisor/internal/crops"
	"github.com/sells-group/crop-advisor/internal/metrics"
	"github.com/sells-group/crop-advisor/internal/model"
	"github.com/sells-group/crop-advisor/internal/recommend"
	"github.com/sells-group/crop-advisor/internal/soil"
)

const maxBodyBytes = 1 << 20

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var br badRequest
		if errors.As(err, &br) {
			return br
		}
		return badRequest("invalid request body")
	}
	return nil
}

type recommendRequest struct {
	SoilType string   `json:"soil_type"`
	Location string   `json:"location"`
	FarmSize FarmSize `json:"farm_size"`
}

func (h *handlers) recommend(w http.ResponseWriter, r *http.Request) {
	var body recommendRequest
	if err := decodeJSON(r, &body); err != nil {
		h.count(metrics.OutcomeInvalid)
		writeError(w, r, err)
		return
	}

	req := recommend.Request{
		SoilType: body.SoilType,
		Location: body.Location,
		FarmSize: body.FarmSize.Acres(),
	}
	if u := userFrom(r.Context()); u != nil {
		req.UserID = u.ID
	}

	res, err := h.Recommender.Recommend(r.Context(), req)
	switch {
	case err == nil:
		h.count(metrics.OutcomeOK)
		writeJSON(w, http.StatusOK, res)
		return
	case errors.Is(err, recommend.ErrInvalidInput):
		h.count(metrics.OutcomeInvalid)
	case errors.Is(err, recommend.ErrWarmingUp):
		h.count(metrics.OutcomeWarmingUp)
	default:
		h.count(metrics.OutcomeError)
	}
	writeError(w, r, err)
}

func (h *handlers) count(outcome string) {
	if h.Metrics != nil {
		h.Metrics.Recommendation(outcome)
	}
}

func (h *handlers) weather(w http.ResponseWriter, r *http.Request) {
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if location == "" {
		writeError(w, r, badRequest("location is required"))
		return
	}
	writeJSON(w, http.StatusOK, h.Weather.Resolve(r.Context(), location))
}

func (h *handlers) availableCrops(w http.ResponseWriter, _ *http.Request) {
	catalog := h.Crops.Catalog()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"crops":   catalog,
		"total":   len(catalog),
	})
}

func (h *handlers) cropPlan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var size FarmSize
	if err := size.parse(q.Get("farm_size")); err != nil {
		writeError(w, r, err)
		return
	}
	opts := crops.PlanOptions{
		SoilType: strings.TrimSpace(q.Get("soil_type")),
		FarmSize: size.Acres(),
		Now:      h.Now(),
	}

	crop := chi.URLParam(r, "crop")
	if _, ok := h.Crops.Lookup(crop); ok {
		if location := strings.TrimSpace(q.Get("location")); location != "" {
			obs := h.Weather.Resolve(r.Context(), location)
			opts.Weather = &obs
		}
	}

	plan, err := h.Crops.Plan(crop, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "plan": plan})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":       "healthy",
		"model_status": h.Model.Status(),
		"timestamp":    h.Now().UTC(),
	}
	if h.Store != nil {
		if err := h.Store.Ping(r.Context()); err != nil {
			zap.L().Warn("api: store ping failed", zap.Error(err))
			resp["status"] = "degraded"
			resp["store"] = "unavailable"
		} else {
			resp["store"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type soilHealthRequest struct {
	SoilType string   `json:"soil_type"`
	N        *float64 `json:"N"`
	P        *float64 `json:"P"`
	K        *float64 `json:"K"`
	PH       *float64 `json:"pH"`
}

func (h *handlers) soilHealth(w http.ResponseWriter, r *http.Request) {
	var body soilHealthRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	var profile model.SoilProfile
	switch {
	case body.N != nil && body.P != nil && body.K != nil && body.PH != nil:
		profile = model.SoilProfile{
			Type: soil.Normalize(body.SoilType),
			N:    *body.N,
			P:    *body.P,
			K:    *body.K,
			PH:   *body.PH,
		}
	case strings.TrimSpace(body.SoilType) != "":
		profile = soil.Map(body.SoilType, h.Now().Month())
	default:
		writeError(w, r, badRequest("soil_type or all of N, P, K and pH are required"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"soil":    profile,
		"health":  soil.Evaluate(profile),
	})
}
