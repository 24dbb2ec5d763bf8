package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/crop-advisor/internal/auth"
	"github.com/sells-group/crop-advisor/internal/crops"
	"github.com/sells-group/crop-advisor/internal/recommend"
	"github.com/sells-group/crop-advisor/internal/store"
)

// warmingUpMessage is returned with 503 while the classifier trains.
const warmingUpMessage = "Model training in progress, please try again"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

type errorBody struct {
	Success        bool     `json:"success"`
	Error          string   `json:"error"`
	AvailableCrops []string `json:"available_crops,omitempty"`
}

// badRequest is a 400 with a caller-facing message.
type badRequest string

func (b badRequest) Error() string { return string(b) }

// writeError maps an error to a status code. Internal details are logged,
// never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		br      badRequest
		input   *recommend.InputError
		invalid *auth.ValidationError
		unknown *crops.UnknownCropError
		status  int
		body    errorBody
	)

	switch {
	case errors.As(err, &br):
		status, body.Error = http.StatusBadRequest, string(br)
	case errors.As(err, &input):
		status, body.Error = http.StatusBadRequest, input.Msg
	case errors.As(err, &invalid):
		status, body.Error = http.StatusBadRequest, invalid.Msg
	case errors.As(err, &unknown):
		status, body.Error = http.StatusNotFound, unknown.Error()
		body.AvailableCrops = unknown.Available
	case errors.Is(err, store.ErrNotFound):
		status, body.Error = http.StatusNotFound, "not found"
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, body.Error = http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, auth.ErrInvalidToken):
		status, body.Error = http.StatusUnauthorized, "invalid or expired token"
	case errors.Is(err, auth.ErrUserExists):
		status, body.Error = http.StatusConflict, "user with this phone, gmail or username already exists"
	case errors.Is(err, recommend.ErrWarmingUp):
		status, body.Error = http.StatusServiceUnavailable, warmingUpMessage
		w.Header().Set("Retry-After", "30")
	default:
		status, body.Error = http.StatusInternalServerError, "internal server error"
		zap.L().Error("api: request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, body)
}
