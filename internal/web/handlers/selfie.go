package handlers

import (
	"errors"
	"net/http"
	"strconv"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/vibe-matcher/internal/constants"
	"github.com/kozaktomas/vibe-matcher/internal/logging"
	"github.com/kozaktomas/vibe-matcher/internal/matcher"
	"go.uber.org/zap"
)

// SelfieHandler handles selfie submission and pool matching.
type SelfieHandler struct {
	matcher *matcher.Matcher
	logger  *zap.Logger
}

// NewSelfieHandler creates a new selfie handler.
func NewSelfieHandler(m *matcher.Matcher, logger *zap.Logger) *SelfieHandler {
	return &SelfieHandler{
		matcher: m,
		logger:  logger,
	}
}

// optionalFloatForm parses an optional float form field, returning nil when absent.
func optionalFloatForm(r *http.Request, field string) (*float64, error) {
	v := r.FormValue(field)
	if v == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// Process stores the uploaded selfie and scans the recent pool for a mutual
// match. Requires a configured database.
func (h *SelfieHandler) Process(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	userID := r.FormValue("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	selfie, err := readImageForm(r, "selfie")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	latitude, err := optionalFloatForm(r, "latitude")
	if err != nil {
		respondError(w, http.StatusBadRequest, "latitude must be a number")
		return
	}
	longitude, err := optionalFloatForm(r, "longitude")
	if err != nil {
		respondError(w, http.StatusBadRequest, "longitude must be a number")
		return
	}

	result, err := h.matcher.ProcessSelfie(r.Context(), selfie, userID, latitude, longitude)
	if err != nil {
		if errors.Is(err, matcher.ErrStoreUnavailable) {
			respondError(w, http.StatusServiceUnavailable, "matching requires a configured database")
			return
		}
		logger := logging.WithRequest(h.logger, chiMiddleware.GetReqID(r.Context()))
		logger.Error("selfie processing failed",
			zap.String("user_id", sanitizeForLog(userID)),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "failed to process selfie: "+sanitizeForLog(err.Error()))
		return
	}

	respondJSON(w, http.StatusOK, result)
}
