package handlers

import (
	"net/http"
	"strconv"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/vibe-matcher/internal/constants"
	"github.com/kozaktomas/vibe-matcher/internal/logging"
	"github.com/kozaktomas/vibe-matcher/internal/matcher"
	"go.uber.org/zap"
)

// CompareHandler handles direct two-image comparison.
type CompareHandler struct {
	matcher *matcher.Matcher
	logger  *zap.Logger
}

// NewCompareHandler creates a new compare handler.
func NewCompareHandler(m *matcher.Matcher, logger *zap.Logger) *CompareHandler {
	return &CompareHandler{
		matcher: m,
		logger:  logger,
	}
}

// Compare embeds two uploaded images and reports whether their similarity
// reaches the threshold. Works without a database.
func (h *CompareHandler) Compare(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	image1, err := readImageForm(r, "image1")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	image2, err := readImageForm(r, "image2")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	threshold := constants.DefaultCompareThreshold
	if v := r.FormValue("threshold"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "threshold must be a number")
			return
		}
		threshold = parsed
	}

	result, err := h.matcher.Compare(r.Context(), image1, image2, threshold)
	if err != nil {
		logger := logging.WithRequest(h.logger, chiMiddleware.GetReqID(r.Context()))
		logger.Error("comparison failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to compare images: "+sanitizeForLog(err.Error()))
		return
	}

	respondJSON(w, http.StatusOK, result)
}
