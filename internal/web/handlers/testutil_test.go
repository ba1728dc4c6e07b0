package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/vibe-matcher/internal/config"
	"github.com/kozaktomas/vibe-matcher/internal/database"
	"github.com/kozaktomas/vibe-matcher/internal/database/mock"
	"github.com/kozaktomas/vibe-matcher/internal/matcher"
	"go.uber.org/zap"
)

// stubEmbedder maps exact image bytes to fixed vectors.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (e *stubEmbedder) Embed(ctx context.Context, imageData []byte) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	vec, ok := e.vectors[string(imageData)]
	if !ok {
		return nil, errors.New("unknown test image")
	}
	return vec, nil
}

// newTestImage creates a small solid-color JPEG. Small images pass through
// upload preparation unchanged, so the stub embedder sees these exact bytes.
func newTestImage(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// testHarness bundles the pieces a handler test needs.
type testHarness struct {
	embedder *stubEmbedder
	store    *mock.CandidateStore
	matcher  *matcher.Matcher

	// Distinct test images with known pairwise similarities.
	imgRed   []byte // embeds to (1, 0, 0)
	imgPink  []byte // embeds to ~(0.95, 0.31, 0), similar to red
	imgBlue  []byte // embeds to (0, 1, 0), dissimilar to red
	imgGreen []byte // embeds to (1, 0, 0), identical to red
}

func newTestHarness(t *testing.T, store *mock.CandidateStore) *testHarness {
	t.Helper()

	h := &testHarness{
		embedder: &stubEmbedder{vectors: make(map[string][]float32)},
		store:    store,
		imgRed:   newTestImage(t, color.RGBA{R: 255, A: 255}),
		imgPink:  newTestImage(t, color.RGBA{R: 255, G: 150, B: 150, A: 255}),
		imgBlue:  newTestImage(t, color.RGBA{B: 255, A: 255}),
		imgGreen: newTestImage(t, color.RGBA{G: 255, A: 255}),
	}
	h.embedder.vectors[string(h.imgRed)] = []float32{1, 0, 0}
	h.embedder.vectors[string(h.imgPink)] = []float32{0.95, 0.3122499, 0}
	h.embedder.vectors[string(h.imgBlue)] = []float32{0, 1, 0}
	h.embedder.vectors[string(h.imgGreen)] = []float32{1, 0, 0}

	var candidateStore database.CandidateStore
	if store != nil {
		candidateStore = store
	}
	h.matcher = matcher.New(h.embedder, candidateStore, config.MatchConfig{
		MinScore: 0.9,
		Window:   5 * time.Minute,
	}, zap.NewNop())

	return h
}

// multipartRequest builds a POST request with form fields and file parts.
func multipartRequest(t *testing.T, path string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("failed to write form field: %v", err)
		}
	}
	for name, data := range files {
		part, err := writer.CreateFormFile(name, name+".jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
