package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"kartobot/internal/genimage"
)

// GenerateHandler is the standalone image-generation proxy: it forwards one
// request to the configured backend and returns the artifact as a URL.
type GenerateHandler struct {
	Client genimage.Client
}

type generateReq struct {
	ImageBase64 string `json:"imageBase64"`
	Prompt      string `json:"prompt"`
}

func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.ImageBase64 == "" {
		writeError(w, http.StatusBadRequest, "imageBase64 is required")
		return
	}
	if h.Client == nil {
		writeError(w, http.StatusInternalServerError, "API key not configured")
		return
	}

	art, err := h.Client.Generate(r.Context(), genimage.Input{
		ImageBase64: req.ImageBase64,
		Prompt:      req.Prompt,
	})
	if err != nil {
		log.WithError(err).WithField("backend", h.Client.Name()).Warn("generation failed")

		var statusErr *genimage.StatusError
		switch {
		case errors.As(err, &statusErr):
			writeError(w, http.StatusBadGateway, "Generation failed")
		case errors.Is(err, genimage.ErrMalformedResponse):
			writeError(w, http.StatusInternalServerError, "No image data in response")
		default:
			writeError(w, http.StatusInternalServerError, "Generation failed")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":  true,
		"imageUrl": art.DataURL(),
	})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}
