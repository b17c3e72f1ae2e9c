package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/cjeanneret/FilmGate/internal/logic/geometry"
	"github.com/cjeanneret/FilmGate/internal/logic/scene"
	"github.com/cjeanneret/FilmGate/internal/mask"
)

// MaxDimension bounds request resolutions (also the WebP size limit).
const MaxDimension = 16384

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// FormConfig holds default values exposed to clients (from config).
type FormConfig struct {
	Cameras        []string `json:"cameras"`
	DefaultCamera  string   `json:"default_camera"`
	WidthPx        int      `json:"width_px"`
	HeightPx       int      `json:"height_px"`
	IgnoreFilmGate bool     `json:"ignore_film_gate"`
	MaskFormat     string   `json:"mask_format"`
}

// SolveRequest selects a camera and optionally overrides render settings.
// Zero dimensions and a nil IgnoreFilmGate mean "use config".
type SolveRequest struct {
	Camera         string `json:"camera"`
	WidthPx        int    `json:"width_px"`
	HeightPx       int    `json:"height_px"`
	IgnoreFilmGate *bool  `json:"ignore_film_gate,omitempty"`
	ApplyOverscan  bool   `json:"apply_overscan"`
}

// ClipRequest asks whether a pixel of render is outside camera.
type ClipRequest struct {
	X      float64             `json:"x"`
	Y      float64             `json:"y"`
	Render geometry.Resolution `json:"render"`
	Camera geometry.Resolution `json:"camera"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster  *StatusBroadcaster
	Cameras      scene.CameraProvider
	Settings     scene.RenderSettingsProvider
	FormDefaults FormConfig
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(broadcaster *StatusBroadcaster, cams scene.CameraProvider, settings scene.RenderSettingsProvider, formDefaults FormConfig) *Handlers {
	return &Handlers{
		Broadcaster:  broadcaster,
		Cameras:      cams,
		Settings:     settings,
		FormDefaults: formDefaults,
	}
}

// ValidateSolveRequest checks the resolution override of a request.
func ValidateSolveRequest(req SolveRequest) error {
	if (req.WidthPx == 0) != (req.HeightPx == 0) {
		return fmt.Errorf("width_px and height_px must be set together")
	}
	if req.WidthPx < 0 || req.WidthPx > MaxDimension {
		return fmt.Errorf("width_px must be between 1 and %d", MaxDimension)
	}
	if req.HeightPx < 0 || req.HeightPx > MaxDimension {
		return fmt.Errorf("height_px must be between 1 and %d", MaxDimension)
	}
	return nil
}

// ValidateClipRequest checks a clip query.
func ValidateClipRequest(req ClipRequest) error {
	if math.IsNaN(req.X) || math.IsNaN(req.Y) || math.IsInf(req.X, 0) || math.IsInf(req.Y, 0) {
		return fmt.Errorf("x and y must be finite")
	}
	if req.Render.Width <= 0 || req.Render.Height <= 0 {
		return fmt.Errorf("render resolution must be positive")
	}
	if req.Camera.Width < 0 || req.Camera.Height < 0 {
		return fmt.Errorf("camera resolution must not be negative")
	}
	return nil
}

// solve runs scene.Evaluate with the request overrides applied.
func (h *Handlers) solve(req SolveRequest) (*scene.Report, error) {
	camera := req.Camera
	if camera == "" {
		camera = h.FormDefaults.DefaultCamera
	}
	settings := scene.Overrides{Base: h.Settings, IgnoreFilmGate: req.IgnoreFilmGate}
	if req.WidthPx > 0 && req.HeightPx > 0 {
		settings.Resolution = &geometry.Resolution{Width: req.WidthPx, Height: req.HeightPx}
	}
	return scene.Evaluate(h.Cameras, settings, camera, scene.Options{ApplyOverscan: req.ApplyOverscan})
}

// solveStatus maps a solve error to an HTTP status code.
func solveStatus(err error) int {
	switch {
	case errors.Is(err, scene.ErrUnknownCamera):
		return http.StatusNotFound
	case errors.Is(err, geometry.ErrInvalidCameraConfiguration), errors.Is(err, geometry.ErrDivisionByZero):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// HandleConfig returns the form default values (from config) as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.FormDefaults)
}

// HandleSolve handles POST /solve.
func (h *Handlers) HandleSolve(w http.ResponseWriter, r *http.Request) {
	var req SolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := ValidateSolveRequest(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.solve(req)
	if err != nil {
		h.Broadcaster.Broadcast("error", "Solve failed: "+err.Error())
		http.Error(w, err.Error(), solveStatus(err))
		return
	}
	h.Broadcaster.BroadcastReport(report)
	writeJSON(w, http.StatusOK, report)
}

// HandleClip handles POST /clip.
func (h *Handlers) HandleClip(w http.ResponseWriter, r *http.Request) {
	var req ClipRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := ValidateClipRequest(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	clipped := geometry.IsClipped(req.X, req.Y, req.Render, req.Camera)
	writeJSON(w, http.StatusOK, map[string]bool{"clipped": clipped})
}

// HandleMask handles GET /mask?camera=&format=&width_px=&height_px=&ignore_film_gate=.
func (h *Handlers) HandleMask(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := SolveRequest{Camera: q.Get("camera")}

	var err error
	if v := q.Get("width_px"); v != "" {
		if req.WidthPx, err = strconv.Atoi(v); err != nil {
			http.Error(w, "width_px must be an integer", http.StatusBadRequest)
			return
		}
	}
	if v := q.Get("height_px"); v != "" {
		if req.HeightPx, err = strconv.Atoi(v); err != nil {
			http.Error(w, "height_px must be an integer", http.StatusBadRequest)
			return
		}
	}
	if v := q.Get("ignore_film_gate"); v != "" {
		ignore, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "ignore_film_gate must be a boolean", http.StatusBadRequest)
			return
		}
		req.IgnoreFilmGate = &ignore
	}
	if err := ValidateSolveRequest(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	formatName := q.Get("format")
	if formatName == "" {
		formatName = h.FormDefaults.MaskFormat
	}
	format, err := mask.ParseFormat(formatName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.solve(req)
	if err != nil {
		http.Error(w, err.Error(), solveStatus(err))
		return
	}
	if report.Render.Width > MaxDimension || report.Render.Height > MaxDimension {
		http.Error(w, fmt.Sprintf("render resolution %s exceeds %d", report.Render, MaxDimension), http.StatusUnprocessableEntity)
		return
	}

	img := mask.Build(report.Render, report.Reconciled.CameraResolution())
	var buf bytes.Buffer
	if err := mask.Encode(&buf, img, format); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()
		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
