// Package scene connects the geometry solvers to the sources of camera
// and render attributes.
package scene

import (
	"errors"
	"fmt"
	"image"

	"github.com/cjeanneret/FilmGate/internal/debug"
	"github.com/cjeanneret/FilmGate/internal/logic/geometry"
)

// ErrUnknownCamera is returned by providers for an unknown camera id.
var ErrUnknownCamera = errors.New("unknown camera")

// CameraProvider returns the intrinsics of a named camera.
type CameraProvider interface {
	Camera(id string) (geometry.CameraIntrinsics, error)
}

// RenderSettingsProvider exposes the render globals.
// RenderResolution returns false when no resolution is set.
type RenderSettingsProvider interface {
	RenderResolution() (geometry.Resolution, bool)
	IgnoreFilmGate() bool
}

// Overrides replaces parts of Base. Nil fields fall through to Base.
type Overrides struct {
	Base           RenderSettingsProvider
	Resolution     *geometry.Resolution
	IgnoreFilmGate *bool
}

// RenderResolution implements RenderSettingsProvider.
func (o Overrides) RenderResolution() (geometry.Resolution, bool) {
	if o.Resolution != nil && !o.Resolution.IsZero() {
		return *o.Resolution, true
	}
	if o.Base == nil {
		return geometry.Resolution{}, false
	}
	return o.Base.RenderResolution()
}

// IgnoreFilmGate implements RenderSettingsProvider.
func (o Overrides) IgnoreFilmGate() bool {
	if o.IgnoreFilmGate != nil {
		return *o.IgnoreFilmGate
	}
	if o.Base == nil {
		return false
	}
	return o.Base.IgnoreFilmGate()
}

// Options tunes Evaluate.
type Options struct {
	ApplyOverscan bool // apply the camera overscan to the reported frustum
}

// Report is everything the solvers say about one camera at one render setting.
type Report struct {
	Camera          string                        `json:"camera"`
	FitMode         geometry.FitMode              `json:"film_fit"`
	Render          geometry.Resolution           `json:"render"`
	RenderDefaulted bool                          `json:"render_defaulted"`
	IgnoreFilmGate  bool                          `json:"ignore_film_gate"`
	Frustum         geometry.FrustumRect          `json:"frustum"`
	Fov             geometry.FovPair              `json:"fov"`
	Reconciled      geometry.ReconciliationResult `json:"reconciled"`
	Visible         image.Rectangle               `json:"visible"`

	NominalHorizontalFovDeg   float64 `json:"nominal_horizontal_fov_deg"`
	EffectiveHorizontalFovDeg float64 `json:"effective_horizontal_fov_deg"`
}

// Evaluate queries both providers for camera id and runs every solver on the
// resulting snapshot. The frustum and FOV pair are measured at the render
// aspect ratio (after falling back to the default resolution).
func Evaluate(cams CameraProvider, settings RenderSettingsProvider, id string, opts Options) (*Report, error) {
	cam, err := cams.Camera(id)
	if err != nil {
		return nil, err
	}

	var render *geometry.Resolution
	res := geometry.DefaultResolution
	if r, ok := settings.RenderResolution(); ok && !r.IsZero() {
		render = &r
		res = r
	}
	ignore := settings.IgnoreFilmGate()
	debug.Verbose("evaluate %s: render=%s ignore_film_gate=%t overscan=%t", id, res, ignore, opts.ApplyOverscan)

	frustum, err := geometry.ComputeFrustum(cam, res.Aspect(), opts.ApplyOverscan)
	if err != nil {
		return nil, fmt.Errorf("camera %s: frustum: %w", id, err)
	}
	fov, err := geometry.ComputeFov(cam, float64(res.Width), float64(res.Height))
	if err != nil {
		return nil, fmt.Errorf("camera %s: fov: %w", id, err)
	}
	rec, err := geometry.Reconcile(cam, render, ignore)
	if err != nil {
		return nil, fmt.Errorf("camera %s: reconcile: %w", id, err)
	}
	effective, err := geometry.EffectiveHorizontalFov(cam, render, ignore)
	if err != nil {
		return nil, fmt.Errorf("camera %s: effective fov: %w", id, err)
	}

	debug.Camera(id, rec.CameraWidth, rec.CameraHeight, rec.FovRatio)

	return &Report{
		Camera:                    id,
		FitMode:                   cam.FitMode,
		Render:                    res,
		RenderDefaulted:           render == nil,
		IgnoreFilmGate:            ignore,
		Frustum:                   frustum,
		Fov:                       fov,
		Reconciled:                rec,
		Visible:                   geometry.VisibleRect(res, rec.CameraResolution()),
		NominalHorizontalFovDeg:   cam.NominalHorizontalFov,
		EffectiveHorizontalFovDeg: effective,
	}, nil
}
