package geometry

import (
	"fmt"
	"math"

	"github.com/cjeanneret/FilmGate/internal/debug"
)

// Reconcile determines which part of the render resolution the camera
// actually covers and the ratio correcting its nominal horizontal FOV.
//
// A nil render resolution, or one missing a dimension, falls back to
// DefaultResolution. When the film gate is enforced (ignoreFilmGate false),
// the camera resolution is cropped to simulate letterboxing; the reported
// dimensions are truncated to whole pixels after all comparisons.
func Reconcile(c CameraIntrinsics, render *Resolution, ignoreFilmGate bool) (ReconciliationResult, error) {
	if err := c.Validate(); err != nil {
		return ReconciliationResult{}, err
	}
	res := DefaultResolution
	if render != nil && !render.IsZero() {
		res = *render
	}
	if res.Width < 0 || res.Height < 0 {
		return ReconciliationResult{}, fmt.Errorf("%w: render resolution %s must be positive", ErrInvalidCameraConfiguration, res)
	}
	policy, err := policyFor(c.FitMode)
	if err != nil {
		return ReconciliationResult{}, err
	}
	debug.Trace("reconcile: fit=%s render=%s ignore_film_gate=%t", c.FitMode, res, ignoreFilmGate)
	return policy.reconcile(c, res.Width, res.Height, ignoreFilmGate)
}

func apertureRatio(c CameraIntrinsics) float64 {
	return c.ApertureX / c.ApertureY
}

func truncate(v float64) int {
	return int(math.Floor(v))
}

func (horizontalFit) reconcile(c CameraIntrinsics, camW, camH int, ignoreFilmGate bool) (ReconciliationResult, error) {
	newHeight := float64(camW) / apertureRatio(c)
	if !ignoreFilmGate && newHeight < float64(camH) {
		debug.Trace("horizontal fit: letterbox height %d -> %g", camH, newHeight)
		camH = truncate(newHeight)
	}
	ratio, err := fovRatio(c, float64(camW), float64(camH))
	if err != nil {
		return ReconciliationResult{}, err
	}
	return ReconciliationResult{CameraWidth: camW, CameraHeight: camH, FovRatio: ratio}, nil
}

func (verticalFit) reconcile(c CameraIntrinsics, camW, camH int, ignoreFilmGate bool) (ReconciliationResult, error) {
	newWidth := float64(camH) * apertureRatio(c)
	narrower := newWidth < float64(camW)

	var branch string
	switch {
	case narrower && !ignoreFilmGate:
		// gate narrower than the resolution, gate on: pillarbox without touching the FOV
		debug.Trace("vertical fit: pillarbox width %d -> %g", camW, newWidth)
		return ReconciliationResult{CameraWidth: truncate(newWidth), CameraHeight: camH, FovRatio: 1.0}, nil
	case narrower && ignoreFilmGate:
		branch = "gate narrower than resolution, gate off"
	case !ignoreFilmGate:
		branch = "gate wider than resolution, gate on"
	default:
		branch = "gate wider than resolution, gate off"
	}
	debug.Trace("vertical fit: %s, probing %gx%d", branch, newWidth, camH)

	ratio, err := fovRatio(c, newWidth, float64(camH))
	if err != nil {
		return ReconciliationResult{}, err
	}
	return ReconciliationResult{CameraWidth: camW, CameraHeight: camH, FovRatio: ratio}, nil
}

func (overscanFit) reconcile(c CameraIntrinsics, camW, camH int, ignoreFilmGate bool) (ReconciliationResult, error) {
	ar := apertureRatio(c)
	newHeight := float64(camW) / ar
	newWidth := float64(camH) * ar

	probeW := float64(camW)
	if newWidth < float64(camW) {
		if !ignoreFilmGate {
			debug.Trace("overscan fit: pillarbox width %d -> %g", camW, newWidth)
			return ReconciliationResult{CameraWidth: truncate(newWidth), CameraHeight: camH, FovRatio: 1.0}, nil
		}
		probeW = newWidth
	} else if !ignoreFilmGate {
		debug.Trace("overscan fit: letterbox height %d -> %g", camH, newHeight)
		camH = truncate(newHeight)
	}

	ratio, err := fovRatio(c, probeW, float64(camH))
	if err != nil {
		return ReconciliationResult{}, err
	}
	return ReconciliationResult{CameraWidth: camW, CameraHeight: camH, FovRatio: ratio}, nil
}

// Fill never crops the reported resolution; it only picks the probe width.
// The probe width uses the inverse aperture ratio.
func (fillFit) reconcile(c CameraIntrinsics, camW, camH int, _ bool) (ReconciliationResult, error) {
	newWidth := float64(camH) * (c.ApertureY / c.ApertureX)

	probeW := float64(camW)
	if newWidth >= probeW {
		probeW = newWidth
	}
	debug.Trace("fill fit: probing %gx%d", probeW, camH)

	ratio, err := fovRatio(c, probeW, float64(camH))
	if err != nil {
		return ReconciliationResult{}, err
	}
	return ReconciliationResult{CameraWidth: camW, CameraHeight: camH, FovRatio: ratio}, nil
}

// EffectiveHorizontalFov returns the camera's nominal horizontal FOV corrected
// for the resolution it is actually rendered at.
func EffectiveHorizontalFov(c CameraIntrinsics, render *Resolution, ignoreFilmGate bool) (float64, error) {
	r, err := Reconcile(c, render, ignoreFilmGate)
	if err != nil {
		return 0, err
	}
	if r.FovRatio == 0 {
		return 0, fmt.Errorf("%w: fov ratio is 0", ErrDivisionByZero)
	}
	return c.NominalHorizontalFov / r.FovRatio, nil
}
