package geometry

import (
	"fmt"
	"math"
)

// ComputeFrustum computes the position and size of the rectangular viewing
// frustum in the near clipping plane for a window of the given aspect ratio.
// When applyOverscan is set, the film scale is multiplied by c.Overscan.
func ComputeFrustum(c CameraIntrinsics, windowAspect float64, applyOverscan bool) (FrustumRect, error) {
	if err := c.Validate(); err != nil {
		return FrustumRect{}, err
	}
	if !(windowAspect > 0) || math.IsInf(windowAspect, 0) {
		return FrustumRect{}, fmt.Errorf("%w: window aspect must be > 0, got %g", ErrInvalidCameraConfiguration, windowAspect)
	}
	policy, err := policyFor(c.FitMode)
	if err != nil {
		return FrustumRect{}, err
	}

	// focal length in inches, then the ratio mapping film inches onto the near plane
	focalToNear := (c.NearClip / (c.FocalLengthMm * MmToInch)) * c.CameraScale

	t := policy.transform(c, windowAspect)
	if applyOverscan {
		if c.Overscan < 0 {
			return FrustumRect{}, fmt.Errorf("%w: overscan must be >= 0, got %g", ErrInvalidCameraConfiguration, c.Overscan)
		}
		t.scaleX *= c.Overscan
		t.scaleY *= c.Overscan
	}

	halfX := 0.5 * c.ApertureX * t.scaleX
	halfY := 0.5 * c.ApertureY * t.scaleY
	centerX := c.OffsetX + t.translateX
	centerY := c.OffsetY + t.translateY

	return FrustumRect{
		Left:   focalToNear * (-halfX + centerX),
		Right:  focalToNear * (halfX + centerX),
		Bottom: focalToNear * (-halfY + centerY),
		Top:    focalToNear * (halfY + centerY),
	}, nil
}

func identityTransform() filmTransform {
	return filmTransform{scaleX: 1.0, scaleY: 1.0}
}

// Fill keeps the whole window covered: the wider side of the gate is cropped.
func (fillFit) transform(c CameraIntrinsics, windowAspect float64) filmTransform {
	t := identityTransform()
	if windowAspect < c.AspectRatio {
		t.scaleX = windowAspect / c.AspectRatio
	} else {
		t.scaleY = c.AspectRatio / windowAspect
	}
	return t
}

// Horizontal locks the gate width to the window width.
func (horizontalFit) transform(c CameraIntrinsics, windowAspect float64) filmTransform {
	t := identityTransform()
	t.scaleY = c.AspectRatio / windowAspect
	if t.scaleY > 1.0 {
		t.translateY = c.FilmFitOffset * (c.ApertureY - c.ApertureY*t.scaleY) / 2.0
	}
	return t
}

// Vertical locks the gate height to the window height.
func (verticalFit) transform(c CameraIntrinsics, windowAspect float64) filmTransform {
	t := identityTransform()
	t.scaleX = windowAspect / c.AspectRatio
	if t.scaleX > 1.0 {
		t.translateX = c.FilmFitOffset * (c.ApertureX - c.ApertureX*t.scaleX) / 2.0
	}
	return t
}

// Overscan keeps the whole gate visible: the window grows on the narrower side.
func (overscanFit) transform(c CameraIntrinsics, windowAspect float64) filmTransform {
	t := identityTransform()
	if windowAspect < c.AspectRatio {
		t.scaleY = c.AspectRatio / windowAspect
	} else {
		t.scaleX = windowAspect / c.AspectRatio
	}
	return t
}
