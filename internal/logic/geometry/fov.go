package geometry

import (
	"fmt"
	"math"
)

// ComputeFov calculates the port field of view of a width x height viewport, in radians.
// Formula: FOV = 2 × arctan((frustum_extent / 2) / near_clip)
// The frustum is computed without overscan: overscan pads the rendered
// image, it does not change what the lens sees.
func ComputeFov(c CameraIntrinsics, width, height float64) (FovPair, error) {
	if height == 0 {
		return FovPair{}, fmt.Errorf("%w: viewport height is 0", ErrDivisionByZero)
	}
	f, err := ComputeFrustum(c, width/height, false)
	if err != nil {
		return FovPair{}, err
	}
	return FovPair{
		Horizontal: 2.0 * math.Atan((f.Width()*0.5)/c.NearClip),
		Vertical:   2.0 * math.Atan((f.Height()*0.5)/c.NearClip),
	}, nil
}

// fovRatio probes the FOV at width x height and returns horizontal/vertical.
func fovRatio(c CameraIntrinsics, width, height float64) (float64, error) {
	fov, err := ComputeFov(c, width, height)
	if err != nil {
		return 0, err
	}
	return fov.Ratio(), nil
}
