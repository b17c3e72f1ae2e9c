package geometry

import "fmt"

// filmTransform is the scale and translation a fit policy applies to the film gate.
type filmTransform struct {
	scaleX, scaleY         float64
	translateX, translateY float64
}

// fitPolicy is implemented once per FitMode. policyFor is the only place
// a FitMode is turned into behavior, so adding a mode means adding a case there.
type fitPolicy interface {
	// transform returns the film-gate transform for the given window aspect.
	transform(c CameraIntrinsics, windowAspect float64) filmTransform
	// reconcile maps a render resolution to the camera-visible resolution.
	reconcile(c CameraIntrinsics, camW, camH int, ignoreFilmGate bool) (ReconciliationResult, error)
}

type (
	fillFit       struct{}
	horizontalFit struct{}
	verticalFit   struct{}
	overscanFit   struct{}
)

func policyFor(m FitMode) (fitPolicy, error) {
	switch m {
	case FitFill:
		return fillFit{}, nil
	case FitHorizontal:
		return horizontalFit{}, nil
	case FitVertical:
		return verticalFit{}, nil
	case FitOverscan:
		return overscanFit{}, nil
	}
	return nil, fmt.Errorf("%w: unknown film fit %s", ErrInvalidCameraConfiguration, m)
}
