package geometry

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// MmToInch converts millimeters to inches (focal lengths are in mm, apertures in inches).
const MmToInch = 0.03937007874

// DefaultResolution is used when no render resolution is available.
var DefaultResolution = Resolution{Width: 320, Height: 240}

var (
	// ErrInvalidCameraConfiguration reports non-positive intrinsics or an unknown fit mode.
	ErrInvalidCameraConfiguration = errors.New("invalid camera configuration")
	// ErrDivisionByZero reports a zero height or a zero fov ratio.
	ErrDivisionByZero = errors.New("division by zero")
)

// FitMode is the film fit policy reconciling the film gate with the output aspect ratio.
type FitMode int

const (
	FitFill FitMode = iota
	FitHorizontal
	FitVertical
	FitOverscan
)

var fitModeNames = [...]string{
	FitFill:       "fill",
	FitHorizontal: "horizontal",
	FitVertical:   "vertical",
	FitOverscan:   "overscan",
}

// ParseFitMode parses "fill", "horizontal", "vertical" or "overscan".
func ParseFitMode(s string) (FitMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range fitModeNames {
		if n == name {
			return FitMode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown film fit %q", ErrInvalidCameraConfiguration, s)
}

func (m FitMode) String() string {
	if m < 0 || int(m) >= len(fitModeNames) {
		return fmt.Sprintf("FitMode(%d)", int(m))
	}
	return fitModeNames[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m FitMode) MarshalText() ([]byte, error) {
	if _, err := policyFor(m); err != nil {
		return nil, err
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *FitMode) UnmarshalText(text []byte) error {
	mode, err := ParseFitMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// CameraIntrinsics is a read-only snapshot of the camera attributes the solvers need.
// Apertures and offsets are in inches.
type CameraIntrinsics struct {
	AspectRatio   float64 // film aspect, usually ApertureX/ApertureY
	ApertureX     float64
	ApertureY     float64
	OffsetX       float64
	OffsetY       float64
	FilmFitOffset float64 // multiplier on the fit translation (0 disables it)
	FocalLengthMm float64
	NearClip      float64
	CameraScale   float64
	Overscan      float64
	FitMode       FitMode

	// NominalHorizontalFov is the camera's own horizontal FOV, in whatever
	// unit the caller uses (degrees throughout this repository).
	NominalHorizontalFov float64
}

// Validate checks the invariants shared by every solver.
func (c CameraIntrinsics) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"aperture_x", c.ApertureX},
		{"aperture_y", c.ApertureY},
		{"near_clip", c.NearClip},
		{"focal_length_mm", c.FocalLengthMm},
		{"camera_scale", c.CameraScale},
		{"aspect_ratio", c.AspectRatio},
	}
	for _, chk := range checks {
		// written as !(v > 0) so NaN is rejected too
		if !(chk.value > 0) || math.IsInf(chk.value, 0) {
			return fmt.Errorf("%w: %s must be > 0, got %g", ErrInvalidCameraConfiguration, chk.name, chk.value)
		}
	}
	if _, err := policyFor(c.FitMode); err != nil {
		return err
	}
	return nil
}

// FrustumRect is the viewing rectangle at the near clipping plane, in scene units.
type FrustumRect struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Top    float64 `json:"top"`
}

// Width returns Right - Left.
func (f FrustumRect) Width() float64 { return f.Right - f.Left }

// Height returns Top - Bottom.
func (f FrustumRect) Height() float64 { return f.Top - f.Bottom }

// FovPair holds horizontal and vertical field of view angles in radians.
type FovPair struct {
	Horizontal float64 `json:"horizontal_rad"`
	Vertical   float64 `json:"vertical_rad"`
}

// Ratio returns Horizontal / Vertical.
func (p FovPair) Ratio() float64 { return p.Horizontal / p.Vertical }

// Degrees returns both angles converted to degrees.
func (p FovPair) Degrees() (horizontal, vertical float64) {
	return p.Horizontal * 180.0 / math.Pi, p.Vertical * 180.0 / math.Pi
}

// Resolution is an image size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsZero reports whether either dimension is missing.
func (r Resolution) IsZero() bool { return r.Width == 0 || r.Height == 0 }

// Aspect returns Width / Height.
func (r Resolution) Aspect() float64 { return float64(r.Width) / float64(r.Height) }

func (r Resolution) String() string { return fmt.Sprintf("%dx%d", r.Width, r.Height) }

// ReconciliationResult is the camera-visible part of a render resolution and
// the factor mapping the nominal horizontal FOV to the rendered one.
type ReconciliationResult struct {
	CameraWidth  int     `json:"camera_width"`
	CameraHeight int     `json:"camera_height"`
	FovRatio     float64 `json:"fov_ratio"`
}

// CameraResolution returns the camera-visible resolution.
func (r ReconciliationResult) CameraResolution() Resolution {
	return Resolution{Width: r.CameraWidth, Height: r.CameraHeight}
}
