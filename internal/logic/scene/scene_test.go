package scene

import (
	"errors"
	"fmt"
	"image"
	"math"
	"testing"

	"github.com/cjeanneret/FilmGate/internal/logic/geometry"
)

const epsilon = 1e-9

type fakeCameras map[string]geometry.CameraIntrinsics

func (f fakeCameras) Camera(id string) (geometry.CameraIntrinsics, error) {
	c, ok := f[id]
	if !ok {
		return geometry.CameraIntrinsics{}, fmt.Errorf("%w: %q", ErrUnknownCamera, id)
	}
	return c, nil
}

type fakeSettings struct {
	res    geometry.Resolution
	set    bool
	ignore bool
}

func (f fakeSettings) RenderResolution() (geometry.Resolution, bool) {
	return f.res, f.set
}

func (f fakeSettings) IgnoreFilmGate() bool {
	return f.ignore
}

func newCameras() fakeCameras {
	return fakeCameras{
		"plate": {
			AspectRatio:          1.5,
			ApertureX:            1.5,
			ApertureY:            1.0,
			FocalLengthMm:        35,
			NearClip:             0.1,
			CameraScale:          1,
			Overscan:             1.2,
			FitMode:              geometry.FitVertical,
			NominalHorizontalFov: 54,
		},
		"broken": {
			AspectRatio:   1.5,
			ApertureX:     1.5,
			ApertureY:     1.0,
			FocalLengthMm: 0,
			NearClip:      0.1,
			CameraScale:   1,
			FitMode:       geometry.FitFill,
		},
	}
}

func TestEvaluate_Pillarbox(t *testing.T) {
	settings := fakeSettings{res: geometry.Resolution{Width: 1920, Height: 1080}, set: true}
	r, err := Evaluate(newCameras(), settings, "plate", Options{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if r.Camera != "plate" || r.FitMode != geometry.FitVertical {
		t.Errorf("report header = %s/%s", r.Camera, r.FitMode)
	}
	if r.RenderDefaulted {
		t.Error("render should not be defaulted")
	}
	if got := r.Reconciled.CameraResolution(); got != (geometry.Resolution{Width: 1620, Height: 1080}) {
		t.Errorf("camera resolution = %v, want 1620x1080", got)
	}
	if r.Visible != image.Rect(150, 0, 1770, 1080) {
		t.Errorf("visible = %v", r.Visible)
	}
	if math.Abs(r.EffectiveHorizontalFovDeg-54) > epsilon {
		t.Errorf("effective fov = %v, want 54", r.EffectiveHorizontalFovDeg)
	}
}

func TestEvaluate_DefaultResolution(t *testing.T) {
	r, err := Evaluate(newCameras(), fakeSettings{}, "plate", Options{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !r.RenderDefaulted || r.Render != geometry.DefaultResolution {
		t.Errorf("render = %v (defaulted=%v), want %v", r.Render, r.RenderDefaulted, geometry.DefaultResolution)
	}
}

func TestEvaluate_ApplyOverscan(t *testing.T) {
	settings := fakeSettings{res: geometry.Resolution{Width: 1920, Height: 1080}, set: true}
	plain, err := Evaluate(newCameras(), settings, "plate", Options{})
	if err != nil {
		t.Fatal(err)
	}
	padded, err := Evaluate(newCameras(), settings, "plate", Options{ApplyOverscan: true})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(padded.Frustum.Width()-1.2*plain.Frustum.Width()) > epsilon {
		t.Errorf("padded frustum width = %v, want %v", padded.Frustum.Width(), 1.2*plain.Frustum.Width())
	}
	if padded.Fov != plain.Fov {
		t.Errorf("overscan must not change the fov: %+v vs %+v", padded.Fov, plain.Fov)
	}
}

func TestEvaluate_Errors(t *testing.T) {
	settings := fakeSettings{res: geometry.Resolution{Width: 1920, Height: 1080}, set: true}

	_, err := Evaluate(newCameras(), settings, "missing", Options{})
	if !errors.Is(err, ErrUnknownCamera) {
		t.Errorf("missing camera: err = %v, want ErrUnknownCamera", err)
	}

	_, err = Evaluate(newCameras(), settings, "broken", Options{})
	if !errors.Is(err, geometry.ErrInvalidCameraConfiguration) {
		t.Errorf("broken camera: err = %v, want ErrInvalidCameraConfiguration", err)
	}
}

func TestOverrides(t *testing.T) {
	base := fakeSettings{res: geometry.Resolution{Width: 1920, Height: 1080}, set: true, ignore: false}
	on := true

	cases := []struct {
		name       string
		o          Overrides
		wantRes    geometry.Resolution
		wantSet    bool
		wantIgnore bool
	}{
		{"passthrough", Overrides{Base: base}, base.res, true, false},
		{"resolution", Overrides{Base: base, Resolution: &geometry.Resolution{Width: 640, Height: 480}}, geometry.Resolution{Width: 640, Height: 480}, true, false},
		{"zero_resolution_falls_through", Overrides{Base: base, Resolution: &geometry.Resolution{}}, base.res, true, false},
		{"ignore_gate", Overrides{Base: base, IgnoreFilmGate: &on}, base.res, true, true},
		{"nil_base", Overrides{}, geometry.Resolution{}, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, ok := tc.o.RenderResolution()
			if res != tc.wantRes || ok != tc.wantSet {
				t.Errorf("RenderResolution() = %v, %v; want %v, %v", res, ok, tc.wantRes, tc.wantSet)
			}
			if got := tc.o.IgnoreFilmGate(); got != tc.wantIgnore {
				t.Errorf("IgnoreFilmGate() = %v, want %v", got, tc.wantIgnore)
			}
		})
	}
}
