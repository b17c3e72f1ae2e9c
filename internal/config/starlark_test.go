package config

import (
	"math"
	"path/filepath"
	"strings"
	"testing"
)

const sceneStar = `
def cam(w_mm, h_mm, focal, fit = "fill", **extra):
    c = {
        "aperture_x_in": w_mm / MM_PER_INCH,
        "aperture_y_in": h_mm / MM_PER_INCH,
        "focal_length_mm": focal,
        "film_fit": fit,
    }
    c.update(extra)
    return c

cameras = {name: cam(36.0, 24.0, focal) for name, focal in [("wide", 24.0), ("tele", 85.0)]}
cameras["plate"] = cam(25.4 * 1.5, 25.4, 50.0, "overscan", overscan = 1.25)

render = {"resolution": {"width_px": 2048, "height_px": 858}, "ignore_film_gate": True}
defaults = {"camera": "plate", "debug_level": 1, "mask_format": "tiff"}
`

func TestParseStarlark(t *testing.T) {
	cfg, err := ParseStarlark("scene.star", []byte(sceneStar))
	if err != nil {
		t.Fatalf("ParseStarlark: %v", err)
	}
	if got := strings.Join(cfg.CameraNames(), ","); got != "plate,tele,wide" {
		t.Errorf("cameras = %s", got)
	}
	if cfg.Defaults.Camera != "plate" || cfg.Defaults.DebugLevel != 1 || cfg.Defaults.MaskFormat != "tiff" {
		t.Errorf("defaults = %+v", cfg.Defaults)
	}
	if !cfg.IgnoreFilmGate() {
		t.Error("ignore_film_gate should be true")
	}
	if res, ok := cfg.RenderResolution(); !ok || res.Width != 2048 || res.Height != 858 {
		t.Errorf("resolution = %v, %v", res, ok)
	}

	plate, err := cfg.Camera("plate")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(plate.ApertureX-1.5) > 1e-12 || math.Abs(plate.ApertureY-1.0) > 1e-12 {
		t.Errorf("plate apertures = %v x %v", plate.ApertureX, plate.ApertureY)
	}
	if plate.Overscan != 1.25 || plate.FitMode.String() != "overscan" {
		t.Errorf("plate = %+v", plate)
	}
	wide, err := cfg.Camera("wide")
	if err != nil {
		t.Fatal(err)
	}
	if wide.FocalLengthMm != 24 || wide.NearClip != DefaultNearClip {
		t.Errorf("wide = %+v", wide)
	}
}

func TestParseStarlark_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"syntax", "cameras = {"},
		{"runtime", "cameras = 1 / 0"},
		{"non_string_key", "cameras = {1: {}}"},
		{"function_value", "cameras = {\"a\": lambda x: x}"},
		{"no_cameras", "render = {}"},
		{"invalid_camera", "cameras = {\"a\": {\"aperture_x_in\": 1.0, \"aperture_y_in\": 1.0}}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseStarlark("bad.star", []byte(tc.src)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadAny_Dispatch(t *testing.T) {
	star := writeConfig(t, "scene.star", sceneStar)
	cfg, err := LoadAny(star)
	if err != nil {
		t.Fatalf("LoadAny(.star): %v", err)
	}
	if len(cfg.Cameras) != 3 {
		t.Errorf("cameras = %d, want 3", len(cfg.Cameras))
	}

	yaml := writeConfig(t, "test.yaml", validYAML)
	if _, err := LoadAny(yaml); err != nil {
		t.Errorf("LoadAny(.yaml): %v", err)
	}

	// a Starlark file is not valid YAML
	if _, err := Load(star); err == nil {
		t.Error("Load should not accept a Starlark scene")
	}
}

// The shipped Starlark scene describes the same cameras as default.yaml.
func TestRepositoryScenesAgree(t *testing.T) {
	dir := filepath.Join("..", "..", "configs")
	fromYAML, err := LoadAny(filepath.Join(dir, "default.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	fromStar, err := LoadAny(filepath.Join(dir, "scene.star"))
	if err != nil {
		t.Fatal(err)
	}

	if strings.Join(fromYAML.CameraNames(), ",") != strings.Join(fromStar.CameraNames(), ",") {
		t.Fatalf("cameras differ: %v vs %v", fromYAML.CameraNames(), fromStar.CameraNames())
	}
	if fromYAML.Defaults != fromStar.Defaults {
		t.Errorf("defaults differ: %+v vs %+v", fromYAML.Defaults, fromStar.Defaults)
	}
	for _, name := range fromYAML.CameraNames() {
		a, _ := fromYAML.Camera(name)
		b, _ := fromStar.Camera(name)
		if a.FitMode != b.FitMode || a.FocalLengthMm != b.FocalLengthMm || a.Overscan != b.Overscan {
			t.Errorf("%s: %+v vs %+v", name, a, b)
		}
		if math.Abs(a.ApertureX-b.ApertureX) > 1e-3 || math.Abs(a.ApertureY-b.ApertureY) > 1e-3 {
			t.Errorf("%s apertures: %vx%v vs %vx%v", name, a.ApertureX, a.ApertureY, b.ApertureX, b.ApertureY)
		}
	}
}
