package config

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/FilmGate/internal/logic/geometry"
	"github.com/cjeanneret/FilmGate/internal/logic/scene"
	"github.com/cjeanneret/FilmGate/internal/mask"
)

// Defaults applied to zero-valued camera attributes.
const (
	DefaultNearClip    = 0.1
	DefaultCameraScale = 1.0
	DefaultOverscan    = 1.0
	DefaultFilmFit     = "fill"
	DefaultMaskFormat  = "png"
)

// MaxConfigFileBytes bounds the size of a config or scene file.
const MaxConfigFileBytes = 1 << 20

// CameraConfig describes one camera's film back and lens.
// Apertures and offsets are in inches, as the film back is usually specified.
type CameraConfig struct {
	ApertureXIn      float64 `yaml:"aperture_x_in"`      // e.g., 1.417 for 35mm Academy
	ApertureYIn      float64 `yaml:"aperture_y_in"`      // e.g., 0.945
	AspectRatio      float64 `yaml:"aspect_ratio"`       // 0 = aperture_x_in / aperture_y_in
	OffsetXIn        float64 `yaml:"offset_x_in"`        // horizontal film offset
	OffsetYIn        float64 `yaml:"offset_y_in"`        // vertical film offset
	FilmFitOffset    float64 `yaml:"film_fit_offset"`    // 0 disables the fit translation
	FocalLengthMm    float64 `yaml:"focal_length_mm"`    // required
	NearClip         float64 `yaml:"near_clip"`          // default 0.1
	CameraScale      float64 `yaml:"camera_scale"`       // default 1
	Overscan         float64 `yaml:"overscan"`           // default 1
	FilmFit          string  `yaml:"film_fit"`           // fill|horizontal|vertical|overscan, default fill
	HorizontalFovDeg float64 `yaml:"horizontal_fov_deg"` // 0 = derived from aperture and focal length
}

// ResolutionConfig is the render image resolution in pixels.
type ResolutionConfig struct {
	WidthPx  int `yaml:"width_px"`  // e.g., 1920
	HeightPx int `yaml:"height_px"` // e.g., 1080
}

// RenderConfig holds the render globals the solver depends on.
type RenderConfig struct {
	Resolution     *ResolutionConfig `yaml:"resolution,omitempty"` // optional, 320x240 when absent
	IgnoreFilmGate bool              `yaml:"ignore_film_gate"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	Camera     string `yaml:"camera"`      // camera used when none is requested
	DebugLevel int    `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=solve, 3=verbose, 4=trace)
	MaskFormat string `yaml:"mask_format"` // png|bmp|tiff|tga|webp
}

// Config aggregates all application configuration.
type Config struct {
	Cameras  map[string]CameraConfig `yaml:"cameras"`
	Render   RenderConfig            `yaml:"render"`
	Defaults DefaultsConfig          `yaml:"defaults"`
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, MaxConfigFileBytes)
	}
	return data, nil
}

// LoadAny loads a YAML config or a Starlark scene depending on the extension.
func LoadAny(path string) (*Config, error) {
	if strings.EqualFold(filepath.Ext(path), ".star") {
		return LoadStarlark(path)
	}
	return Load(path)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if len(cfg.Cameras) == 0 {
		return nil, fmt.Errorf("at least one camera is required")
	}
	for _, name := range cfg.CameraNames() {
		cam := cfg.Cameras[name].withDefaults()
		if err := cam.validate(); err != nil {
			return nil, fmt.Errorf("cameras.%s.%w", name, err)
		}
		cfg.Cameras[name] = cam
	}

	if r := cfg.Render.Resolution; r != nil {
		if r.WidthPx < 0 {
			return nil, fmt.Errorf("render.resolution.width_px must be >= 0, got %d", r.WidthPx)
		}
		if r.HeightPx < 0 {
			return nil, fmt.Errorf("render.resolution.height_px must be >= 0, got %d", r.HeightPx)
		}
	}

	if cfg.Defaults.Camera == "" {
		if len(cfg.Cameras) > 1 {
			return nil, fmt.Errorf("defaults.camera is required when several cameras are defined")
		}
		cfg.Defaults.Camera = cfg.CameraNames()[0]
	}
	if _, ok := cfg.Cameras[cfg.Defaults.Camera]; !ok {
		return nil, fmt.Errorf("defaults.camera %q is not defined in cameras", cfg.Defaults.Camera)
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}
	if cfg.Defaults.MaskFormat == "" {
		cfg.Defaults.MaskFormat = DefaultMaskFormat
	}
	if _, err := mask.ParseFormat(cfg.Defaults.MaskFormat); err != nil {
		return nil, fmt.Errorf("defaults.mask_format: %w", err)
	}

	return &cfg, nil
}

// withDefaults fills zero-valued optional attributes.
func (c CameraConfig) withDefaults() CameraConfig {
	if c.NearClip == 0 {
		c.NearClip = DefaultNearClip
	}
	if c.CameraScale == 0 {
		c.CameraScale = DefaultCameraScale
	}
	if c.Overscan == 0 {
		c.Overscan = DefaultOverscan
	}
	if c.FilmFit == "" {
		c.FilmFit = DefaultFilmFit
	}
	if c.AspectRatio == 0 && c.ApertureYIn > 0 {
		c.AspectRatio = c.ApertureXIn / c.ApertureYIn
	}
	if c.HorizontalFovDeg == 0 && c.FocalLengthMm > 0 {
		// same definition as the frustum: film half-width over focal length, both in inches
		c.HorizontalFovDeg = 2.0 * math.Atan((0.5*c.ApertureXIn)/(c.FocalLengthMm*geometry.MmToInch)) * 180.0 / math.Pi
	}
	return c
}

// validate returns errors prefixed with the offending key only, so the
// caller can prepend the camera path.
func (c CameraConfig) validate() error {
	positive := []struct {
		key   string
		value float64
	}{
		{"aperture_x_in", c.ApertureXIn},
		{"aperture_y_in", c.ApertureYIn},
		{"focal_length_mm", c.FocalLengthMm},
		{"near_clip", c.NearClip},
		{"camera_scale", c.CameraScale},
		{"aspect_ratio", c.AspectRatio},
	}
	for _, p := range positive {
		if !(p.value > 0) {
			return fmt.Errorf("%s must be > 0, got %g", p.key, p.value)
		}
	}
	if c.Overscan < 0 {
		return fmt.Errorf("overscan must be >= 0, got %g", c.Overscan)
	}
	if _, err := geometry.ParseFitMode(c.FilmFit); err != nil {
		return fmt.Errorf("film_fit: %w", err)
	}
	return nil
}

// Intrinsics converts the camera entry into a solver snapshot.
func (c CameraConfig) Intrinsics() (geometry.CameraIntrinsics, error) {
	c = c.withDefaults()
	mode, err := geometry.ParseFitMode(c.FilmFit)
	if err != nil {
		return geometry.CameraIntrinsics{}, err
	}
	return geometry.CameraIntrinsics{
		AspectRatio:          c.AspectRatio,
		ApertureX:            c.ApertureXIn,
		ApertureY:            c.ApertureYIn,
		OffsetX:              c.OffsetXIn,
		OffsetY:              c.OffsetYIn,
		FilmFitOffset:        c.FilmFitOffset,
		FocalLengthMm:        c.FocalLengthMm,
		NearClip:             c.NearClip,
		CameraScale:          c.CameraScale,
		Overscan:             c.Overscan,
		FitMode:              mode,
		NominalHorizontalFov: c.HorizontalFovDeg,
	}, nil
}

// CameraNames returns the configured camera names, sorted.
func (c *Config) CameraNames() []string {
	names := make([]string, 0, len(c.Cameras))
	for name := range c.Cameras {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Camera implements scene.CameraProvider.
func (c *Config) Camera(id string) (geometry.CameraIntrinsics, error) {
	cam, ok := c.Cameras[id]
	if !ok {
		return geometry.CameraIntrinsics{}, fmt.Errorf("%w: %q", scene.ErrUnknownCamera, id)
	}
	return cam.Intrinsics()
}

// RenderResolution implements scene.RenderSettingsProvider.
// A missing section, or one with a zero dimension, counts as absent.
func (c *Config) RenderResolution() (geometry.Resolution, bool) {
	r := c.Render.Resolution
	if r == nil {
		return geometry.Resolution{}, false
	}
	res := geometry.Resolution{Width: r.WidthPx, Height: r.HeightPx}
	if res.IsZero() {
		return geometry.Resolution{}, false
	}
	return res, true
}

// IgnoreFilmGate implements scene.RenderSettingsProvider.
func (c *Config) IgnoreFilmGate() bool {
	return c.Render.IgnoreFilmGate
}

// MaskFormat returns the default mask format.
func (c *Config) MaskFormat() mask.Format {
	f, err := mask.ParseFormat(c.Defaults.MaskFormat)
	if err != nil {
		return mask.FormatPNG
	}
	return f
}

// ValidateConfigPath checks that path points to a .yaml or .star file
// inside a configs/ directory and contains no ".." component.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain '..'", path)
		}
	}
	switch filepath.Ext(path) {
	case ".yaml", ".star":
	default:
		return fmt.Errorf("config path %q must end in .yaml or .star", path)
	}
	if filepath.Base(filepath.Dir(filepath.Clean(path))) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}
