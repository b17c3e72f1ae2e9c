package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/cjeanneret/FilmGate/internal/config"
	"github.com/cjeanneret/FilmGate/internal/debug"
	"github.com/cjeanneret/FilmGate/internal/logic/geometry"
	"github.com/cjeanneret/FilmGate/internal/logic/scene"
	"github.com/cjeanneret/FilmGate/internal/mask"
	"github.com/cjeanneret/FilmGate/internal/web"
)

// maxCLIDimension bounds -width_px and -height_px.
const maxCLIDimension = 65535

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file (.yaml, or .star scene script)")
	cameraName := flag.String("camera", "", "camera to evaluate (default: defaults.camera)")
	widthPx := flag.Int("width_px", 0, "override render width in pixels")
	heightPx := flag.Int("height_px", 0, "override render height in pixels")
	ignoreGate := &optionalBool{}
	flag.Var(ignoreGate, "ignore_film_gate", "override render ignore_film_gate (true/false)")
	applyOverscan := flag.Bool("overscan", false, "apply the camera overscan to the reported frustum")
	maskPath := flag.String("mask", "", "write the gate mask to this file (.png, .bmp, .tif, .tga, .webp)")
	clip := &pointFlag{}
	flag.Var(clip, "clip", "report whether render pixel x,y is clipped by the film gate")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.LoadAny(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Validate CLI overrides (zero means "use config")
	if err := validateCLIOverrides(*widthPx, *heightPx); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}
	settings := applyOverrides(cfg, *widthPx, *heightPx, ignoreGate)

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Cameras", strings.Join(cfg.CameraNames(), ", "))

	camera := *cameraName
	if camera == "" {
		camera = cfg.Defaults.Camera
	}

	if port := webPort.port(); port > 0 {
		broadcaster := web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

		res, _ := settings.RenderResolution()
		formDefaults := web.FormConfig{
			Cameras:        cfg.CameraNames(),
			DefaultCamera:  camera,
			WidthPx:        res.Width,
			HeightPx:       res.Height,
			IgnoreFilmGate: settings.IgnoreFilmGate(),
			MaskFormat:     cfg.MaskFormat().String(),
		}
		handlers := web.NewHandlers(broadcaster, cfg, settings, formDefaults)
		srv := web.NewServer(fmt.Sprintf(":%d", port), handlers)
		if err := srv.Run(ctx); err != nil {
			log.Fatalf("web server: %v", err)
		}
		return
	}

	if err := run(os.Stdout, cfg, settings, camera, runOptions{
		applyOverscan: *applyOverscan,
		maskPath:      *maskPath,
		clip:          clip,
	}); err != nil {
		log.Fatalf("%v", err)
	}
}

type runOptions struct {
	applyOverscan bool
	maskPath      string
	clip          *pointFlag
}

// run evaluates one camera, prints the report and performs the optional
// clip query and mask export.
func run(w io.Writer, cams scene.CameraProvider, settings scene.RenderSettingsProvider, camera string, opts runOptions) error {
	debug.Step(1, "Evaluating camera "+camera)
	report, err := scene.Evaluate(cams, settings, camera, scene.Options{ApplyOverscan: opts.applyOverscan})
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	debug.Summary("Camera " + camera)
	debug.PrintStruct("Report", *report)

	if err := printReport(w, report); err != nil {
		return err
	}

	if opts.clip != nil && opts.clip.set {
		clipped := geometry.IsClipped(opts.clip.x, opts.clip.y, report.Render, report.Reconciled.CameraResolution())
		fmt.Fprintf(w, "clip %g,%g\t%t\n", opts.clip.x, opts.clip.y, clipped)
	}

	if opts.maskPath != "" {
		debug.Step(2, "Writing gate mask")
		format, err := mask.FormatFromPath(opts.maskPath)
		if err != nil {
			return err
		}
		img := mask.Build(report.Render, report.Reconciled.CameraResolution())
		if err := mask.WriteFile(opts.maskPath, img, format); err != nil {
			return err
		}
		debug.Info("Mask written to %s (%s)", opts.maskPath, format)
		fmt.Fprintf(w, "mask\t%s\n", opts.maskPath)
	}
	return nil
}

// printReport writes a human-readable report.
func printReport(w io.Writer, r *scene.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	hDeg, vDeg := r.Fov.Degrees()
	render := r.Render.String()
	if r.RenderDefaulted {
		render += " (default)"
	}

	fmt.Fprintf(tw, "camera\t%s\n", r.Camera)
	fmt.Fprintf(tw, "film fit\t%s\n", r.FitMode)
	fmt.Fprintf(tw, "render\t%s\n", render)
	fmt.Fprintf(tw, "ignore film gate\t%t\n", r.IgnoreFilmGate)
	fmt.Fprintf(tw, "frustum\tleft=%.6f right=%.6f bottom=%.6f top=%.6f\n",
		r.Frustum.Left, r.Frustum.Right, r.Frustum.Bottom, r.Frustum.Top)
	fmt.Fprintf(tw, "port fov\th=%.4f° v=%.4f°\n", hDeg, vDeg)
	fmt.Fprintf(tw, "camera resolution\t%s\n", r.Reconciled.CameraResolution())
	fmt.Fprintf(tw, "visible rect\t%v\n", r.Visible)
	fmt.Fprintf(tw, "fov ratio\t%.6f\n", r.Reconciled.FovRatio)
	fmt.Fprintf(tw, "nominal horizontal fov\t%.4f°\n", r.NominalHorizontalFovDeg)
	fmt.Fprintf(tw, "effective horizontal fov\t%.4f°\n", r.EffectiveHorizontalFovDeg)
	return tw.Flush()
}

// validateCLIOverrides checks that non-zero resolution overrides are within range.
// Zero values are ignored (they mean "use config").
func validateCLIOverrides(width, height int) error {
	if (width == 0) != (height == 0) {
		return fmt.Errorf("width_px and height_px must be given together")
	}
	if width < 0 || width > maxCLIDimension {
		return fmt.Errorf("width_px must be between 1 and %d, got %d", maxCLIDimension, width)
	}
	if height < 0 || height > maxCLIDimension {
		return fmt.Errorf("height_px must be between 1 and %d, got %d", maxCLIDimension, height)
	}
	return nil
}

// applyOverrides layers CLI overrides over the config render settings.
// Only non-zero dimensions and an explicitly set flag are applied.
func applyOverrides(base scene.RenderSettingsProvider, width, height int, ignoreGate *optionalBool) scene.Overrides {
	o := scene.Overrides{Base: base}
	if width > 0 && height > 0 {
		o.Resolution = &geometry.Resolution{Width: width, Height: height}
	}
	if ignoreGate != nil && ignoreGate.set {
		v := ignoreGate.val
		o.IgnoreFilmGate = &v
	}
	return o
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }

// optionalBool is a boolean flag that remembers whether it was given.
type optionalBool struct {
	val bool
	set bool
}

func (b *optionalBool) String() string {
	if b == nil || !b.set {
		return ""
	}
	return strconv.FormatBool(b.val)
}

func (b *optionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	b.val, b.set = v, true
	return nil
}

// IsBoolFlag lets -ignore_film_gate be given without a value.
func (b *optionalBool) IsBoolFlag() bool { return true }

// pointFlag parses "x,y" pixel coordinates.
type pointFlag struct {
	x, y float64
	set  bool
}

func (p *pointFlag) String() string {
	if p == nil || !p.set {
		return ""
	}
	return fmt.Sprintf("%g,%g", p.x, p.y)
}

func (p *pointFlag) Set(s string) error {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return fmt.Errorf("expected x,y, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return fmt.Errorf("x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return fmt.Errorf("y: %w", err)
	}
	p.x, p.y, p.set = x, y, true
	return nil
}
