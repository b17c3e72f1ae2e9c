package geometry

import (
	"image"
	"math"
)

// IsClipped reports whether pixel (x, y) of the render resolution falls in
// the letterbox or pillarbox margin left by the camera resolution.
// Each axis is only checked when its dimensions differ.
func IsClipped(x, y float64, render, camera Resolution) bool {
	clipped := false

	if render.Height != camera.Height {
		marginY := float64(render.Height-camera.Height) / 2.0
		if y < marginY || y >= float64(render.Height)-marginY {
			clipped = true
		}
	}

	if render.Width != camera.Width {
		marginX := float64(render.Width-camera.Width) / 2.0
		if x < marginX || x >= float64(render.Width)-marginX {
			clipped = true
		}
	}

	return clipped
}

// VisibleRect returns the integer pixel rectangle of render that IsClipped
// leaves visible. It is clamped to the render bounds.
func VisibleRect(render, camera Resolution) image.Rectangle {
	x0, x1 := visibleSpan(render.Width, camera.Width)
	y0, y1 := visibleSpan(render.Height, camera.Height)
	return image.Rect(x0, y0, x1, y1)
}

func visibleSpan(renderSize, cameraSize int) (lo, hi int) {
	if renderSize == cameraSize {
		return 0, renderSize
	}
	margin := float64(renderSize-cameraSize) / 2.0
	lo = int(math.Ceil(margin))
	hi = int(math.Ceil(float64(renderSize) - margin))
	if lo < 0 {
		lo = 0
	}
	if hi > renderSize {
		hi = renderSize
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}
