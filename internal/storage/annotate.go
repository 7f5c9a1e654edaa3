package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/proctoring"
)

// ScreenshotDir is the directory, and reference prefix, for stored screenshots.
const ScreenshotDir = "cv_screenshots"

const jpegQuality = 90

var labelColor = color.RGBA{R: 255, A: 255}

// Label is the overlay text drawn on a screenshot, e.g. "FACE_ABSENCE: high".
func Label(d models.Detection) string {
	return fmt.Sprintf("%s: %s", strings.ToUpper(d.Type()), d.Severity)
}

// FileName builds a unique screenshot file name for a detection.
func FileName(interviewID uint, d models.Detection) string {
	ts := d.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return fmt.Sprintf("interview_%d_%s_%s_%s.jpg",
		interviewID,
		d.Type(),
		ts.UTC().Format("20060102_150405.000000"),
		uuid.NewString()[:8])
}

// Annotate draws the detection label in the top-left corner of a copy of frame.
func Annotate(frame *proctoring.Frame, label string) *image.RGBA {
	img := frame.Image()
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 30),
	}
	drawer.DrawString(label)
	return img
}

// EncodeScreenshot annotates and JPEG-encodes a frame.
func EncodeScreenshot(frame *proctoring.Frame, d models.Detection) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Annotate(frame, Label(d)), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}
