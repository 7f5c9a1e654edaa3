package proctoring

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

type fakeFaces struct {
	mu    sync.Mutex
	faces []FaceBox
	err   error
	calls int
}

func (f *fakeFaces) set(faces ...FaceBox) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faces = faces
}

func (f *fakeFaces) DetectFaces(_ context.Context, _ *Frame) ([]FaceBox, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.faces, f.err
}

type fakeMesh struct {
	faces [][]Landmark
	err   error
	panic bool
}

func (f *fakeMesh) Landmarks(_ context.Context, _ *Frame) ([][]Landmark, error) {
	if f.panic {
		panic("mesh exploded")
	}
	return f.faces, f.err
}

type fakeObjects struct {
	mu    sync.Mutex
	boxes []ObjectBox
	err   error
}

func (f *fakeObjects) set(boxes ...ObjectBox) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boxes = boxes
}

func (f *fakeObjects) DetectObjects(_ context.Context, _ *Frame) ([]ObjectBox, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.boxes, f.err
}

// fakeClock advances by step on every call.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{now: time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC), step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

type fakeScreenshots struct {
	mu    sync.Mutex
	saved int
}

func (f *fakeScreenshots) Save(_ context.Context, _ uint, d models.Detection, _ *Frame) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved++
	return "cv_screenshots/" + d.Type() + ".jpg", nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func oneFace() FaceBox {
	return FaceBox{XMin: 0.4, YMin: 0.4, Width: 0.2, Height: 0.2, Score: 0.95}
}

// encodeFrame returns a base64 PNG filled with c.
func encodeFrame(t *testing.T, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func blackFrame(t *testing.T) string {
	t.Helper()
	return encodeFrame(t, 8, 8, color.Black)
}
