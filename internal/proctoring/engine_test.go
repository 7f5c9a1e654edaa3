package proctoring

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

type engineFixture struct {
	engine      *Engine
	faces       *fakeFaces
	objects     *fakeObjects
	mesh        *fakeMesh
	screenshots *fakeScreenshots
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		faces:       &fakeFaces{},
		objects:     &fakeObjects{},
		mesh:        &fakeMesh{},
		screenshots: &fakeScreenshots{},
	}
	clock := newFakeClock(100 * time.Millisecond)
	f.engine = NewEngine(
		&Models{Faces: f.faces, Mesh: f.mesh, Objects: f.objects},
		DefaultConfig(),
		discardLogger(),
		WithClock(clock.Now),
		WithScreenshotStore(f.screenshots),
	)
	return f
}

func TestEngine_Lifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown session", func(t *testing.T) {
		e := newEngineFixture(t).engine

		_, err := e.AnalyzeFrame(ctx, 7, blackFrame(t))
		assert.ErrorIs(t, err, ErrSessionNotFound)
		_, err = e.Stop(7)
		assert.ErrorIs(t, err, ErrSessionNotFound)
		_, err = e.Status(7)
		assert.ErrorIs(t, err, ErrSessionNotFound)
		assert.ErrorIs(t, e.Remove(7), ErrSessionNotFound)
	})

	t.Run("frames are numbered and stop is terminal", func(t *testing.T) {
		fx := newEngineFixture(t)
		fx.faces.set(oneFace())
		e := fx.engine
		require.NoError(t, e.Start(1))

		for i := 1; i <= 3; i++ {
			res, err := e.AnalyzeFrame(ctx, 1, blackFrame(t))
			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.Equal(t, i, res.FrameNumber)
			assert.Empty(t, res.Detections)
		}

		report, err := e.Stop(1)
		require.NoError(t, err)
		assert.Equal(t, 3, report.TotalFramesAnalyzed)
		assert.Equal(t, models.RiskLow, report.RiskLevel)
		assert.Len(t, report.AlertLevelBreakdown, 4)
		for _, sev := range models.Severities {
			assert.Contains(t, report.AlertLevelBreakdown, sev)
		}

		_, err = e.Stop(1)
		assert.ErrorIs(t, err, ErrSessionInactive)
		_, err = e.AnalyzeFrame(ctx, 1, blackFrame(t))
		assert.ErrorIs(t, err, ErrSessionInactive)

		status, err := e.Status(1)
		require.NoError(t, err)
		assert.False(t, status.Active)
		assert.Equal(t, 3, status.FrameCount)

		require.NoError(t, e.Remove(1))
		_, err = e.Status(1)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("restart resets the session", func(t *testing.T) {
		fx := newEngineFixture(t)
		e := fx.engine
		require.NoError(t, e.Start(1))
		for i := 0; i < 5; i++ {
			_, err := e.AnalyzeFrame(ctx, 1, blackFrame(t))
			require.NoError(t, err)
		}

		require.NoError(t, e.Start(1))
		status, err := e.Status(1)
		require.NoError(t, err)
		assert.True(t, status.Active)
		assert.Zero(t, status.FrameCount)

		res, err := e.AnalyzeFrame(ctx, 1, blackFrame(t))
		require.NoError(t, err)
		assert.Equal(t, 1, res.FrameNumber)
	})

	t.Run("decode failure leaves state untouched", func(t *testing.T) {
		e := newEngineFixture(t).engine
		require.NoError(t, e.Start(1))

		_, err := e.AnalyzeFrame(ctx, 1, "###")
		assert.ErrorIs(t, err, ErrDecodeFailed)

		status, err := e.Status(1)
		require.NoError(t, err)
		assert.Zero(t, status.FrameCount)
		assert.True(t, status.Active)
	})

	t.Run("active sessions", func(t *testing.T) {
		e := newEngineFixture(t).engine
		require.NoError(t, e.Start(3))
		require.NoError(t, e.Start(1))
		require.NoError(t, e.Start(2))
		_, err := e.Stop(2)
		require.NoError(t, err)

		assert.Equal(t, []uint{1, 3}, e.ActiveSessions())
	})
}

func TestEngine_FaceAbsenceAfterThreshold(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)
	e := fx.engine
	require.NoError(t, e.Start(1))

	for i := 1; i <= 30; i++ {
		res, err := e.AnalyzeFrame(ctx, 1, blackFrame(t))
		require.NoError(t, err)
		assert.Empty(t, res.Detections, "frame %d", i)
	}

	res, err := e.AnalyzeFrame(ctx, 1, blackFrame(t))
	require.NoError(t, err)
	require.Len(t, res.Detections, 1)
	assert.Equal(t, "face_absence", res.Detections[0].Type())
	require.Len(t, res.Warnings, 1)
	require.NotNil(t, res.Detections[0].Screenshot)
	assert.Equal(t, "cv_screenshots/face_absence.jpg", *res.Detections[0].Screenshot)
	assert.Equal(t, 1, fx.screenshots.saved)

	// (7 * 1.0) / (1 * 15)
	assert.InDelta(t, 7.0/15, res.RiskScore, 1e-9)
	assert.Equal(t, models.RiskMedium, res.RiskLevel)
}

func TestEngine_MultipleFacesAfterThreshold(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)
	fx.faces.set(oneFace(), FaceBox{XMin: 0.1, YMin: 0.1, Width: 0.1, Height: 0.1})
	e := fx.engine
	require.NoError(t, e.Start(1))

	for i := 1; i <= 10; i++ {
		res, err := e.AnalyzeFrame(ctx, 1, blackFrame(t))
		require.NoError(t, err)
		assert.Empty(t, res.Detections)
	}
	res, err := e.AnalyzeFrame(ctx, 1, blackFrame(t))
	require.NoError(t, err)
	require.Len(t, res.Detections, 1)
	assert.Equal(t, models.KindMultipleFaces, res.Detections[0].Kind)
	assert.Equal(t, models.SeverityCritical, res.Detections[0].Severity)
}

func TestEngine_PhoneSeverity(t *testing.T) {
	ctx := context.Background()
	cases := map[float64]models.Severity{
		0.85: models.SeverityCritical,
		0.6:  models.SeverityHigh,
	}
	for conf, want := range cases {
		fx := newEngineFixture(t)
		fx.faces.set(oneFace())
		fx.objects.set(ObjectBox{Class: "cell phone", Confidence: conf, BBox: [4]float64{1, 2, 3, 4}})
		require.NoError(t, fx.engine.Start(1))

		res, err := fx.engine.AnalyzeFrame(ctx, 1, blackFrame(t))
		require.NoError(t, err)
		require.Len(t, res.Detections, 1)
		assert.Equal(t, "object_detection_cell_phone", res.Detections[0].Type())
		assert.Equal(t, want, res.Detections[0].Severity)
		assert.Len(t, res.Warnings, 1)
	}
}

func TestEngine_DetectorFailureIsContained(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)
	fx.mesh.panic = true
	fx.objects.err = errors.New("inference down")
	fx.objects.set(ObjectBox{Class: "cell phone", Confidence: 0.9})
	e := fx.engine
	require.NoError(t, e.Start(1))

	var res *models.FrameResult
	var err error
	for i := 0; i < 31; i++ {
		res, err = e.AnalyzeFrame(ctx, 1, blackFrame(t))
		require.NoError(t, err)
		assert.True(t, res.Degraded)
	}
	require.Len(t, res.Detections, 1)
	assert.Equal(t, models.KindFaceAbsence, res.Detections[0].Kind)

	report, err := e.Stop(1)
	require.NoError(t, err)
	assert.Equal(t, 31, report.DegradedFrames)
}

func TestEngine_ConcurrentFramesSameSession(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)
	fx.faces.set(oneFace())
	e := fx.engine
	require.NoError(t, e.Start(1))
	require.NoError(t, e.Start(2))

	frame := blackFrame(t)
	const n = 40

	var mu sync.Mutex
	numbers := make(map[uint][]int)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		for _, id := range []uint{1, 2} {
			wg.Add(1)
			go func(id uint) {
				defer wg.Done()
				res, err := e.AnalyzeFrame(ctx, id, frame)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				numbers[id] = append(numbers[id], res.FrameNumber)
				mu.Unlock()
			}(id)
		}
	}
	wg.Wait()

	for _, id := range []uint{1, 2} {
		got := numbers[id]
		sort.Ints(got)
		require.Len(t, got, n)
		for i, num := range got {
			assert.Equal(t, i+1, num)
		}
		status, err := e.Status(id)
		require.NoError(t, err)
		assert.Equal(t, n, status.FrameCount)
	}
}

func TestEngine_ReportCriticalEvents(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)
	fx.faces.set(oneFace())
	fx.objects.set(ObjectBox{Class: "cell phone", Confidence: 0.65})
	e := fx.engine
	require.NoError(t, e.Start(1))

	for i := 0; i < 25; i++ {
		_, err := e.AnalyzeFrame(ctx, 1, blackFrame(t))
		require.NoError(t, err)
	}

	report, err := e.Stop(1)
	require.NoError(t, err)
	assert.Equal(t, 25, report.TotalWarnings)
	assert.Len(t, report.Warnings, 20)
	// No critical detections, so the last ten high ones are used.
	assert.Len(t, report.CriticalEvents, 10)
	assert.Equal(t, 25, report.DetectionBreakdown["object_detection_cell_phone"])
	assert.Equal(t, 25, report.AlertLevelBreakdown[models.SeverityHigh])
	assert.Zero(t, report.AlertLevelBreakdown[models.SeverityCritical])
	assert.InDelta(t, 7*0.65/15, report.FinalRiskScore, 1e-9)
	assert.Greater(t, report.DurationSeconds, 0.0)
}

func TestEngine_Disabled(t *testing.T) {
	ctx := context.Background()
	cause := errors.New("model file missing")
	e := NewDisabledEngine(cause, discardLogger())

	assert.False(t, e.Enabled())
	assert.Equal(t, cause, e.Err())
	assert.ErrorIs(t, e.Start(1), ErrEngineUnavailable)
	_, err := e.AnalyzeFrame(ctx, 1, blackFrame(t))
	assert.ErrorIs(t, err, ErrEngineUnavailable)
	_, err = e.Stop(1)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
	_, err = e.Status(1)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
	assert.ErrorIs(t, e.Remove(1), ErrEngineUnavailable)
	assert.ErrorIs(t, e.SelfTest(ctx), ErrEngineUnavailable)
}

func TestEngine_SelfTest(t *testing.T) {
	fx := newEngineFixture(t)
	assert.NoError(t, fx.engine.SelfTest(context.Background()))

	status, err := fx.engine.Status(0)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Nil(t, status)
}

func TestEngine_StopDuringAnalysis(t *testing.T) {
	ctx := context.Background()
	fx := newEngineFixture(t)
	fx.faces.set(oneFace())
	e := fx.engine
	require.NoError(t, e.Start(7))

	frame := blackFrame(t)
	const n = 30

	var analyzed, rejected int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.AnalyzeFrame(ctx, 7, frame)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				analyzed++
			case errors.Is(err, ErrSessionInactive):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	report, err := e.Stop(7)
	require.NoError(t, err)
	wg.Wait()

	// Frames accepted before the stop are all in the report; later ones are rejected.
	assert.Equal(t, n, analyzed+rejected)
	assert.Equal(t, analyzed, report.TotalFramesAnalyzed)
}
