package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/face-lab/go-detect/images"
)

func det(x1, y1, x2, y2 int, conf float32) Detection {
	return Detection{
		Box:        images.Rect{X1: x1, Y1: y1, X2: x2, Y2: y2},
		Confidence: conf,
		TrackID:    -1,
	}
}

func TestTrackerKeepsIdentityAcrossFrames(t *testing.T) {
	tr := newTracker()

	frame1 := []Detection{det(10, 10, 50, 50, 0.9)}
	tr.assign(frame1)
	require.Equal(t, 1, frame1[0].TrackID)

	// Same object, shifted a little: heavy IoU overlap.
	frame2 := []Detection{det(14, 12, 54, 52, 0.88)}
	tr.assign(frame2)
	assert.Equal(t, 1, frame2[0].TrackID)
}

func TestTrackerDistinguishesObjects(t *testing.T) {
	tr := newTracker()

	frame1 := []Detection{
		det(0, 0, 40, 40, 0.9),
		det(100, 100, 140, 140, 0.8),
	}
	tr.assign(frame1)
	require.Equal(t, 1, frame1[0].TrackID)
	require.Equal(t, 2, frame1[1].TrackID)

	// Next frame reports them in the opposite order; identities follow
	// the boxes, not the slice positions.
	frame2 := []Detection{
		det(102, 102, 142, 142, 0.85),
		det(2, 2, 42, 42, 0.82),
	}
	tr.assign(frame2)
	assert.Equal(t, 2, frame2[0].TrackID)
	assert.Equal(t, 1, frame2[1].TrackID)
}

func TestTrackerCentroidFallbackCatchesFastMovers(t *testing.T) {
	tr := newTracker()

	frame1 := []Detection{det(0, 0, 20, 20, 0.9)}
	tr.assign(frame1)
	require.Equal(t, 1, frame1[0].TrackID)

	// Displaced beyond any IoU overlap but within one box-size of the
	// old center: (10,10) -> (28,10), distance 18 < sqrt(400) = 20.
	frame2 := []Detection{det(18, 0, 38, 20, 0.9)}
	tr.assign(frame2)
	assert.Equal(t, 1, frame2[0].TrackID)
}

func TestTrackerExpiresAfterMissBudget(t *testing.T) {
	tr := newTracker()

	frame := []Detection{det(10, 10, 50, 50, 0.9)}
	tr.assign(frame)
	require.Equal(t, 1, frame[0].TrackID)

	// The object disappears past its miss budget.
	for i := 0; i <= maxTrackMisses; i++ {
		tr.assign(nil)
	}

	// A detection at the same spot is a new identity, never a reuse.
	reappeared := []Detection{det(10, 10, 50, 50, 0.9)}
	tr.assign(reappeared)
	assert.Equal(t, 2, reappeared[0].TrackID)
}

func TestTrackerSurvivesShortOcclusion(t *testing.T) {
	tr := newTracker()

	frame := []Detection{det(10, 10, 50, 50, 0.9)}
	tr.assign(frame)
	require.Equal(t, 1, frame[0].TrackID)

	// Gone for a few frames, but within the miss budget.
	for i := 0; i < 5; i++ {
		tr.assign(nil)
	}

	back := []Detection{det(12, 12, 52, 52, 0.9)}
	tr.assign(back)
	assert.Equal(t, 1, back[0].TrackID)
}

func TestTrackerNeverReusesIDs(t *testing.T) {
	tr := newTracker()

	a := []Detection{det(0, 0, 30, 30, 0.9)}
	tr.assign(a)

	b := []Detection{
		det(2, 2, 32, 32, 0.9),
		det(200, 200, 240, 240, 0.8),
	}
	tr.assign(b)
	assert.Equal(t, 1, b[0].TrackID)
	assert.Equal(t, 2, b[1].TrackID)

	// Both vanish; two new far-apart objects appear.
	for i := 0; i <= maxTrackMisses; i++ {
		tr.assign(nil)
	}
	c := []Detection{
		det(400, 400, 440, 440, 0.9),
		det(600, 600, 640, 640, 0.8),
	}
	tr.assign(c)
	assert.Equal(t, 3, c[0].TrackID)
	assert.Equal(t, 4, c[1].TrackID)
}
