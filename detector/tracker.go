package detector

import (
	"github.com/chewxy/math32"

	"github.com/face-lab/go-detect/images"
)

// Tracker tuning. A track survives maxTrackMisses consecutive frames
// without a match before its identity is retired.
const (
	trackIoUThreshold = 0.3
	maxTrackMisses    = 30
)

// track is one live identity carried across frames.
type track struct {
	id     int
	box    images.Rect
	misses int
}

// tracker assigns stable IDs to detections by greedy IoU matching against
// the previous frame's tracks, with a centroid-distance fallback for fast
// movers whose boxes no longer overlap. IDs are never reused within a
// detector's lifetime.
type tracker struct {
	tracks []track
	nextID int
}

func newTracker() *tracker {
	return &tracker{nextID: 1}
}

// assign writes TrackID in place for every detection, claiming tracks in
// the detections' existing (confidence-descending) order so stronger
// detections win contested identities. Unmatched detections open fresh
// tracks; unmatched tracks age and eventually expire.
func (t *tracker) assign(detections []Detection) {
	claimed := make([]bool, len(t.tracks))

	for i := range detections {
		best := -1
		bestIoU := float32(0)
		for ti := range t.tracks {
			if claimed[ti] {
				continue
			}
			iou := images.CalculateIoU(detections[i].Box, t.tracks[ti].box)
			if iou >= trackIoUThreshold && iou > bestIoU {
				best = ti
				bestIoU = iou
			}
		}

		if best < 0 {
			best = t.nearestByCentroid(detections[i].Box, claimed)
		}

		if best >= 0 {
			claimed[best] = true
			t.tracks[best].box = detections[i].Box
			t.tracks[best].misses = 0
			detections[i].TrackID = t.tracks[best].id
			continue
		}

		id := t.nextID
		t.nextID++
		t.tracks = append(t.tracks, track{id: id, box: detections[i].Box})
		claimed = append(claimed, true)
		detections[i].TrackID = id
	}

	t.age(claimed)
}

// nearestByCentroid finds an unclaimed track whose center is within the
// track's own size of the detection center. Catches displacement larger
// than the box but keeps far-apart objects from swapping identities.
func (t *tracker) nearestByCentroid(box images.Rect, claimed []bool) int {
	cx, cy := rectCenter(box)

	best := -1
	bestDist := math32.MaxFloat32
	for ti := range t.tracks {
		if claimed[ti] {
			continue
		}
		tx, ty := rectCenter(t.tracks[ti].box)
		dist := math32.Hypot(cx-tx, cy-ty)
		limit := math32.Sqrt(float32(t.tracks[ti].box.Width() * t.tracks[ti].box.Height()))
		if dist < limit && dist < bestDist {
			best = ti
			bestDist = dist
		}
	}
	return best
}

// age drops tracks that have exceeded the miss budget.
func (t *tracker) age(claimed []bool) {
	kept := t.tracks[:0]
	for ti := range t.tracks {
		if claimed[ti] {
			kept = append(kept, t.tracks[ti])
			continue
		}
		t.tracks[ti].misses++
		if t.tracks[ti].misses <= maxTrackMisses {
			kept = append(kept, t.tracks[ti])
		}
	}
	t.tracks = kept
}

func rectCenter(r images.Rect) (float32, float32) {
	return float32(r.X1+r.X2) / 2, float32(r.Y1+r.Y2) / 2
}
