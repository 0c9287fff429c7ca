package model

import "math"

// Mastery maps node ids to a learner's proficiency in [0, 1]. A missing entry
// means the status is unknown.
type Mastery map[string]float64

// MasteryStatus buckets a mastery score.
type MasteryStatus string

const (
	MasteryMastered   MasteryStatus = "mastered"
	MasteryLearning   MasteryStatus = "learning"
	MasteryStruggling MasteryStatus = "struggling"
	MasteryUnknown    MasteryStatus = "unknown"
)

// Thresholds for the mastery buckets.
const (
	MasteredThreshold = 0.8
	LearningThreshold = 0.4
)

// Score returns the clamped score for id.
func (m Mastery) Score(id string) (float64, bool) {
	v, ok := m[id]
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return math.Max(0, math.Min(1, v)), true
}

// Status returns the bucket for id.
func (m Mastery) Status(id string) MasteryStatus {
	v, ok := m.Score(id)
	return StatusFor(v, ok)
}

// StatusFor buckets a score; ok=false yields MasteryUnknown.
func StatusFor(score float64, ok bool) MasteryStatus {
	switch {
	case !ok:
		return MasteryUnknown
	case score >= MasteredThreshold:
		return MasteryMastered
	case score >= LearningThreshold:
		return MasteryLearning
	default:
		return MasteryStruggling
	}
}

// Merge overlays partial onto m and returns m. A nil m is allocated.
func (m Mastery) Merge(partial Mastery) Mastery {
	if m == nil {
		m = make(Mastery, len(partial))
	}
	for id, v := range partial {
		m[id] = v
	}
	return m
}
