package vo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanClipsLongMedia(t *testing.T) {
	// 90s media: clip length clamps to 30, three highlights.
	plan := PlanClips(90)

	require.Len(t, plan.Windows, 3)
	assert.InDelta(t, 0, plan.Windows[0].Start, 1e-9)
	assert.InDelta(t, 30, plan.Windows[1].Start, 1e-9)
	assert.InDelta(t, 60, plan.Windows[2].Start, 1e-9)
	for _, w := range plan.Windows {
		assert.InDelta(t, 30, w.Length, 1e-9)
	}
}

func TestPlanClipsMidLengthMedia(t *testing.T) {
	// 40s media: length = 40/3 ≈ 13.33, and 40 > 1.5*13.33 so the three-clip
	// branch applies.
	plan := PlanClips(40)

	require.Len(t, plan.Windows, 3)
	length := plan.Windows[0].Length
	assert.InDelta(t, 40.0/3.0, length, 1e-9)
	for _, w := range plan.Windows {
		assert.GreaterOrEqual(t, w.Start, 0.0)
		assert.LessOrEqual(t, w.Start, plan.Duration-w.Length+1e-9)
	}
}

func TestPlanClipsShortMediaThreeClipBranch(t *testing.T) {
	// 10s media: length clamps up to 5 and 10 > 7.5, so three overlapping
	// clips are produced. Offsets must never exceed duration - length.
	plan := PlanClips(10)

	require.Len(t, plan.Windows, 3)
	for _, w := range plan.Windows {
		assert.GreaterOrEqual(t, w.Start, 0.0)
		assert.LessOrEqual(t, w.Start, plan.Duration-w.Length+1e-9)
	}
	assert.InDelta(t, 5, plan.Windows[2].Start, 1e-9)
}

func TestPlanClipsVeryShortMediaSingleClip(t *testing.T) {
	// 6s media: length clamps to 5 and 6 <= 7.5, one whole-file clip.
	plan := PlanClips(6)

	require.Len(t, plan.Windows, 1)
	assert.InDelta(t, 0, plan.Windows[0].Start, 1e-9)
	assert.InDelta(t, 6, plan.Windows[0].Length, 1e-9)
}

func TestPlanClipsSubSecondMediaClampsToOneSecond(t *testing.T) {
	plan := PlanClips(0.3)

	require.Len(t, plan.Windows, 1)
	assert.InDelta(t, 1, plan.Windows[0].Length, 1e-9)
}

func TestThumbnailOffsetAppliesSkew(t *testing.T) {
	w := ClipWindow{Start: 30, Length: 30}
	assert.InDelta(t, 30.5, w.ThumbnailOffset(), 1e-9)
}
