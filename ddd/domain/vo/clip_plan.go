package vo

// thumbnailSkew offsets each thumbnail capture past the clip start to avoid
// black or transition frames.
const thumbnailSkew = 0.5

// ClipWindow is one highlight to cut from the source media.
type ClipWindow struct {
	Start  float64
	Length float64
}

// ThumbnailOffset is the capture position for this window's thumbnail.
func (w ClipWindow) ThumbnailOffset() float64 {
	return w.Start + thumbnailSkew
}

// ClipPlan is the full set of highlight windows for one job.
type ClipPlan struct {
	Duration float64
	Windows  []ClipWindow
}

// PlanClips computes highlight windows for a media file of the given duration.
//
// Clip length is duration/3 clamped into [5s, 30s]. Short media (duration at
// most 1.5x the clip length) yields a single clip spanning the whole file;
// otherwise an opening, middle and closing clip are cut, with start offsets
// clamped to stay inside the file.
func PlanClips(duration float64) ClipPlan {
	length := clamp(duration/3, 5, 30)

	if duration <= length*1.5 {
		whole := duration
		if whole < 1 {
			whole = 1
		}
		return ClipPlan{
			Duration: duration,
			Windows:  []ClipWindow{{Start: 0, Length: whole}},
		}
	}

	starts := []float64{
		0,
		duration/2 - length/2,
		duration - length,
	}
	windows := make([]ClipWindow, 0, len(starts))
	for _, start := range starts {
		if start < 0 {
			start = 0
		}
		windows = append(windows, ClipWindow{Start: start, Length: length})
	}

	return ClipPlan{Duration: duration, Windows: windows}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
