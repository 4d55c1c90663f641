// Package videointerp expands the sparse keyframes of video tracking regions
// into one entry per frame.
package videointerp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cyclopcam/labelconv/pkg/task"
)

// TrackingResultType is the result type of a tracked video box
const TrackingResultType = "videorectangle"

// IsTracking returns true if the result holds a keyframe sequence that we can expand
func IsTracking(r *task.ResultItem) bool {
	return strings.EqualFold(r.Type, TrackingResultType) && r.Value.Has("sequence")
}

// InterpolateResults returns a copy of results where every tracking region has
// had its sequence expanded. Other results are returned untouched.
func InterpolateResults(results []task.ResultItem) ([]task.ResultItem, error) {
	out := make([]task.ResultItem, len(results))
	for i, r := range results {
		out[i] = r
		if !IsTracking(&r) {
			continue
		}
		seq, ok := r.Value.Sequence()
		if !ok {
			return nil, fmt.Errorf("Result %v (%v) has an invalid sequence", r.ID, r.FromName)
		}
		dense := InterpolateSequence(seq, r.Value.FramesCount(), r.Value.Duration())
		v, err := r.Value.WithSequence(dense)
		if err != nil {
			return nil, err
		}
		out[i].Value = v
	}
	return out, nil
}

// InterpolateTask expands the tracking regions of every annotation and prediction in t
func InterpolateTask(t *task.Task) error {
	for _, list := range [][]task.Annotation{t.Annotations, t.Predictions} {
		for i := range list {
			res, err := InterpolateResults(list[i].Result)
			if err != nil {
				return fmt.Errorf("Task %v: %w", t.ID, err)
			}
			list[i].Result = res
		}
	}
	return nil
}

// InterpolateSequence linearly interpolates between consecutive keyframes.
//
// A disabled keyframe emits nothing for the span up to the next keyframe.
// The first frame of a span is dropped when the previous keyframe was enabled,
// because the previous span already emitted it as its endpoint. The final
// keyframe is held constant until framesCount.
func InterpolateSequence(keyframes []task.SequenceFrame, framesCount int, duration float64) []task.SequenceFrame {
	kf := make([]task.SequenceFrame, len(keyframes))
	copy(kf, keyframes)
	sort.SliceStable(kf, func(i, j int) bool {
		return kf[i].Frame < kf[j].Frame
	})

	out := []task.SequenceFrame{}
	excludeFirst := false
	for i, a := range kf {
		if !a.Enabled {
			excludeFirst = false
			continue
		}

		var b task.SequenceFrame
		var count int
		last := i+1 == len(kf)
		if last {
			// Hold the final keyframe until the end of the video
			b = a
			count = max(1, framesCount-a.Frame+1)
		} else {
			b = kf[i+1]
			count = b.Frame - a.Frame + 1
		}

		dt := b.Time - a.Time
		for j := 0; j < count; j++ {
			if j == 0 && excludeFirst {
				continue
			}
			frac := float64(j) / float64(max(1, count-1))
			f := task.SequenceFrame{
				Frame:    a.Frame + j,
				Enabled:  true,
				X:        lerp(a.X, b.X, frac),
				Y:        lerp(a.Y, b.Y, frac),
				Width:    lerp(a.Width, b.Width, frac),
				Height:   lerp(a.Height, b.Height, frac),
				Rotation: lerp(a.Rotation, b.Rotation, frac),
				Time:     a.Time + dt*frac,
			}
			if dt == 0 && duration > 0 && framesCount > 0 {
				// Some authoring tools write the same time on every keyframe
				f.Time = float64(f.Frame-1) * duration / float64(framesCount)
			}
			isEndpoint := f.Frame == a.Frame || (!last && f.Frame == b.Frame)
			if !last && f.Frame == b.Frame {
				f.Enabled = b.Enabled
			}
			f.Auto = !isEndpoint
			out = append(out, f)
		}
		excludeFirst = true
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Frame < out[j].Frame
	})
	return out
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
