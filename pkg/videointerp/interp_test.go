package videointerp

import (
	"testing"

	"github.com/cyclopcam/labelconv/pkg/task"
	"github.com/stretchr/testify/require"
)

func frames(seq []task.SequenceFrame) []int {
	f := []int{}
	for _, s := range seq {
		f = append(f, s.Frame)
	}
	return f
}

func TestLinear(t *testing.T) {
	seq := InterpolateSequence([]task.SequenceFrame{
		{Frame: 5, Enabled: true, X: 40, Time: 4},
		{Frame: 1, Enabled: true, X: 0, Time: 0},
	}, 0, 0)
	require.Equal(t, []int{1, 2, 3, 4, 5}, frames(seq))
	require.InDelta(t, 20.0, seq[2].X, 1e-9)
	require.InDelta(t, 2.0, seq[2].Time, 1e-9)
	require.False(t, seq[0].Auto)
	require.True(t, seq[2].Auto)
	require.False(t, seq[4].Auto)
}

func TestDisabledKeyframeLeavesGap(t *testing.T) {
	seq := InterpolateSequence([]task.SequenceFrame{
		{Frame: 1, Enabled: true},
		{Frame: 2, Enabled: false},
		{Frame: 5, Enabled: true},
	}, 6, 0)
	require.Equal(t, []int{1, 2, 5, 6}, frames(seq))
	require.False(t, seq[1].Enabled)
}

// Pins the exact output for a disabled keyframe in the middle of a track. The
// span after the disabled keyframe re-emits its first frame.
func TestExcludeFirstRegression(t *testing.T) {
	seq := InterpolateSequence([]task.SequenceFrame{
		{Frame: 1, Enabled: true, X: 0},
		{Frame: 3, Enabled: false, X: 10},
		{Frame: 6, Enabled: true, X: 30},
	}, 7, 0)
	require.Equal(t, []int{1, 2, 3, 6, 7}, frames(seq))
	require.Equal(t, 1, seq[0].Frame)
	require.True(t, seq[0].Enabled)
	require.InDelta(t, 5.0, seq[1].X, 1e-9)
	require.False(t, seq[2].Enabled)
	require.InDelta(t, 10.0, seq[2].X, 1e-9)
	require.False(t, seq[3].Auto)
	require.True(t, seq[4].Auto)
	require.InDelta(t, 30.0, seq[4].X, 1e-9)
}

func TestTimeFallback(t *testing.T) {
	// Same time on both keyframes, but a known duration
	seq := InterpolateSequence([]task.SequenceFrame{
		{Frame: 1, Enabled: true, Time: 0},
		{Frame: 3, Enabled: true, Time: 0},
	}, 10, 5)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, frames(seq))
	require.InDelta(t, 0.5, seq[1].Time, 1e-9)
	require.InDelta(t, 4.5, seq[9].Time, 1e-9)
}

func TestInterpolateResults(t *testing.T) {
	results := []task.ResultItem{
		{
			Type:     "videorectangle",
			FromName: "box",
			Value: task.NewValue(map[string]any{
				"framesCount": 3,
				"labels":      []string{"car"},
				"sequence": []map[string]any{
					{"frame": 1, "enabled": true, "x": 0},
					{"frame": 3, "enabled": true, "x": 10},
				},
			}),
		},
		{
			Type:  "choices",
			Value: task.NewValue(map[string]any{"choices": []string{"yes"}}),
		},
	}
	out, err := InterpolateResults(results)
	require.NoError(t, err)
	require.Len(t, out, 2)
	seq, ok := out[0].Value.Sequence()
	require.True(t, ok)
	require.Equal(t, []int{1, 2, 3}, frames(seq))
	require.Equal(t, []string{"car"}, out[0].Value.Labels("labels"))
	require.Equal(t, []string{"yes"}, out[1].Value.Choices())

	// The input is not modified
	seq, _ = results[0].Value.Sequence()
	require.Len(t, seq, 2)
}
