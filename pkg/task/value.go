package task

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/cyclopcam/labelconv/pkg/geom"
)

// Value is the payload of a result. Its shape depends on the control that produced
// it, so we keep the raw JSON and decode the parts we understand on demand.
// Anything we fail to decode (eg taxonomy choices, which are nested lists) is
// simply absent from the typed view, but remains in the raw JSON.
type Value struct {
	raw map[string]json.RawMessage
}

// NewValue builds a Value from a generic map. Used mostly by tests.
func NewValue(m map[string]any) Value {
	b, _ := json.Marshal(m)
	var v Value
	v.UnmarshalJSON(b)
	return v
}

func (v *Value) UnmarshalJSON(b []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v.raw = raw
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.raw == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v.raw)
}

// Map returns the value as generic JSON, with numbers preserved verbatim
func (v Value) Map() map[string]any {
	b, _ := v.MarshalJSON()
	m, err := decodeGeneric(b)
	if err != nil {
		return map[string]any{}
	}
	return m
}

func (v Value) Has(key string) bool {
	_, ok := v.raw[key]
	return ok
}

// Decode unmarshals a single field into dst
func (v Value) Decode(key string, dst any) bool {
	raw, ok := v.raw[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// Float returns a numeric field
func (v Value) Float(key string) (float64, bool) {
	var f float64
	if !v.Decode(key, &f) {
		return 0, false
	}
	return f, true
}

// Strings returns a field that is a list of strings
func (v Value) Strings(key string) []string {
	var s []string
	if !v.Decode(key, &s) {
		return nil
	}
	return s
}

// Rect returns x, y, width and height, which must all be present
func (v Value) Rect() (x, y, width, height float64, ok bool) {
	var okx, oky, okw, okh bool
	x, okx = v.Float("x")
	y, oky = v.Float("y")
	width, okw = v.Float("width")
	height, okh = v.Float("height")
	return x, y, width, height, okx && oky && okw && okh
}

// Rotation returns the rotation in degrees, which is zero when absent
func (v Value) Rotation() float64 {
	r, _ := v.Float("rotation")
	return r
}

// Points returns the vertices of a polygon
func (v Value) Points() ([]geom.Point, bool) {
	var raw [][]float64
	if !v.Decode("points", &raw) {
		return nil, false
	}
	pts := make([]geom.Point, 0, len(raw))
	for _, p := range raw {
		if len(p) < 2 {
			return nil, false
		}
		pts = append(pts, geom.Point{X: p[0], Y: p[1]})
	}
	return pts, true
}

// Keypoint returns the position of a keypoint
func (v Value) Keypoint() (x, y float64, ok bool) {
	var okx, oky bool
	x, okx = v.Float("x")
	y, oky = v.Float("y")
	return x, y, okx && oky
}

// Labels returns the label list of a result. The key is the result type
// (eg "rectanglelabels"), but if that is absent we take the first
// list-of-strings field that ends in "labels", in key order.
func (v Value) Labels(resultType string) []string {
	if l := v.Strings(strings.ToLower(resultType)); l != nil {
		return l
	}
	keys := []string{}
	for k := range v.raw {
		if strings.HasSuffix(k, "labels") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if l := v.Strings(k); l != nil {
			return l
		}
	}
	return nil
}

// Choices returns flat choices. Taxonomy paths (lists of lists) are not flat, and return nil.
func (v Value) Choices() []string {
	return v.Strings("choices")
}

// Text returns a text area value, which can be either a single string or a list
func (v Value) Text() []string {
	if s := v.Strings("text"); s != nil {
		return s
	}
	var one string
	if v.Decode("text", &one) {
		return []string{one}
	}
	return nil
}

// FramesCount returns the number of frames in a video
func (v Value) FramesCount() int {
	var n int
	v.Decode("framesCount", &n)
	return n
}

// Duration returns the duration of a video, in seconds
func (v Value) Duration() float64 {
	d, _ := v.Float("duration")
	return d
}

// Sequence returns the keyframes of a video region
func (v Value) Sequence() ([]SequenceFrame, bool) {
	var seq []SequenceFrame
	if !v.Decode("sequence", &seq) {
		return nil, false
	}
	return seq, true
}

// WithSequence returns a copy of v with the sequence replaced.
// The receiver is not modified.
func (v Value) WithSequence(seq []SequenceFrame) (Value, error) {
	b, err := json.Marshal(seq)
	if err != nil {
		return v, err
	}
	raw := make(map[string]json.RawMessage, len(v.raw)+1)
	for k, r := range v.raw {
		raw[k] = r
	}
	raw["sequence"] = b
	return Value{raw: raw}, nil
}

// SequenceFrame is a keyframe (or an interpolated frame) of a video region
type SequenceFrame struct {
	Frame    int     `json:"frame"`
	Enabled  bool    `json:"enabled"`
	Rotation float64 `json:"rotation"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Time     float64 `json:"time"`
	Auto     bool    `json:"auto,omitempty"`
}

func (f *SequenceFrame) UnmarshalJSON(b []byte) error {
	type alias SequenceFrame
	// A keyframe without an explicit flag is enabled
	a := alias{Enabled: true}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*f = SequenceFrame(a)
	return nil
}
