package task

import (
	"bytes"
	"encoding/json"
)

// ResultItem is a single region or classification inside an annotation.
// Fields that we don't model are preserved, so that a ResultItem can be
// written back out without losing anything.
type ResultItem struct {
	ID             string  `json:"id,omitempty"`
	Type           string  `json:"type"`
	FromName       string  `json:"from_name"`
	ToName         string  `json:"to_name"`
	OriginalWidth  int     `json:"original_width,omitempty"`
	OriginalHeight int     `json:"original_height,omitempty"`
	ImageRotation  float64 `json:"image_rotation,omitempty"`
	ParentID       string  `json:"parentID,omitempty"`
	Value          Value   `json:"value"`

	extra map[string]json.RawMessage
}

var resultKnownKeys = []string{"id", "type", "from_name", "to_name", "original_width", "original_height", "image_rotation", "parentID", "value"}

func (r *ResultItem) UnmarshalJSON(b []byte) error {
	type alias ResultItem
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for _, k := range resultKnownKeys {
		delete(raw, k)
	}
	*r = ResultItem(a)
	if len(raw) != 0 {
		r.extra = raw
	}
	return nil
}

func (r ResultItem) MarshalJSON() ([]byte, error) {
	type alias ResultItem
	known, err := json.Marshal(alias(r))
	if err != nil {
		return nil, err
	}
	if len(r.extra) == 0 {
		return known, nil
	}
	merged := map[string]json.RawMessage{}
	for k, v := range r.extra {
		merged[k] = v
	}
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}

// Extra returns an unmodeled field of the result (eg "origin" or "score")
func (r *ResultItem) Extra(key string) (json.RawMessage, bool) {
	v, ok := r.extra[key]
	return v, ok
}

// Map returns the result as generic JSON, with numbers preserved verbatim
func (r ResultItem) Map() (map[string]any, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return decodeGeneric(b)
}

func decodeGeneric(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	m := map[string]any{}
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}
