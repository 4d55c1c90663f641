// Package kibi formats and parses byte sizes such as "256 MB", in powers of 1024.
package kibi

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidByteSizeString = fmt.Errorf("Invalid byte size string")

var sizeRegex = regexp.MustCompile(`^(\d+)\s*([a-z]*)$`)

var units = []string{"bytes", "KB", "MB", "GB", "TB", "PB"}

// Both the full suffix and its first letter are accepted, in any case
var multipliers = map[string]int64{
	"":      1,
	"bytes": 1,
	"k":     1 << 10,
	"kb":    1 << 10,
	"m":     1 << 20,
	"mb":    1 << 20,
	"g":     1 << 30,
	"gb":    1 << 30,
	"t":     1 << 40,
	"tb":    1 << 40,
	"p":     1 << 50,
	"pb":    1 << 50,
}

// Format rounds down to the largest whole unit, eg 1536 -> "1 KB"
func Format(b int64) string {
	i := 0
	for i < len(units)-1 && b >= 1024 {
		b /= 1024
		i++
	}
	return fmt.Sprintf("%v %v", b, units[i])
}

// Parse reads a size such as "50", "50 kb", "50MB" or "50 G"
func Parse(v string) (int64, error) {
	m := sizeRegex.FindStringSubmatch(strings.TrimSpace(strings.ToLower(v)))
	if m == nil {
		return 0, fmt.Errorf("%w: '%v'", ErrInvalidByteSizeString, v)
	}
	multiplier, ok := multipliers[m[2]]
	if !ok {
		return 0, fmt.Errorf("%w: '%v'", ErrInvalidByteSizeString, v)
	}
	value, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, err
	}
	return value * multiplier, nil
}

// Size is a byte count that can be written in a config file as a number, or as a string like "256 MB"
type Size int64

func (s Size) String() string {
	return Format(int64(s))
}

func (s *Size) set(v any) error {
	switch t := v.(type) {
	case float64:
		*s = Size(t)
	case int:
		*s = Size(t)
	case string:
		n, err := Parse(t)
		if err != nil {
			return err
		}
		*s = Size(n)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidByteSizeString, v)
	}
	return nil
}

func (s *Size) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return s.set(v)
}

func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	return s.set(v)
}
