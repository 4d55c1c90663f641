package export

import (
	"fmt"

	"github.com/cyclopcam/labelconv/pkg/category"
)

// UnknownLabelTypeError is returned when a result's geometry isn't something the format can encode
type UnknownLabelTypeError struct {
	Type     string
	FromName string
}

func (e *UnknownLabelTypeError) Error() string {
	return fmt.Sprintf("Unknown label type '%v' (from %v)", e.Type, e.FromName)
}

// MissingKeypointOrderError is returned when keypoints need to be exported, but
// none of the keypoint labels declare their index.
type MissingKeypointOrderError struct {
	Format Format
}

func (e *MissingKeypointOrderError) Error() string {
	return fmt.Sprintf("%v needs keypoint labels with a '%v' attribute, to define the keypoint order", e.Format, category.ModelIndexAttribute)
}
