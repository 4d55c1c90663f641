package labelconfig

import "fmt"

// ConfigParseError is returned when the labeling configuration is not well formed markup
type ConfigParseError struct {
	Reason string
	Err    error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("Failed to parse labeling config: %v", e.Reason)
}

func (e *ConfigParseError) Unwrap() error {
	return e.Err
}

// MissingAttributeError is returned when an object tag has neither 'value' nor 'valueList'
type MissingAttributeError struct {
	Tag  string // eg "Image"
	Name string // the tag's name attribute
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("Tag <%v name=\"%v\"> must have a 'value' or 'valueList' attribute", e.Tag, e.Name)
}
