// Package category assigns stable integer ids to label names during an export run.
package category

import (
	"errors"

	"github.com/cyclopcam/labelconv/pkg/labelconfig"
)

// DefaultKeypointCategory is the name of the synthetic category that all keypoint labels collapse into
const DefaultKeypointCategory = "default"

var (
	ErrFrozen        = errors.New("Category registry is frozen, no new labels can be registered")
	ErrAlreadyMerged = errors.New("Keypoint categories have already been merged")
)

// Category is a numbered class label, as used by detection formats.
// Skeleton is a list of 1-based keypoint index pairs (COCO convention).
type Category struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Supercategory string   `json:"supercategory,omitempty"`
	Keypoints     []string `json:"keypoints,omitempty"`
	Skeleton      [][2]int `json:"skeleton,omitempty"`
}

// Registry hands out dense ids 0..N-1 in first-seen order.
// A Registry belongs to a single conversion run, and is not safe for concurrent use.
type Registry struct {
	categories []Category
	nameToID   map[string]int
	frozen     bool
	merged     bool
}

func NewRegistry() *Registry {
	return &Registry{
		nameToID: map[string]int{},
	}
}

// Register returns the id of the label, adding it if this is the first time we've seen it.
func (r *Registry) Register(name string) (int, error) {
	if id, ok := r.nameToID[name]; ok {
		return id, nil
	}
	if r.frozen {
		return -1, ErrFrozen
	}
	id := len(r.categories)
	r.categories = append(r.categories, Category{ID: id, Name: name})
	r.nameToID[name] = id
	return id, nil
}

// ID returns the id of a label that has already been registered
func (r *Registry) ID(name string) (int, bool) {
	id, ok := r.nameToID[name]
	return id, ok
}

// Categories returns the categories in id order
func (r *Registry) Categories() []Category {
	return r.categories
}

// Names returns the category names in id order
func (r *Registry) Names() []string {
	names := make([]string, len(r.categories))
	for i, c := range r.categories {
		names[i] = c.Name
	}
	return names
}

func (r *Registry) Len() int {
	return len(r.categories)
}

// Freeze stops any new labels from being registered.
// Encoders freeze the registry before they emit any ids.
func (r *Registry) Freeze() {
	r.frozen = true
}

func (r *Registry) IsFrozen() bool {
	return r.frozen
}

// MergeKeypoints removes every label owned by a keypoint control, renumbers the
// remaining categories densely from 0, and then appends a single synthetic
// category named "default" which all keypoint labels map to.
// This invalidates previously issued ids, so it may only be called once, and it freezes the registry.
// keypointOrder becomes the "keypoints" list of the synthetic category. If it is
// empty, the keypoint labels are listed in config order instead.
func (r *Registry) MergeKeypoints(cfg *labelconfig.ConfigModel, keypointOrder KeypointOrder) error {
	if r.merged {
		return ErrAlreadyMerged
	}
	r.merged = true
	r.frozen = true

	isKeypoint := map[string]bool{}
	configOrder := []string{}
	for _, c := range cfg.ControlsOfKind(labelconfig.ControlKind.IsKeypoint) {
		for _, label := range c.Labels {
			if !isKeypoint[label] {
				isKeypoint[label] = true
				configOrder = append(configOrder, label)
			}
		}
	}

	categories := []Category{}
	nameToID := map[string]int{}
	for _, c := range r.categories {
		if isKeypoint[c.Name] {
			continue
		}
		c.ID = len(categories)
		categories = append(categories, c)
		nameToID[c.Name] = c.ID
	}

	if len(configOrder) != 0 {
		keypoints := []string(keypointOrder)
		if len(keypoints) == 0 {
			keypoints = configOrder
		}
		def := Category{
			ID:        len(categories),
			Name:      DefaultKeypointCategory,
			Keypoints: append([]string{}, keypoints...),
			Skeleton:  [][2]int{},
		}
		categories = append(categories, def)
		nameToID[DefaultKeypointCategory] = def.ID
		for _, label := range configOrder {
			nameToID[label] = def.ID
		}
	}

	r.categories = categories
	r.nameToID = nameToID
	return nil
}
