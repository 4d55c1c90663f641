package category

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cyclopcam/labelconv/pkg/labelconfig"
)

// ModelIndexAttribute is the label attribute that orders keypoints, eg <Label value="nose" model_index="0"/>
const ModelIndexAttribute = "model_index"

// KeypointOrder is the ordered list of keypoint label names
type KeypointOrder []string

// Index returns the position of label in the order, or -1
func (k KeypointOrder) Index(label string) int {
	for i, l := range k {
		if l == label {
			return i
		}
	}
	return -1
}

// BuildKeypointOrder orders the labels of all keypoint controls by their
// model_index attribute. The first label to claim an index keeps it, and
// labels without a parseable index are left out.
func BuildKeypointOrder(cfg *labelconfig.ConfigModel) KeypointOrder {
	type indexed struct {
		index int
		label string
	}
	claimed := map[int]bool{}
	seen := map[string]bool{}
	all := []indexed{}
	for _, c := range cfg.ControlsOfKind(labelconfig.ControlKind.IsKeypoint) {
		for _, label := range c.Labels {
			if seen[label] {
				continue
			}
			raw, ok := c.LabelsAttrs[label][ModelIndexAttribute]
			if !ok {
				continue
			}
			idx, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil || claimed[idx] {
				continue
			}
			claimed[idx] = true
			seen[label] = true
			all = append(all, indexed{idx, label})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].index < all[j].index
	})
	order := make(KeypointOrder, len(all))
	for i, a := range all {
		order[i] = a.label
	}
	return order
}
