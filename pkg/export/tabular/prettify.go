package tabular

import (
	"github.com/cyclopcam/labelconv/pkg/labelconfig"
	"github.com/cyclopcam/labelconv/pkg/task"
)

// Controls whose single result collapses to the bare value under this key
var scalarKeys = map[labelconfig.ControlKind]string{
	labelconfig.ControlRating:   "rating",
	labelconfig.ControlNumber:   "number",
	labelconfig.ControlDateTime: "datetime",
	labelconfig.ControlTaxonomy: "taxonomy",
	labelconfig.ControlPairwise: "selected",
}

// controlValue gathers the results of one control into a single cell.
// A single choice or a single text becomes a plain string. Regions become a
// list of their values, with the original image size attached.
func controlValue(c *labelconfig.ControlTagInfo, results []task.ResultItem) (any, bool) {
	mine := []*task.ResultItem{}
	for i := range results {
		if results[i].FromName == c.Name {
			mine = append(mine, &results[i])
		}
	}
	if len(mine) == 0 {
		return nil, false
	}

	switch c.Kind {
	case labelconfig.ControlChoices:
		if len(mine) == 1 {
			if ch := mine[0].Value.Choices(); len(ch) == 1 {
				return ch[0], true
			} else if ch != nil {
				return map[string]any{"choices": ch}, true
			}
		}
	case labelconfig.ControlTextArea:
		texts := []string{}
		for _, r := range mine {
			texts = append(texts, r.Value.Text()...)
		}
		if len(texts) == 1 {
			return texts[0], true
		}
		return texts, true
	}
	if key, ok := scalarKeys[c.Kind]; ok && len(mine) == 1 {
		if v, ok := mine[0].Value.Map()[key]; ok {
			return v, true
		}
	}

	list := make([]any, 0, len(mine))
	for _, r := range mine {
		m := r.Value.Map()
		if r.OriginalWidth > 0 && r.OriginalHeight > 0 {
			m["original_width"] = r.OriginalWidth
			m["original_height"] = r.OriginalHeight
		}
		list = append(list, m)
	}
	return list, true
}
