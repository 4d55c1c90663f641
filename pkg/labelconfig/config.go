// Package labelconfig turns a labeling interface configuration (the XML-like
// markup that binds data objects to annotation controls) into a ConfigModel.
//
// A control tag is anything with both 'name' and 'toName' (eg RectangleLabels).
// An object tag is a data source with 'name' and 'value' or 'valueList' (eg Image).
// Label, Choice and Relation tags attach to their nearest enclosing control tag.
package labelconfig

import (
	"regexp"
	"strings"

	"github.com/cyclopcam/logs"
)

// ObjectTagInfo is a data source binding, such as <Image name="image" value="$image"/>
type ObjectTagInfo struct {
	Name      string     `json:"name"`
	Type      string     `json:"type"` // Raw tag name, eg "Image"
	Kind      ObjectKind `json:"-"`
	ValueType string     `json:"valueType,omitempty"`
	Value     string     `json:"value,omitempty"`     // Task data key, with the leading $ removed
	ValueList string     `json:"valueList,omitempty"` // Task data key of a list of values, with the leading $ removed
}

// DataKey returns the key into task.Data that this object reads from
func (o *ObjectTagInfo) DataKey() string {
	if o.Value != "" {
		return o.Value
	}
	return o.ValueList
}

// Conditional describes when a per-region control becomes visible
type Conditional struct {
	Type string `json:"type"` // "tag", "label" or "choice"
	Name string `json:"name"`
}

// ControlTagInfo is an annotation-producing widget, and everything needed to interpret its results.
type ControlTagInfo struct {
	Name          string                       `json:"name"`
	Type          string                       `json:"type"` // Raw tag name, eg "RectangleLabels"
	Kind          ControlKind                  `json:"-"`
	ToName        []string                     `json:"to_name"`
	Inputs        []ObjectTagInfo              `json:"inputs"`
	Labels        []string                     `json:"labels"`       // In order of first appearance
	LabelsAttrs   map[string]map[string]string `json:"labels_attrs"` // Raw attributes of each label
	Conditionals  *Conditional                 `json:"conditionals,omitempty"`
	DynamicLabels bool                         `json:"dynamic_labels,omitempty"`
	Regex         map[string]string            `json:"regex,omitempty"` // indexFlag variable -> pattern
}

// ConfigModel maps control tag names to their ControlTagInfo.
// It is immutable once Parse returns.
type ConfigModel struct {
	controls []*ControlTagInfo // document order
	byName   map[string]*ControlTagInfo
	inputs   []ObjectTagInfo // document order
}

// Get returns the control with the given name, or nil
func (m *ConfigModel) Get(name string) *ControlTagInfo {
	return m.byName[name]
}

// Controls returns all control tags in document order
func (m *ConfigModel) Controls() []*ControlTagInfo {
	return m.controls
}

// Names returns the names of all control tags in document order
func (m *ConfigModel) Names() []string {
	names := make([]string, 0, len(m.controls))
	for _, c := range m.controls {
		names = append(names, c.Name)
	}
	return names
}

// Inputs returns all object tags in document order
func (m *ConfigModel) Inputs() []ObjectTagInfo {
	return m.inputs
}

// ControlsOfKind returns the controls for which match returns true
func (m *ConfigModel) ControlsOfKind(match func(k ControlKind) bool) []*ControlTagInfo {
	r := []*ControlTagInfo{}
	for _, c := range m.controls {
		if match(c.Kind) {
			r = append(r, c)
		}
	}
	return r
}

// A value which is nothing but a reference to a task variable, such as "$labels"
var bareVariable = regexp.MustCompile(`^\$[A-Za-z_]+$`)

type parser struct {
	log       logs.Log
	tree      *arena
	variables []string
	outputs   map[int]*ControlTagInfo // arena index -> control
	model     *ConfigModel
	inputs    map[string]ObjectTagInfo
}

// Parse builds a ConfigModel from a labeling config document.
// log may be nil, in which case diagnostics are discarded.
func Parse(config string, log logs.Log) (*ConfigModel, error) {
	tree, err := parseArena(config)
	if err != nil {
		return nil, err
	}
	p := &parser{
		log:     log,
		tree:    tree,
		outputs: map[int]*ControlTagInfo{},
		model: &ConfigModel{
			byName: map[string]*ControlTagInfo{},
		},
		inputs: map[string]ObjectTagInfo{},
	}
	for i := range tree.nodes {
		if err := p.visit(i); err != nil {
			return nil, err
		}
	}
	p.resolveInputs()
	return p.model, nil
}

func (p *parser) debugf(format string, args ...any) {
	if p.log != nil {
		p.log.Debugf(format, args...)
	}
}

func (p *parser) infof(format string, args ...any) {
	if p.log != nil {
		p.log.Infof(format, args...)
	}
}

func isOutputTag(n *node) bool {
	return n.attr("name") != "" && n.attr("toName") != "" && !notControlTags[n.tag]
}

func (p *parser) visit(i int) error {
	n := &p.tree.nodes[i]
	if v := n.attr("indexFlag"); v != "" {
		p.variables = append(p.variables, v)
	}

	if isOutputTag(n) {
		p.addOutput(i, n)
	} else if n.attr("name") != "" {
		if err := p.addInput(n); err != nil {
			return err
		}
	}

	if labelTags[n.tag] {
		p.addLabel(i, n)
	}
	return nil
}

func (p *parser) addOutput(i int, n *node) {
	info := &ControlTagInfo{
		Name:        n.attr("name"),
		Type:        n.tag,
		Kind:        ParseControlKind(n.tag),
		ToName:      strings.Split(n.attr("toName"), ","),
		Labels:      []string{},
		LabelsAttrs: map[string]map[string]string{},
	}

	// Repeater blocks reference their index variable inside toName, eg toName="image_{{idx}}"
	for _, v := range p.variables {
		for _, to := range info.ToName {
			if strings.Contains(to, v) {
				if info.Regex == nil {
					info.Regex = map[string]string{}
				}
				info.Regex[v] = ".*"
			}
		}
	}

	if n.attr("perRegion") == "true" {
		if v := n.attr("whenTagName"); v != "" {
			info.Conditionals = &Conditional{Type: "tag", Name: v}
		} else if v := n.attr("whenLabelValue"); v != "" {
			info.Conditionals = &Conditional{Type: "label", Name: v}
		} else if v := n.attr("whenChoiceValue"); v != "" {
			info.Conditionals = &Conditional{Type: "choice", Name: v}
		}
	}

	if bareVariable.MatchString(n.attr("value")) || n.hasAttr("apiUrl") {
		info.DynamicLabels = true
	}

	p.outputs[i] = info
	if existing := p.model.byName[info.Name]; existing != nil {
		// A repeated name replaces the earlier definition, but keeps its position
		for j := range p.model.controls {
			if p.model.controls[j] == existing {
				p.model.controls[j] = info
			}
		}
	} else {
		p.model.controls = append(p.model.controls, info)
	}
	p.model.byName[info.Name] = info
}

func (p *parser) addInput(n *node) error {
	value := n.attr("value")
	valueList := n.attr("valueList")
	if value == "" && valueList == "" {
		if ParseObjectKind(n.tag) != ObjectOther {
			return &MissingAttributeError{Tag: n.tag, Name: n.attr("name")}
		}
		// Layout tags such as <View name="..."> are not data sources
		return nil
	}
	info := ObjectTagInfo{
		Name:      n.attr("name"),
		Type:      n.tag,
		Kind:      ParseObjectKind(n.tag),
		ValueType: n.attr("valueType"),
		Value:     strings.TrimLeft(value, "$"),
		ValueList: strings.TrimLeft(valueList, "$"),
	}
	if _, exists := p.inputs[info.Name]; !exists {
		p.model.inputs = append(p.model.inputs, info)
	} else {
		for j := range p.model.inputs {
			if p.model.inputs[j].Name == info.Name {
				p.model.inputs[j] = info
			}
		}
	}
	p.inputs[info.Name] = info
	return nil
}

func (p *parser) addLabel(i int, n *node) {
	owner := p.tree.ancestor(i, func(idx int) bool {
		_, ok := p.outputs[idx]
		return ok
	})
	if owner == -1 {
		p.debugf("<%v value=\"%v\"> is not inside any control tag, ignoring", n.tag, n.attr("value"))
		return
	}
	control := p.outputs[owner]

	value := n.attr("alias")
	if value == "" {
		value = n.attr("value")
	}
	if value == "" {
		value = n.attr("valueList")
	}
	if value == "" {
		p.debugf("<%v> inside %v has no 'alias', 'value' or 'valueList' attribute, skipping", n.tag, control.Name)
		return
	}
	if _, seen := control.LabelsAttrs[value]; !seen {
		control.Labels = append(control.Labels, value)
	}
	control.LabelsAttrs[value] = n.copyAttrs()
}

func (p *parser) resolveInputs() {
	for _, control := range p.model.controls {
		control.Inputs = []ObjectTagInfo{}
		for _, to := range control.ToName {
			input, ok := p.inputs[to]
			if !ok {
				p.infof("to_name=%v is specified for output tag name=%v, but we can't find it among input tags", to, control.Name)
				continue
			}
			control.Inputs = append(control.Inputs, input)
		}
	}
}
