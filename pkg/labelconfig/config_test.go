package labelconfig

import (
	"errors"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

const imageConfig = `
<View>
  <Image name="image" value="$image"/>
  <RectangleLabels name="label" toName="image">
    <Label value="Airplane" background="green"/>
    <Label value="Car" background="blue"/>
  </RectangleLabels>
  <KeyPointLabels name="kp" toName="image">
    <Label value="nose" model_index="0"/>
    <Label value="left_eye" model_index="1"/>
  </KeyPointLabels>
  <Choices name="quality" toName="image,missing">
    <Choice value="good"/>
    <Choice alias="bad" value="Bad quality"/>
  </Choices>
  <Filter name="filter" toName="label"/>
</View>`

func requireLabelsConsistent(t *testing.T, m *ConfigModel) {
	for _, c := range m.Controls() {
		require.Equal(t, len(c.Labels), len(c.LabelsAttrs), "control %v", c.Name)
		for _, l := range c.Labels {
			_, ok := c.LabelsAttrs[l]
			require.True(t, ok, "label %v of %v missing from labels_attrs", l, c.Name)
		}
	}
}

func TestParseImageConfig(t *testing.T) {
	m, err := Parse(imageConfig, logs.NewTestingLog(t))
	require.NoError(t, err)
	require.Equal(t, []string{"label", "kp", "quality"}, m.Names())

	rect := m.Get("label")
	require.NotNil(t, rect)
	require.Equal(t, ControlRectangleLabels, rect.Kind)
	require.Equal(t, "RectangleLabels", rect.Type)
	require.Equal(t, []string{"Airplane", "Car"}, rect.Labels)
	require.Equal(t, "green", rect.LabelsAttrs["Airplane"]["background"])
	require.Len(t, rect.Inputs, 1)
	require.Equal(t, "image", rect.Inputs[0].Value)
	require.Equal(t, ObjectImage, rect.Inputs[0].Kind)

	kp := m.Get("kp")
	require.True(t, kp.Kind.IsKeypoint())
	require.Equal(t, "1", kp.LabelsAttrs["left_eye"]["model_index"])

	// alias beats value, and unresolved toName entries are dropped from inputs
	quality := m.Get("quality")
	require.Equal(t, []string{"good", "bad"}, quality.Labels)
	require.Equal(t, []string{"image", "missing"}, quality.ToName)
	require.Len(t, quality.Inputs, 1)

	require.Nil(t, m.Get("filter"))
	requireLabelsConsistent(t, m)
}

func TestRepeatedLabelLastAttrsWin(t *testing.T) {
	m, err := Parse(`
<View>
  <Text name="text" value="$text"/>
  <Labels name="ner" toName="text">
    <Label value="PER" background="red"/>
    <Label value="ORG"/>
    <Label value="PER" background="blue"/>
    <Label background="grey"/>
  </Labels>
</View>`, logs.NewTestingLog(t))
	require.NoError(t, err)
	ner := m.Get("ner")
	require.Equal(t, []string{"PER", "ORG"}, ner.Labels)
	require.Equal(t, "blue", ner.LabelsAttrs["PER"]["background"])
	requireLabelsConsistent(t, m)
}

func TestOrphanLabelIgnored(t *testing.T) {
	m, err := Parse(`
<View>
  <Image name="img" value="$url"/>
  <Label value="lost"/>
  <View>
    <Rectangle name="box" toName="img"/>
  </View>
</View>`, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"box"}, m.Names())
	require.Empty(t, m.Get("box").Labels)
}

func TestNestedLabelFindsNearestControl(t *testing.T) {
	m, err := Parse(`
<View>
  <Image name="img" value="$url"/>
  <Taxonomy name="tax" toName="img">
    <Choice value="Animal">
      <Choice value="Dog"/>
    </Choice>
  </Taxonomy>
</View>`, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Animal", "Dog"}, m.Get("tax").Labels)
}

func TestRepeaterRegex(t *testing.T) {
	m, err := Parse(`
<View>
  <Repeater on="$images" indexFlag="{{idx}}">
    <Image name="image_{{idx}}" value="$images[{{idx}}].url"/>
    <RectangleLabels name="labels_{{idx}}" toName="image_{{idx}}">
      <Label value="Car"/>
    </RectangleLabels>
  </Repeater>
</View>`, nil)
	require.NoError(t, err)
	c := m.Get("labels_{{idx}}")
	require.Equal(t, map[string]string{"{{idx}}": ".*"}, c.Regex)
	require.Len(t, c.Inputs, 1)
}

func TestConditionalsPrecedence(t *testing.T) {
	m, err := Parse(`
<View>
  <Image name="img" value="$url"/>
  <Choices name="a" toName="img" perRegion="true" whenTagName="box" whenLabelValue="Car"/>
  <Choices name="b" toName="img" perRegion="true" whenLabelValue="Car" whenChoiceValue="x"/>
  <Choices name="c" toName="img" perRegion="true" whenChoiceValue="x"/>
  <Choices name="d" toName="img" whenTagName="box"/>
</View>`, nil)
	require.NoError(t, err)
	require.Equal(t, &Conditional{Type: "tag", Name: "box"}, m.Get("a").Conditionals)
	require.Equal(t, &Conditional{Type: "label", Name: "Car"}, m.Get("b").Conditionals)
	require.Equal(t, &Conditional{Type: "choice", Name: "x"}, m.Get("c").Conditionals)
	require.Nil(t, m.Get("d").Conditionals)
}

func TestDynamicLabels(t *testing.T) {
	m, err := Parse(`
<View>
  <Text name="text" value="$text"/>
  <Choices name="a" toName="text" value="$options"/>
  <Choices name="b" toName="text" value="$options.list"/>
  <Choices name="c" toName="text" apiUrl="https://example.com/choices"/>
</View>`, nil)
	require.NoError(t, err)
	require.True(t, m.Get("a").DynamicLabels)
	require.False(t, m.Get("b").DynamicLabels)
	require.True(t, m.Get("c").DynamicLabels)
}

func TestValueListInput(t *testing.T) {
	m, err := Parse(`
<View>
  <Image name="pages" valueList="$pages"/>
  <Rectangle name="box" toName="pages"/>
</View>`, nil)
	require.NoError(t, err)
	in := m.Get("box").Inputs[0]
	require.Equal(t, "pages", in.ValueList)
	require.Equal(t, "pages", in.DataKey())
}

func TestMissingAttribute(t *testing.T) {
	_, err := Parse(`<View><Image name="img"/></View>`, nil)
	var missing *MissingAttributeError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, "img", missing.Name)

	// Layout tags with a name are not data sources
	_, err = Parse(`<View name="layout"><Header name="h"/></View>`, nil)
	require.NoError(t, err)
}

func TestMalformedConfig(t *testing.T) {
	for _, doc := range []string{"", "   ", "<View><Image name='x' value='$x'></View>", "just text"} {
		_, err := Parse(doc, nil)
		var parseErr *ConfigParseError
		require.True(t, errors.As(err, &parseErr), "document %q: %v", doc, err)
	}
}
