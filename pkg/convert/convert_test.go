package convert

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/labelconv/pkg/category"
	"github.com/cyclopcam/labelconv/pkg/export"
	"github.com/cyclopcam/labelconv/pkg/export/coco"
	"github.com/cyclopcam/labelconv/pkg/labelconfig"
	"github.com/cyclopcam/labelconv/pkg/task"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

const rectConfig = `
<View>
  <Image name="image" value="$image"/>
  <RectangleLabels name="label" toName="image">
    <Label value="Airplane"/>
    <Label value="Car"/>
  </RectangleLabels>
</View>`

const rectTask = `[{
  "id": 1,
  "data": {"image": "/data/upload/1/plane.jpg"},
  "annotations": [{"id": 1, "result": [
    {"id": "a", "type": "rectanglelabels", "from_name": "label", "to_name": "image",
     "original_width": 1000, "original_height": 500,
     "value": {"x": 10, "y": 10, "width": 30, "height": 40, "rotation": 0, "rectanglelabels": ["Airplane"]}}
  ]}]
}]`

const keypointConfig = `
<View>
  <Image name="image" value="$image"/>
  <RectangleLabels name="label" toName="image">
    <Label value="Person"/>
  </RectangleLabels>
  <KeyPointLabels name="kp" toName="image">
    <Label value="Head" model_index="0"/>
    <Label value="Hand" model_index="1"/>
  </KeyPointLabels>
</View>`

const keypointTask = `[{
  "id": 1,
  "data": {"image": "/data/upload/1/person.jpg"},
  "annotations": [{"id": 1, "result": [
    {"id": "p", "type": "rectanglelabels", "from_name": "label", "to_name": "image", "original_width": 100, "original_height": 100,
     "value": {"x": 10, "y": 10, "width": 50, "height": 80, "rectanglelabels": ["Person"]}},
    {"id": "h", "type": "keypointlabels", "from_name": "kp", "to_name": "image", "parentID": "p", "original_width": 100, "original_height": 100,
     "value": {"x": 30, "y": 15, "keypointlabels": ["Head"]}},
    {"id": "n", "type": "keypointlabels", "from_name": "kp", "to_name": "image", "parentID": "p", "original_width": 100, "original_height": 100,
     "value": {"x": 20, "y": 50, "keypointlabels": ["Hand"]}}
  ]}]
}]`

func newConverter(t *testing.T) *Converter {
	r, err := NewRegistry()
	require.NoError(t, err)
	return NewConverter(logs.NewTestingLog(t), r, nil)
}

func parseTasks(t *testing.T, js string) []task.Task {
	tasks, err := task.Parse([]byte(js))
	require.NoError(t, err)
	return tasks
}

func readCOCO(t *testing.T, dir string) coco.Document {
	b, err := os.ReadFile(filepath.Join(dir, coco.ResultFilename))
	require.NoError(t, err)
	var doc coco.Document
	require.NoError(t, json.Unmarshal(b, &doc))
	return doc
}

func TestRectangleToCOCO(t *testing.T) {
	c := newConverter(t)
	out := t.TempDir()
	require.NoError(t, c.Convert(context.Background(), rectConfig, parseTasks(t, rectTask), export.FormatCOCO, out, export.Options{}))

	doc := readCOCO(t, out)
	require.Len(t, doc.Images, 1)
	require.Len(t, doc.Annotations, 1)
	require.Len(t, doc.Categories, 1)
	require.Equal(t, "Airplane", doc.Categories[0].Name)
	require.Greater(t, doc.Annotations[0].BBox[2], 0.0)
	require.InDeltaSlice(t, []float64{100, 50, 300, 200}, doc.Annotations[0].BBox[:], 1e-6)
}

func TestKeypointCategoriesCollapse(t *testing.T) {
	c := newConverter(t)
	out := t.TempDir()
	require.NoError(t, c.Convert(context.Background(), keypointConfig, parseTasks(t, keypointTask), export.FormatCOCO, out, export.Options{}))

	doc := readCOCO(t, out)
	names := []string{}
	for _, cat := range doc.Categories {
		names = append(names, cat.Name)
	}
	require.Equal(t, []string{"Person", category.DefaultKeypointCategory}, names)
	last := doc.Categories[len(doc.Categories)-1]
	require.Equal(t, []string{"Head", "Hand"}, last.Keypoints)
	for _, cat := range doc.Categories[:len(doc.Categories)-1] {
		require.NotContains(t, []string{"Head", "Hand"}, cat.Name)
	}

	require.Len(t, doc.Annotations, 2)
	kp := doc.Annotations[1]
	require.Equal(t, last.ID, kp.CategoryID)
	require.Equal(t, 2, *kp.NumKeypoints)
	require.Equal(t, []int{30, 15, 2, 20, 50, 2}, kp.Keypoints)
}

func TestYOLOFromConverter(t *testing.T) {
	c := newConverter(t)
	out := t.TempDir()
	require.NoError(t, c.Convert(context.Background(), keypointConfig, parseTasks(t, keypointTask), export.FormatYOLOKeypoints, out, export.Options{}))
	b, err := os.ReadFile(filepath.Join(out, "labels", "person.txt"))
	require.NoError(t, err)
	require.Equal(t, "0 0.35 0.5 0.5 0.8 0.3 0.15 2 0.2 0.5 2\n", string(b))
}

func TestInterpolateOption(t *testing.T) {
	config := `
<View>
  <Video name="video" value="$video"/>
  <VideoRectangle name="box" toName="video"/>
  <Labels name="videoLabels" toName="video">
    <Label value="Car"/>
  </Labels>
</View>`
	tasks := parseTasks(t, `[{"id": 1, "data": {"video": "v.mp4"}, "annotations": [{"id": 5, "result": [
		{"id": "t1", "type": "videorectangle", "from_name": "box", "to_name": "video",
		 "value": {"framesCount": 4, "duration": 0.4, "labels": ["Car"], "sequence": [
			{"frame": 1, "enabled": true, "x": 0, "y": 0, "width": 10, "height": 10, "time": 0},
			{"frame": 3, "enabled": true, "x": 20, "y": 0, "width": 10, "height": 10, "time": 0.2}
		 ]}}
	]}]}]`)

	c := newConverter(t)
	out := t.TempDir()
	require.NoError(t, c.Convert(context.Background(), config, tasks, export.FormatJSONMin, out, export.Options{Interpolate: true}))

	b, err := os.ReadFile(filepath.Join(out, "result.json"))
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(b, &records))
	require.Len(t, records, 1)
	box := records[0]["box"].([]any)[0].(map[string]any)
	seq := box["sequence"].([]any)
	require.Len(t, seq, 4)
	require.Equal(t, 10.0, seq[1].(map[string]any)["x"])
	require.Equal(t, true, seq[1].(map[string]any)["auto"])

	// The caller's tasks still hold the keyframes
	orig, _ := tasks[0].Annotations[0].Result[0].Value.Sequence()
	require.Len(t, orig, 2)
}

func TestConvertErrors(t *testing.T) {
	c := newConverter(t)
	ctx := context.Background()
	err := c.Convert(ctx, rectConfig, nil, export.Format("PASCAL_VOC"), t.TempDir(), export.Options{})
	require.Error(t, err)

	err = c.Convert(ctx, "<View><Image", nil, export.FormatCOCO, t.TempDir(), export.Options{})
	var pe *labelconfig.ConfigParseError
	require.True(t, errors.As(err, &pe))
}

func TestConvertFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.xml"), []byte(rectConfig), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.json"), []byte(rectTask), 0644))
	out := filepath.Join(dir, "out", "csv")
	c := newConverter(t)
	require.NoError(t, c.ConvertFiles(context.Background(), filepath.Join(dir, "config.xml"), filepath.Join(dir, "tasks.json"), export.FormatCSV, out, export.Options{}))
	_, err := os.Stat(filepath.Join(out, "result.csv"))
	require.NoError(t, err)
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	require.Len(t, r.List(), 11)
	enc, err := r.Get(export.FormatCOCO)
	require.NoError(t, err)
	require.Error(t, r.Register(enc))
}

func TestSupportedFormats(t *testing.T) {
	cfg, err := labelconfig.Parse(rectConfig, nil)
	require.NoError(t, err)
	formats := SupportedFormats(cfg)
	require.Contains(t, formats, export.FormatYOLOOBB)
	require.NotContains(t, formats, export.FormatYOLOKeypoints)

	cfg, err = labelconfig.Parse(keypointConfig, nil)
	require.NoError(t, err)
	require.Contains(t, SupportedFormats(cfg), export.FormatYOLOKeypoints)

	cfg, err = labelconfig.Parse(`<View><Text name="text" value="$text"/><Choices name="c" toName="text"><Choice value="a"/></Choices></View>`, nil)
	require.NoError(t, err)
	require.Equal(t, []export.Format{export.FormatJSONMin, export.FormatCSV, export.FormatTSV}, SupportedFormats(cfg))
}
