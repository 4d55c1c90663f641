package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/labelconv/pkg/labelconfig"
	"github.com/cyclopcam/labelconv/pkg/media"
	"github.com/cyclopcam/labelconv/pkg/task"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

type nopEncoder struct {
	name Format
}

func (e *nopEncoder) Name() Format { return e.name }

func (e *nopEncoder) Encode(ctx context.Context, run *Run, tasks []task.Task, outDir string) error {
	return nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&nopEncoder{FormatCSV}))
	require.NoError(t, r.Register(&nopEncoder{FormatCOCO}))
	require.Error(t, r.Register(&nopEncoder{FormatCSV}))
	require.Error(t, r.Register(&nopEncoder{""}))
	require.Error(t, r.Register(nil))
	require.Panics(t, func() { r.MustRegister(&nopEncoder{FormatCOCO}) })

	require.Equal(t, []Format{FormatCOCO, FormatCSV}, r.List())
	require.True(t, r.Has(FormatCSV))
	require.False(t, r.Has(FormatYOLO))
	enc, err := r.Get(FormatCOCO)
	require.NoError(t, err)
	require.Equal(t, FormatCOCO, enc.Name())
	_, err = r.Get("NOPE")
	require.Error(t, err)
}

func TestFormatFloat(t *testing.T) {
	require.Equal(t, "0.35", FormatFloat(0.1+0.25))
	require.Equal(t, "1", FormatFloat(1))
	require.Equal(t, "0.2", FormatFloat(0.1+0.2/2))
}

const twoImageConfig = `
<View>
  <Image name="front" value="$front"/>
  <Image name="back" value="$back"/>
  <RectangleLabels name="box" toName="back">
    <Label value="cat"/>
  </RectangleLabels>
</View>`

func newTestRun(t *testing.T, resolver media.Resolver, options Options) *Run {
	log := logs.NewTestingLog(t)
	cfg, err := labelconfig.Parse(twoImageConfig, log)
	require.NoError(t, err)
	return NewRun(log, cfg, resolver, options)
}

func TestDataKey(t *testing.T) {
	run := newTestRun(t, nil, Options{})
	require.Equal(t, "back", run.DataKey(&task.ResultItem{FromName: "box", ToName: "back"}))
	// Unknown control falls back to the first image
	require.Equal(t, "front", run.DataKey(&task.ResultItem{FromName: "nope"}))

	tk := task.Task{ID: 1, Annotations: []task.Annotation{
		{Result: []task.ResultItem{{FromName: "box", ToName: "back"}}},
	}}
	require.Equal(t, "back", run.ImageKey(&tk))
	require.Equal(t, "front", run.ImageKey(&task.Task{ID: 2}))

	require.Equal(t, filepath.Join("out", "images"), run.ImageDir("out"))
	run.Options.ImageDir = "elsewhere"
	require.Equal(t, "elsewhere", run.ImageDir("out"))
}

func TestMediaWithoutResolver(t *testing.T) {
	run := newTestRun(t, nil, Options{})
	tk := task.Task{ID: 3, Data: map[string]any{"front": "x.jpg"}}
	_, _, err := run.ImageSize(context.Background(), &tk, "front")
	require.ErrorIs(t, err, ErrNoMediaResolver)
	var re *media.ResolveError
	require.True(t, errors.As(err, &re))

	// Only resolution errors are skipped, and only when asked to
	require.Error(t, run.MediaError(&tk, err))
	run.Options.SkipMissingMedia = true
	require.NoError(t, run.MediaError(&tk, err))
	require.Error(t, run.MediaError(&tk, errors.New("disk full")))
}

func TestImageSizePrefersResult(t *testing.T) {
	run := newTestRun(t, nil, Options{})
	tk := task.Task{ID: 1, Annotations: []task.Annotation{
		{Result: []task.ResultItem{{OriginalWidth: 64, OriginalHeight: 48}}},
	}}
	w, h, err := run.ImageSize(context.Background(), &tk, "front")
	require.NoError(t, err)
	require.Equal(t, []int{64, 48}, []int{w, h})
}

func TestCopyImage(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "cat.jpg"), []byte("jpeg"), 0644))
	resolver, err := media.NewResolver(logs.NewTestingLog(t), media.Config{LocalFilesRoot: root, CacheDir: t.TempDir()})
	require.NoError(t, err)
	defer resolver.Close()

	run := newTestRun(t, resolver, Options{})
	tk := task.Task{ID: 1, Data: map[string]any{"front": "cat.jpg"}}
	imageDir := filepath.Join(t.TempDir(), "images")
	require.NoError(t, run.CopyImage(context.Background(), &tk, "front", imageDir, "copy.jpg"))
	b, err := os.ReadFile(filepath.Join(imageDir, "copy.jpg"))
	require.NoError(t, err)
	require.Equal(t, "jpeg", string(b))
}

func TestUniqueFilenames(t *testing.T) {
	u := UniqueFilenames{}
	a := task.Task{ID: 1, Data: map[string]any{"image": "/data/upload/a/cat.jpg"}}
	b := task.Task{ID: 2, Data: map[string]any{"image": "/data/upload/b/cat.jpg"}}
	require.Equal(t, "cat.jpg", u.Name(&a, "image"))
	require.Equal(t, "2-cat.jpg", u.Name(&b, "image"))
}

func TestRegionLabels(t *testing.T) {
	cfg, err := labelconfig.Parse(`<View>
  <Image name="image" value="$image"/>
  <RectangleLabels name="box" toName="image"><Label value="cat"/></RectangleLabels>
  <KeyPointLabels name="kp" toName="image"><Label value="nose"/></KeyPointLabels>
  <BrushLabels name="brush" toName="image"><Label value="sky"/></BrushLabels>
  <Choices name="quality" toName="image"><Choice value="good"/></Choices>
</View>`, nil)
	require.NoError(t, err)
	run := NewRun(logs.NewTestingLog(t), cfg, nil, Options{})
	tk := &task.Task{ID: 1}

	item := func(typ, from string, value map[string]any) *task.ResultItem {
		return &task.ResultItem{Type: typ, FromName: from, Value: task.NewValue(value)}
	}

	labels, shape, err := run.RegionLabels(run.Log, tk, item("rectanglelabels", "box", map[string]any{"x": 1, "y": 2, "width": 3, "height": 4, "rectanglelabels": []string{"cat"}}))
	require.NoError(t, err)
	require.Equal(t, ShapeRect, shape)
	require.Equal(t, []string{"cat"}, labels)

	labels, shape, err = run.RegionLabels(run.Log, tk, item("keypointlabels", "kp", map[string]any{"x": 1, "y": 2, "keypointlabels": []string{"nose"}}))
	require.NoError(t, err)
	require.Equal(t, ShapeKeypoint, shape)
	require.Equal(t, []string{"nose"}, labels)

	// No labels is a skip, not an error
	labels, _, err = run.RegionLabels(run.Log, tk, item("rectanglelabels", "box", map[string]any{"x": 1, "y": 2, "width": 3, "height": 4}))
	require.NoError(t, err)
	require.Nil(t, labels)

	// Classification controls, and controls that aren't in the config, are ignored
	labels, _, err = run.RegionLabels(run.Log, tk, item("choices", "quality", map[string]any{"choices": []string{"good"}}))
	require.NoError(t, err)
	require.Nil(t, labels)
	labels, _, err = run.RegionLabels(run.Log, tk, item("rectanglelabels", "nope", map[string]any{"x": 1, "rectanglelabels": []string{"cat"}}))
	require.NoError(t, err)
	require.Nil(t, labels)

	// Brush strokes have no geometry that we can encode, with or without labels
	var unknown *UnknownLabelTypeError
	_, _, err = run.RegionLabels(run.Log, tk, item("brushlabels", "brush", map[string]any{"rle": []int{1, 2}, "brushlabels": []string{"sky"}}))
	require.ErrorAs(t, err, &unknown)
	_, _, err = run.RegionLabels(run.Log, tk, item("brushlabels", "brush", map[string]any{"rle": []int{1, 2}}))
	require.ErrorAs(t, err, &unknown)
}
