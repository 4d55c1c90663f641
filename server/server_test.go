package server

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/labelconv/pkg/pwdhash"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

const testKey = "unittestkey"

const testConfig = `
<View>
  <Image name="image" value="$image"/>
  <RectangleLabels name="label" toName="image">
    <Label value="cat"/>
  </RectangleLabels>
</View>`

const testTasks = `[{
  "id": 1,
  "data": {"image": "/data/upload/1/cat.jpg"},
  "annotations": [{"id": 1, "result": [{
    "id": "r1", "type": "rectanglelabels", "from_name": "label", "to_name": "image",
    "original_width": 400, "original_height": 200,
    "value": {"x": 25, "y": 25, "width": 50, "height": 50, "rectanglelabels": ["cat"]}
  }]}]
}]`

func createTestServer(t *testing.T) *Server {
	dir := t.TempDir()
	cfg := Config{
		DB:         dbh.MakeSqliteConfig(filepath.Join(dir, "tasks.sqlite")),
		Media:      MediaConfig{CacheDir: filepath.Join(dir, "cache")},
		Results:    &StorageConfig{Filesystem: &StorageConfigFS{Root: filepath.Join(dir, "results")}},
		ScratchDir: dir,
		ApiKeys:    []string{pwdhash.Hash(testKey)},
	}
	s, err := NewServer(logs.NewTestingLog(t), cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func doRequest(t *testing.T, s *Server, method, url, body string, auth bool) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, url, strings.NewReader(body))
	if auth {
		r.Header.Set("Authorization", "ApiKey "+testKey)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	return w
}

func TestAuth(t *testing.T) {
	s := createTestServer(t)
	require.Equal(t, http.StatusOK, doRequest(t, s, "GET", "/api/ping", "", false).Code)
	require.Equal(t, http.StatusUnauthorized, doRequest(t, s, "GET", "/api/formats", "", false).Code)

	w := doRequest(t, s, "GET", "/api/formats", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	formats := []string{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &formats))
	require.Contains(t, formats, "COCO")
	require.Contains(t, formats, "YOLO_OBB")
}

func TestSupportedFormats(t *testing.T) {
	s := createTestServer(t)
	w := doRequest(t, s, "POST", "/api/formats", testConfig, true)
	require.Equal(t, http.StatusOK, w.Code)
	formats := []string{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &formats))
	require.Contains(t, formats, "YOLO")
	require.NotContains(t, formats, "YOLO_KEYPOINTS")

	require.Equal(t, http.StatusBadRequest, doRequest(t, s, "POST", "/api/formats", "<View", true).Code)
}

func TestImportAndConvert(t *testing.T) {
	s := createTestServer(t)

	w := doRequest(t, s, "POST", "/api/tasks?project=cats", testTasks, true)
	require.Equal(t, http.StatusOK, w.Code)
	count := countJSON{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &count))
	require.EqualValues(t, 1, count.Count)

	w = doRequest(t, s, "GET", "/api/tasks/count?project=cats", "", true)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &count))
	require.EqualValues(t, 1, count.Count)
	w = doRequest(t, s, "GET", "/api/tasks/count", "", true)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &count))
	require.EqualValues(t, 0, count.Count)

	w = doRequest(t, s, "POST", "/api/convert/COCO?project=cats", testConfig, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	body := w.Body.Bytes()

	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	require.Equal(t, "result.json", zr.File[0].Name)
	f, err := zr.File[0].Open()
	require.NoError(t, err)
	doc := map[string]any{}
	require.NoError(t, json.NewDecoder(f).Decode(&doc))
	f.Close()
	anns := doc["annotations"].([]any)
	require.Len(t, anns, 1)
	require.Equal(t, []any{100.0, 50.0, 200.0, 100.0}, anns[0].(map[string]any)["bbox"])

	// The same zip can be fetched again by its id
	id := w.Header().Get("X-Result-Id")
	require.NotEmpty(t, id)
	w = doRequest(t, s, "GET", "/api/results/"+id, "", true)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, body, w.Body.Bytes())
	require.Equal(t, http.StatusNotFound, doRequest(t, s, "GET", "/api/results/00000000-0000-0000-0000-000000000000", "", true).Code)

	// Scratch directories are cleaned up
	entries, err := os.ReadDir(s.config.ScratchDir)
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.HasPrefix(e.Name(), "labelconv-"), e.Name())
	}

	require.Equal(t, http.StatusOK, doRequest(t, s, "DELETE", "/api/tasks?project=cats", "", true).Code)
	w = doRequest(t, s, "GET", "/api/tasks/count?project=cats", "", true)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &count))
	require.EqualValues(t, 0, count.Count)
}

func TestConvertErrors(t *testing.T) {
	s := createTestServer(t)
	require.Equal(t, http.StatusBadRequest, doRequest(t, s, "POST", "/api/convert/NOPE", testConfig, true).Code)
	require.Equal(t, http.StatusBadRequest, doRequest(t, s, "POST", "/api/convert/COCO", `<View><Image name="image"/></View>`, true).Code)
	require.Equal(t, http.StatusBadRequest, doRequest(t, s, "POST", "/api/tasks", "{not json", true).Code)
	require.Equal(t, http.StatusBadRequest, doRequest(t, s, "GET", "/api/tasks/count?project=a%20b", "", true).Code)
}

func TestZipDir(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "labels"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "labels", "a.txt"), []byte("0 0.5 0.5 1 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "classes.txt"), []byte("cat\n"), 0644))
	dst := filepath.Join(t.TempDir(), "out.zip")
	require.NoError(t, ZipDir(src, dst))

	zr, err := zip.OpenReader(dst)
	require.NoError(t, err)
	defer zr.Close()
	names := []string{}
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	require.Equal(t, []string{"classes.txt", "labels/a.txt"}, names)
	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	rc.Close()
	require.Equal(t, "0 0.5 0.5 1 1\n", string(b))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	yamlFile := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte("media:\n  hostname: http://ls:8080\nrateLimit: 5\n"), 0644))
	cfg, err := LoadConfig(yamlFile)
	require.NoError(t, err)
	require.Equal(t, "http://ls:8080", cfg.Media.Hostname)
	require.Equal(t, 5, cfg.RateLimit)
	require.Equal(t, dbh.DriverSqlite, cfg.DB.Driver)

	jsonFile := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(jsonFile, []byte(`{"media": {"uploadDir": "/uploads"}}`), 0644))
	cfg, err = LoadConfig(jsonFile)
	require.NoError(t, err)
	require.Equal(t, "/uploads", cfg.Media.UploadDir)
	require.EqualValues(t, defaultRateLimit, cfg.RateLimit)
}

func TestLoadConfigSizes(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"maxBody": "16 MB"}`), 0644))
	cfg, err := LoadConfig(file)
	require.NoError(t, err)
	require.EqualValues(t, 16*1024*1024, cfg.MaxBody)
}
