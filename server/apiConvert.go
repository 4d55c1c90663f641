package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/cyclopcam/labelconv/pkg/export"
	"github.com/cyclopcam/labelconv/pkg/labelconfig"
	"github.com/cyclopcam/labelconv/pkg/media"
	"github.com/cyclopcam/labelconv/pkg/storage"
	"github.com/cyclopcam/www"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

// httpConvert converts every task of a project. The request body is the labeling config.
// The response is a zip of the output directory.
func (s *Server) httpConvert(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	format := export.Format(params.ByName("format"))
	if !slices.Contains(s.converter.Formats(), format) {
		www.PanicBadRequestf("Unknown format '%v'", format)
	}
	project := projectParam(r)
	config := www.ReadString(w, r, 1024*1024)
	options := export.Options{
		Token:            s.config.Media.Token,
		Hostname:         s.config.Media.Hostname,
		SkipMissingMedia: www.QueryValue(r, "skipMissingMedia") == "1",
		Interpolate:      www.QueryValue(r, "interpolate") == "1",
	}

	tasks, err := s.Tasks.All(project)
	www.Check(err)

	id := uuid.New().String()
	workDir, err := os.MkdirTemp(s.config.ScratchDir, "labelconv-"+id+"-")
	www.Check(err)
	defer os.RemoveAll(workDir)
	outDir := filepath.Join(workDir, "out")

	start := time.Now()
	if err := s.converter.Convert(r.Context(), config, tasks, format, outDir, options); err != nil {
		if isClientError(err) {
			www.PanicBadRequestf("%v", err)
		}
		www.Check(err)
	}

	zipFile := filepath.Join(workDir, "result.zip")
	www.Check(ZipDir(outDir, zipFile))
	s.Log.Infof("Converted %v tasks of '%v' to %v in %.1f seconds (result %v)", len(tasks), project, format, time.Since(start).Seconds(), id)

	if s.results != nil {
		f, err := os.Open(zipFile)
		www.Check(err)
		err = storage.WriteFile(s.results, resultName(id), f)
		f.Close()
		www.Check(err)
		w.Header().Set("X-Result-Id", id)
	}

	f, err := os.Open(zipFile)
	www.Check(err)
	defer f.Close()
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%v-%v.zip"`, project, format))
	http.ServeContent(w, r, "", time.Time{}, f)
}

// httpGetResult returns a zip that was produced by an earlier conversion
func (s *Server) httpGetResult(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if s.results == nil {
		www.PanicNotFound()
	}
	id, err := uuid.Parse(params.ByName("id"))
	if err != nil {
		www.PanicBadRequestf("Invalid result id")
	}
	f, err := s.results.ReadFile(resultName(id.String()))
	if errors.Is(err, os.ErrNotExist) {
		www.PanicNotFound()
	}
	www.Check(err)
	defer f.Reader.Close()
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%v.zip"`, id))
	io.Copy(w, f.Reader)
}

func resultName(id string) string {
	return "results/" + id + ".zip"
}

// Errors that are caused by the request, rather than by the server
func isClientError(err error) bool {
	var parseErr *labelconfig.ConfigParseError
	var attrErr *labelconfig.MissingAttributeError
	var labelErr *export.UnknownLabelTypeError
	var orderErr *export.MissingKeypointOrderError
	var resolveErr *media.ResolveError
	return errors.As(err, &parseErr) ||
		errors.As(err, &attrErr) ||
		errors.As(err, &labelErr) ||
		errors.As(err, &orderErr) ||
		errors.As(err, &resolveErr)
}
