package server

import (
	"net/http"
	"time"

	"github.com/cyclopcam/labelconv/pkg/convert"
	"github.com/cyclopcam/labelconv/pkg/labelconfig"
	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
)

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	type pingJSON struct {
		Time int64 `json:"time"`
	}
	ping := &pingJSON{
		Time: time.Now().Unix(),
	}
	www.SendJSON(w, ping)
}

// All formats that the server can produce
func (s *Server) httpFormats(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, s.converter.Formats())
}

// The formats that make sense for the labeling config in the request body
func (s *Server) httpSupportedFormats(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	config := www.ReadString(w, r, 1024*1024)
	cfg, err := labelconfig.Parse(config, s.Log)
	if err != nil {
		www.PanicBadRequestf("%v", err)
	}
	www.SendJSON(w, convert.SupportedFormats(cfg))
}
