package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/cyclopcam/labelconv/pkg/pwdhash"
	"github.com/cyclopcam/www"
	"github.com/go-chi/httprate"
	"github.com/julienschmidt/httprouter"
)

func (s *Server) setupHttpRoutes() {
	logEveryRequest := false
	router := httprouter.New()

	// protected creates an HTTP handler that is accessible only with an API key
	protected := func(method, route string, handle httprouter.Handle) {
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			if logEveryRequest {
				s.Log.Infof("HTTP (protected) %v %v", method, r.URL.Path)
			}
			s.authenticate(r)
			handle(w, r, params)
		})
	}

	// limited is protected, and also rate limited per client IP.
	// Each route gets its own limiter, so we don't need httprate.KeyByEndpoint.
	limited := func(method, route string, handle httprouter.Handle, requestLimit int, windowLength time.Duration) {
		limiter := httprate.Limit(requestLimit, windowLength, httprate.WithKeyFuncs(httprate.KeyByIP))
		protected(method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			limiter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handle(w, r, params)
			})).ServeHTTP(w, r)
		})
	}

	// unprotected creates an HTTP handler that is accessible without authentication
	unprotected := func(method, route string, handle httprouter.Handle) {
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			if logEveryRequest {
				s.Log.Infof("HTTP (unprotected) %v %v", method, r.URL.Path)
			}
			handle(w, r, params)
		})
	}

	unprotected("GET", "/api/ping", s.httpPing)
	protected("GET", "/api/formats", s.httpFormats)
	protected("POST", "/api/formats", s.httpSupportedFormats)

	protected("GET", "/api/projects", s.httpProjects)
	protected("POST", "/api/tasks", s.httpImportTasks)
	protected("GET", "/api/tasks", s.httpListTasks)
	protected("GET", "/api/tasks/count", s.httpCountTasks)
	protected("DELETE", "/api/tasks", s.httpDeleteTasks)

	limited("POST", "/api/convert/:format", s.httpConvert, s.config.RateLimit, time.Minute)
	protected("GET", "/api/results/:id", s.httpGetResult)

	s.httpRouter = router
}

// authenticate panics with 401 unless the request carries a valid API key.
// The key is sent as "Authorization: ApiKey <key>".
func (s *Server) authenticate(r *http.Request) {
	if len(s.config.ApiKeys) == 0 {
		return
	}
	key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "ApiKey ")
	if !ok || !pwdhash.VerifyAny(strings.TrimSpace(key), s.config.ApiKeys) {
		www.PanicUnauthorized()
	}
}
