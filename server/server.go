// Package server is the HTTP conversion service. It stores imported tasks in
// a database, and converts them on request into any of the export formats.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/caddyserver/certmagic"
	"github.com/cyclopcam/labelconv/pkg/convert"
	"github.com/cyclopcam/labelconv/pkg/media"
	"github.com/cyclopcam/labelconv/pkg/storage"
	"github.com/cyclopcam/labelconv/pkg/taskstore"
	"github.com/cyclopcam/logs"
	"github.com/julienschmidt/httprouter"
)

type Server struct {
	Log   logs.Log
	Tasks *taskstore.TaskStore

	config     Config
	signalIn   chan os.Signal
	httpServer *http.Server
	httpRouter *httprouter.Router
	media      *media.FileResolver
	converter  *convert.Converter
	results    storage.Storage // nil if results are not kept
}

// NewServerFromFile loads the config file, and creates a server that logs to the default log
func NewServerFromFile(configFile string) (*Server, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	logger, err := logs.NewLog()
	if err != nil {
		return nil, err
	}
	return NewServer(logger, *cfg)
}

func NewServer(logger logs.Log, cfg Config) (*Server, error) {
	cfg.setDefaults()

	tasks, err := taskstore.Open(logger, cfg.DB)
	if err != nil {
		return nil, err
	}

	resolver, err := media.NewResolver(logger, media.Config{
		LocalFilesRoot: cfg.Media.LocalFilesRoot,
		UploadDir:      cfg.Media.UploadDir,
		CacheDir:       cfg.Media.CacheDir,
	})
	if err != nil {
		tasks.Close()
		return nil, err
	}

	registry, err := convert.NewRegistry()
	if err != nil {
		return nil, err
	}

	var results storage.Storage
	if cfg.Results != nil {
		if cfg.Results.GCS != nil {
			results, err = storage.NewStorageGCS(logger, cfg.Results.GCS.Bucket, cfg.Results.GCS.Public)
		} else if cfg.Results.Filesystem != nil {
			results, err = storage.NewStorageFS(logger, cfg.Results.Filesystem.Root)
		} else {
			err = fmt.Errorf("One of the results storage options must be configured (i.e. either 'filesystem' or 'gcs')")
		}
		if err != nil {
			tasks.Close()
			resolver.Close()
			return nil, err
		}
	}

	logger.Infof("Task database %v/%v, maximum import size %v", cfg.DB.Driver, cfg.DB.Database, cfg.MaxBody)
	if len(cfg.ApiKeys) == 0 {
		logger.Warnf("No API keys configured. The API is open to anybody who can reach it")
	}

	s := &Server{
		Log:       logger,
		Tasks:     tasks,
		config:    cfg,
		media:     resolver,
		converter: convert.NewConverter(logger, registry, resolver),
		results:   results,
	}
	s.setupHttpRoutes()
	return s, nil
}

// Handler returns the router, for use in tests or behind another server
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// port example: ":8080"
func (s *Server) ListenHTTP(port string) error {
	s.Log.Infof("Listening on %v", port)
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.httpRouter,
	}
	return s.httpServer.ListenAndServe()
}

// Listen serves HTTPS if the config asks for it, otherwise plain HTTP on port
func (s *Server) Listen(port string) error {
	if s.config.TLS != nil {
		return s.ListenHTTPS(*s.config.TLS)
	}
	return s.ListenHTTP(port)
}

// ListenHTTPS serves on :443 (and redirects :80), with certificates from Let's Encrypt
func (s *Server) ListenHTTPS(tls TLSConfig) error {
	if len(tls.Domains) == 0 {
		return fmt.Errorf("No TLS domains configured")
	}
	certDir := tls.CertDir
	if certDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		certDir = filepath.Join(home, ".local", "share", "certmagic")
	}
	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = tls.Email
	certmagic.Default.Storage = &certmagic.FileStorage{Path: certDir}
	s.Log.Infof("Listening with HTTPS for %v (certificates in %v)", tls.Domains, certDir)
	return certmagic.HTTPS(tls.Domains, s.httpRouter)
}

func (s *Server) ListenForKillSignals() {
	s.Log.Infof("ListenForKillSignals starting")
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-s.signalIn
		if ok {
			s.Log.Infof("Received OS signal '%v'. ListenForKillSignals will exit after shutdown", sig.String())
			s.Shutdown()
		} else {
			s.Log.Infof("signalIn closed. ListenForKillSignals will exit now")
		}
	}()
}

func (s *Server) Shutdown() {
	s.Log.Infof("Shutdown")
	if s.signalIn != nil {
		signal.Stop(s.signalIn)
		close(s.signalIn)
		s.signalIn = nil
	}
	if s.httpServer != nil {
		s.Log.Infof("Closing HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.Log.Warnf("HTTP server shutdown error: %v", err)
		}
	}
	s.Close()
	s.Log.Infof("Shutdown complete")
}

// Close releases the database and media resources, without touching the HTTP server
func (s *Server) Close() {
	s.media.Close()
	if err := s.Tasks.Close(); err != nil {
		s.Log.Warnf("Error closing task database: %v", err)
	}
}
