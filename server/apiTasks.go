package server

import (
	"net/http"
	"regexp"

	"github.com/cyclopcam/labelconv/pkg/task"
	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
)

const defaultProject = "default"

var validProject = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,100}$`)

// projectParam reads the 'project' query parameter, which defaults to "default"
func projectParam(r *http.Request) string {
	project := www.QueryValue(r, "project")
	if project == "" {
		return defaultProject
	}
	if !validProject.MatchString(project) {
		www.PanicBadRequestf("Invalid project name '%v'", project)
	}
	return project
}

type countJSON struct {
	Project string `json:"project"`
	Count   int64  `json:"count"`
}

func (s *Server) httpImportTasks(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	project := projectParam(r)
	body := www.ReadLimited(w, r, int64(s.config.MaxBody))
	tasks, err := task.Parse(body)
	if err != nil {
		www.PanicBadRequestf("%v", err)
	}
	n, err := s.Tasks.Import(project, tasks)
	www.Check(err)
	www.SendJSON(w, &countJSON{
		Project: project,
		Count:   int64(n),
	})
}

func (s *Server) httpListTasks(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	tasks, err := s.Tasks.All(projectParam(r))
	www.Check(err)
	www.SendJSON(w, tasks)
}

func (s *Server) httpCountTasks(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	project := projectParam(r)
	n, err := s.Tasks.Count(project)
	www.Check(err)
	www.SendJSON(w, &countJSON{
		Project: project,
		Count:   n,
	})
}

func (s *Server) httpDeleteTasks(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.Check(s.Tasks.DeleteProject(projectParam(r)))
	www.SendOK(w)
}

func (s *Server) httpProjects(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	projects, err := s.Tasks.Projects()
	www.Check(err)
	www.SendJSON(w, projects)
}
