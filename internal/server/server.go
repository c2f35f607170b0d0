// Package server exposes the registry to the presentation layer as a small
// JSON API.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"civictrack/internal/database"
)

// Server is the HTTP server exposing registry statistics and projects.
type Server struct {
	db  *database.DB
	mux *http.ServeMux
}

// New creates a new Server.
func New(db *database.DB) *Server {
	s := &Server{db: db, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve runs the server on the given port until it fails.
func Serve(db *database.DB, port int) error {
	s := New(db)
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/api/projects", s.handleProjects)
	s.mux.HandleFunc("/api/runs", s.handleRuns)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		log.Printf("stats query failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"total_articles":       stats.TotalArticles,
		"processed_articles":   stats.ProcessedArticles,
		"unprocessed_articles": stats.UnprocessedArticles,
		"total_projects":       stats.TotalProjects,
		"projects_by_status":   stats.ProjectsByStatus,
	})
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	filters := &database.ProjectFilters{
		ProjectType: r.URL.Query().Get("type"),
		Status:      r.URL.Query().Get("status"),
	}

	projects, err := s.db.GetAllProjects(filters)
	if err != nil {
		log.Printf("projects query failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if projects == nil {
		projects = []database.ProjectView{}
	}

	writeJSON(w, projects)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.db.GetRecentRuns(20)
	if err != nil {
		log.Printf("runs query failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	type runView struct {
		ScraperName  string  `json:"scraper_name"`
		RunTimestamp *string `json:"run_timestamp"`
		SuccessCount int     `json:"success_count"`
		ErrorCount   int     `json:"error_count"`
	}
	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, runView{
			ScraperName:  run.ScraperName,
			RunTimestamp: run.RunTimestamp,
			SuccessCount: run.SuccessCount,
			ErrorCount:   run.ErrorCount,
		})
	}

	writeJSON(w, views)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}
