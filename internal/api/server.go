package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/resume-ranker/internal/engine"
	"github.com/knowledge-engine/resume-ranker/internal/fetcher"
	"github.com/knowledge-engine/resume-ranker/internal/intake"
	"github.com/knowledge-engine/resume-ranker/internal/search"
)

type Server struct {
	Screener  *engine.Screener
	Extractor *intake.Extractor
	Logger    *logrus.Entry
	Router    *http.ServeMux

	mu         sync.Mutex
	httpServer *http.Server
}

func NewServer(screener *engine.Screener, extractor *intake.Extractor, logger *logrus.Entry) *Server {
	s := &Server{
		Screener:  screener,
		Extractor: extractor,
		Logger:    logger,
		Router:    http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.HandleFunc("/api/v1/rank", s.handleRank)
	s.Router.HandleFunc("/api/v1/rank/upload", s.handleRankUpload)
	s.Router.HandleFunc("/api/v1/normalize", s.handleNormalize)
	s.Router.HandleFunc("/api/v1/status", s.handleStatus)
}

// Start serves until Shutdown is called
func (s *Server) Start(addr string) error {
	cfg := s.Screener.Config.Server
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.Router,
		ReadTimeout:  cfg.ReadTimeout.Std(),
		WriteTimeout: cfg.WriteTimeout.Std(),
	}
	s.mu.Lock()
	s.httpServer = httpServer
	s.mu.Unlock()

	s.Logger.Infof("Starting API Server on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()

	if httpServer == nil {
		return nil
	}
	return httpServer.Shutdown(ctx)
}

// Requests

type CandidateInput struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type RankRequest struct {
	JobDescription string           `json:"job_description"`
	JobURL         string           `json:"job_url"`
	Candidates     []CandidateInput `json:"candidates"`
	TopK           int              `json:"top_k"`
	MinScore       float64          `json:"min_score"`
}

type NormalizeRequest struct {
	Text string `json:"text"`
}

// Responses

type ErrorResponse struct {
	Error string `json:"error"`
}

type RankResponse struct {
	Total   int              `json:"total"`
	Results []RankResultView `json:"results"`
	Skipped []SkippedView    `json:"skipped,omitempty"`
}

type RankResultView struct {
	Rank    int     `json:"rank"`
	Index   int     `json:"index"`
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

type SkippedView struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type NormalizeResponse struct {
	Normalized string   `json:"normalized"`
	Tokens     []string `json:"tokens"`
}

type StatusResponse struct {
	RankingsServed   int64  `json:"rankings_served"`
	CandidatesScored int64  `json:"candidates_scored"`
	LastError        string `json:"last_error,omitempty"`
	Uptime           string `json:"uptime"`
}

// Handlers

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RankRequest
	body := http.MaxBytesReader(w, r.Body, s.Screener.Config.Server.MaxUploadBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
		return
	}

	candidates := make([]engine.Candidate, len(req.Candidates))
	for i, c := range req.Candidates {
		candidates[i] = engine.Candidate{Name: c.Name, Text: c.Text}
	}

	s.screen(w, r, engine.Request{
		JobDescription: req.JobDescription,
		JobURL:         req.JobURL,
		Candidates:     candidates,
		TopK:           req.TopK,
		MinScore:       req.MinScore,
	}, nil)
}

// handleRankUpload accepts a multipart form with a job_description (or
// job_url) field and one or more "resumes" files.
func (s *Server) handleRankUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	maxBytes := s.Screener.Config.Server.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid multipart form"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	var candidates []engine.Candidate
	var skipped []SkippedView
	for _, header := range r.MultipartForm.File["resumes"] {
		file, err := header.Open()
		if err != nil {
			jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
		doc, err := s.Extractor.Extract(header.Filename, header.Header.Get("Content-Type"), file)
		file.Close()
		if err != nil {
			if intake.IsExtractionError(err) {
				skipped = append(skipped, SkippedView{Name: header.Filename, Reason: err.Error()})
				continue
			}
			jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
		candidates = append(candidates, engine.Candidate{Name: doc.Name, Text: doc.Text})
	}

	if len(candidates) == 0 && len(skipped) > 0 {
		jsonResponse(w, http.StatusUnsupportedMediaType, RankResponse{Results: []RankResultView{}, Skipped: skipped})
		return
	}

	s.screen(w, r, engine.Request{
		JobDescription: r.FormValue("job_description"),
		JobURL:         r.FormValue("job_url"),
		Candidates:     candidates,
		TopK:           formInt(r, "top_k"),
	}, skipped)
}

func (s *Server) screen(w http.ResponseWriter, r *http.Request, req engine.Request, skipped []SkippedView) {
	res, err := s.Screener.Screen(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrEmptyJobDescription), errors.Is(err, engine.ErrNoCandidates):
			jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Please provide both a job description and at least one resume: " + err.Error()})
		case errors.Is(err, fetcher.ErrInvalidURL):
			jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case errors.Is(err, fetcher.ErrDisallowed), intake.IsExtractionError(err):
			jsonResponse(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		default:
			s.Logger.WithError(err).Error("Ranking failed")
			jsonResponse(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		}
		return
	}

	snippetLength := s.Screener.Config.Ranking.SnippetLength
	response := RankResponse{
		Total:   res.Total,
		Results: make([]RankResultView, len(res.Matches)),
		Skipped: skipped,
	}
	for i, m := range res.Matches {
		response.Results[i] = RankResultView{
			Rank:    m.Rank,
			Index:   m.Index,
			Name:    m.Name,
			Score:   m.Score,
			Snippet: snippet(m.Text, snippetLength),
		}
	}

	jsonResponse(w, http.StatusOK, response)
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req NormalizeRequest
	body := http.MaxBytesReader(w, r.Body, s.Screener.Config.Server.MaxUploadBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
		return
	}

	tokens := search.Tokens(req.Text)
	jsonResponse(w, http.StatusOK, NormalizeResponse{
		Normalized: search.Normalize(req.Text),
		Tokens:     tokens,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.Screener.Stats()

	jsonResponse(w, http.StatusOK, StatusResponse{
		RankingsServed:   stats.RankingsServed,
		CandidatesScored: stats.CandidatesScored,
		LastError:        stats.LastError,
		Uptime:           time.Since(stats.StartTime).Round(time.Second).String(),
	})
}

// snippet truncates text to n runes
func snippet(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

func formInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.FormValue(key))
	if err != nil {
		return 0
	}
	return n
}

func jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
