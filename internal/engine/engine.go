package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/resume-ranker/internal/config"
	"github.com/knowledge-engine/resume-ranker/internal/intake"
	"github.com/knowledge-engine/resume-ranker/internal/search"
)

var (
	ErrEmptyJobDescription = errors.New("a job description is required")
	ErrNoCandidates        = errors.New("at least one resume is required")
)

// PostingFetcher resolves a job posting URL into text
type PostingFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*intake.Document, error)
}

// Candidate is one resume to rank
type Candidate struct {
	Name string
	Text string
}

// Request describes one screening run. JobDescription wins over JobURL when
// both are set.
type Request struct {
	JobDescription string
	JobURL         string
	Candidates     []Candidate
	TopK           int     // 0 uses the configured default, which may be unlimited
	MinScore       float64 // results below this score are dropped
}

// Match is a ranked candidate
type Match struct {
	Rank  int // 1-based position
	Index int // position in Request.Candidates
	Name  string
	Text  string
	Score float64
}

// Result is the outcome of a screening run
type Result struct {
	JobDescription string
	Matches        []Match
	Total          int // candidates scored before TopK and MinScore
}

// Screener orchestrates fetching, ranking and result shaping
type Screener struct {
	Config  *config.Config
	Logger  *logrus.Entry
	Fetcher PostingFetcher
	Ranker  *search.Ranker

	mu    sync.RWMutex
	stats Stats
}

// Stats holds screening counters since startup
type Stats struct {
	RankingsServed   int64
	CandidatesScored int64
	LastError        string
	StartTime        time.Time
}

func NewScreener(cfg *config.Config, logger *logrus.Entry, fetcher PostingFetcher) *Screener {
	if logger == nil {
		logger = logrus.WithField("component", "screener")
	}

	return &Screener{
		Config:  cfg,
		Logger:  logger,
		Fetcher: fetcher,
		Ranker:  search.NewRanker(search.WithMinTokenLength(cfg.Ranking.MinTokenLength)),
		stats: Stats{
			StartTime: time.Now(),
		},
	}
}

// Screen ranks the request's candidates against its job description
func (s *Screener) Screen(ctx context.Context, req Request) (*Result, error) {
	jobDescription, err := s.resolveJobDescription(ctx, req)
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	if len(req.Candidates) == 0 {
		s.recordError(ErrNoCandidates)
		return nil, ErrNoCandidates
	}

	texts := make([]string, len(req.Candidates))
	for i, c := range req.Candidates {
		texts[i] = c.Text
	}

	start := time.Now()
	ranked := s.Ranker.Rank(jobDescription, texts)

	topK := req.TopK
	if topK <= 0 {
		topK = s.Config.Ranking.DefaultTopK
	}

	matches := make([]Match, 0, len(ranked))
	for _, r := range ranked {
		if r.Score < req.MinScore {
			// sorted descending, nothing after this can pass
			break
		}
		if topK > 0 && len(matches) >= topK {
			break
		}
		name := req.Candidates[r.Index].Name
		if name == "" {
			name = fmt.Sprintf("Resume %d", r.Index+1)
		}
		matches = append(matches, Match{
			Rank:  len(matches) + 1,
			Index: r.Index,
			Name:  name,
			Text:  r.Text,
			Score: r.Score,
		})
	}

	s.mu.Lock()
	s.stats.RankingsServed++
	s.stats.CandidatesScored += int64(len(ranked))
	s.mu.Unlock()

	s.Logger.WithFields(logrus.Fields{
		"candidates": len(ranked),
		"returned":   len(matches),
		"elapsed":    time.Since(start).String(),
	}).Info("Ranked resumes")

	return &Result{
		JobDescription: jobDescription,
		Matches:        matches,
		Total:          len(ranked),
	}, nil
}

func (s *Screener) resolveJobDescription(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.JobDescription) != "" {
		return req.JobDescription, nil
	}
	if req.JobURL == "" {
		return "", ErrEmptyJobDescription
	}
	if s.Fetcher == nil {
		return "", fmt.Errorf("job posting fetch is not configured: %w", ErrEmptyJobDescription)
	}

	doc, err := s.Fetcher.Fetch(ctx, req.JobURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch job posting: %w", err)
	}
	if strings.TrimSpace(doc.Text) == "" {
		return "", fmt.Errorf("job posting %s has no text: %w", req.JobURL, ErrEmptyJobDescription)
	}
	return doc.Text, nil
}

func (s *Screener) recordError(err error) {
	s.mu.Lock()
	s.stats.LastError = err.Error()
	s.mu.Unlock()
	s.Logger.WithError(err).Debug("Screening rejected")
}

// Stats returns a snapshot of the counters
func (s *Screener) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
