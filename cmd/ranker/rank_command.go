package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/knowledge-engine/resume-ranker/internal/engine"
	"github.com/knowledge-engine/resume-ranker/internal/fetcher"
	"github.com/knowledge-engine/resume-ranker/internal/intake"
)

type rankOptions struct {
	jobFile  string
	jobText  string
	jobURL   string
	dir      string
	top      int
	minScore float64
	json     bool
}

type rankOutput struct {
	Total   int          `json:"total"`
	Results []rankedView `json:"results"`
	Skipped []string     `json:"skipped,omitempty"`
}

type rankedView struct {
	Rank  int     `json:"rank"`
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func newRankCommand(ctx *commandContext) *cobra.Command {
	var opts rankOptions

	cmd := &cobra.Command{
		Use:   "rank [resume files...]",
		Short: "Rank resume files by similarity to a job description",
		Example: `  ranker rank --job job.txt alice.txt bob.html
  ranker rank --job-url https://example.com/careers/42 --dir ./resumes --top 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger(cfg, cmd.ErrOrStderr())
			extractor := intake.NewExtractor(cfg.Intake.MaxFileBytes)

			jobDescription, err := readJobDescription(opts, extractor)
			if err != nil {
				return err
			}

			candidates, skipped, err := loadCandidates(args, opts.dir, extractor, logger)
			if err != nil {
				return err
			}

			var postings engine.PostingFetcher
			if opts.jobURL != "" {
				postings = fetcher.NewFetcher(cfg.Fetcher, extractor, logger.WithField("component", "fetcher"))
			}
			screener := engine.NewScreener(cfg, logger.WithField("component", "screener"), postings)

			res, err := screener.Screen(cmd.Context(), engine.Request{
				JobDescription: jobDescription,
				JobURL:         opts.jobURL,
				Candidates:     candidates,
				TopK:           opts.top,
				MinScore:       opts.minScore,
			})
			if err != nil {
				if errors.Is(err, engine.ErrNoCandidates) && len(skipped) > 0 {
					return fmt.Errorf("%w: all %d files were skipped", err, len(skipped))
				}
				return err
			}

			out := rankOutput{
				Total:   res.Total,
				Results: make([]rankedView, len(res.Matches)),
				Skipped: skipped,
			}
			for i, m := range res.Matches {
				out.Results[i] = rankedView{Rank: m.Rank, Index: m.Index, Name: m.Name, Score: m.Score}
			}

			if opts.json {
				return writeJSON(cmd, out)
			}
			printRanking(cmd, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.jobFile, "job", "j", "", "File holding the job description")
	cmd.Flags().StringVar(&opts.jobText, "job-text", "", "Job description text")
	cmd.Flags().StringVar(&opts.jobURL, "job-url", "", "URL of a job posting to fetch")
	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "Directory of resumes to rank")
	cmd.Flags().IntVarP(&opts.top, "top", "n", 0, "Show only the best N resumes")
	cmd.Flags().Float64Var(&opts.minScore, "min-score", 0, "Hide resumes scoring below this value")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output as JSON")
	cmd.MarkFlagsMutuallyExclusive("job", "job-text")

	return cmd
}

func readJobDescription(opts rankOptions, extractor *intake.Extractor) (string, error) {
	switch {
	case opts.jobText != "":
		return opts.jobText, nil
	case opts.jobFile != "":
		doc, err := extractor.ExtractFile(opts.jobFile)
		if err != nil {
			return "", fmt.Errorf("read job description: %w", err)
		}
		return doc.Text, nil
	case opts.jobURL != "":
		// fetched by the screener
		return "", nil
	}
	return "", errors.New("one of --job, --job-text or --job-url is required")
}

// loadCandidates reads the explicit files first, then the directory. Files
// that cannot be converted to text are returned as skipped.
func loadCandidates(files []string, dir string, extractor *intake.Extractor, logger *logrus.Entry) ([]engine.Candidate, []string, error) {
	var candidates []engine.Candidate
	var skipped []string

	for _, path := range files {
		doc, err := extractor.ExtractFile(path)
		if err != nil {
			if intake.IsExtractionError(err) {
				logger.WithError(err).WithField("file", path).Warn("Skipping unreadable resume")
				skipped = append(skipped, path)
				continue
			}
			return nil, nil, err
		}
		candidates = append(candidates, engine.Candidate{Name: path, Text: doc.Text})
	}

	if dir != "" {
		source, err := intake.NewDirSource(dir, extractor, logger)
		if err != nil {
			return nil, nil, err
		}
		docs, err := source.LoadAll()
		if err != nil {
			return nil, nil, err
		}
		for _, doc := range docs {
			candidates = append(candidates, engine.Candidate{Name: doc.Name, Text: doc.Text})
		}
	}

	return candidates, skipped, nil
}

func printRanking(cmd *cobra.Command, out rankOutput) {
	w := cmd.OutOrStdout()
	if len(out.Results) == 0 {
		fmt.Fprintln(w, "No resumes matched")
		return
	}

	rows := make([][]string, len(out.Results))
	for i, r := range out.Results {
		rows[i] = []string{fmt.Sprintf("%d", r.Rank), fmt.Sprintf("%.4f", r.Score), r.Name}
	}
	footer := fmt.Sprintf("%d of %d resumes", len(out.Results), out.Total)
	fmt.Fprintln(w, renderTable([]string{"Rank", "Score", "Resume"}, rows, []columnAlignment{alignRight, alignRight, alignLeft}, footer))

	if len(out.Skipped) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Skipped: %s\n", strings.Join(out.Skipped, ", "))
	}
}
