package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/ciridae/scopematch/internal/fileid"
	"github.com/ciridae/scopematch/internal/models"
	"github.com/ciridae/scopematch/internal/parse"
	"github.com/ciridae/scopematch/internal/storage"
)

// DocumentParser parses one PDF into a ParsedDocument.
type DocumentParser interface {
	ParseDocument(ctx context.Context, pdfPath, source string, progress parse.Progress) (*models.ParsedDocument, error)
}

// Comparer reconciles two parsed documents.
type Comparer interface {
	Compare(ctx context.Context, source, target *models.ParsedDocument) (*models.ComparisonResult, error)
}

// ReportWriter renders a comparison result to a file.
type ReportWriter interface {
	Write(path string, result *models.ComparisonResult) error
}

// Runner executes comparison jobs in the background.
type Runner struct {
	parser   DocumentParser
	comparer Comparer
	reports  ReportWriter
	store    *Store
	cache    storage.Storage
	logger   *zap.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithComparisonCache enables caching of comparison results keyed by the
// document pair's content hashes.
func WithComparisonCache(s storage.Storage) RunnerOption {
	return func(r *Runner) { r.cache = s }
}

// WithReportWriter enables report generation at the end of each job.
func WithReportWriter(w ReportWriter) RunnerOption {
	return func(r *Runner) { r.reports = w }
}

// WithLogger sets the runner's logger.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a job runner.
func NewRunner(parser DocumentParser, comparer Comparer, store *Store, opts ...RunnerOption) *Runner {
	r := &Runner{
		parser:   parser,
		comparer: comparer,
		store:    store,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the runner's job store.
func (r *Runner) Store() *Store {
	return r.store
}

// Job returns a snapshot of the job with the given ID.
func (r *Runner) Job(id string) (Job, bool) {
	return r.store.Get(id)
}

// JobCount returns the number of jobs the runner has accepted.
func (r *Runner) JobCount() int {
	return r.store.Count()
}

// Submit registers a job for the contractor/insurance pair and starts the
// pipeline in the background. The returned snapshot is the pending job.
func (r *Runner) Submit(sourcePath, targetPath string) Job {
	job := r.store.Create(sourcePath, targetPath)
	go r.run(job.ID, sourcePath, targetPath)
	return job
}

func (r *Runner) run(id, sourcePath, targetPath string) {
	ctx := context.Background()
	log := r.logger.With(zap.String("job_id", id))

	result, err := r.pipeline(ctx, id, sourcePath, targetPath, log)
	if err != nil {
		log.Error("job failed", zap.Error(err))
		r.store.fail(id, err)
		return
	}

	reportPath := ""
	if r.reports != nil {
		r.store.setStage(id, StatusReporting)
		reportPath = filepath.Join(filepath.Dir(sourcePath), "report.xlsx")
		if err := r.reports.Write(reportPath, result); err != nil {
			log.Error("report generation failed", zap.Error(err))
			r.store.fail(id, fmt.Errorf("write report: %w", err))
			return
		}
	}

	r.store.complete(id, result, reportPath)
	log.Info("job complete")
}

func (r *Runner) pipeline(ctx context.Context, id, sourcePath, targetPath string, log *zap.Logger) (*models.ComparisonResult, error) {
	r.store.setStage(id, StatusParsing)

	// Both documents parse in parallel; their per-page progress merges into
	// one combined counter.
	var (
		mu       sync.Mutex
		perDoc   = map[string][2]int{}
		progress = func(source string) parse.Progress {
			return func(done, total int) {
				mu.Lock()
				perDoc[source] = [2]int{done, total}
				step, totalSteps := 0, 0
				for _, p := range perDoc {
					step += p[0]
					totalSteps += p[1]
				}
				mu.Unlock()
				r.store.setProgress(id, step, totalSteps)
			}
		}
	)

	var (
		sourceDoc, targetDoc *models.ParsedDocument
		wg                   sync.WaitGroup
		errChan              = make(chan error, 2)
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		doc, err := r.parser.ParseDocument(ctx, sourcePath, models.SourceContractor, progress(models.SourceContractor))
		if err != nil {
			errChan <- fmt.Errorf("parse contractor document: %w", err)
			return
		}
		sourceDoc = doc
	}()
	go func() {
		defer wg.Done()
		doc, err := r.parser.ParseDocument(ctx, targetPath, models.SourceInsurance, progress(models.SourceInsurance))
		if err != nil {
			errChan <- fmt.Errorf("parse insurance document: %w", err)
			return
		}
		targetDoc = doc
	}()
	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	r.store.setStage(id, StatusMatching)

	pairHash := ""
	if r.cache != nil {
		sh, err1 := fileid.HashFile(sourcePath)
		th, err2 := fileid.HashFile(targetPath)
		if err1 == nil && err2 == nil {
			pairHash = fileid.PairHash(sh, th)
			if cached, err := r.cache.GetComparison(ctx, pairHash); err == nil {
				log.Info("comparison cache hit", zap.String("pair_hash", pairHash))
				r.store.setProgress(id, 1, 1)
				return cached, nil
			} else if !storage.IsNotFound(err) {
				log.Warn("comparison cache read failed", zap.Error(err))
			}
		}
	}

	result, err := r.comparer.Compare(ctx, sourceDoc, targetDoc)
	if err != nil {
		return nil, err
	}
	r.store.setProgress(id, 1, 1)

	if r.cache != nil && pairHash != "" {
		if err := r.cache.PutComparison(ctx, pairHash, result); err != nil {
			log.Warn("comparison cache write failed", zap.Error(err))
		}
	}
	return result, nil
}
