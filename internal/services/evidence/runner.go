package evidence

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/async"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/ingest"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/pipeline"
)

// Runner feeds manifest jobs through a processor queue and records each
// outcome. At most one run per objective is in flight; changes arriving during
// a run schedule exactly one rerun.
type Runner struct {
	ctx        context.Context
	svc        *Service
	queue      async.Queue
	hospitalID string
	logger     *slog.Logger
	report     func(Report)

	mu       sync.Mutex
	wg       sync.WaitGroup
	intakes  map[uuid.UUID]*Intake
	inflight map[string]bool
	dirty    map[string]bool
	jobs     []JobSpec
}

// NewRunner starts a processor queue for proc. report is called once per
// finished run, from a worker goroutine.
func NewRunner(ctx context.Context, svc *Service, proc async.Processor, m *Manifest, report func(Report), logger *slog.Logger, opts ...async.Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if report == nil {
		report = func(Report) {}
	}
	r := &Runner{
		ctx:        ctx,
		svc:        svc,
		hospitalID: m.HospitalID,
		logger:     logger,
		report:     report,
		intakes:    make(map[uuid.UUID]*Intake),
		inflight:   make(map[string]bool),
		dirty:      make(map[string]bool),
		jobs:       m.Jobs,
	}
	r.queue = async.NewProcessorQueue(proc, logger, append(opts, async.WithOnDone(r.done))...)
	return r
}

func key(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

// Run schedules a job unless one for the same objective is already running,
// in which case a rerun is queued behind it.
func (r *Runner) Run(job JobSpec) {
	if r.claim(job.ObjectiveCode) {
		r.submit(job)
	}
}

// Wait blocks until every scheduled run, reruns included, has been recorded.
func (r *Runner) Wait() { r.wg.Wait() }

// Shutdown stops the queue after in-flight jobs drain.
func (r *Runner) Shutdown(ctx context.Context) error {
	return r.queue.Shutdown(ctx)
}

func (r *Runner) claim(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inflight[key(code)] {
		r.dirty[key(code)] = true
		return false
	}
	r.inflight[key(code)] = true
	r.wg.Add(1)
	return true
}

// release ends a run. It reports true, keeping the claim, when a rerun is due.
func (r *Runner) release(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dirty[key(code)] && r.ctx.Err() == nil {
		delete(r.dirty, key(code))
		return true
	}
	delete(r.dirty, key(code))
	delete(r.inflight, key(code))
	r.wg.Done()
	return false
}

func (r *Runner) submit(job JobSpec) {
	in, err := r.svc.BuildRequest(r.ctx, job)
	if err == nil {
		err = r.svc.Begin(r.ctx, in)
	}
	if err == nil {
		id := uuid.New()
		r.mu.Lock()
		r.intakes[id] = in
		r.mu.Unlock()
		if err = r.queue.Enqueue(r.ctx, async.Job{ID: id, Request: in.Request}); err == nil {
			return
		}
		r.mu.Lock()
		delete(r.intakes, id)
		r.mu.Unlock()
		if _, recErr := r.svc.Record(context.WithoutCancel(r.ctx), r.hospitalID, in, pipeline.Result{}, err); recErr != nil && !errors.Is(recErr, err) {
			r.logger.Error("evidence.job.record_failed", "objective", job.ObjectiveCode, "error", recErr)
		}
	}
	r.logger.Error("evidence.job.not_started", "objective", job.ObjectiveCode, "error", err)
	r.report(NewReport(in, pipeline.Result{}, nil, err))
	if r.release(job.ObjectiveCode) {
		go r.submit(job)
	}
}

func (r *Runner) done(o async.Outcome) {
	r.mu.Lock()
	in := r.intakes[o.Job.ID]
	delete(r.intakes, o.Job.ID)
	r.mu.Unlock()
	if in == nil {
		r.logger.Warn("evidence.job.unknown", "job_id", o.Job.ID)
		return
	}

	saved, err := r.svc.Record(context.WithoutCancel(r.ctx), r.hospitalID, in, o.Result, o.Err)
	r.report(NewReport(in, o.Result, saved, err))
	if r.release(in.Job.ObjectiveCode) {
		go r.submit(in.Job)
	}
}

// Changed reruns every job whose upload_dir contains path.
func (r *Runner) Changed(path string) {
	for _, j := range r.jobs {
		if j.UploadDir == "" {
			continue
		}
		rel, err := filepath.Rel(j.UploadDir, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		r.logger.Info("evidence.watch.rerun", "objective", j.ObjectiveCode, "path", path)
		r.Run(j)
	}
}

// UploadDirs lists the directories the manifest's jobs draw from.
func (r *Runner) UploadDirs() []string {
	var out []string
	for _, j := range r.jobs {
		if j.UploadDir != "" {
			out = append(out, j.UploadDir)
		}
	}
	return out
}

// Watch reruns jobs as files land in their upload directories until ctx ends.
func (r *Runner) Watch(ctx context.Context, debounce time.Duration) error {
	events, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
		Roots:      r.UploadDirs(),
		Debounce:   debounce,
		SkipHidden: true,
	}, r.logger)
	if err != nil {
		return err
	}
	r.logger.Info("evidence.watch.start", "roots", len(r.UploadDirs()))

	for {
		select {
		case path, ok := <-events:
			if !ok {
				return nil
			}
			r.Changed(path)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			r.logger.Warn("evidence.watch.error", "error", err)
		}
	}
}
