package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/formbridge/formbridge/internal/common"
)

// ErrPollTimeout is returned when a job does not reach a terminal state
// within the attempt budget. Distinct from a provider-reported failure.
var ErrPollTimeout = errors.New("ocr job polling timed out")

// Poller drives an asynchronous analysis job to a terminal state on a fixed
// interval. The attempt budget bounds the wait; an unbounded poll loop is an
// availability bug.
type Poller struct {
	analyzer    AsyncAnalyzer
	logger      *slog.Logger
	interval    time.Duration
	maxAttempts int
}

type PollerOption func(*Poller)

func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithMaxAttempts(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

func NewPoller(analyzer AsyncAnalyzer, logger *slog.Logger, opts ...PollerOption) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		analyzer:    analyzer,
		logger:      logger,
		interval:    5 * time.Second,
		maxAttempts: 60,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Submit starts an asynchronous analysis job and returns its id.
func (p *Poller) Submit(ctx context.Context, ref DocumentRef, features []Feature) (string, error) {
	jobID, err := p.analyzer.Submit(ctx, ref, features)
	if err != nil {
		p.logger.Error("ocr.submit.failed", "error", err)
		return "", common.WrapError(err, "submit analysis job")
	}
	p.logger.Info("ocr.submit.ok", "job_id", jobID)
	return jobID, nil
}

// Poll blocks the calling context until the job reports a terminal state,
// checking status every interval. A FAILED job surfaces as a provider error;
// exhausting the attempt budget surfaces as ErrPollTimeout.
func (p *Poller) Poll(ctx context.Context, jobID string) (*BlockResponse, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		state, resp, err := p.analyzer.JobStatus(ctx, jobID)
		if err != nil {
			p.logger.Error("ocr.poll.status_error", "job_id", jobID, "attempt", attempt, "error", err)
			return nil, common.WrapError(err, "get job status")
		}

		switch state {
		case JobSucceeded:
			p.logger.Info("ocr.poll.succeeded", "job_id", jobID, "attempts", attempt, "blocks", len(resp.Blocks))
			return resp, nil
		case JobFailed:
			p.logger.Error("ocr.poll.failed", "job_id", jobID, "attempts", attempt)
			return nil, common.NewAppError("OCR_JOB_FAILED",
				fmt.Sprintf("analysis job %s reported failure", jobID), common.ErrProvider)
		default:
			p.logger.Debug("ocr.poll.waiting", "job_id", jobID, "state", state, "attempt", attempt)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.interval):
		}
	}
	return nil, fmt.Errorf("job %s not terminal after %d attempts: %w", jobID, p.maxAttempts, ErrPollTimeout)
}
