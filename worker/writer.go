package worker

import (
	"context"
	"errors"
	"time"

	"github.com/andys/customer_import/config"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// RetryPolicy decides what happens when a chunk can't be written
type RetryPolicy struct {
	MaxAttempts   int
	Backoff       time.Duration
	SkipOnFailure bool
}

// PolicyFromConfig builds the retry policy from the job configuration
func PolicyFromConfig(cfg *config.Config) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   cfg.MaxAttempts,
		Backoff:       cfg.RetryBackoff,
		SkipOnFailure: cfg.OnWriteFailure == config.OnFailureSkip,
	}
}

// Writer persists chunks through the storage collaborator
type Writer struct {
	repo   Repository
	policy RetryPolicy
	logger *zap.Logger
}

// NewWriter creates a chunk writer for repo
func NewWriter(repo Repository, policy RetryPolicy, logger *zap.Logger) *Writer {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{repo: repo, policy: policy, logger: logger}
}

// Policy returns the retry policy in effect
func (w *Writer) Policy() RetryPolicy {
	return w.policy
}

// Write saves every record of the chunk in order, retrying the whole chunk
// per the policy. A failure is always a *WriteFailure.
func (w *Writer) Write(ctx context.Context, chunk Chunk) (WriteResult, error) {
	start := time.Now()
	attempts := 0

	operation := func() (int, error) {
		attempts++
		n, err := w.writeOnce(ctx, chunk)
		if err != nil && attempts < w.policy.MaxAttempts {
			w.logger.Warn("chunk write failed, retrying",
				zap.Int("chunk", chunk.Seq),
				zap.Int("attempt", attempts),
				zap.Error(err))
		}
		return n, err
	}

	written, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(w.policy.Backoff)),
		backoff.WithMaxTries(uint(w.policy.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		var failure *WriteFailure
		if !errors.As(err, &failure) {
			failure = w.failure(chunk, -1, err)
		}
		failure.Attempts = attempts
		return WriteResult{Chunk: chunk.Seq, Attempts: attempts, Duration: time.Since(start)}, failure
	}

	return WriteResult{
		Chunk:    chunk.Seq,
		Written:  written,
		Attempts: attempts,
		Duration: time.Since(start),
	}, nil
}

func (w *Writer) writeOnce(ctx context.Context, chunk Chunk) (int, error) {
	save := func(repo Repository) error {
		for i, rec := range chunk.Records {
			if _, err := repo.Save(ctx, rec); err != nil {
				return w.failure(chunk, i, err)
			}
		}
		return nil
	}

	var err error
	if tx, ok := w.repo.(TxRepository); ok {
		err = tx.InTx(ctx, save)
	} else {
		err = save(w.repo)
	}
	if err != nil {
		var failure *WriteFailure
		if errors.As(err, &failure) {
			return 0, failure
		}
		// commit or begin failed, nothing in the chunk is persisted
		return 0, w.failure(chunk, -1, err)
	}
	return len(chunk.Records), nil
}

// failure blames record i of chunk, or no record when i is negative
func (w *Writer) failure(chunk Chunk, i int, err error) *WriteFailure {
	f := &WriteFailure{Chunk: chunk.Seq, Err: err}
	if i < 0 {
		return f
	}
	if i < len(chunk.Records) {
		f.RecordID = chunk.Records[i].ID
	}
	if i < len(chunk.Lines) {
		f.Line = chunk.Lines[i]
	}
	return f
}
