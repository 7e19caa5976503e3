package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/andys/customer_import/config"
	"github.com/andys/customer_import/customer"
	"github.com/andys/customer_import/source"
	"github.com/andys/customer_import/transform"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	JobName  = "customers-import"
	StepName = "step-1"
)

// counters are shared by the dispatcher and every worker
type counters struct {
	read             atomic.Int64
	written          atomic.Int64
	malformed        atomic.Int64
	transformFailed  atomic.Int64
	chunksDispatched atomic.Int64
	chunksWritten    atomic.Int64
	chunksFailed     atomic.Int64
	recordsFailed    atomic.Int64
}

// Executor runs the single chunk-oriented step of the import job
type Executor struct {
	path        string
	linesToSkip int
	chunkSize   int
	workers     int
	mapper      customer.Mapper
	transformer transform.Transformer
	writer      *Writer
	listeners   []Listener
	logger      *zap.Logger

	mu          sync.Mutex
	status      Status
	executionID string
	startTime   time.Time
	endTime     time.Time
	failure     error
	aborted     atomic.Bool
	counters    counters
}

// NewExecutor creates the import job. A nil transformer means identity.
func NewExecutor(writer *Writer, transformer transform.Transformer, cfg *config.Config, logger *zap.Logger) *Executor {
	if transformer == nil {
		transformer = transform.Identity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	chunkSize := cfg.ChunkSize
	if chunkSize < 1 {
		chunkSize = config.DefaultChunkSize
	}
	workers := cfg.WorkerCount
	if workers < 1 {
		workers = config.DefaultWorkerCount
	}
	linesToSkip := cfg.LinesToSkip
	switch {
	case linesToSkip == 0:
		linesToSkip = config.DefaultLinesToSkip
	case linesToSkip < 0:
		linesToSkip = 0
	}
	return &Executor{
		path:        cfg.SourceFile,
		linesToSkip: linesToSkip,
		chunkSize:   chunkSize,
		workers:     workers,
		mapper:      customer.Mapper{Strict: cfg.Strict},
		transformer: transformer,
		writer:      writer,
		logger:      logger.With(zap.String("job", JobName), zap.String("step", StepName)),
		status:      StatusIdle,
	}
}

// AddListener registers l for chunk and record events. Call before Run.
func (e *Executor) AddListener(l Listener) {
	e.listeners = append(e.listeners, l)
}

// Status returns the current state of the job
func (e *Executor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Run executes the job to completion. The summary is returned even when the job fails.
func (e *Executor) Run(ctx context.Context) (*Summary, error) {
	e.mu.Lock()
	if e.status != StatusIdle {
		e.mu.Unlock()
		return e.Progress(), ErrAlreadyRun
	}
	e.executionID = uuid.NewString()
	e.startTime = time.Now()
	e.logger = e.logger.With(zap.String("execution_id", e.executionID))
	e.mu.Unlock()

	reader, err := source.Open(e.path, e.linesToSkip)
	if err != nil {
		e.logger.Error("cannot open source", zap.String("path", e.path), zap.Error(err))
		return e.finish(err)
	}
	defer reader.Close()

	e.setStatus(StatusRunning)
	e.logger.Info("job started",
		zap.String("path", e.path),
		zap.Int("chunk_size", e.chunkSize),
		zap.Int("workers", e.workers))

	// the queue is bounded so Submit blocks when every worker is busy
	pool := pond.NewPool(e.workers, pond.WithQueueSize(e.workers))
	group := pool.NewGroup()

	// in-flight chunks finish even if the job is cancelled
	writeCtx := context.WithoutCancel(ctx)
	dispatchErr := e.dispatch(ctx, writeCtx, reader, group)

	waitErr := group.Wait()
	pool.StopAndWait()

	switch {
	case e.abortErr() != nil:
		err = e.abortErr()
	case dispatchErr != nil:
		err = dispatchErr
	default:
		err = waitErr
	}
	return e.finish(err)
}

// dispatch assembles chunks in source order and hands them to the pool
func (e *Executor) dispatch(ctx, writeCtx context.Context, reader *source.Reader, group pond.TaskGroup) error {
	seq := 0
	chunk := e.newChunk(seq + 1)

	for {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("job cancelled, no further chunks dispatched", zap.Error(err))
			return err
		}
		if e.aborted.Load() {
			return nil
		}

		line, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			e.logger.Error("source failed", zap.Error(err))
			return err
		}
		e.counters.read.Add(1)

		rec, err := e.mapper.Map(line.Fields)
		if err != nil {
			e.counters.malformed.Add(1)
			e.logger.Warn("skipping malformed line", zap.Int("line", line.Number), zap.Error(err))
			e.recordSkipped(line.Number, err)
			continue
		}

		chunk.Records = append(chunk.Records, rec)
		chunk.Lines = append(chunk.Lines, line.Number)
		if len(chunk.Records) == e.chunkSize {
			seq++
			e.submit(writeCtx, group, chunk)
			chunk = e.newChunk(seq + 1)
		}
	}

	if len(chunk.Records) > 0 {
		e.submit(writeCtx, group, chunk)
	}
	return nil
}

func (e *Executor) newChunk(seq int) Chunk {
	return Chunk{
		Seq:     seq,
		Records: make([]customer.Customer, 0, e.chunkSize),
		Lines:   make([]int, 0, e.chunkSize),
	}
}

func (e *Executor) submit(ctx context.Context, group pond.TaskGroup, chunk Chunk) {
	e.counters.chunksDispatched.Add(1)
	group.SubmitErr(func() error {
		if e.aborted.Load() {
			return nil
		}
		return e.process(ctx, chunk)
	})
}

// process transforms and writes one chunk. It owns chunk exclusively.
func (e *Executor) process(ctx context.Context, chunk Chunk) error {
	kept := Chunk{
		Seq:     chunk.Seq,
		Records: make([]customer.Customer, 0, len(chunk.Records)),
		Lines:   make([]int, 0, len(chunk.Lines)),
	}
	for i, rec := range chunk.Records {
		out, err := e.transformer.Transform(rec)
		if err != nil {
			if !errors.Is(err, transform.ErrTransform) {
				err = &transform.Error{ID: rec.ID, Err: err}
			}
			e.counters.transformFailed.Add(1)
			e.logger.Warn("excluding record from chunk",
				zap.Int("chunk", chunk.Seq),
				zap.String("id", rec.ID),
				zap.Int("line", chunk.Lines[i]),
				zap.Error(err))
			e.recordSkipped(chunk.Lines[i], err)
			continue
		}
		kept.Records = append(kept.Records, out)
		kept.Lines = append(kept.Lines, chunk.Lines[i])
	}

	if len(kept.Records) == 0 {
		return nil
	}

	result, err := e.writer.Write(ctx, kept)
	if err != nil {
		e.counters.chunksFailed.Add(1)
		e.counters.recordsFailed.Add(int64(len(kept.Records)))
		for _, l := range e.listeners {
			l.ChunkFailed(kept, err)
		}
		if e.writer.Policy().SkipOnFailure {
			e.logger.Error("chunk dropped after write failure", zap.Int("chunk", kept.Seq), zap.Error(err))
			return nil
		}
		e.logger.Error("chunk write failed, aborting job", zap.Int("chunk", kept.Seq), zap.Error(err))
		e.abort(err)
		return err
	}

	e.counters.written.Add(int64(result.Written))
	e.counters.chunksWritten.Add(1)
	e.logger.Debug("chunk written",
		zap.Int("chunk", result.Chunk),
		zap.Int("records", result.Written),
		zap.Int("attempts", result.Attempts),
		zap.Duration("duration", result.Duration))
	for _, l := range e.listeners {
		l.ChunkWritten(result)
	}
	return nil
}

func (e *Executor) recordSkipped(line int, err error) {
	for _, l := range e.listeners {
		l.RecordSkipped(line, err)
	}
}

func (e *Executor) abort(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failure == nil {
		e.failure = err
	}
	e.aborted.Store(true)
}

func (e *Executor) abortErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failure
}

func (e *Executor) setStatus(s Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = s
}

func (e *Executor) finish(err error) (*Summary, error) {
	e.mu.Lock()
	e.endTime = time.Now()
	if err != nil {
		e.status = StatusFailed
	} else {
		e.status = StatusCompleted
	}
	e.mu.Unlock()

	summary := e.Progress()
	fields := []zap.Field{
		zap.String("status", string(summary.Status)),
		zap.Int64("read", summary.Read),
		zap.Int64("written", summary.Written),
		zap.Int64("malformed", summary.Malformed),
		zap.Int64("transform_failed", summary.TransformFailed),
		zap.Int64("chunks", summary.ChunksDispatched),
		zap.Int64("chunks_failed", summary.ChunksFailed),
		zap.Duration("duration", summary.EndTime.Sub(summary.StartTime)),
	}
	if err != nil {
		e.logger.Error("job failed", append(fields, zap.Error(err))...)
	} else {
		e.logger.Info("job completed", fields...)
	}
	return summary, err
}

// Progress returns a snapshot of the job counters
func (e *Executor) Progress() *Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return &Summary{
		Job:              JobName,
		Step:             StepName,
		ExecutionID:      e.executionID,
		Status:           e.status,
		StartTime:        e.startTime,
		EndTime:          e.endTime,
		Read:             e.counters.read.Load(),
		Written:          e.counters.written.Load(),
		Malformed:        e.counters.malformed.Load(),
		TransformFailed:  e.counters.transformFailed.Load(),
		ChunksDispatched: e.counters.chunksDispatched.Load(),
		ChunksWritten:    e.counters.chunksWritten.Load(),
		ChunksFailed:     e.counters.chunksFailed.Load(),
		RecordsFailed:    e.counters.recordsFailed.Load(),
	}
}
