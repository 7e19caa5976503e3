package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andys/customer_import/customer"
)

// Repository is the storage collaborator: a single generic save
type Repository interface {
	Save(ctx context.Context, rec customer.Customer) (customer.Customer, error)
}

// TxRepository runs a whole chunk as one unit of work
type TxRepository interface {
	Repository
	InTx(ctx context.Context, fn func(repo Repository) error) error
}

// Chunk is an ordered batch of records written as one unit
type Chunk struct {
	Seq     int
	Records []customer.Customer
	Lines   []int
}

// Status is the state of a job execution
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrWriteFailure is matched by every WriteFailure
var ErrWriteFailure = errors.New("write failure")

// ErrAlreadyRun is returned when an executor is run twice
var ErrAlreadyRun = errors.New("job has already been run")

// WriteFailure names the chunk and the first record that couldn't be saved.
// RecordID is empty when the unit of work itself failed.
type WriteFailure struct {
	Chunk    int
	RecordID string
	Line     int
	Attempts int
	Err      error
}

func (e *WriteFailure) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("write failure in chunk %d after %d attempt(s): %v", e.Chunk, e.Attempts, e.Err)
	}
	return fmt.Sprintf("write failure in chunk %d at record %s (line %d) after %d attempt(s): %v",
		e.Chunk, e.RecordID, e.Line, e.Attempts, e.Err)
}

func (e *WriteFailure) Unwrap() error { return e.Err }

func (e *WriteFailure) Is(target error) bool {
	return target == ErrWriteFailure
}

// WriteResult describes a persisted chunk
type WriteResult struct {
	Chunk    int
	Written  int
	Attempts int
	Duration time.Duration
}

// Listener observes chunk and record outcomes. Calls may come from any worker.
type Listener interface {
	ChunkWritten(result WriteResult)
	ChunkFailed(chunk Chunk, err error)
	RecordSkipped(line int, err error)
}

// Summary reports the outcome of a job execution
type Summary struct {
	Job         string
	Step        string
	ExecutionID string
	Status      Status
	StartTime   time.Time
	EndTime     time.Time

	Read             int64
	Written          int64
	Malformed        int64
	TransformFailed  int64
	ChunksDispatched int64
	ChunksWritten    int64
	ChunksFailed     int64
	RecordsFailed    int64
}

// Skipped is every record that was read but not persisted
func (s *Summary) Skipped() int64 {
	return s.Malformed + s.TransformFailed + s.RecordsFailed
}
