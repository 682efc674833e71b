package audit

import (
	"context"
	"sync"

	"github.com/nerrad567/domotic-core/internal/dispatch"
)

// DefaultQueueSize bounds the number of entries waiting to be written.
const DefaultQueueSize = 256

// Logger is the logging interface used by Recorder.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder writes dispatch records to a Repository asynchronously.
//
// Thread Safety:
//   - Observe may be called from any goroutine.
//   - Start must be called once; the writer drains the queue and exits
//     when its context is cancelled.
type Recorder struct {
	repo   Repository
	queue  chan *Entry
	logger Logger

	wg sync.WaitGroup
}

// NewRecorder creates a Recorder with a queue of queueSize entries
// (DefaultQueueSize when non-positive). A nil logger discards output.
func NewRecorder(repo Repository, queueSize int, logger Logger) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{
		repo:   repo,
		queue:  make(chan *Entry, queueSize),
		logger: logger,
	}
}

// Observe implements dispatch.Observer. It never blocks: when the queue is
// full the entry is dropped.
func (r *Recorder) Observe(_ context.Context, rec dispatch.Record) {
	entry := &Entry{
		Verb:       rec.Verb,
		Target:     rec.Target,
		Command:    rec.Command,
		Response:   rec.Response,
		Status:     rec.Status,
		Relays:     rec.Relays,
		Source:     rec.Source,
		DurationMS: float64(rec.Duration.Microseconds()) / 1000,
		CreatedAt:  rec.At,
	}

	select {
	case r.queue <- entry:
	default:
		r.logger.Warn("command log queue full, dropping entry", "verb", rec.Verb, "source", rec.Source)
	}
}

// Start launches the writer goroutine. Wait blocks until it has drained
// the queue after ctx is cancelled.
func (r *Recorder) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
}

// Wait blocks until the writer started by Start has exited.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

func (r *Recorder) run(ctx context.Context) {
	for {
		select {
		case entry := <-r.queue:
			r.write(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-r.queue:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(entry *Entry) {
	// The daemon context is already cancelled during the final drain.
	if err := r.repo.Create(context.Background(), entry); err != nil {
		r.logger.Error("command log write failed", "verb", entry.Verb, "error", err)
	}
}
