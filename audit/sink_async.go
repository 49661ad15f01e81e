package audit

import (
	"context"
	"time"

	"github.com/apiguard/apiguard/logger"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// AsyncSink decouples audit persistence from the request path by running
// writes on a goroutine pool. When the pool cannot accept work the write
// falls back to the caller's goroutine, so no entry is ever dropped.
type AsyncSink struct {
	inner Sink
	pool  *ants.Pool
	log   *logger.CtxZapLogger
}

// NewAsyncSink wraps inner with a pool of poolSize workers. log may be nil.
func NewAsyncSink(inner Sink, poolSize int, log *logger.CtxZapLogger) (*AsyncSink, error) {
	if poolSize <= 0 {
		poolSize = 10
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	return &AsyncSink{inner: inner, pool: pool, log: log}, nil
}

// Write submits the entry to the pool. The request context is not carried
// into the worker since the request may already be finished by then.
func (s *AsyncSink) Write(ctx context.Context, entry Entry) error {
	err := s.pool.Submit(func() {
		s.write(entry)
	})
	if err != nil {
		// Pool saturated or released: write synchronously instead.
		s.write(entry)
	}
	return nil
}

func (s *AsyncSink) write(entry Entry) {
	if err := s.inner.Write(context.Background(), entry); err != nil && s.log != nil {
		s.log.Error("audit write failed",
			zap.String("entry_id", entry.ID),
			zap.String("path", entry.Path),
			zap.Error(err))
	}
}

// Close waits for in-flight writes and closes the inner sink.
func (s *AsyncSink) Close() error {
	_ = s.pool.ReleaseTimeout(5 * time.Second)
	return s.inner.Close()
}
