package loki

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"github.com/wheresmywater/backend/internal/setup/config"
)

// ErrUnexpectedStatusCode is returned when Loki responds with an unexpected status code.
var ErrUnexpectedStatusCode = errors.New("unexpected status code from Loki")

const (
	defaultBatchMaxSize = 500
	defaultBatchMaxWait = 2 * time.Second
)

// Pusher batches log lines and ships them to Loki.
type Pusher struct {
	pushURL  string
	labels   map[string]string
	username string
	password string
	maxSize  int
	maxWait  time.Duration
	client   *http.Client

	entries chan entry
	quit    chan struct{}
	done    sync.WaitGroup
	once    sync.Once

	dropped atomic.Int64
	failed  atomic.Int64
}

// NewPusher creates a new Loki pusher and starts its send loop.
func NewPusher(ctx context.Context, cfg config.Loki) *Pusher {
	maxSize := cfg.BatchMaxSize
	if maxSize <= 0 {
		maxSize = defaultBatchMaxSize
	}

	maxWait := time.Duration(cfg.BatchMaxWaitMS) * time.Millisecond
	if maxWait <= 0 {
		maxWait = defaultBatchMaxWait
	}

	p := &Pusher{
		pushURL:  cfg.URL + "/loki/api/v1/push",
		labels:   cfg.Labels,
		username: cfg.Username,
		password: cfg.Password,
		maxSize:  maxSize,
		maxWait:  maxWait,
		client:   &http.Client{Timeout: 10 * time.Second},
		entries:  make(chan entry, maxSize*2),
		quit:     make(chan struct{}),
	}

	p.done.Add(1)
	go p.run(ctx)

	return p
}

// Add queues an entry without blocking. Entries are dropped when the queue is full.
func (p *Pusher) Add(e entry) {
	select {
	case p.entries <- e:
	default:
		p.dropped.Add(1)
	}
}

// Dropped returns how many entries were discarded because the queue was full.
func (p *Pusher) Dropped() int64 {
	return p.dropped.Load()
}

// Failed returns how many batches could not be delivered.
func (p *Pusher) Failed() int64 {
	return p.failed.Load()
}

// Stop flushes pending entries and stops the send loop.
func (p *Pusher) Stop() {
	p.once.Do(func() {
		close(p.quit)
		p.done.Wait()
	})
}

func (p *Pusher) run(ctx context.Context) {
	defer p.done.Done()

	ticker := time.NewTicker(p.maxWait)
	defer ticker.Stop()

	batch := make([]entry, 0, p.maxSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := p.send(ctx, batch); err != nil {
			p.failed.Add(1)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			// Drain whatever is queued before the final flush
			for {
				select {
				case e := <-p.entries:
					batch = append(batch, e)
					if len(batch) >= p.maxSize {
						flush(context.WithoutCancel(ctx))
					}
				default:
					flush(context.WithoutCancel(ctx))
					return
				}
			}
		case e := <-p.entries:
			batch = append(batch, e)
			if len(batch) >= p.maxSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		}
	}
}

// send posts one gzip-compressed batch.
func (p *Pusher) send(ctx context.Context, batch []entry) error {
	values := make([][2]string, len(batch))
	for i, e := range batch {
		values[i] = [2]string{strconv.FormatInt(e.unixNano, 10), e.line}
	}

	payload, err := sonic.Marshal(pushRequest{
		Streams: []stream{{Stream: p.labels, Values: values}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return fmt.Errorf("failed to compress: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to compress: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.pushURL, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")

	if p.username != "" && p.password != "" {
		req.SetBasicAuth(p.username, p.password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	return nil
}
