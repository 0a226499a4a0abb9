package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ilertrelay/internal/event"
	"ilertrelay/internal/queue"
	"ilertrelay/internal/storage"
	logx "ilertrelay/pkg/logx"
)

const (
	DefaultPath    = "/api/v1/events/icinga"
	DefaultTimeout = 60 * time.Second

	maxBody = 4 << 10
)

// Queue is the part of the event store the engine needs.
type Queue interface {
	Dir() string
	Pending() ([]queue.Entry, error)
	Read(e queue.Entry) ([]byte, error)
	Remove(e queue.Entry) error
}

// Options configures delivery.
type Options struct {
	Endpoint string // scheme://host, e.g. https://api.ilert.com
	Port     int
	Path     string

	// Timeout bounds one request. Zero means DefaultTimeout.
	Timeout time.Duration
	// RatePerSec spaces consecutive requests. Zero disables pacing.
	RatePerSec int
	UserAgent  string

	// JournalRetain is the number of journal records kept after each
	// locked flush. Zero keeps everything.
	JournalRetain int
}

// Stats summarizes one flush.
type Stats struct {
	Sent     int
	Rejected int
	Retained int
	Skipped  int
}

// Engine transmits queued events and settles each file's disposition.
type Engine struct {
	opts    Options
	url     string
	client  *http.Client
	log     logx.Logger
	journal storage.Journal
	limiter *rate.Limiter
}

// New validates opts and builds an engine. journal may be nil.
func New(opts Options, client *http.Client, log logx.Logger, journal storage.Journal) (*Engine, error) {
	target, err := buildURL(opts.Endpoint, opts.Port, opts.Path)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if client == nil {
		client = &http.Client{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	e := &Engine{
		opts:    opts,
		url:     target,
		client:  client,
		log:     log,
		journal: journal,
	}
	if opts.RatePerSec > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), 1)
	}
	return e, nil
}

// URL returns the delivery target.
func (e *Engine) URL() string { return e.url }

func buildURL(endpoint string, port int, path string) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", ErrNoEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q (want https://host)", ErrInvalidEndpoint, endpoint)
	}
	if port < 0 || port > 65535 {
		return "", fmt.Errorf("%w: port %d out of range", ErrInvalidEndpoint, port)
	}
	if port > 0 {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(port))
	}
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// LockAndFlush holds the directory lock for the whole flush.
// The only error is failing to take the lock.
func (e *Engine) LockAndFlush(ctx context.Context, q Queue) (Stats, error) {
	lock, err := queue.Lock(q.Dir())
	if err != nil {
		return Stats{}, err
	}
	defer lock.Release()

	st := e.Flush(ctx, q)
	if e.journal != nil && e.opts.JournalRetain > 0 {
		if err := e.journal.Prune(ctx, e.opts.JournalRetain); err != nil {
			e.log.Debug("journal prune failed", logx.Err(err))
		}
	}
	return st, nil
}

// Flush sends every pending event, oldest first, and deletes or keeps each
// file according to its outcome. The caller must hold the directory lock.
//
// One event's failure never stops the batch. Cancelling ctx stops the loop
// between events; unsent files stay queued.
func (e *Engine) Flush(ctx context.Context, q Queue) Stats {
	if ctx == nil {
		ctx = context.Background()
	}
	var st Stats

	entries, err := q.Pending()
	if err != nil {
		e.log.Error("could not list event directory", logx.String("dir", q.Dir()), logx.Err(err))
		return st
	}
	if len(entries) == 0 {
		e.log.Debug("no pending events", logx.String("dir", q.Dir()))
		return st
	}

	for _, ent := range entries {
		if ctx.Err() != nil {
			e.log.Info("flush interrupted", logx.Int("remaining", len(entries)-st.Sent-st.Rejected-st.Retained-st.Skipped))
			break
		}

		doc, err := q.Read(ent)
		if err != nil {
			// Another process may have delivered it meanwhile.
			e.log.Debug("skipping unreadable event file", logx.String("file", ent.Path), logx.Err(err))
			st.Skipped++
			continue
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				break
			}
		}

		e.log.Info("sending event to iLert", logx.String("file", ent.Path))
		started := time.Now()
		out := e.deliver(ctx, doc)
		e.settle(ctx, q, ent, out, time.Since(started), &st)
	}
	return st
}

// deliver performs one POST. It never panics and never returns an error:
// every failure is folded into the Outcome.
func (e *Engine) deliver(ctx context.Context, doc []byte) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Kind: Unexpected, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	reqCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.url, bytes.NewReader(doc))
	if err != nil {
		return Outcome{Kind: Unexpected, Err: err}
	}
	req.Header.Set("Content-Type", event.ContentType)
	req.Header.Set("Accept", event.ContentType)
	if e.opts.UserAgent != "" {
		req.Header.Set("User-Agent", e.opts.UserAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return Outcome{Kind: ClassifyError(err), Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	return responseOutcome(resp, body)
}

func (e *Engine) settle(ctx context.Context, q Queue, ent queue.Entry, out Outcome, took time.Duration, st *Stats) {
	log := e.log.With(logx.String("file", ent.Path))
	if out.Status != 0 {
		log = log.With(logx.Int("status", out.Status))
	}

	switch out.Kind {
	case Success:
		st.Sent++
	case ClientRejected:
		st.Rejected++
		log.Warn("event not accepted by iLert", logx.String("reason", out.Body))
	case RateLimited:
		st.Retained++
		log.Warn("too many requests, will try later", logx.String("response", out.Body))
	case ServerOrUnknown:
		st.Retained++
		log.Error("could not send event to iLert",
			logx.String("reason", out.Reason), logx.String("response", out.Body))
	case NetworkFailure:
		st.Retained++
		log.Error("could not send event to iLert", logx.Err(out.Err))
	default:
		st.Retained++
		log.Error("an unexpected error occurred", logx.Err(out.Err))
	}

	disposition := "kept"
	if out.Kind.Drop() {
		disposition = "deleted"
		if err := q.Remove(ent); err != nil {
			// The event stays queued and will be sent again.
			disposition = "kept"
			log.Error("could not remove event file", logx.Err(err))
		} else if out.Kind == Success {
			log.Info("event has been sent to iLert and removed from event directory")
		}
	}

	e.record(ctx, ent, out, disposition, took)
}

func (e *Engine) record(ctx context.Context, ent queue.Entry, out Outcome, disposition string, took time.Duration) {
	if e.journal == nil {
		return
	}
	r := storage.Record{
		At:          time.Now(),
		EventID:     ent.ID(),
		Outcome:     out.Kind.String(),
		Status:      out.Status,
		Disposition: disposition,
		TookMS:      took.Milliseconds(),
	}
	if out.Err != nil {
		r.Error = out.Err.Error()
	}
	// The journal must keep working after ctx is cancelled mid-batch.
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := e.journal.Append(jctx, r); err != nil {
		e.log.Debug("journal append failed", logx.String("event", r.EventID), logx.Err(err))
	}
}
