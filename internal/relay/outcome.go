package relay

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Kind is the closed set of delivery results.
type Kind int

const (
	Success Kind = iota
	RateLimited
	ClientRejected
	ServerOrUnknown
	NetworkFailure
	Unexpected
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case RateLimited:
		return "rate_limited"
	case ClientRejected:
		return "client_rejected"
	case ServerOrUnknown:
		return "server_or_unknown"
	case NetworkFailure:
		return "network_failure"
	case Unexpected:
		return "unexpected"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Drop reports whether the event file is deleted after this result.
// Only delivered and permanently rejected events leave the queue.
func (k Kind) Drop() bool {
	return k == Success || k == ClientRejected
}

// Outcome is the classified result of one delivery attempt.
type Outcome struct {
	Kind   Kind
	Status int    // 0 when no response was received
	Reason string // HTTP reason phrase
	Body   string // response body, truncated
	Err    error  // transport or unexpected failure
}

// ClassifyStatus maps an HTTP response status to an outcome kind.
func ClassifyStatus(status int) Kind {
	switch {
	case status >= 200 && status <= 299:
		return Success
	case status == http.StatusTooManyRequests:
		return RateLimited
	case status >= 400 && status <= 499:
		return ClientRejected
	default:
		return ServerOrUnknown
	}
}

// ClassifyError maps a failed request to NetworkFailure (connection, DNS,
// TLS, timeout) or Unexpected.
func ClassifyError(err error) Kind {
	var (
		ue *url.Error
		ne net.Error
	)
	if errors.As(err, &ue) || errors.As(err, &ne) {
		return NetworkFailure
	}
	return Unexpected
}

func responseOutcome(resp *http.Response, body []byte) Outcome {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return Outcome{
		Kind:   ClassifyStatus(resp.StatusCode),
		Status: resp.StatusCode,
		Reason: reason,
		Body:   string(body),
	}
}
