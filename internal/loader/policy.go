package loader

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/Rana718/seedbench/internal/model"
)

// Handler decides what happens to a failed chunk.
type Handler int

const (
	Ignore Handler = iota
	LogAndContinue
	Rethrow
)

func (h Handler) String() string {
	switch h {
	case Ignore:
		return "ignore"
	case LogAndContinue:
		return "log"
	default:
		return "rethrow"
	}
}

func ParseHandler(s string) (Handler, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ignore", "skip":
		return Ignore, nil
	case "log", "log-and-continue", "continue":
		return LogAndContinue, nil
	case "rethrow", "fail", "":
		return Rethrow, nil
	}
	return Rethrow, model.ErrConfiguration("unknown error handler %q", s)
}

// ErrorPolicy maps the fault class of a failed chunk to a Handler. It may be
// changed while a load is running; each chunk sees a consistent Snapshot.
type ErrorPolicy struct {
	mu           sync.RWMutex
	transient    Handler
	nonTransient Handler
}

// NewErrorPolicy logs transient failures and rethrows everything else.
func NewErrorPolicy() *ErrorPolicy {
	return &ErrorPolicy{transient: LogAndContinue, nonTransient: Rethrow}
}

func (p *ErrorPolicy) SetTransient(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transient = h
}

func (p *ErrorPolicy) SetNonTransient(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nonTransient = h
}

func (p *ErrorPolicy) Snapshot() PolicySnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PolicySnapshot{Transient: p.transient, NonTransient: p.nonTransient}
}

type PolicySnapshot struct {
	Transient    Handler
	NonTransient Handler
}

// Handle returns nil when the chunk failure should be swallowed. Errors that
// are not data access failures, cancellation included, are always returned.
func (s PolicySnapshot) Handle(logger *slog.Logger, table model.QualifiedName, rows int, err error) error {
	var dae *model.DataAccessError
	if !errors.As(err, &dae) {
		return err
	}
	h := s.NonTransient
	if dae.Transient {
		h = s.Transient
	}
	switch h {
	case Ignore:
		return nil
	case LogAndContinue:
		logger.Warn("chunk failed, continuing", "table", table.String(), "rows", rows,
			"transient", dae.Transient, "error", dae.Err)
		return nil
	default:
		return err
	}
}
