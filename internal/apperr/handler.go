package apperr

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// MaxHistory bounds the ring buffer of recent errors.
const MaxHistory = 100

// Level tells the notification surface how loudly to show a message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier receives user-facing messages.
type Notifier interface {
	Notify(level Level, text string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level Level, text string)

func (f NotifierFunc) Notify(level Level, text string) { f(level, text) }

var userMessages = map[Code]string{
	CodeRequired:          "Please fill in all required fields.",
	CodeTooLong:           "One of the fields is too long.",
	CodeInvalid:           "Some of the input is not valid.",
	CodeUnreachable:       "Could not reach the server. Please check your connection.",
	CodeTimeout:           "The server took too long to respond. Please check your connection.",
	CodeBadRequest:        "The server rejected the request.",
	CodeNotFound:          "The requested item was not found.",
	CodeConflict:          "The item was changed elsewhere. Reload and try again.",
	CodeServer:            "The server ran into a problem. Please try again later.",
	CodeUnexpected:        "Something went wrong. Please try again later.",
	CodeDecode:            "The server sent an unexpected response. Please try again later.",
	CodeInvalidTransition: "That action is not possible right now.",
	CodeInvariant:         "Something went wrong. Please reload.",
	CodeStorageRead:       "Could not read saved preferences.",
	CodeStorageWrite:      "Could not save preferences.",
	CodeUnknown:           "An unexpected error occurred.",
}

// UserMessage maps a code to the sentence shown to the user.
func UserMessage(code Code) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	return userMessages[CodeUnknown]
}

// notification is the user message for e, prefixed with the failed action
// when the error carries one.
func notification(e *Error) string {
	msg := UserMessage(e.Code)
	if action, ok := e.Context["action"].(string); ok && action != "" {
		return fmt.Sprintf("%s failed: %s", action, msg)
	}
	return msg
}

// Key is a (type, code) pair used for counting.
type Key struct {
	Type Type
	Code Code
}

// KeyCount is one row of the most-frequent table.
type KeyCount struct {
	Key
	Count int
}

// Stats is a diagnostic snapshot of the handler.
type Stats struct {
	Total  int
	ByType map[Type]int
	ByCode map[Code]int
	Recent []*Error
	Top    []KeyCount
}

// Handler classifies, records, logs and surfaces errors.
type Handler struct {
	mu       sync.Mutex
	logger   *zap.Logger
	notifier Notifier
	ring     []*Error
	next     int
	full     bool
	total    int
	counts   map[Key]int
}

// NewHandler creates a Handler. notifier may be nil.
func NewHandler(logger *zap.Logger, notifier Notifier) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		logger:   logger.Named("errors"),
		notifier: notifier,
		ring:     make([]*Error, MaxHistory),
		counts:   make(map[Key]int),
	}
}

// SetNotifier replaces the notification surface.
func (h *Handler) SetNotifier(n Notifier) {
	h.mu.Lock()
	h.notifier = n
	h.mu.Unlock()
}

// Handle records err and, unless silent, shows its user message. UI errors
// are never shown. The classified error is returned so callers can re-raise it.
func (h *Handler) Handle(err error, silent bool) *Error {
	e := Classify(err)
	if e == nil {
		return nil
	}

	h.mu.Lock()
	h.ring[h.next] = e
	h.next = (h.next + 1) % MaxHistory
	if h.next == 0 {
		h.full = true
	}
	h.total++
	h.counts[Key{e.Type, e.Code}]++
	notifier := h.notifier
	h.mu.Unlock()

	fields := []zap.Field{
		zap.String("type", string(e.Type)),
		zap.String("code", string(e.Code)),
		zap.Bool("silent", silent),
	}
	if e.Status != 0 {
		fields = append(fields, zap.Int("status", e.Status))
	}
	if len(e.Context) > 0 {
		fields = append(fields, zap.Any("context", e.Context))
	}
	if e.Err != nil {
		fields = append(fields, zap.Error(e.Err))
	}
	switch e.Type {
	case TypeValidation:
		h.logger.Warn(e.Message, fields...)
	default:
		h.logger.Error(e.Message, fields...)
	}

	if !silent && e.Type != TypeUI && notifier != nil {
		level := LevelError
		if e.Type == TypeValidation {
			level = LevelWarning
		}
		notifier.Notify(level, notification(e))
	}
	return e
}

// Recover converts a panic into a State error handled loudly. Use it as
// `defer h.Recover("where")` at the top of goroutines.
func (h *Handler) Recover(where string) {
	if r := recover(); r != nil {
		h.Recovered(where, r)
	}
}

// Recovered handles a value already obtained from recover, for callers that
// must also fix up their own return values.
func (h *Handler) Recovered(where string, r any) *Error {
	return h.Handle(State(CodeInvariant, fmt.Sprintf("panic in %s: %v", where, r)), false)
}

// Go runs fn in a goroutine under Recover and handles its returned error.
func (h *Handler) Go(where string, fn func() error) {
	go func() {
		defer h.Recover(where)
		if err := fn(); err != nil {
			h.Handle(err, false)
		}
	}()
}

// Stats returns totals plus the most recent n errors (newest first) and the
// top k most frequent (type, code) pairs.
func (h *Handler) Stats(recent, top int) Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := Stats{
		Total:  h.total,
		ByType: make(map[Type]int),
		ByCode: make(map[Code]int),
	}
	for k, n := range h.counts {
		s.ByType[k.Type] += n
		s.ByCode[k.Code] += n
		s.Top = append(s.Top, KeyCount{Key: k, Count: n})
	}
	sort.Slice(s.Top, func(i, j int) bool {
		if s.Top[i].Count != s.Top[j].Count {
			return s.Top[i].Count > s.Top[j].Count
		}
		if s.Top[i].Type != s.Top[j].Type {
			return s.Top[i].Type < s.Top[j].Type
		}
		return s.Top[i].Code < s.Top[j].Code
	})
	if top >= 0 && len(s.Top) > top {
		s.Top = s.Top[:top]
	}

	size := h.next
	if h.full {
		size = MaxHistory
	}
	if recent > size {
		recent = size
	}
	for i := 0; i < recent; i++ {
		idx := (h.next - 1 - i + MaxHistory) % MaxHistory
		s.Recent = append(s.Recent, h.ring[idx])
	}
	return s
}

// History returns every retained error, oldest first.
func (h *Handler) History() []*Error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.full {
		return append([]*Error(nil), h.ring[:h.next]...)
	}
	out := make([]*Error, 0, MaxHistory)
	out = append(out, h.ring[h.next:]...)
	return append(out, h.ring[:h.next]...)
}
