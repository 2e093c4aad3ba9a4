package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"gamelobby/internal/services/lobby"

	"github.com/go-playground/validator/v10"
)

var (
	errMalformed   = errors.New("malformed message")
	errUnknownType = errors.New("unknown message type")
)

// invalidError carries the type of a message that decoded but failed its
// schema.
type invalidError struct {
	msgType string
	err     error
}

func (e *invalidError) Error() string { return fmt.Sprintf("invalid %s message: %v", e.msgType, e.err) }
func (e *invalidError) Unwrap() error { return e.err }

// internal (untyped) handler signature.
type rawHandler func(sess *lobby.Session, raw json.RawMessage) error

// Router keeps a map[type]handler, à‑la gin.Engine.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
	validate *validator.Validate
}

func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]rawHandler),
		validate: validator.New(),
	}
}

// Register binds a message type to a strongly‑typed handler. The whole frame
// is decoded into Req and validated before h runs.
func Register[Req any](r *Router, msgType string, h func(sess *lobby.Session, req Req)) {
	if msgType == "" {
		panic("ws router: empty message type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[msgType] = func(sess *lobby.Session, raw json.RawMessage) error {
		var req Req
		if err := json.Unmarshal(raw, &req); err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		if err := r.validate.Struct(req); err != nil {
			return &invalidError{msgType: msgType, err: err}
		}
		h(sess, req)
		return nil
	}
}

// dispatch is called by the server's reader loop.
func (r *Router) dispatch(sess *lobby.Session, raw []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("%w: %v", errMalformed, err)
	}

	r.mu.RLock()
	h, ok := r.handlers[env.Type]
	r.mu.RUnlock()
	if !ok {
		return env.Type, errUnknownType
	}
	return env.Type, h(sess, raw)
}
