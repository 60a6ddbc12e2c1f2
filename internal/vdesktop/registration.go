package vdesktop

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
)

type State int32

const (
	StateUnregistered State = iota
	StateRegistering
	StateRegistered
	StateUnregistering
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistering:
		return "registering"
	case StateRegistered:
		return "registered"
	case StateUnregistering:
		return "unregistering"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// RegistrationError reports that the shell refused a listener.
type RegistrationError struct {
	Code HRESULT
	Err  error
}

func (e *RegistrationError) Error() string {
	if e.Err != nil && !errors.Is(e.Err, e.Code) {
		return fmt.Sprintf("vdesktop: registration failed (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("vdesktop: registration failed (%s)", e.Code)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// Error makes an HRESULT usable as an error by service implementations.
func (hr HRESULT) Error() string { return "hresult " + hr.String() }

type options struct {
	logger *slog.Logger
	buffer int
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBuffer sets the capacity of every receiver.
func WithBuffer(n int) Option {
	return func(o *options) { o.buffer = n }
}

// Registration owns one live listener registration. It must be closed
// exactly once, typically with defer; a registration that becomes
// unreachable without Close is unregistered by the runtime as a last resort.
type Registration struct {
	*registration
	cleanup runtime.Cleanup
}

type registration struct {
	logger   *slog.Logger
	cookie   uint32
	listener *Listener
	hub      *hub
	service  NotificationService

	state atomic.Int32
	once  sync.Once
}

// Register creates a listener and registers it with service. On failure the
// listener is released before returning and nothing is left to unregister.
func Register(service NotificationService, lookup DesktopLookup, opts ...Option) (*Registration, error) {
	if service == nil {
		return nil, errors.New("vdesktop: nil notification service")
	}
	if lookup == nil {
		return nil, errors.New("vdesktop: nil desktop lookup")
	}

	o := options{logger: slog.Default(), buffer: DefaultBuffer}
	for _, opt := range opts {
		opt(&o)
	}

	r := &registration{
		logger:  o.logger,
		hub:     newHub(o.buffer),
		service: service,
	}
	r.state.Store(int32(StateRegistering))
	r.listener = newListener(o.logger, &Sender{h: r.hub}, lookup)

	cookie, err := service.Register(r.listener)
	if err != nil {
		r.listener.Release()
		r.state.Store(int32(StateClosed))

		code := EFail
		var hr HRESULT
		if errors.As(err, &hr) {
			code = hr
		}
		o.logger.Error("registration: failed", slog.String("hresult", code.String()), slog.Any("error", err))
		return nil, &RegistrationError{Code: code, Err: err}
	}

	service.AddRef()
	r.cookie = cookie
	r.state.Store(int32(StateRegistered))

	o.logger.Debug("registration: registered", slog.Uint64("cookie", uint64(cookie)))

	reg := &Registration{registration: r}
	reg.cleanup = runtime.AddCleanup(reg, func(r *registration) {
		r.logger.Warn("registration: collected without Close", slog.Uint64("cookie", uint64(r.cookie)))
		_ = r.close()
	}, r)

	return reg, nil
}

func (r *Registration) Cookie() uint32 { return r.cookie }

func (r *Registration) State() State { return State(r.state.Load()) }

// Dropped counts events the listener could not deliver.
func (r *Registration) Dropped() uint64 { return r.listener.Dropped() }

// Receiver returns a new independent read end. It observes every event sent
// after this call; once the registration is closed it is closed too.
func (r *Registration) Receiver() *Receiver {
	return r.hub.subscribe()
}

// Close unregisters the listener and closes the event channel. Unregister
// failures are logged and returned for diagnostics; the registration is
// torn down regardless. Calling Close again returns ErrAlreadyClosed.
func (r *Registration) Close() error {
	r.cleanup.Stop()
	return r.close()
}

func (r *registration) close() error {
	err := ErrAlreadyClosed
	r.once.Do(func() {
		err = r.teardown()
	})
	return err
}

func (r *registration) teardown() (err error) {
	r.state.Store(int32(StateUnregistering))
	defer r.state.Store(int32(StateClosed))

	err = r.unregister()
	if err != nil {
		r.logger.Warn("registration: unregister failed",
			slog.Uint64("cookie", uint64(r.cookie)),
			slog.Any("error", err))
	} else {
		r.logger.Debug("registration: unregistered", slog.Uint64("cookie", uint64(r.cookie)))
	}

	r.listener.Release()
	r.service.Release()
	r.hub.close()

	return err
}

func (r *registration) unregister() (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("vdesktop: unregister panicked: %v", p)
		}
	}()

	if err := r.service.Unregister(r.cookie); err != nil {
		return fmt.Errorf("vdesktop: unregister cookie %d: %w", r.cookie, err)
	}
	return nil
}
