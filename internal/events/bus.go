package events

import (
	"safetywatch/internal/providers"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	ViolationDetected Type = "violation.detected"
	AlertRaised       Type = "alert.raised"
	AlertDismissed    Type = "alert.dismissed"
)

type Event struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

type Handler func(Event)

type BusInterface interface {
	Subscribe(t Type, h Handler)
	Publish(e Event)
}

// Bus is an in-process event bus backed by a buffered channel.
type Bus struct {
	ch      chan Event
	mu      sync.RWMutex
	subs    map[Type][]Handler
	logger  providers.Logger
	done    chan struct{}
	stopped bool
}

const defaultBufferSize = 256

func NewBus(logger providers.Logger) *Bus {
	return NewBusWithSize(logger, defaultBufferSize)
}

func NewBusWithSize(logger providers.Logger, bufSize int) *Bus {
	if bufSize <= 0 {
		bufSize = defaultBufferSize
	}
	return &Bus{
		ch:     make(chan Event, bufSize),
		subs:   make(map[Type][]Handler),
		logger: logger,
		done:   make(chan struct{}),
	}
}

func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[t] = append(b.subs[t], h)
}

// Publish never blocks; events are dropped with a warning when the buffer is full.
func (b *Bus) Publish(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	select {
	case b.ch <- e:
	default:
		b.logger.Warnf(providers.TypeMonitor, "event bus full, dropping %s", e.Type)
	}
}

// Start dispatches events until Stop is called, then drains what is left. Run it in a goroutine.
func (b *Bus) Start() {
	for {
		select {
		case e := <-b.ch:
			b.dispatch(e)
		case <-b.done:
			for {
				select {
				case e := <-b.ch:
					b.dispatch(e)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.stopped {
		b.stopped = true
		close(b.done)
	}
}

func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	handlers := b.subs[e.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		h := h
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Errorf(providers.TypeMonitor, "event handler for %s panicked: %v", e.Type, r)
				}
			}()
			h(e)
		}()
	}
}
