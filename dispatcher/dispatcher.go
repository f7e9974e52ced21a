// Package dispatcher routes decoded data frames to user-registered
// handlers, rewriting numeric field codes into their symbolic names via the
// fields catalog before handlers ever see a content item.
package dispatcher

import (
	"errors"
	"sync"

	"github.com/alexgolec/td-ameritrade-api/envelope"
	"github.com/alexgolec/td-ameritrade-api/fields"
)

// HandlerFunc receives one decoded data entry for the service it was
// registered against. An error does not stop later handlers from running;
// see Deliver.
type HandlerFunc func(entry envelope.DataEntry) error

// Dispatcher holds the ordered, per-service handler registry.
type Dispatcher struct {
	mu       sync.Mutex
	handlers map[fields.ServiceID][]HandlerFunc
}

// New returns an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{handlers: make(map[fields.ServiceID][]HandlerFunc)}
}

// Register appends handler to the ordered list for service. Handlers run
// in registration order on every Deliver call for that service.
func (d *Dispatcher) Register(service fields.ServiceID, handler HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[service] = append(d.handlers[service], handler)
}

// Deliver renames the coded fields of every content item in entry, then
// invokes every handler registered for entry.Service, in order. All
// handler errors are collected and joined; a failing handler never
// prevents the remaining handlers from running.
func (d *Dispatcher) Deliver(entry envelope.DataEntry) error {
	service := fields.ServiceID(entry.Service)
	renamed := renameEntry(service, entry)

	d.mu.Lock()
	handlers := append([]HandlerFunc(nil), d.handlers[service]...)
	d.mu.Unlock()

	var errs []error
	for _, h := range handlers {
		if err := h(renamed); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &HandlerError{Errs: errs}
	}
	return nil
}

// renameEntry returns a copy of entry whose content items have had every
// coded key rewritten to its symbolic name. Keys that are not the decimal
// form of a known field code are left untouched.
func renameEntry(service fields.ServiceID, entry envelope.DataEntry) envelope.DataEntry {
	content := make([]map[string]any, len(entry.Content))
	for i, item := range entry.Content {
		renamed := make(map[string]any, len(item))
		for key, value := range item {
			if symbol, ok := fields.SymbolForKey(service, key); ok {
				renamed[symbol] = value
				continue
			}
			renamed[key] = value
		}
		content[i] = renamed
	}
	return envelope.DataEntry{
		Service:   entry.Service,
		Command:   entry.Command,
		Timestamp: entry.Timestamp,
		Content:   content,
	}
}

// HandlerError aggregates every error raised by handlers during a single
// Deliver call.
type HandlerError struct {
	Errs []error
}

func (e *HandlerError) Error() string {
	return errors.Join(e.Errs...).Error()
}

func (e *HandlerError) Unwrap() []error { return e.Errs }
