package eventbus

import (
	"reflect"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
)

// EventBus dispatches published values to every subscribed func whose parameters accept them.
// It is safe for concurrent use.
type EventBus interface {
	Publish(args ...interface{})
	Subscribe(handler interface{})
	Unsubscribe(handler interface{})
	Clear()
	SubscribersCount() int
}

type bus struct {
	mu       sync.RWMutex
	log      logrus.FieldLogger
	handlers []reflect.Value
}

func NewEventPublisher(log logrus.FieldLogger) EventBus {
	return &bus{log: log}
}

// MatchSignature reports whether handler can be called with args. Nil args match pointer and
// interface parameters.
func MatchSignature(handler interface{}, args []interface{}) bool {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func || t.NumIn() != len(args) {
		return false
	}
	for i, arg := range args {
		param := t.In(i)
		if arg == nil {
			if k := param.Kind(); k != reflect.Interface && k != reflect.Ptr {
				return false
			}
			continue
		}
		if !reflect.TypeOf(arg).AssignableTo(param) {
			return false
		}
	}
	return true
}

// Publish calls matching handlers in subscription order on the caller's goroutine. A panicking
// handler is logged and does not stop the others. Handlers may subscribe or publish themselves.
func (b *bus) Publish(args ...interface{}) {
	b.mu.RLock()
	handlers := slices.Clone(b.handlers)
	b.mu.RUnlock()

	called := 0
	for _, h := range handlers {
		if !MatchSignature(h.Interface(), args) {
			continue
		}
		if b.call(h, args) {
			called++
		}
	}
	if called == 0 && b.log != nil {
		b.log.WithField("args", args).Debug("eventbus: no matching subscribers")
	}
}

func (b *bus) call(h reflect.Value, args []interface{}) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			if b.log != nil {
				b.log.WithFields(logrus.Fields{
					"handler": h.Type().String(),
					"args":    args,
					"panic":   r,
				}).Error("eventbus: handler panicked")
			}
		}
	}()
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(h.Type().In(i))
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}
	h.Call(in)
	return true
}

func (b *bus) Subscribe(handler interface{}) {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func {
		panic("eventbus: handler must be a function")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, v)
}

// Unsubscribe removes the first subscription of handler. Funcs are compared by code pointer,
// so two closures built from the same literal are indistinguishable.
func (b *bus) Unsubscribe(handler interface{}) {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, h := range b.handlers {
		if h.Pointer() == v.Pointer() {
			b.handlers = slices.Delete(b.handlers, i, i+1)
			return
		}
	}
}

func (b *bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = nil
}

func (b *bus) SubscribersCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
