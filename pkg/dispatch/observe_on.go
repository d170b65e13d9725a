package dispatch

import (
	"sync/atomic"

	props "github.com/goliatone/go-props"
)

// ObserveOn re-posts every notification of source onto d, so a source
// producing on another goroutine (a timer, a network client) is delivered on
// the owner thread. Notifications posted after the subscription is disposed
// are dropped.
func ObserveOn[T any](source props.Observable[T], d *Dispatcher) props.Observable[T] {
	return props.ObservableFunc[T](func(observer props.Observer[T]) props.Subscription {
		var disposed atomic.Bool
		forward := props.ObserverFuncs[T]{
			Next: func(value T) {
				d.Post(func() {
					if !disposed.Load() {
						observer.OnNext(value)
					}
				})
			},
			Completed: func() {
				d.Post(func() {
					if !disposed.Load() {
						observer.OnCompleted()
					}
				})
			},
			Error: func(err error) {
				d.Post(func() {
					if !disposed.Load() {
						observer.OnError(err)
					}
				})
			},
		}
		inner := source.Subscribe(forward)
		return props.SubscriptionFunc(func() {
			disposed.Store(true)
			if inner != nil {
				inner.Dispose()
			}
		})
	})
}
