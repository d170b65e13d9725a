package props

// Observer receives notifications from an Observable. After OnCompleted or
// OnError no further notifications are delivered.
type Observer[T any] interface {
	OnNext(value T)
	OnCompleted()
	OnError(err error)
}

// Subscription releases an observer from its source.
type Subscription interface {
	Dispose()
}

// Observable is a push-based source of values.
type Observable[T any] interface {
	Subscribe(observer Observer[T]) Subscription
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

// Dispose implements Subscription.
func (f SubscriptionFunc) Dispose() {
	if f != nil {
		f()
	}
}

type emptySubscription struct{}

func (emptySubscription) Dispose() {}

// EmptySubscription is a Subscription that does nothing when disposed.
var EmptySubscription Subscription = emptySubscription{}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs[T any] struct {
	Next      func(T)
	Completed func()
	Error     func(error)
}

// OnNext implements Observer.
func (o ObserverFuncs[T]) OnNext(value T) {
	if o.Next != nil {
		o.Next(value)
	}
}

// OnCompleted implements Observer.
func (o ObserverFuncs[T]) OnCompleted() {
	if o.Completed != nil {
		o.Completed()
	}
}

// OnError implements Observer.
func (o ObserverFuncs[T]) OnError(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}

// ObservableFunc adapts a subscribe function to Observable.
type ObservableFunc[T any] func(observer Observer[T]) Subscription

// Subscribe implements Observable.
func (f ObservableFunc[T]) Subscribe(observer Observer[T]) Subscription {
	if f == nil {
		return EmptySubscription
	}
	sub := f(observer)
	if sub == nil {
		return EmptySubscription
	}
	return sub
}

// Subject is a hot, multicast source. It is not safe for concurrent use;
// deliver from the owning thread or marshal through a dispatcher.
type Subject[T any] struct {
	observers []*subjectObserver[T]
	done      bool
	err       error
}

type subjectObserver[T any] struct {
	observer Observer[T]
	active   bool
}

// NewSubject returns an empty Subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Subscribe registers observer. Subscribing to a terminated subject replays
// the terminal notification immediately.
func (s *Subject[T]) Subscribe(observer Observer[T]) Subscription {
	if observer == nil {
		return EmptySubscription
	}
	if s.done {
		if s.err != nil {
			observer.OnError(s.err)
		} else {
			observer.OnCompleted()
		}
		return EmptySubscription
	}
	entry := &subjectObserver[T]{observer: observer, active: true}
	s.observers = append(s.observers, entry)
	return SubscriptionFunc(func() {
		s.remove(entry)
	})
}

// OnNext pushes value to every active observer.
func (s *Subject[T]) OnNext(value T) {
	if s.done {
		return
	}
	for _, entry := range s.snapshot() {
		if entry.active {
			entry.observer.OnNext(value)
		}
	}
}

// OnCompleted terminates the subject and notifies every observer.
func (s *Subject[T]) OnCompleted() {
	s.terminate(nil)
}

// OnError terminates the subject with err.
func (s *Subject[T]) OnError(err error) {
	s.terminate(err)
}

// ObserverCount returns the number of active observers.
func (s *Subject[T]) ObserverCount() int {
	return len(s.observers)
}

// Done reports whether the subject has completed or failed.
func (s *Subject[T]) Done() bool {
	return s.done
}

func (s *Subject[T]) terminate(err error) {
	if s.done {
		return
	}
	s.done = true
	s.err = err
	observers := s.snapshot()
	s.observers = nil
	for _, entry := range observers {
		if !entry.active {
			continue
		}
		entry.active = false
		if err != nil {
			entry.observer.OnError(err)
		} else {
			entry.observer.OnCompleted()
		}
	}
}

func (s *Subject[T]) snapshot() []*subjectObserver[T] {
	return append([]*subjectObserver[T](nil), s.observers...)
}

func (s *Subject[T]) remove(target *subjectObserver[T]) {
	target.active = false
	for i, entry := range s.observers {
		if entry == target {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// FromValues returns a cold source that delivers values synchronously during
// Subscribe and then completes.
func FromValues[T any](values ...T) Observable[T] {
	items := append([]T(nil), values...)
	return ObservableFunc[T](func(observer Observer[T]) Subscription {
		for _, value := range items {
			observer.OnNext(value)
		}
		observer.OnCompleted()
		return EmptySubscription
	})
}

// Never returns a source that never emits and never completes.
func Never[T any]() Observable[T] {
	return ObservableFunc[T](func(Observer[T]) Subscription {
		return EmptySubscription
	})
}
