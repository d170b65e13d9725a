package props

// Observe returns a source emitting the effective value of p on subscribe and
// after every change. It completes when the store is disposed. Combined with
// BindUntyped or Bind it links one property to another.
func Observe[T any](s *Store, p *Property[T]) Observable[T] {
	return ObservableFunc[T](func(observer Observer[T]) Subscription {
		if s.disposed {
			observer.OnCompleted()
			return EmptySubscription
		}
		active := true
		remove := s.AddListener(func(change PropertyChanged) {
			if !active || change.Property != AnyProperty(p) {
				return
			}
			if typed, ok := change.NewValue.(T); ok {
				observer.OnNext(typed)
			} else {
				observer.OnNext(p.Default())
			}
		})
		cancel := s.onDispose(func() {
			if active {
				active = false
				observer.OnCompleted()
			}
		})
		observer.OnNext(Get(s, p))
		return SubscriptionFunc(func() {
			active = false
			remove()
			cancel()
		})
	})
}

// ObserveAny is the untyped form of Observe, used when the target type is
// only known at runtime.
func ObserveAny(s *Store, property AnyProperty) Observable[any] {
	return ObservableFunc[any](func(observer Observer[any]) Subscription {
		if s.disposed {
			observer.OnCompleted()
			return EmptySubscription
		}
		active := true
		remove := s.AddListener(func(change PropertyChanged) {
			if active && change.Property == property {
				observer.OnNext(change.NewValue)
			}
		})
		cancel := s.onDispose(func() {
			if active {
				active = false
				observer.OnCompleted()
			}
		})
		observer.OnNext(s.GetAny(property))
		return SubscriptionFunc(func() {
			active = false
			remove()
			cancel()
		})
	})
}
