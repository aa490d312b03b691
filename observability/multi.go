package observability

import "context"

// MultiObserver delivers each event to a fixed list of observers in order.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver combines observers. Nil and NoOpObserver entries are
// dropped and nested MultiObservers are flattened, so a pack observing
// both the runtime's and its own observer pays for each sink once.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	m := &MultiObserver{}
	for _, obs := range observers {
		m.add(obs)
	}
	return m
}

func (m *MultiObserver) add(obs Observer) {
	switch o := obs.(type) {
	case nil, NoOpObserver:
	case *NoOpObserver:
	case *MultiObserver:
		if o != nil {
			m.observers = append(m.observers, o.observers...)
		}
	default:
		m.observers = append(m.observers, obs)
	}
}

// Len reports how many observers receive each event.
func (m *MultiObserver) Len() int {
	return len(m.observers)
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}
