// internal/ui/disclosure/disclosure.go

// Package disclosure implements open/closed popovers (menus, dropdowns,
// flyouts) that close on outside interaction. All disclosures of a screen
// share one registry, and the registry holds a single subscription to the
// event source for as long as any disclosure is open.
package disclosure

import "sync"

// Ref identifies one element a disclosure owns, typically its trigger and
// its panel. Refs compare by identity.
type Ref struct {
	name string
}

// NewRef creates a ref. The name is only used for debugging.
func NewRef(name string) *Ref {
	return &Ref{name: name}
}

func (r *Ref) String() string {
	if r == nil {
		return "<nil>"
	}
	return r.name
}

// Event is an interaction that may dismiss open disclosures
type Event struct {
	// Target is the element interacted with; nil means outside every element
	Target *Ref
	Escape bool
}

// Source delivers events to a subscriber until the returned cancel is called
type Source interface {
	Subscribe(fn func(Event)) (cancel func())
}

// Disclosure is one popover
type Disclosure struct {
	name     string
	refs     []*Ref
	open     bool
	registry *Registry
}

// Name returns the name the disclosure was registered with
func (d *Disclosure) Name() string { return d.name }

// IsOpen reports whether the disclosure is visible
func (d *Disclosure) IsOpen() bool {
	d.registry.mu.Lock()
	defer d.registry.mu.Unlock()
	return d.open
}

// Owns reports whether target is one of the disclosure's refs
func (d *Disclosure) Owns(target *Ref) bool {
	if target == nil {
		return false
	}
	for _, r := range d.refs {
		if r == target {
			return true
		}
	}
	return false
}

// Open shows the disclosure
func (d *Disclosure) Open() { d.registry.set(d, true) }

// Close hides the disclosure
func (d *Disclosure) Close() { d.registry.set(d, false) }

// Toggle flips the disclosure
func (d *Disclosure) Toggle() {
	d.registry.mu.Lock()
	open := !d.open
	d.registry.mu.Unlock()
	d.registry.set(d, open)
}

// Registry owns the disclosures of one screen and their shared listener
type Registry struct {
	mu       sync.Mutex
	source   Source
	items    []*Disclosure
	openN    int
	cancel   func()
	onChange []func(d *Disclosure, open bool)
}

// NewRegistry creates a registry listening on source while anything is open
func NewRegistry(source Source) *Registry {
	return &Registry{source: source}
}

// New registers a disclosure owning refs. It starts closed.
func (r *Registry) New(name string, refs ...*Ref) *Disclosure {
	d := &Disclosure{name: name, refs: refs, registry: r}
	r.mu.Lock()
	r.items = append(r.items, d)
	r.mu.Unlock()
	return d
}

// OnChange registers a callback run after a disclosure opens or closes
func (r *Registry) OnChange(fn func(d *Disclosure, open bool)) {
	r.mu.Lock()
	r.onChange = append(r.onChange, fn)
	r.mu.Unlock()
}

// Listening reports whether the shared listener is subscribed
func (r *Registry) Listening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// OpenCount returns how many disclosures are open
func (r *Registry) OpenCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openN
}

// Dispatch closes every open disclosure that does not own target
func (r *Registry) Dispatch(target *Ref) {
	for _, d := range r.openItems() {
		if !d.Owns(target) {
			r.set(d, false)
		}
	}
}

// Escape closes every open disclosure
func (r *Registry) Escape() {
	for _, d := range r.openItems() {
		r.set(d, false)
	}
}

func (r *Registry) handle(ev Event) {
	if ev.Escape {
		r.Escape()
		return
	}
	r.Dispatch(ev.Target)
}

func (r *Registry) openItems() []*Disclosure {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Disclosure
	for _, d := range r.items {
		if d.open {
			out = append(out, d)
		}
	}
	return out
}

// set changes one disclosure and keeps the subscription in step with the
// open count: subscribe on 0 -> 1, cancel on 1 -> 0.
func (r *Registry) set(d *Disclosure, open bool) {
	r.mu.Lock()
	if d.open == open {
		r.mu.Unlock()
		return
	}
	d.open = open

	var subscribe bool
	var cancel func()
	if open {
		r.openN++
		subscribe = r.openN == 1 && r.cancel == nil && r.source != nil
	} else {
		r.openN--
		if r.openN == 0 {
			cancel, r.cancel = r.cancel, nil
		}
	}
	callbacks := append(([]func(*Disclosure, bool))(nil), r.onChange...)
	r.mu.Unlock()

	if subscribe {
		c := r.source.Subscribe(r.handle)
		r.mu.Lock()
		// a close may have raced in while subscribing
		if r.openN == 0 || r.cancel != nil {
			r.mu.Unlock()
			c()
		} else {
			r.cancel = c
			r.mu.Unlock()
		}
	}
	if cancel != nil {
		cancel()
	}
	for _, fn := range callbacks {
		fn(d, open)
	}
}

// Bus is an in-process Source. The console publishes every click and key
// press to it; only the registry's shared listener ever receives them.
type Bus struct {
	mu   sync.Mutex
	subs map[int]func(Event)
	next int
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe adds fn until cancel is called. cancel is idempotent.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers ev to every subscriber
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	subs := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// Subscribers returns the number of active subscriptions
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
