package signal

// Notification reports that a named property of Source changed to Value.
type Notification struct {
	Source   any
	Property string
	Value    any
}

// Notifier is embedded by objects that publish property changes.
type Notifier struct {
	notify Signal[Notification]
}

// OnNotify connects fn to every property change.
func (n *Notifier) OnNotify(fn func(Notification)) (disconnect func()) {
	return n.notify.Connect(fn)
}

// OnProperty connects fn to changes of a single property.
func (n *Notifier) OnProperty(property string, fn func(Notification)) (disconnect func()) {
	return n.notify.Connect(func(note Notification) {
		if note.Property == property {
			fn(note)
		}
	})
}

// Notify emits a Notification for source.
func (n *Notifier) Notify(source any, property string, value any) {
	n.notify.Emit(Notification{Source: source, Property: property, Value: value})
}

// FreezeNotify suppresses notifications until the returned function runs.
func (n *Notifier) FreezeNotify() (thaw func()) {
	return n.notify.Block()
}
