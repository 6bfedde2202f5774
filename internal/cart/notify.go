package cart

import "sync"

// Variant selects how a notification is presented.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a transient user-facing message.
type Notification struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

// Notifier receives user notifications.
type Notifier interface {
	Notify(n Notification)
}

// Info builds a default notification.
func Info(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDefault}
}

// Failure builds a destructive notification.
func Failure(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDestructive}
}

// Inbox collects notifications until a response drains them.
type Inbox struct {
	mu    sync.Mutex
	items []Notification
}

func NewInbox() *Inbox {
	return &Inbox{}
}

func (i *Inbox) Notify(n Notification) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.items = append(i.items, n)
}

// Drain returns and forgets the pending notifications. It never returns nil.
func (i *Inbox) Drain() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.items
	i.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}
