package event

import "sync"

// Channel is a closeable publish/subscribe registry.
// Handlers of an event run synchronously, last registered first.
type Channel struct {
	mutex    sync.Mutex
	handlers map[string][]Handler
	closed   bool
}

func NewChannel() *Channel {
	return &Channel{handlers: make(map[string][]Handler)}
}

func (c *Channel) Subscribe(name string, handler Handler) error {
	if name == "" {
		return ErrEmptyEventName
	}
	if handler == nil {
		return ErrNilHandler
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return nil
	}

	c.handlers[name] = append(c.handlers[name], handler)
	return nil
}

func (c *Channel) Publish(name string, payload any) {
	c.mutex.Lock()
	handlers := c.handlers[name]
	c.mutex.Unlock()

	for i := len(handlers) - 1; i >= 0; i-- {
		handlers[i](payload)
	}
}

func (c *Channel) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.handlers = make(map[string][]Handler)
	c.closed = true
}
