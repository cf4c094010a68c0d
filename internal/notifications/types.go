package notifications

// Payload is one user-facing notification.
type Payload struct {
	Title   string
	Content string
}

// Sender delivers notifications to a desktop or terminal backend.
type Sender interface {
	Send(payload Payload)
}

// SenderFunc adapts a plain function to Sender.
type SenderFunc func(payload Payload)

func (f SenderFunc) Send(payload Payload) {
	if f != nil {
		f(payload)
	}
}
