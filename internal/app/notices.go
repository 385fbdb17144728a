package app

import (
	"github.com/zjrosen/classwind/internal/host"
	"github.com/zjrosen/classwind/internal/log"
	"github.com/zjrosen/classwind/internal/pubsub"
)

// Level is the severity of a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Notice is a message for the user.
type Notice struct {
	Level   Level
	Message string
}

// Notices is a host.Notifier that publishes notices for the preview to show
// as toasts.
type Notices struct {
	broker *pubsub.Broker[Notice]
}

var _ host.Notifier = (*Notices)(nil)

func NewNotices() *Notices {
	return &Notices{broker: pubsub.NewBroker[Notice]()}
}

func (n *Notices) Info(msg string) {
	log.Info(log.CatUI, "Notice", "message", msg)
	n.broker.Publish(pubsub.CreatedEvent, Notice{Level: LevelInfo, Message: msg})
}

func (n *Notices) Error(msg string) {
	log.Error(log.CatUI, "Notice", "message", msg)
	n.broker.Publish(pubsub.CreatedEvent, Notice{Level: LevelError, Message: msg})
}

// Subscriber exposes the notice stream.
func (n *Notices) Subscriber() pubsub.Subscriber[Notice] {
	return n.broker
}

// Close ends all notice subscriptions.
func (n *Notices) Close() {
	n.broker.Close()
}
