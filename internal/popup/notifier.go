package popup

import (
	"time"

	"github.com/parla-app/parla/internal/dom"
	"github.com/parla-app/parla/internal/loop"
	"go.uber.org/zap"
)

const (
	NotificationClass   = "parla-notification"
	notificationVisible = "parla-notification-visible"
)

// Notifier shows short-lived toasts at the page level.
type Notifier struct {
	doc      *dom.Document
	sched    loop.Scheduler
	duration time.Duration
	history  []string
	logger   *zap.Logger
}

// NewNotifier creates a notifier whose toasts live for duration.
func NewNotifier(doc *dom.Document, sched loop.Scheduler, duration time.Duration, logger *zap.Logger) *Notifier {
	if duration <= 0 {
		duration = 2 * time.Second
	}
	return &Notifier{doc: doc, sched: sched, duration: duration, logger: logger.Named("notify")}
}

// Show appends a toast and schedules its removal.
func (n *Notifier) Show(message string) {
	n.history = append(n.history, message)
	n.logger.Debug("Showing notification", zap.String("message", message))

	toast := n.doc.CreateElement("div")
	n.doc.SetAttr(toast, "class", NotificationClass)
	n.doc.AppendChild(toast, n.doc.CreateText(message))
	n.doc.AppendChild(n.doc.Body(), toast)
	n.sched.Post(func() { n.doc.AddClass(toast, notificationVisible) })

	n.sched.AfterFunc(n.duration, func() {
		if toast.Parent != nil {
			n.doc.RemoveNode(toast)
		}
	})
}

// History returns every message shown so far.
func (n *Notifier) History() []string {
	return append([]string(nil), n.history...)
}
