package ui

import (
	"strings"

	"fyne.io/fyne/v2"

	"github.com/skobkin/debugpanel/internal/notifications"
)

// FyneNotificationSender delivers notifications through the fyne app.
type FyneNotificationSender struct {
	app fyne.App
}

func NewFyneNotificationSender(app fyne.App) *FyneNotificationSender {
	return &FyneNotificationSender{app: app}
}

func (s *FyneNotificationSender) Send(payload notifications.Payload) {
	if s == nil || s.app == nil {
		return
	}

	title := strings.TrimSpace(payload.Title)
	if title == "" {
		title = windowTitle
	}
	content := strings.TrimSpace(payload.Content)
	appLogger().Debug("native notification", "title", title)

	fyne.Do(func() {
		s.app.SendNotification(fyne.NewNotification(title, content))
	})
}
