package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	platformerrors "github.com/veldtmaps/edge/internal/platform/errors"
)

// PushAction is one declared notification action. Clicking it either
// focuses/opens the application or dismisses the notification; that
// resolution belongs to the host's notification facility.
type PushAction struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// Notification is the surfaced form of one push payload. This path never
// touches the cache partitions; it only shares the coordinator's background
// execution context.
type Notification struct {
	Title   string
	Body    string
	Data    json.RawMessage
	Actions []PushAction
}

// Notifier is the host notification facility boundary.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type pushPayload struct {
	Title   string          `json:"title"`
	Body    string          `json:"body"`
	Data    json.RawMessage `json:"data"`
	Actions []PushAction    `json:"actions"`
}

// defaultPrinter localizes fallback notification copy.
var defaultPrinter = message.NewPrinter(language.English)

// ParsePushPayload decodes a push payload into a notification. Malformed
// payloads and missing titles degrade to default copy; this function never
// fails, so a bad payload can never propagate a fault to the host runtime.
func ParsePushPayload(raw []byte, printer *message.Printer) Notification {
	if printer == nil {
		printer = defaultPrinter
	}

	var payload pushPayload
	if len(raw) > 0 {
		// Decode errors fall through to the defaults below.
		_ = json.Unmarshal(raw, &payload)
	}

	title := strings.TrimSpace(payload.Title)
	if title == "" {
		title = printer.Sprintf("Veldt")
	}
	body := strings.TrimSpace(payload.Body)
	if body == "" {
		body = printer.Sprintf("You have a new notification.")
	}
	return Notification{
		Title:   title,
		Body:    body,
		Data:    payload.Data,
		Actions: payload.Actions,
	}
}

// OnPush parses a push payload and surfaces it through the notifier.
// Notifier failures are logged and dropped; the trigger surface never
// observes them.
func (c *Coordinator) OnPush(ctx context.Context, raw []byte, notifier Notifier) {
	if notifier == nil {
		return
	}
	n := ParsePushPayload(raw, nil)
	if err := notifier.Notify(ctx, n); err != nil {
		fault := platformerrors.Wrap(platformerrors.CodeTaskFailed, fmt.Sprintf("push notification %q", n.Title), err)
		c.logf("%s: %v: %v", fault.Code, fault, err)
		record(ctx, c.events, Event{Outcome: OutcomeTaskFail, Detail: "push: " + err.Error()})
	}
}
