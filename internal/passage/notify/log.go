package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/passage/pkg/slogx"
)

// LogSender records messages in the log instead of sending them. The body
// is not logged since it carries codes and reset links.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	slogx.FromContext(ctx).Info("email suppressed",
		slog.String("to", strings.Join(msg.To, ",")),
		slog.String("subject", msg.Subject),
		slog.Int("bytes", len(msg.HTML)),
	)
	return nil
}
