// Package notify fans completed registrations out to the configured
// operators. Each delivery is independent: one failed send is logged and
// never blocks the others or the user-facing flow.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rahimovschool/intakebot/internal/models"
)

// Sender delivers a message to a single chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Notifier sends registration summaries to a fixed operator list.
type Notifier struct {
	sender    Sender
	operators []int64
}

// New creates a notifier for the given operator chat ids.
func New(sender Sender, operators []int64) *Notifier {
	slog.Debug("Notifier created", "operators", len(operators))
	return &Notifier{sender: sender, operators: operators}
}

// RegistrationCompleted sends the summary to every operator. saved carries
// the persistence gateway outcome and is included in the summary.
func (n *Notifier) RegistrationCompleted(ctx context.Context, reg *models.Registration, saved bool) {
	if len(n.operators) == 0 {
		slog.Debug("Notifier has no operators configured, skipping fan-out")
		return
	}

	summary := formatSummary(reg, saved)
	delivered := 0
	for _, operator := range n.operators {
		if err := n.sender.SendMessage(ctx, operator, summary); err != nil {
			slog.Error("Notifier delivery failed", "error", err, "operator", operator, "sequence", reg.Sequence)
			continue
		}
		delivered++
	}
	slog.Info("Notifier fan-out completed", "delivered", delivered, "operators", len(n.operators), "sequence", reg.Sequence, "saved", saved)
}

// formatSummary renders the fixed-template operator summary.
func formatSummary(reg *models.Registration, saved bool) string {
	status := "✅ Jadvalga yozildi"
	if !saved {
		status = "⚠️ Jadvalga yozilmadi"
	}

	username := reg.Username
	if username != "" && !strings.HasPrefix(username, "@") {
		username = "@" + username
	}
	if username == "" {
		username = "—"
	}

	var b strings.Builder
	b.WriteString("🆕 Yangi ro‘yxatdan o‘tish!\n\n")
	fmt.Fprintf(&b, "👤 Ism: %s\n", reg.Name)
	fmt.Fprintf(&b, "📍 Tuman: %s\n", reg.District)
	fmt.Fprintf(&b, "📞 Telefon: %s\n", reg.Phone)
	fmt.Fprintf(&b, "🆔 User ID: %d\n", reg.UserID)
	fmt.Fprintf(&b, "👥 Ism familiya: %s\n", reg.DisplayName)
	fmt.Fprintf(&b, "🔗 Username: %s\n", username)
	fmt.Fprintf(&b, "🕒 Vaqt: %s\n", reg.RegisteredAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "💾 Holat: %s", status)
	return b.String()
}
