package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rahimovschool/intakebot/internal/models"
)

// recentListLimit caps how many registrations /users shows.
const recentListLimit = 10

const adminPanelText = `🛠 Operator buyruqlari:

/stats — ro‘yxatdan o‘tganlar soni
/users — oxirgi ro‘yxatdan o‘tganlar
/export — jadval havolasi
/status — xizmat holati`

// handleOperatorCommand runs operator-only commands. Returns false when the
// command is not an operator command, so the caller can fall through to the
// normal reply.
func (r *Registrar) handleOperatorCommand(ctx context.Context, cmd string, msg models.IncomingMessage) bool {
	switch cmd {
	case "admin":
		r.reply(ctx, msg.ChatID, adminPanelText)
	case "stats":
		r.sendStats(ctx, msg.ChatID)
	case "users":
		r.sendRecentUsers(ctx, msg.ChatID)
	case "export":
		r.sendExportLink(ctx, msg.ChatID)
	case "status":
		r.sendStatus(ctx, msg.ChatID)
	default:
		return false
	}
	slog.Info("Registrar served operator command", "command", cmd, "operator", msg.UserID)
	return true
}

func (r *Registrar) sendStats(ctx context.Context, chatID int64) {
	count, err := r.recorder.RowCount(ctx)
	if err != nil {
		slog.Error("Registrar stats query failed", "error", err)
		r.reply(ctx, chatID, "⚠️ Jadvalga ulanib bo‘lmadi.")
		return
	}
	r.reply(ctx, chatID, fmt.Sprintf("📊 Jami ro‘yxatdan o‘tganlar: %d", count))
}

func (r *Registrar) sendRecentUsers(ctx context.Context, chatID int64) {
	regs, err := r.recorder.Recent(ctx, recentListLimit)
	if err != nil {
		slog.Error("Registrar user listing query failed", "error", err)
		r.reply(ctx, chatID, "⚠️ Jadvalga ulanib bo‘lmadi.")
		return
	}
	if len(regs) == 0 {
		r.reply(ctx, chatID, "📭 Hozircha hech kim ro‘yxatdan o‘tmagan.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👥 Oxirgi %d ta ro‘yxat:\n\n", len(regs))
	for _, reg := range regs {
		fmt.Fprintf(&b, "%d. %s — %s, %s\n", reg.Sequence, reg.Name, reg.District, reg.Phone)
	}
	r.reply(ctx, chatID, strings.TrimRight(b.String(), "\n"))
}

func (r *Registrar) sendExportLink(ctx context.Context, chatID int64) {
	url := r.recorder.SpreadsheetURL()
	if url == "" {
		r.reply(ctx, chatID, "⚠️ Jadvalga ulanib bo‘lmadi.")
		return
	}
	r.reply(ctx, chatID, "📄 Jadval havolasi:\n"+url)
}

func (r *Registrar) sendStatus(ctx context.Context, chatID int64) {
	connected := "✅ ulangan"
	if !r.recorder.Connected() {
		connected = "❌ ulanmagan"
	}
	text := fmt.Sprintf("🩺 Xizmat holati:\n\nJadval: %s\nFaol sessiyalar: %d\nIshlash vaqti: %s",
		connected, r.sessions.ActiveCount(), time.Since(r.startedAt).Round(time.Second))
	r.reply(ctx, chatID, text)
}
