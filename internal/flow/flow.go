// Package flow implements the per-user conversation state machine for the
// registration form: name, district, phone, then completion.
//
// The state machine is the only writer of session state. Completion fires
// persistence and operator notification as independent operations; a failure
// in either never blocks the user-facing flow.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/rahimovschool/intakebot/internal/models"
	"github.com/rahimovschool/intakebot/internal/phone"
)

// Sender delivers messages back to the chat transport.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMessageWithKeyboard(ctx context.Context, chatID int64, text string, buttonRows [][]string) error
	SendContactRequest(ctx context.Context, chatID int64, text, button string) error
	SendMessageRemoveKeyboard(ctx context.Context, chatID int64, text string) error
}

// Recorder persists completed registrations and answers operator queries.
// AddRegistration reports success as a boolean and never returns an error;
// the gateway logs its own failures.
type Recorder interface {
	AddRegistration(ctx context.Context, reg *models.Registration) bool
	Connected() bool
	RowCount(ctx context.Context) (int, error)
	Recent(ctx context.Context, n int) ([]models.Registration, error)
	SpreadsheetURL() string
}

// Notifier fans a completed registration out to the configured operators.
type Notifier interface {
	RegistrationCompleted(ctx context.Context, reg *models.Registration, saved bool)
}

// DefaultDistricts is the Tashkent district reply keyboard. It is a
// convenience for the user, not a closed set: any non-empty text is
// accepted as a location.
var DefaultDistricts = []string{
	"Bektemir",
	"Chilonzor",
	"Mirobod",
	"Mirzo Ulug‘bek",
	"Olmazor",
	"Sergeli",
	"Shayxontohur",
	"Uchtepa",
	"Yakkasaroy",
	"Yashnobod",
	"Yunusobod",
	"Hamza (Yashnobod)",
}

// User-facing message texts.
const (
	msgGreeting       = "👋 Assalomu alaykum!\n\nIsmingizni kiriting:"
	msgNameInvalid    = "❌ Ism faqat harflardan iborat bo‘lsin (kamida 2 ta harf)"
	msgAskLocation    = "📍 Toshkent shahrining qaysi tumanida yashaysiz?"
	msgAskPhone       = "📞 Telefon raqamingizni yuboring:"
	btnSharePhone     = "📱 Telefon yuborish"
	msgPhoneInvalid   = "❌ Raqam noto‘g‘ri. Quyidagi ko‘rinishlardan birida yuboring:"
	msgRegistered     = "✅ Ro‘yxatdan o‘tdingiz!"
	msgDegradedNotice = "⚠️ Ma’lumotingiz vaqtincha jadvalga yozilmadi, operatorlarga yuborildi."
	msgCancelled      = "❌ Ro‘yxatdan o‘tish bekor qilindi."
	msgStartHint      = "ℹ️ Ro‘yxatdan o‘tish uchun /start buyrug‘ini yuboring."
)

// Registrar drives the conversation state machine. One Registrar handles
// every user; per-user state lives in the SessionManager.
type Registrar struct {
	sender    Sender
	recorder  Recorder
	notifier  Notifier
	sessions  *SessionManager
	operators map[int64]struct{}
	districts []string
	startedAt time.Time
}

// Option configures a Registrar.
type Option func(*Registrar)

// WithOperators sets the chat ids allowed to use operator commands.
func WithOperators(ids []int64) Option {
	return func(r *Registrar) {
		for _, id := range ids {
			r.operators[id] = struct{}{}
		}
	}
}

// WithDistricts overrides the district keyboard.
func WithDistricts(districts []string) Option {
	return func(r *Registrar) {
		r.districts = districts
	}
}

// NewRegistrar creates the conversation state machine.
func NewRegistrar(sender Sender, recorder Recorder, notifier Notifier, opts ...Option) *Registrar {
	r := &Registrar{
		sender:    sender,
		recorder:  recorder,
		notifier:  notifier,
		sessions:  NewSessionManager(),
		operators: make(map[int64]struct{}),
		districts: DefaultDistricts,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(r)
	}
	slog.Debug("Registrar created", "operators", len(r.operators), "districts", len(r.districts))
	return r
}

// Sessions exposes the session manager for eviction sweeps and status.
func (r *Registrar) Sessions() *SessionManager {
	return r.sessions
}

// HandleMessage routes one incoming message through the state machine.
// It never returns an error: every outcome is either a reply to the user
// or a logged delivery failure.
func (r *Registrar) HandleMessage(ctx context.Context, msg models.IncomingMessage) {
	slog.Debug("Registrar handling message", "userID", msg.UserID, "has_contact", msg.Contact != nil, "text_length", len(msg.Text))

	if cmd := parseCommand(msg.Text); cmd != "" {
		r.handleCommand(ctx, cmd, msg)
		return
	}

	sess := r.sessions.GetOrCreate(msg.UserID)
	sess.Touch()

	switch sess.State {
	case models.StateAwaitingName:
		r.handleName(ctx, sess, msg)
	case models.StateAwaitingLocation:
		r.handleLocation(ctx, sess, msg)
	case models.StateAwaitingPhone:
		r.handlePhone(ctx, sess, msg)
	default:
		// Idle: nothing in progress, point at /start.
		r.reply(ctx, msg.ChatID, msgStartHint)
	}
}

// handleCommand processes slash commands. Start-equivalents are legal from
// any state and clear prior fields; cancel resets from any state.
func (r *Registrar) handleCommand(ctx context.Context, cmd string, msg models.IncomingMessage) {
	slog.Debug("Registrar handling command", "userID", msg.UserID, "command", cmd)

	switch cmd {
	case "start", "help", "restart":
		r.begin(ctx, msg)
	case "cancel":
		r.cancel(ctx, msg)
	default:
		if r.isOperator(msg.UserID) && r.handleOperatorCommand(ctx, cmd, msg) {
			return
		}
		r.reply(ctx, msg.ChatID, msgStartHint)
	}
}

func (r *Registrar) begin(ctx context.Context, msg models.IncomingMessage) {
	sess := r.sessions.GetOrCreate(msg.UserID)
	sess.Reset()
	sess.State = models.StateAwaitingName

	slog.Info("Registrar started registration", "userID", msg.UserID)
	if err := r.sender.SendMessageRemoveKeyboard(ctx, msg.ChatID, msgGreeting); err != nil {
		slog.Error("Registrar failed to send greeting", "error", err, "userID", msg.UserID)
	}
}

func (r *Registrar) cancel(ctx context.Context, msg models.IncomingMessage) {
	sess := r.sessions.GetOrCreate(msg.UserID)
	prior := sess.State
	sess.Reset()

	slog.Info("Registrar cancelled registration", "userID", msg.UserID, "prior_state", prior)
	if err := r.sender.SendMessageRemoveKeyboard(ctx, msg.ChatID, msgCancelled); err != nil {
		slog.Error("Registrar failed to send cancel acknowledgment", "error", err, "userID", msg.UserID)
	}
}

func (r *Registrar) handleName(ctx context.Context, sess *models.Session, msg models.IncomingMessage) {
	name := strings.TrimSpace(msg.Text)
	if err := validateName(name); err != nil {
		slog.Debug("Registrar rejected name", "userID", msg.UserID, "error", err)
		r.reply(ctx, msg.ChatID, msgNameInvalid)
		return
	}

	sess.Name = name
	sess.State = models.StateAwaitingLocation

	if err := r.sender.SendMessageWithKeyboard(ctx, msg.ChatID, msgAskLocation, keyboardRows(r.districts, 2)); err != nil {
		slog.Error("Registrar failed to send district keyboard", "error", err, "userID", msg.UserID)
	}
}

func (r *Registrar) handleLocation(ctx context.Context, sess *models.Session, msg models.IncomingMessage) {
	location := strings.TrimSpace(msg.Text)
	if location == "" {
		slog.Debug("Registrar rejected location", "userID", msg.UserID, "error", models.ErrEmptyLocation)
		r.reply(ctx, msg.ChatID, msgAskLocation)
		return
	}

	sess.Location = location
	sess.State = models.StateAwaitingPhone

	if err := r.sender.SendContactRequest(ctx, msg.ChatID, msgAskPhone, btnSharePhone); err != nil {
		slog.Error("Registrar failed to send contact request", "error", err, "userID", msg.UserID)
	}
}

func (r *Registrar) handlePhone(ctx context.Context, sess *models.Session, msg models.IncomingMessage) {
	var canonical string
	var ok bool
	if msg.Contact != nil {
		canonical, ok = phone.NormalizeContact(msg.Contact.PhoneNumber)
	} else {
		canonical, ok = phone.Normalize(msg.Text)
	}

	if !ok {
		slog.Debug("Registrar rejected phone", "userID", msg.UserID, "error", models.ErrInvalidPhone)
		r.reply(ctx, msg.ChatID, msgPhoneInvalid+"\n"+formatList(phone.AcceptedFormats))
		return
	}

	sess.Phone = canonical
	r.complete(ctx, sess, msg)
}

// complete fires the terminal transition: persist the registration, notify
// operators with the persistence outcome, acknowledge the user, reset the
// session. Persistence failure degrades the acknowledgment but never blocks
// notification or the reply.
func (r *Registrar) complete(ctx context.Context, sess *models.Session, msg models.IncomingMessage) {
	reg := &models.Registration{
		Name:         sess.Name,
		District:     sess.Location,
		Phone:        sess.Phone,
		UserID:       msg.UserID,
		DisplayName:  msg.DisplayName,
		Username:     msg.Username,
		RegisteredAt: time.Now(),
	}

	saved := r.recorder.AddRegistration(ctx, reg)
	if !saved {
		slog.Warn("Registrar completing in degraded mode, registration not persisted", "userID", msg.UserID)
	}

	r.notifier.RegistrationCompleted(ctx, reg, saved)

	sess.Reset()

	ack := msgRegistered
	if !saved {
		ack += "\n\n" + msgDegradedNotice
	}
	if err := r.sender.SendMessageRemoveKeyboard(ctx, msg.ChatID, ack); err != nil {
		slog.Error("Registrar failed to send success acknowledgment", "error", err, "userID", msg.UserID)
	}

	slog.Info("Registrar completed registration", "userID", msg.UserID, "sequence", reg.Sequence, "saved", saved)
}

func (r *Registrar) reply(ctx context.Context, chatID int64, text string) {
	if err := r.sender.SendMessage(ctx, chatID, text); err != nil {
		slog.Error("Registrar failed to send reply", "error", err, "chatID", chatID)
	}
}

func (r *Registrar) isOperator(userID int64) bool {
	_, ok := r.operators[userID]
	return ok
}

// validateName accepts trimmed text of letters and spaces, length >= 2.
func validateName(name string) error {
	if len([]rune(name)) < 2 {
		return models.ErrInvalidName
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return models.ErrInvalidName
		}
	}
	return nil
}

// parseCommand extracts a lowercase command name from a message, stripping
// any @botname mention suffix. Returns "" for non-command text.
func parseCommand(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return ""
	}
	cmd := strings.Fields(trimmed)[0]
	cmd = strings.TrimPrefix(cmd, "/")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd)
}

// keyboardRows splits labels into rows of the given width.
func keyboardRows(labels []string, width int) [][]string {
	var rows [][]string
	for i := 0; i < len(labels); i += width {
		end := i + width
		if end > len(labels) {
			end = len(labels)
		}
		rows = append(rows, labels[i:end])
	}
	return rows
}

func formatList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "• %s\n", item)
	}
	return strings.TrimRight(b.String(), "\n")
}
