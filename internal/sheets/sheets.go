// Package sheets implements the persistence gateway for completed
// registrations: a single process-wide Google Sheets connection that ensures
// a header row exists and appends one row per registration.
//
// The gateway never propagates errors to the conversation flow. Connection
// and append failures are logged and reported as boolean outcomes so the
// service can keep running in degraded mode.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/rahimovschool/intakebot/internal/models"
)

// Worksheet ranges on the first sheet.
const (
	headerRange   = "A1:J1"
	sequenceRange = "A:A"
	dataRange     = "A:J"
	recentRange   = "A2:J"
)

// statusNew is the status marker written with every appended row.
const statusNew = "Yangi"

// headerRow is the fixed 10-column layout of the worksheet.
var headerRow = []string{"№", "Ism", "Tuman", "Telefon", "User ID", "Ism familiya", "Username", "Sana", "Vaqt", "Holat"}

// valuesAPI is the narrow worksheet surface the gateway needs. The real
// implementation wraps the Sheets values service; tests substitute a fake.
type valuesAPI interface {
	Get(ctx context.Context, readRange string) ([][]interface{}, error)
	Update(ctx context.Context, writeRange string, rows [][]interface{}) error
	Append(ctx context.Context, writeRange string, rows [][]interface{}) error
}

// Opts holds configuration for the gateway.
type Opts struct {
	// SpreadsheetName is the spreadsheet title, resolved to an id through
	// Drive when SpreadsheetID is not set.
	SpreadsheetName string
	// SpreadsheetID addresses the spreadsheet directly, skipping the Drive
	// lookup.
	SpreadsheetID string
	// CredentialsJSON is an inline service-account key. Preferred over the
	// file when both are set.
	CredentialsJSON string
	// CredentialsFile is a path to a service-account key file.
	CredentialsFile string
}

// Option configures the gateway.
type Option func(*Opts)

// WithSpreadsheetName sets the spreadsheet title to resolve through Drive.
func WithSpreadsheetName(name string) Option {
	return func(o *Opts) { o.SpreadsheetName = name }
}

// WithSpreadsheetID sets the spreadsheet id directly.
func WithSpreadsheetID(id string) Option {
	return func(o *Opts) { o.SpreadsheetID = id }
}

// WithCredentialsJSON sets an inline service-account key.
func WithCredentialsJSON(jsonKey string) Option {
	return func(o *Opts) { o.CredentialsJSON = jsonKey }
}

// WithCredentialsFile sets the path to a service-account key file.
func WithCredentialsFile(path string) Option {
	return func(o *Opts) { o.CredentialsFile = path }
}

// Gateway is the process-wide sheet connection. All appends from this
// process are serialized through its mutex, which keeps sequence numbers
// strictly increasing and gap-free for a single instance.
type Gateway struct {
	mu            sync.Mutex
	cfg           Opts
	api           valuesAPI
	spreadsheetID string
	connected     bool
}

// NewGateway creates a gateway. No network activity happens until Connect
// or the first append.
func NewGateway(opts ...Option) *Gateway {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewGateway invoked", "spreadsheet_name", cfg.SpreadsheetName, "spreadsheet_id_set", cfg.SpreadsheetID != "", "inline_credentials", cfg.CredentialsJSON != "")
	return &Gateway{cfg: cfg}
}

// Connect establishes the sheet connection and ensures the header row.
// Failures are logged and leave the gateway disconnected; the caller keeps
// running in degraded mode.
func (g *Gateway) Connect(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connectLocked(ctx)
}

func (g *Gateway) connectLocked(ctx context.Context) {
	if g.connected {
		return
	}

	creds, err := g.loadCredentials()
	if err != nil {
		slog.Error("Gateway credentials unavailable, running degraded", "error", err)
		return
	}

	jwt, err := google.JWTConfigFromJSON(creds, sheetsapi.SpreadsheetsScope, drive.DriveMetadataReadonlyScope)
	if err != nil {
		slog.Error("Gateway failed to parse service account key", "error", err)
		return
	}
	client := jwt.Client(ctx)

	svc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		slog.Error("Gateway failed to create Sheets service", "error", err)
		return
	}

	id := g.cfg.SpreadsheetID
	if id == "" {
		id, err = resolveSpreadsheetID(ctx, client, g.cfg.SpreadsheetName)
		if err != nil {
			slog.Error("Gateway failed to resolve spreadsheet by name", "error", err, "name", g.cfg.SpreadsheetName)
			return
		}
	}

	g.api = &googleValues{svc: svc, spreadsheetID: id}
	g.spreadsheetID = id

	if err := g.ensureHeaderLocked(ctx); err != nil {
		slog.Error("Gateway failed to ensure header row", "error", err)
		g.api = nil
		g.spreadsheetID = ""
		return
	}

	g.connected = true
	slog.Info("Gateway connected to spreadsheet", "spreadsheet_id", id)
}

// ensureHeaderLocked writes the header row only when row 1 is empty, so
// repeated startups never produce a second header.
func (g *Gateway) ensureHeaderLocked(ctx context.Context) error {
	rows, err := g.api.Get(ctx, headerRange)
	if err != nil {
		return fmt.Errorf("read header row: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		slog.Debug("Gateway header row already present")
		return nil
	}

	header := make([]interface{}, len(headerRow))
	for i, h := range headerRow {
		header[i] = h
	}
	if err := g.api.Update(ctx, headerRange, [][]interface{}{header}); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}
	slog.Info("Gateway created header row")
	return nil
}

// AddRegistration assigns the next sequence number and appends one row.
// It reports success as a boolean and never returns an error; failures are
// logged. The connection is established lazily on first use if startup
// Connect did not succeed.
func (g *Gateway) AddRegistration(ctx context.Context, reg *models.Registration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		g.connectLocked(ctx)
		if !g.connected {
			slog.Warn("Gateway not connected, registration not persisted", "userID", reg.UserID)
			return false
		}
	}

	rows, err := g.api.Get(ctx, sequenceRange)
	if err != nil {
		slog.Error("Gateway failed to read row count", "error", err, "userID", reg.UserID)
		return false
	}

	// Header occupies row 1, so the current row count is the next sequence.
	seq := int64(len(rows))
	if seq == 0 {
		seq = 1
	}
	reg.Sequence = seq

	row := []interface{}{
		reg.Sequence,
		reg.Name,
		reg.District,
		reg.Phone,
		reg.UserID,
		reg.DisplayName,
		reg.Username,
		reg.RegisteredAt.Format("2006-01-02"),
		reg.RegisteredAt.Format("15:04:05"),
		statusNew,
	}
	if err := g.api.Append(ctx, dataRange, [][]interface{}{row}); err != nil {
		slog.Error("Gateway failed to append registration row", "error", err, "userID", reg.UserID, "sequence", seq)
		return false
	}

	slog.Info("Gateway appended registration row", "sequence", seq, "userID", reg.UserID)
	return true
}

// Connected reports whether the sheet connection is established.
func (g *Gateway) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

// RowCount returns the number of data rows in the worksheet.
func (g *Gateway) RowCount(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return 0, fmt.Errorf("gateway not connected")
	}
	rows, err := g.api.Get(ctx, sequenceRange)
	if err != nil {
		return 0, fmt.Errorf("read row count: %w", err)
	}
	count := len(rows) - 1
	if count < 0 {
		count = 0
	}
	return count, nil
}

// Recent returns up to n most recent registrations, oldest first.
func (g *Gateway) Recent(ctx context.Context, n int) ([]models.Registration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return nil, fmt.Errorf("gateway not connected")
	}
	rows, err := g.api.Get(ctx, recentRange)
	if err != nil {
		return nil, fmt.Errorf("read data rows: %w", err)
	}

	if len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	regs := make([]models.Registration, 0, len(rows))
	for _, row := range rows {
		regs = append(regs, parseRow(row))
	}
	return regs, nil
}

// SpreadsheetURL returns the browser link to the connected spreadsheet, or
// "" when disconnected.
func (g *Gateway) SpreadsheetURL() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.spreadsheetID == "" {
		return ""
	}
	return "https://docs.google.com/spreadsheets/d/" + g.spreadsheetID
}

func (g *Gateway) loadCredentials() ([]byte, error) {
	if g.cfg.CredentialsJSON != "" {
		return []byte(g.cfg.CredentialsJSON), nil
	}
	if g.cfg.CredentialsFile != "" {
		data, err := os.ReadFile(g.cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("no credential source configured")
}

// parseRow converts a worksheet row back into a registration. Cells the
// sheet returns in unexpected shapes degrade to zero values.
func parseRow(row []interface{}) models.Registration {
	var reg models.Registration
	get := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(fmt.Sprint(row[i]))
		}
		return ""
	}

	reg.Sequence, _ = strconv.ParseInt(get(0), 10, 64)
	reg.Name = get(1)
	reg.District = get(2)
	reg.Phone = get(3)
	reg.UserID, _ = strconv.ParseInt(get(4), 10, 64)
	reg.DisplayName = get(5)
	reg.Username = get(6)
	if ts, err := time.Parse("2006-01-02 15:04:05", get(7)+" "+get(8)); err == nil {
		reg.RegisteredAt = ts
	}
	return reg
}

// resolveSpreadsheetID looks the spreadsheet up by title through Drive, the
// way the sheet was originally addressed. Requires the metadata scope only.
func resolveSpreadsheetID(ctx context.Context, client *http.Client, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("no spreadsheet name configured")
	}

	dsvc, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", fmt.Errorf("create Drive service: %w", err)
	}

	query := fmt.Sprintf("name = '%s' and mimeType = 'application/vnd.google-apps.spreadsheet' and trashed = false",
		strings.ReplaceAll(name, "'", `\'`))
	list, err := dsvc.Files.List().Q(query).PageSize(1).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list spreadsheets: %w", err)
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("spreadsheet %q not found", name)
	}
	return list.Files[0].Id, nil
}

// googleValues implements valuesAPI over the Sheets values service.
type googleValues struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

func (v *googleValues) Get(ctx context.Context, readRange string) ([][]interface{}, error) {
	resp, err := v.svc.Spreadsheets.Values.Get(v.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (v *googleValues) Update(ctx context.Context, writeRange string, rows [][]interface{}) error {
	vr := &sheetsapi.ValueRange{Values: rows}
	_, err := v.svc.Spreadsheets.Values.Update(v.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}

func (v *googleValues) Append(ctx context.Context, writeRange string, rows [][]interface{}) error {
	vr := &sheetsapi.ValueRange{Values: rows}
	_, err := v.svc.Spreadsheets.Values.Append(v.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}
