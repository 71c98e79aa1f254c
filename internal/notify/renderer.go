// Package notify delivers approval notices and log channel entries over Telegram.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/Proton-105/guild-ledger/internal/approval"
	"github.com/Proton-105/guild-ledger/internal/domain"
	"github.com/Proton-105/guild-ledger/internal/i18n"
)

// Renderer turns structured notices into catalog text.
type Renderer struct {
	tr i18n.Translator
}

func NewRenderer(tr i18n.Translator) *Renderer {
	return &Renderer{tr: tr}
}

// Translator exposes the catalog used for rendering.
func (r *Renderer) Translator() i18n.Translator {
	return r.tr
}

// Kind returns the localized transfer kind.
func (r *Renderer) Kind(kind domain.TransferKind) string {
	return i18n.Format(r.tr, "kind."+string(kind), nil)
}

// Notice renders a direct message to a requester.
func (r *Renderer) Notice(n approval.Notice) string {
	return i18n.Format(r.tr, "notice."+string(n.Kind), map[string]any{
		"Kind":    r.Kind(n.Transfer.Kind),
		"ID":      n.Transfer.ID,
		"Amount":  n.Transfer.Amount,
		"Method":  n.Transfer.Method,
		"Balance": n.Balance,
	})
}

// LogEntry renders a log channel post.
func (r *Renderer) LogEntry(e approval.LogEntry) string {
	t := e.Transfer

	name := t.Name
	if name == "" {
		name = "-"
	}

	var b strings.Builder
	b.WriteString(i18n.Format(r.tr, "log.entry", map[string]any{
		"Title":  i18n.Format(r.tr, "log.title_"+string(t.Kind), nil),
		"ID":     t.ID,
		"User":   UserLabel(t.RequesterID),
		"Name":   name,
		"Amount": t.Amount,
		"Method": t.Method,
		"Status": i18n.Format(r.tr, "log.status_"+string(e.Status), nil),
	}))

	if e.ResolverID != 0 {
		b.WriteString(i18n.Format(r.tr, "log.resolved_by", map[string]any{"Resolver": UserLabel(e.ResolverID)}))
	}
	if e.Detail != "" {
		b.WriteString(i18n.Format(r.tr, "log.detail", map[string]any{"Detail": e.Detail}))
	}

	return b.String()
}

// Digest renders the stale pending transfer summary.
func (r *Renderer) Digest(items []domain.PendingTransfer, minAge time.Duration, now time.Time) string {
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, i18n.Format(r.tr, "digest.header", map[string]any{
		"Count": len(items),
		"Age":   FormatAge(minAge),
	}))

	for _, p := range items {
		lines = append(lines, i18n.Format(r.tr, "digest.line", map[string]any{
			"ID":     p.ID,
			"Kind":   r.Kind(p.Kind),
			"Amount": p.Amount,
			"User":   UserLabel(p.RequesterID),
			"Age":    FormatAge(now.Sub(p.CreatedAt)),
		}))
	}

	return strings.Join(lines, "\n")
}

// UserLabel identifies a chat user in plain text.
func UserLabel(userID int64) string {
	return fmt.Sprintf("#%d", userID)
}

// FormatAge renders a duration at minute resolution, e.g. "2h5m".
func FormatAge(d time.Duration) string {
	if d < time.Minute {
		return "<1m"
	}

	d = d.Truncate(time.Minute)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	switch {
	case hours == 0:
		return fmt.Sprintf("%dm", minutes)
	case minutes == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
}
