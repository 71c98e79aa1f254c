package keyboard

import (
	"strconv"
	"strings"

	"github.com/Proton-105/guild-ledger/internal/i18n"
)

// Page is one slice of a paginated list. Number is 1-based.
type Page struct {
	Number int
	Total  int
	Start  int
	End    int
}

// Paginate clamps page into range and returns the bounds of that page for a
// list of count items. An empty list yields a single empty page.
func Paginate(count, size, page int) Page {
	if size < 1 {
		size = 1
	}

	total := (count + size - 1) / size
	if total < 1 {
		total = 1
	}
	page = min(max(page, 1), total)

	start := (page - 1) * size
	return Page{
		Number: page,
		Total:  total,
		Start:  min(start, count),
		End:    min(start+size, count),
	}
}

// PaginationButtons renders prev, current and next buttons for p. Every
// button carries its target page number under action.
func PaginationButtons(t i18n.Translator, action string, p Page) []InlineButton {
	buttons := make([]InlineButton, 0, 3)

	if p.Number > 1 {
		buttons = append(buttons, InlineButton{
			Text:   translated(t, "pagination.prev", "◀️ Prev"),
			Unique: action,
			Data:   strconv.Itoa(p.Number - 1),
		})
	}

	label := translated(t, "pagination.page", "Page {{.Page}}/{{.Total}}")
	label = strings.NewReplacer("{{.Page}}", strconv.Itoa(p.Number), "{{.Total}}", strconv.Itoa(p.Total)).Replace(label)
	buttons = append(buttons, InlineButton{
		Text:   label,
		Unique: action,
		Data:   strconv.Itoa(p.Number),
	})

	if p.Number < p.Total {
		buttons = append(buttons, InlineButton{
			Text:   translated(t, "pagination.next", "Next ▶️"),
			Unique: action,
			Data:   strconv.Itoa(p.Number + 1),
		})
	}

	return buttons
}

func translated(t i18n.Translator, key, fallback string) string {
	if t == nil {
		return fallback
	}

	text := strings.TrimSpace(t.T(key))
	if text == "" || text == key {
		return fallback
	}

	return text
}
