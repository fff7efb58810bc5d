package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ftahirops/disktriage/model"
)

// Browser is an interactive viewer over a set of records: a device list and a
// detail pane with the supporting raw log lines.
type Browser struct {
	recs   []*model.DiskErrorRecord
	now    time.Time
	cursor int
	detail bool
	scroll int
	width  int
	height int
}

// NewBrowser creates a browser over recs.
func NewBrowser(recs []*model.DiskErrorRecord, now time.Time) Browser {
	return Browser{recs: recs, now: now, height: 24, width: 100}
}

func (b Browser) Init() tea.Cmd { return nil }

func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return b, tea.Quit
		case "up", "k":
			if b.detail {
				if b.scroll > 0 {
					b.scroll--
				}
			} else if b.cursor > 0 {
				b.cursor--
			}
		case "down", "j":
			if b.detail {
				if b.scroll < b.maxScroll() {
					b.scroll++
				}
			} else if b.cursor < len(b.recs)-1 {
				b.cursor++
			}
		case "enter", "l", "right":
			if len(b.recs) > 0 {
				b.detail = true
				b.scroll = 0
			}
		case "esc", "h", "left":
			b.detail = false
		}
	}
	return b, nil
}

// Selected returns the record under the cursor.
func (b Browser) Selected() *model.DiskErrorRecord {
	if b.cursor < 0 || b.cursor >= len(b.recs) {
		return nil
	}
	return b.recs[b.cursor]
}

func (b Browser) maxScroll() int {
	r := b.Selected()
	if r == nil {
		return 0
	}
	n := len(r.RawLogLines) - b.pageSize()
	if n < 0 {
		return 0
	}
	return n
}

func (b Browser) pageSize() int {
	if n := b.height - 4; n > 1 {
		return n
	}
	return 1
}

func (b Browser) View() string {
	if len(b.recs) == 0 {
		return okStyle.Render("No disk errors found.") + "\n" + helpStyle.Render("q quit") + "\n"
	}
	if b.detail {
		return b.viewDetail()
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("disktriage: %d disks", len(b.recs))))
	sb.WriteString("\n\n")
	for i, r := range b.recs {
		earliest := "-"
		if t, ok := r.EarliestError(); ok {
			earliest = t.Format("2006-01-02 15:04")
		}
		line := fmt.Sprintf("%-8s %-24s %-16s %4d events  first %s",
			r.Device, truncate(r.Model, 24), truncate(r.Serial, 16), len(r.ErrorEvents), earliest)
		if i == b.cursor {
			sb.WriteString(selectedStyle.Render("> " + line))
		} else {
			sb.WriteString("  " + recordStyle(r).Render(line))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("↑/↓ select  enter details  q quit"))
	return sb.String()
}

func (b Browser) viewDetail() string {
	r := b.Selected()
	var sb strings.Builder
	sb.WriteString(panelStyle.Render(renderRecord(r, b.now, 0)))
	sb.WriteString("\n")
	sb.WriteString(headerStyle.Render(fmt.Sprintf("Raw log lines (%d)", len(r.RawLogLines))))
	sb.WriteString("\n")
	end := b.scroll + b.pageSize()
	if end > len(r.RawLogLines) {
		end = len(r.RawLogLines)
	}
	for _, l := range r.RawLogLines[b.scroll:end] {
		sb.WriteString(dimStyle.Render(truncate(l, b.width)))
		sb.WriteString("\n")
	}
	sb.WriteString(helpStyle.Render("↑/↓ scroll  esc back  q quit"))
	return sb.String()
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

// RunBrowser starts the browser full-screen.
func RunBrowser(recs []*model.DiskErrorRecord) error {
	p := tea.NewProgram(NewBrowser(recs, time.Now()), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
