// Package tui is the terminal table browser over the ledger: sortable
// columns, a field-scoped search and scrolling.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"

	"fintrack/internal/core"
	"fintrack/internal/query"
	"fintrack/internal/services"
)

type mode int

const (
	browsing mode = iota
	searching
)

const (
	defaultBodyHeight = 20
	chromeLines       = 6
)

// Model is the bubbletea model of the browser.
type Model struct {
	svc *services.LedgerService

	rows    []core.Row
	sort    query.SortState
	message string

	mode  mode
	field core.Field
	input string

	// the search currently applied to rows
	appliedField core.Field
	appliedQuery string

	offset     int
	bodyHeight int
	quitting   bool
}

func New(svc *services.LedgerService) Model {
	m := Model{
		svc:        svc,
		field:      core.FieldCategory,
		bodyHeight: defaultBodyHeight,
	}
	m.refresh()
	return m
}

// Run starts the browser on in and out and blocks until the user quits or
// ctx is done.
func Run(ctx context.Context, svc *services.LedgerService, in io.Reader, out io.Writer) error {
	p := tea.NewProgram(New(svc), tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run browser: %w", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bodyHeight = max(msg.Height-chromeLines, 1)
		m.clampOffset()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		if m.mode == searching {
			return m.updateSearch(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "1", "2", "3", "4":
		m.sort = m.sort.Toggle(core.Fields()[key[0]-'1'])
		m.refresh()
	case "/":
		m.mode = searching
		m.input = m.appliedQuery
	case "r":
		m.sort = query.SortState{}
		m.appliedField, m.appliedQuery = "", ""
		m.input = ""
		m.offset = 0
		m.refresh()
	case "j", "down":
		m.offset++
		m.clampOffset()
	case "k", "up":
		m.offset--
		m.clampOffset()
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = browsing
	case tea.KeyTab:
		m.field = nextField(m.field)
	case tea.KeyEnter:
		m.mode = browsing
		m.appliedField = m.field
		m.appliedQuery = strings.TrimSpace(m.input)
		m.offset = 0
		m.refresh()
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

// refresh recomputes the visible rows from the applied search and sort.
func (m *Model) refresh() {
	m.message = ""
	if m.appliedQuery == "" {
		m.rows = m.svc.Rows(m.sort)
	} else {
		rows, err := m.svc.Search(m.appliedField, m.appliedQuery, m.sort)
		if errors.Is(err, services.ErrNoResults) {
			m.message = "No results were found to match the chosen search criteria."
		}
		m.rows = rows
	}
	if len(m.rows) == 0 && m.message == "" {
		m.message = "There are no financial records."
	}
	m.clampOffset()
}

func (m *Model) clampOffset() {
	m.offset = min(m.offset, max(len(m.rows)-m.bodyHeight, 0))
	m.offset = max(m.offset, 0)
}

func nextField(f core.Field) core.Field {
	fields := core.Fields()
	for i, candidate := range fields {
		if candidate == f {
			return fields[(i+1)%len(fields)]
		}
	}
	return fields[0]
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	var headers []string
	for i, f := range core.Fields() {
		h := fmt.Sprintf("%d %s", i+1, f.Label())
		if m.sort.Field == f {
			arrow := "▲"
			if m.sort.Descending {
				arrow = "▼"
			}
			h += " " + arrow
		}
		headers = append(headers, h)
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	end := min(m.offset+m.bodyHeight, len(m.rows))
	for _, r := range m.rows[m.offset:end] {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Category, r.Amount, r.Type, r.Date)
	}
	_ = tw.Flush()

	if m.message != "" {
		b.WriteString("\n" + m.message + "\n")
	}
	b.WriteString("\n")
	if m.mode == searching {
		fmt.Fprintf(&b, "Search %s: %s█\n", m.field.Label(), m.input)
		b.WriteString("tab: field  enter: apply  esc: cancel\n")
	} else {
		if m.appliedQuery != "" {
			fmt.Fprintf(&b, "Filter: %s = %q\n", m.appliedField.Label(), m.appliedQuery)
		}
		b.WriteString("1-4: sort  /: search  r: reset  j/k: scroll  q: quit\n")
	}
	return b.String()
}
