package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

const previewLimit = 64 * 1024

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateLoading modelState = iota
	stateBrowse
	stateFilter
	statePreview
)

type browseModel struct {
	err      error
	opts     *options
	filename string
	members  []member
	visible  []int
	filter   textinput.Model
	preview  viewport.Model
	selected int
	height   int
	state    modelState
}

type loadedMsg struct {
	err     error
	members []member
}

type previewMsg struct {
	err  error
	text string
}

func newBrowseModel(opts *options, filename string) *browseModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter"
	ti.Width = 40

	return &browseModel{
		opts:     opts,
		filename: filename,
		filter:   ti,
		preview:  viewport.New(80, 20),
		height:   24,
		state:    stateLoading,
	}
}

func (m *browseModel) Init() tea.Cmd {
	return m.load
}

func (m *browseModel) load() tea.Msg {
	members, err := collect(m.opts, m.filename)
	return loadedMsg{members: members, err: err}
}

// loadPreview reopens the archive and reads the start of the named member.
// Read sessions are forward-only, so every preview is a fresh scan.
func (m *browseModel) loadPreview(path string) tea.Cmd {
	return func() tea.Msg {
		s, err := openArchive(m.opts.profile, m.filename)
		if err != nil {
			return previewMsg{err: err}
		}
		defer s.Close()

		for e, err := range s.Headers() {
			if err != nil {
				return previewMsg{err: err}
			}
			if e.Pathname() != path {
				continue
			}
			var buf bytes.Buffer
			if _, err := s.WriteTo(&limitedWriter{w: &buf, n: previewLimit}); err != nil && err != errPreviewFull {
				return previewMsg{err: err}
			}
			return previewMsg{text: render(buf.Bytes())}
		}
		return previewMsg{err: fmt.Errorf("%s: not found in archive", path)}
	}
}

var errPreviewFull = errors.New("preview limit reached")

// limitedWriter accepts up to n bytes and then fails with errPreviewFull.
type limitedWriter struct {
	w io.Writer
	n int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.n <= 0 {
		return 0, errPreviewFull
	}
	full := false
	if len(p) > l.n {
		p = p[:l.n]
		full = true
	}
	n, err := l.w.Write(p)
	l.n -= n
	if err == nil && full {
		err = errPreviewFull
	}
	return n, err
}

func render(data []byte) string {
	if len(data) == 0 {
		return helpStyle.Render("(empty)")
	}
	if utf8.Valid(data) && !bytes.ContainsRune(data, 0) {
		return string(data)
	}
	if len(data) > 512 {
		data = data[:512]
	}
	return hex.Dump(data)
}

func (m *browseModel) applyFilter() {
	needle := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for i, mem := range m.members {
		if needle == "" || strings.Contains(strings.ToLower(mem.Path), needle) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.preview.Width = msg.Width
		m.preview.Height = max(msg.Height-4, 1)

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.members = msg.members
		m.state = stateBrowse
		m.applyFilter()

	case previewMsg:
		if msg.err != nil {
			m.preview.SetContent(errorStyle.Render(fmt.Sprintf("Error: %v", msg.err)))
		} else {
			m.preview.SetContent(msg.text)
		}
		m.preview.GotoTop()
		m.state = statePreview

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.state {
		case stateLoading:
			if msg.String() == "q" {
				return m, tea.Quit
			}

		case stateFilter:
			switch msg.String() {
			case "enter", "esc":
				m.filter.Blur()
				m.state = stateBrowse
				return m, nil
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.applyFilter()
			return m, cmd

		case stateBrowse:
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "up", "k":
				if m.selected > 0 {
					m.selected--
				}
			case "down", "j":
				if m.selected < len(m.visible)-1 {
					m.selected++
				}
			case "/":
				m.state = stateFilter
				return m, m.filter.Focus()
			case "enter":
				if len(m.visible) > 0 {
					return m, m.loadPreview(m.members[m.visible[m.selected]].Path)
				}
			}

		case statePreview:
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "esc", "enter":
				m.state = stateBrowse
				return m, nil
			}
			var cmd tea.Cmd
			m.preview, cmd = m.preview.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *browseModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.state == stateLoading {
		return "Reading archive..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Archive Browser"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	if m.state == statePreview {
		b.WriteString(m.preview.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ scroll • esc back • q quit"))
		return b.String()
	}

	if m.state == stateFilter || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
	}

	rows := max(m.height-6, 1)
	start := 0
	if m.selected >= rows {
		start = m.selected - rows + 1
	}
	for i := start; i < len(m.visible) && i < start+rows; i++ {
		line := m.formatMember(m.members[m.visible[i]])
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	if len(m.visible) == 0 {
		b.WriteString(helpStyle.Render("(no members)"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select • enter preview • / filter • q quit"))
	return b.String()
}

func (m *browseModel) formatMember(mem member) string {
	meta := fmt.Sprintf("%s %8s", mem.Mode, humanize.IBytes(uint64(mem.Size)))
	name := mem.Path
	if mem.Link != "" {
		name += " -> " + mem.Link
	}
	return metaStyle.Render(meta) + " " + nameStyle.Render(name)
}

func runBrowse(opts *options) error {
	path, err := archiveArg(opts)
	if err != nil {
		return err
	}
	if path == "-" {
		return fmt.Errorf("browse needs a file; standard input cannot be reread")
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("browse needs an interactive terminal")
	}
	p := tea.NewProgram(newBrowseModel(opts, path), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
