package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rmax-ai/grcgraph/pkg/blob"
)

const (
	pollRate       = 2 * time.Second
	fetchTimeout   = time.Second
	viewportHeight = 15
)

// Styles
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			Width(100)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(100)

	fileStyle = lipgloss.NewStyle().Bold(true)
)

type tickMsg time.Time

type dataMsg struct {
	data *snapshot
	err  error
}

type model struct {
	store    blob.BlobStore
	spinner  spinner.Model
	viewport viewport.Model
	data     *snapshot
	err      error
	ready    bool
}

func newViewport(width int) viewport.Model {
	vp := viewport.New(width, viewportHeight)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		PaddingRight(2)
	return vp
}

func initialModel(store blob.BlobStore) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		store:    store,
		spinner:  s,
		viewport: newViewport(100),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		fetchData(m.store),
		tick(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		cmds = append(cmds, fetchData(m.store), tick())

	case dataMsg:
		m.err = msg.err
		if msg.err == nil {
			m.data = msg.data
			m.updateViewportContent()
		}
		m.ready = true

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}

	return m, tea.Batch(cmds...)
}

// updateViewportContent lists pending reviews, then stale documents.
func (m *model) updateViewportContent() {
	var sb strings.Builder

	sb.WriteString(lipgloss.NewStyle().Bold(true).Render("Pending Reviews") + "\n")
	if m.data.pending == nil || len(m.data.pending.Pending) == 0 {
		sb.WriteString(subtleStyle.Render("Nothing pending.") + "\n")
	} else {
		for _, p := range m.data.pending.Pending {
			sb.WriteString(fmt.Sprintf("%s %s\n",
				fileStyle.Render(p.File),
				subtleStyle.Render(fmt.Sprintf("triggered by %s on %s", p.TriggeredBy, p.TriggeredAt.Format("2006-01-02"))),
			))
		}
	}

	sb.WriteString("\n" + lipgloss.NewStyle().Bold(true).Render("Stale Documents") + "\n")
	if len(m.data.stale.StaleItems) == 0 {
		sb.WriteString(okStyle.Render("Everything is within its review date.") + "\n")
	}
	for _, item := range m.data.stale.StaleItems {
		sb.WriteString(fmt.Sprintf("%s %s %s\n",
			warnStyle.Render(fmt.Sprintf("%4dd", item.DaysOverdue)),
			fileStyle.Render(item.File),
			subtleStyle.Render(item.Owner),
		))
	}

	m.viewport.SetContent(sb.String())
}

func (m model) View() string {
	if !m.ready {
		return fmt.Sprintf("\n%s Loading...", m.spinner.View())
	}

	var coverage strings.Builder
	coverage.WriteString(lipgloss.NewStyle().Bold(true).Underline(true).Render("Framework Coverage") + "\n\n")
	if m.data == nil || len(m.data.coverage.Frameworks) == 0 {
		coverage.WriteString(subtleStyle.Render("No framework controls found."))
	} else {
		names := make([]string, 0, len(m.data.coverage.Frameworks))
		for name := range m.data.coverage.Frameworks {
			names = append(names, name)
		}
		sort.Strings(names)

		coverage.WriteString(fmt.Sprintf("%-10s %8s %8s %8s %10s\n", "", "policy", "evidence", "impl", "applicable"))
		for _, name := range names {
			c := m.data.coverage.Frameworks[name]
			coverage.WriteString(fmt.Sprintf("%-10s %7.1f%% %7.1f%% %7.1f%% %10d\n",
				name, c.PolicyCoveragePct, c.EvidenceCoveragePct, c.ImplementationPct, c.ApplicableControls))
		}
	}
	topPane := paneStyle.Render(coverage.String())

	header := headerStyle.Render(fmt.Sprintf("%s Review Queue", m.spinner.View()))
	bottomPane := m.viewport.View()

	var status string
	switch {
	case m.err != nil:
		status = errorStyle.Render(fmt.Sprintf("Unavailable: %v", m.err))
	case m.data != nil:
		pending := 0
		if m.data.pending != nil {
			pending = len(m.data.pending.Pending)
		}
		status = okStyle.Render(fmt.Sprintf("Built %s • %d Stale • %d Pending",
			m.data.coverage.GeneratedAt.Format(time.RFC3339), len(m.data.stale.StaleItems), pending))
	}
	footer := subtleStyle.Render(fmt.Sprintf("\n%s\nPress q to quit", status))

	return lipgloss.JoinVertical(lipgloss.Left, topPane, header, bottomPane, footer)
}

// Commands

func fetchData(store blob.BlobStore) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		data, err := load(ctx, store)
		return dataMsg{data: data, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func main() {
	dir := os.Getenv("GRCGRAPH_COMPUTED_DIR")
	if dir == "" {
		dir = filepath.Join(".", ".computed")
	}

	root := &cobra.Command{
		Use:          "grcgraph-tui",
		Short:        "Watch coverage, stale documents and pending reviews",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := tea.NewProgram(initialModel(blob.NewLocalBlobStore(dir)), tea.WithAltScreen())
			_, err := p.Run()
			return err
		},
	}
	root.Flags().StringVar(&dir, "dir", dir, "computed artifact directory")

	if err := root.Execute(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
