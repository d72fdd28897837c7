package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.uber.org/zap"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/rover/pkg/robot"
	"github.com/gwillem/rover/pkg/telemetry"
)

type MonitorCommand struct {
	NoTwin bool `long:"no-twin" description:"Do not drive the configured twin arm"`
}

const (
	headerHeight = 3  // title, error line, blank line
	legendHeight = 2  // legend row + blank
	footerHeight = 7  // log box height
	maxLogs      = 5  // number of log lines to show
	borderSize   = 2  // chart border
	tableWidth   = 34 // drive and arm tables side by side
)

// Joint colors - distinct colors for each joint
var jointColors = map[robot.JointName]string{
	robot.Elbow:      "226", // yellow
	robot.WristRight: "46",  // green
	robot.WristLeft:  "51",  // cyan
	robot.Claw:       "201", // magenta
	robot.Gantry:     "208", // orange
	robot.Shoulder:   "196", // red
}

var statusColors = map[string]string{
	"connecting": "11",
	"open":       "10",
	"closed":     "241",
	"failed":     "9",
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type monitorModel struct {
	address string
	store   *telemetry.Store
	updates <-chan telemetry.Update
	chart   *streamlinechart.Model

	width    int
	height   int
	snapshot telemetry.Update
	lastArm  robot.Arm
	linkErr  error
	linkDone bool
	quitting bool
}

// Messages from the receive path
type updateMsg telemetry.Update
type linkDoneMsg struct{ err error }

func waitForUpdate(ch <-chan telemetry.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return updateMsg(u)
	}
}

func initialMonitorModel(address string, store *telemetry.Store, updates <-chan telemetry.Update) monitorModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(0, 255),
	)

	for _, name := range robot.AllJoints() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[name]))
		chart.SetDataSetStyles(string(name), runes.ThinLineStyle, style)
	}

	return monitorModel{
		address:  address,
		store:    store,
		updates:  updates,
		chart:    &chart,
		snapshot: store.Snapshot(),
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *monitorModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - tableWidth - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

// armChanged reports whether any joint moved since the chart was last fed.
func (m *monitorModel) armChanged(arm robot.Arm) bool {
	if len(arm) == 0 {
		return false
	}
	return m.lastArm == nil || !m.lastArm.Equal(arm)
}

func (m monitorModel) Init() tea.Cmd {
	return waitForUpdate(m.updates)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.chartSize()
		m.chart.Resize(w, h)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case updateMsg:
		m.snapshot = telemetry.Update(msg)
		arm := m.snapshot.State.Arm
		// Only push when the arm moves, so the chart freezes while idle
		if m.armChanged(arm) {
			for name, v := range arm {
				if !math.IsNaN(v) {
					m.chart.PushDataSet(string(name), v)
				}
			}
			m.chart.DrawAll()
			m.lastArm = arm.Clone()
		}
		return m, waitForUpdate(m.updates)

	case linkDoneMsg:
		m.linkDone = true
		m.linkErr = msg.err
		m.snapshot = m.store.Snapshot()
		return m, nil
	}

	return m, nil
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Monitor stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Rover Monitor"))
	sb.WriteString(" - " + m.address + "  ")
	sb.WriteString(renderStatus(m.snapshot.Link))
	sb.WriteString(statusStyle.Render(fmt.Sprintf("  packets %d  errors %d",
		m.snapshot.Stats.Packets, m.snapshot.Stats.Errors)))
	sb.WriteString("\n")

	switch {
	case m.linkDone && m.linkErr != nil:
		sb.WriteString(errorStyle.Render("link ended: " + m.linkErr.Error()))
	case m.snapshot.LastError != nil:
		sb.WriteString(errorStyle.Render("last error: " + m.snapshot.LastError.Error()))
	case m.linkDone:
		sb.WriteString(statusStyle.Render("link ended"))
	}
	sb.WriteString("\n\n")

	// Chart and tables
	tables := lipgloss.JoinVertical(lipgloss.Left,
		renderDrive(m.snapshot.State.Drive),
		renderArm(m.snapshot.State.Arm),
	)
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, chartStyle.Render(m.chart.View()), " ", tables))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240"))
	if m.width > 4 {
		logStyle = logStyle.Width(m.width - 4)
	}

	sb.WriteString(logStyle.Render(renderLog(m.store.Tail(maxLogs))))
	sb.WriteString("\n")

	return sb.String()
}

func renderStatus(l telemetry.Link) string {
	if l.Status == "" {
		return statusStyle.Render("idle")
	}
	style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(statusColors[l.Status]))
	s := style.Render(l.Status)
	if len(l.Session) >= 8 {
		s += statusStyle.Render(" " + l.Session[:8])
	}
	return s
}

func renderLog(entries []telemetry.Entry) string {
	if len(entries) == 0 {
		return statusStyle.Render("Waiting for packets. Press 'q' to quit")
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		switch e.Kind {
		case telemetry.KindError:
			lines[i] = errorStyle.Render(e.String())
		case telemetry.KindEvent:
			lines[i] = statusStyle.Render(e.String())
		default:
			lines[i] = e.String()
		}
	}
	return strings.Join(lines, "\n")
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%g", v)
}

func renderDrive(d robot.Drive) string {
	rows := make([][]string, 0, robot.WheelsPerSide)
	for i := 0; i < robot.WheelsPerSide; i++ {
		left, right := "-", "-"
		if i < len(d.Left) {
			left = formatValue(d.Left[i])
		}
		if i < len(d.Right) {
			right = formatValue(d.Right[i])
		}
		rows = append(rows, []string{fmt.Sprintf("wheel %d", i+1), left, right})
	}
	return valueTable([]string{"Drive", "Left", "Right"}, rows)
}

func renderArm(a robot.Arm) string {
	rows := make([][]string, 0, len(robot.AllJoints()))
	for _, name := range robot.AllJoints() {
		value := "-"
		if v, ok := a[name]; ok {
			value = formatValue(v)
		}
		rows = append(rows, []string{string(name), value})
	}
	return valueTable([]string{"Joint", "Value"}, rows)
}

func valueTable(headers []string, rows [][]string) string {
	headStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(statusStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headStyle
			case col == 0:
				return nameStyle
			default:
				return cellStyle
			}
		}).
		Render()
}

func renderLegend() string {
	var items []string
	for _, name := range robot.AllJoints() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+string(name))
	}
	return strings.Join(items, "  ")
}

func (c *MonitorCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := newStation(cfg, logger)

	if cfg.Twin.Enabled() && !c.NoTwin {
		stopTwin, err := startTwin(ctx, cfg.Twin, st.store, logger)
		if err != nil {
			return err
		}
		defer stopTwin()
	}

	p := tea.NewProgram(initialMonitorModel(cfg.Address, st.store, st.store.Watch(ctx)), tea.WithAltScreen())

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := st.manager.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return
		}
		if err != nil {
			logger.Warn("Link ended", zap.Error(err))
		}
		p.Send(linkDoneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run monitor: %w", err)
	}

	cancel()
	<-done
	return nil
}
