package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.bug.st/serial"

	"github.com/gwillem/rover/pkg/robot"
	"github.com/gwillem/rover/pkg/twin"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const (
	noTwin                 = ""
	defaultCalibrationFile = "twin-calibration.json"
	goodRange              = 500 // raw servo steps
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Rover Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━"))
	fmt.Println()

	cfg := robot.DefaultConfig()
	if robot.ConfigExists(opts.Config) {
		loaded, err := robot.LoadConfigFrom(opts.Config)
		if err != nil {
			return err
		}
		cfg = loaded
		fmt.Printf("Editing %s\n\n", opts.Config)
	}

	if err := askLink(cfg); err != nil {
		return err
	}
	if err := askTwin(cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration not saved: %w", err)
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start monitoring with: " + headerStyle.Render("rover monitor"))
	return nil
}

func askLink(cfg *robot.Config) error {
	capacity := strconv.Itoa(cfg.LogCapacity)
	retries := strconv.Itoa(cfg.Reconnect.MaxRetries)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Rover address").
				Description("host:port of the rover bridge, or a ws:// URL").
				Value(&cfg.Address).
				Validate(validateAddress),
			huh.NewInput().
				Title("Packet log capacity").
				Description("0 keeps every packet").
				Value(&capacity).
				Validate(validateCount),
			huh.NewConfirm().
				Title("Strict arm decoding?").
				Description("Reject arm packets with missing or non-numeric fields").
				Value(&cfg.StrictArm),
			huh.NewInput().
				Title("Reconnect attempts").
				Description("0 stops at the first failure").
				Value(&retries).
				Validate(validateCount),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	cfg.LogCapacity, _ = strconv.Atoi(strings.TrimSpace(capacity))
	cfg.Reconnect.MaxRetries, _ = strconv.Atoi(strings.TrimSpace(retries))
	return nil
}

func validateAddress(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("address is required")
	}
	if strings.ContainsAny(s, " \t") {
		return fmt.Errorf("address must not contain spaces")
	}
	return nil
}

func validateCount(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("enter a whole number")
	}
	if n < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

// twinPorts lists serial ports that could carry a twin arm.
func twinPorts() []string {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("Error listing ports: %v", err)))
		return nil
	}
	return filterPorts(ports)
}

func filterPorts(ports []string) []string {
	var out []string
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		out = append(out, port)
	}
	return out
}

func askTwin(cfg *robot.Config) error {
	ports := twinPorts()

	options := []huh.Option[string]{huh.NewOption("No twin arm", noTwin)}
	for _, port := range ports {
		options = append(options, huh.NewOption(port, port))
	}

	port := cfg.Twin.Port
	calibration := cfg.Twin.Calibration
	if calibration == "" {
		calibration = defaultCalibrationFile
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Twin arm").
				Description("A local SO-101 arm that mirrors the rover arm").
				Options(options...).
				Value(&port),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if port == noTwin {
		cfg.Twin = robot.TwinConfig{}
		return nil
	}

	fmt.Printf("Checking %s...\n", port)
	if err := twin.Probe(context.Background(), port); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("  %v", err)))
		fmt.Println("  Twin arm not configured.")
		cfg.Twin = robot.TwinConfig{}
		return nil
	}
	fmt.Println(successStyle.Render("  Found SO-101 arm on " + port))
	fmt.Println()

	record := !fileExists(calibration)
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Calibration file").
				Value(&calibration),
			huh.NewConfirm().
				Title("Record calibration now?").
				Description("Move every joint of the twin through its full range").
				Value(&record),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Twin = robot.TwinConfig{Port: port, Calibration: calibration}
	if !record {
		return nil
	}

	cal, err := calibrateTwin(port)
	if err != nil {
		return err
	}
	if err := cal.Validate(); err != nil {
		return fmt.Errorf("calibration incomplete: %w", err)
	}
	if err := cal.SaveTo(calibration); err != nil {
		return fmt.Errorf("save calibration: %w", err)
	}
	fmt.Printf("Calibration saved to %s\n", calibration)
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func calibrateTwin(port string) (twin.Calibration, error) {
	fmt.Println(subHeaderStyle.Render("━━━ Calibrating Twin Arm ━━━"))
	fmt.Println()
	fmt.Println("Move each joint to its minimum AND maximum positions.")
	fmt.Println("Explore the full range of motion for all joints.")
	fmt.Println()

	rec, err := twin.OpenRecorder(context.Background(), port)
	if err != nil {
		return nil, fmt.Errorf("connect to twin: %w", err)
	}
	defer rec.Close()

	p := tea.NewProgram(calibrationModel{recorder: rec})
	if _, err := p.Run(); err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}
	return rec.Ranges().Calibration(), nil
}

// calibrationModel shows the recorded ranges while the twin is moved by hand.
type calibrationModel struct {
	recorder *twin.Recorder
	quitting bool
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return tick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		m.recorder.Sample(context.Background())
		return m, tick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}
	return renderRanges(m.recorder.Ranges()) + "\n\n" + dimStyle.Render("Press Enter when done")
}

func renderRanges(r *twin.Ranges) string {
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableMotorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	motors := twin.AllMotors()
	rows := make([][]string, 0, len(motors))
	for _, name := range motors {
		rows = append(rows, []string{
			string(name),
			strconv.Itoa(r.Current[name]),
			strconv.Itoa(r.Min[name]),
			strconv.Itoa(r.Max[name]),
			strconv.Itoa(r.Span(name)),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableMotorStyle
			case 1:
				return tableCurrentStyle
			case 4:
				if row >= 0 && row < len(motors) && r.Span(motors[row]) > goodRange {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	return t.Render()
}
