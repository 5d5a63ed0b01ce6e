// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Arkosense Instruments

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/arkosense/sienna/pkg/link"
	"github.com/arkosense/sienna/pkg/sienna"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive board monitor",
	Long: `Full-screen terminal UI for a connected board.

Shows live sensor readings, link statistics and an event log. Measurement
streams can be started and stopped from the keyboard:

  t - stream temperature    c - stream current
  s - stop streaming        i - edit sample interval
  q - quit`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type monitorPacketMsg struct {
	packet *sienna.Packet
	ts     time.Time
}

type monitorErrorMsg struct{ err error }

type monitorTickMsg time.Time

type monitorSendResultMsg struct {
	what string
	err  error
}

//////////////////////////////////////////////////////////////
// Model
//////////////////////////////////////////////////////////////

type monitorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

type monitorModel struct {
	l        *link.Link
	connInfo string

	// Latest decoded samples, one slot per sensor
	lastTemp    *sienna.Sample
	lastCurrent *sienna.Sample
	sampleCount int

	streaming     bool
	streamSensor  sienna.SensorType
	intervalInput textinput.Model
	editing       bool

	log           []monitorLogEntry
	maxLogEntries int

	width    int
	height   int
	quitting bool
}

func newMonitorModel(l *link.Link, connInfo string) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "1000"
	ti.SetValue("1000")
	ti.CharLimit = 7
	ti.Width = 8

	return monitorModel{
		l:             l,
		connInfo:      connInfo,
		intervalInput: ti,
		maxLogEntries: 50,
		width:         80,
		height:        24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		monitorTickCmd(),
		tea.EnterAltScreen,
	)
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

// sendCommand performs a fire-and-forget command send off the UI goroutine.
// The response surfaces later as a monitorPacketMsg.
func (m *monitorModel) sendCommand(what string, pkt *sienna.Packet) tea.Cmd {
	l := m.l
	return func() tea.Msg {
		data, err := pkt.Marshal()
		if err == nil {
			err = l.SendFrame(data, 2*time.Second)
		}
		return monitorSendResultMsg{what: what, err: err}
	}
}

func (m *monitorModel) startStream(sensor sienna.SensorType) tea.Cmd {
	intervalMs, err := strconv.Atoi(strings.TrimSpace(m.intervalInput.Value()))
	if err != nil || intervalMs < 0 {
		m.addLog("Invalid interval, using 1000 ms", true)
		intervalMs = 1000
	}
	m.streaming = true
	m.streamSensor = sensor
	m.addLog(fmt.Sprintf("Starting %s stream @ %d ms",
		strings.ToLower(sienna.FormatSensorName(sensor)), intervalMs), false)
	return m.sendCommand("START_MEASUREMENT",
		sienna.NewStartMeasurementCommand(nextSeq(), sensor, time.Duration(intervalMs)*time.Millisecond))
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			switch msg.String() {
			case "enter", "esc":
				m.editing = false
				m.intervalInput.Blur()
				return m, nil
			default:
				var cmd tea.Cmd
				m.intervalInput, cmd = m.intervalInput.Update(msg)
				return m, cmd
			}
		}

		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "t":
			return m, m.startStream(sienna.SensorTemperature)
		case "c":
			return m, m.startStream(sienna.SensorCurrent)
		case "s":
			m.streaming = false
			m.addLog("Stopping stream", false)
			return m, m.sendCommand("STOP_MEASUREMENT", sienna.NewStopMeasurementCommand(nextSeq()))
		case "i":
			m.editing = true
			m.intervalInput.Focus()
			return m, textinput.Blink
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case monitorTickMsg:
		return m, monitorTickCmd()

	case monitorSendResultMsg:
		if msg.err != nil {
			m.addLog(fmt.Sprintf("%s failed: %v", msg.what, msg.err), true)
		}

	case monitorErrorMsg:
		m.addLog(msg.err.Error(), true)

	case monitorPacketMsg:
		m.handlePacket(msg.packet)
	}

	return m, nil
}

func (m *monitorModel) handlePacket(pkt *sienna.Packet) {
	switch pkt.Type {
	case sienna.TypeNotification:
		if pkt.CmdID != sienna.NotifySensorData {
			m.addLog(fmt.Sprintf("Notification 0x%02X", pkt.CmdID), false)
			return
		}
		sample, err := sienna.ParseSample(pkt.Payload)
		if err != nil {
			m.addLog(fmt.Sprintf("Bad sample: %v", err), true)
			return
		}
		m.sampleCount++
		switch sample.Sensor {
		case sienna.SensorTemperature:
			m.lastTemp = sample
		case sienna.SensorCurrent:
			m.lastCurrent = sample
		}

	case sienna.TypeResponse:
		name := sienna.FormatCommandName(pkt.CmdID)
		if pkt.Status == sienna.StatusOK {
			m.addLog(fmt.Sprintf("%s: OK", name), false)
		} else {
			m.addLog(fmt.Sprintf("%s: %s", name, sienna.FormatStatusName(pkt.Status)), true)
		}

	default:
		m.addLog(fmt.Sprintf("Unexpected packet type 0x%02X", uint8(pkt.Type)), true)
	}
}

func (m *monitorModel) addLog(message string, isError bool) {
	m.log = append(m.log, monitorLogEntry{timestamp: time.Now(), message: message, isError: isError})
	if len(m.log) > m.maxLogEntries {
		m.log = m.log[len(m.log)-m.maxLogEntries:]
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("SIENNA - BOARD MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | t/c stream, s stop, i interval, q quit", m.connInfo)))
	s.WriteString("\n\n")

	// Readings panel
	readings := strings.Builder{}
	if m.lastTemp != nil {
		readings.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("Temperature:"),
			valueStyle.Render(fmt.Sprintf("%.2f C (t=%dms)", float64(m.lastTemp.Value)/100, m.lastTemp.Timestamp))))
	} else {
		readings.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Temperature:"), headerStyle.Render("no data")))
	}
	if m.lastCurrent != nil {
		readings.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("Current:    "),
			valueStyle.Render(fmt.Sprintf("%.3f mA (t=%dms)", float64(m.lastCurrent.Value)/1000, m.lastCurrent.Timestamp))))
	} else {
		readings.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Current:    "), headerStyle.Render("no data")))
	}

	streamState := "idle"
	if m.streaming {
		streamState = fmt.Sprintf("streaming %s", strings.ToLower(sienna.FormatSensorName(m.streamSensor)))
	}
	readings.WriteString(fmt.Sprintf("%s %s   %s %d",
		labelStyle.Render("Stream:"), valueStyle.Render(streamState),
		labelStyle.Render("Samples:"), m.sampleCount))
	s.WriteString(boxStyle.Render(readings.String()))
	s.WriteString("\n\n")

	// Interval input
	s.WriteString(fmt.Sprintf("%s %s ms", labelStyle.Render("Interval:"), m.intervalInput.View()))
	if m.editing {
		s.WriteString(headerStyle.Render("  (enter to confirm)"))
	}
	s.WriteString("\n\n")

	// Link statistics
	snap := m.l.Stats().Snapshot()
	stats := fmt.Sprintf("%s %d   %s %d   %s %d   %s %.1f/s",
		labelStyle.Render("Sent:"), snap.FramesSent,
		labelStyle.Render("Received:"), snap.FramesReceived,
		labelStyle.Render("Errors:"), snap.CRCErrors+snap.FramingErrors+snap.TimeoutErrors+snap.TxFailures,
		labelStyle.Render("Rate:"), snap.FrameRate)
	s.WriteString(boxStyle.Render(stats))
	s.WriteString("\n\n")

	// Event log, newest last, clipped to the remaining height
	logLines := 8
	if m.height > 24 {
		logLines = m.height - 18
	}
	start := 0
	if len(m.log) > logLines {
		start = len(m.log) - logLines
	}
	for _, entry := range m.log[start:] {
		line := fmt.Sprintf("[%s] %s", entry.timestamp.Format("15:04:05"), entry.message)
		if entry.isError {
			s.WriteString(errorStyle.Render(line))
		} else {
			s.WriteString(headerStyle.Render(line))
		}
		s.WriteString("\n")
	}

	return s.String()
}

//////////////////////////////////////////////////////////////
// Wiring
//////////////////////////////////////////////////////////////

// monitorHandler forwards link events into the Bubble Tea program. Events
// arriving before the program is attached are dropped.
type monitorHandler struct {
	program atomic.Pointer[tea.Program]
}

func (h *monitorHandler) send(msg tea.Msg) {
	if p := h.program.Load(); p != nil {
		p.Send(msg)
	}
}

func (h *monitorHandler) HandleFrame(payload []byte) {
	pkt, err := sienna.ParsePacket(payload)
	if err != nil {
		h.send(monitorErrorMsg{err: err})
		return
	}
	h.send(monitorPacketMsg{packet: pkt, ts: time.Now()})
}

func (h *monitorHandler) HandleTxComplete(int) {}

func (h *monitorHandler) HandleLinkError(err error) {
	h.send(monitorErrorMsg{err: err})
}

func runMonitor(cmd *cobra.Command, args []string) error {
	transport, connInfo, err := OpenTransport()
	if err != nil {
		return err
	}

	handler := &monitorHandler{}
	cfg := link.DefaultConfig()
	cfg.Handler = handler
	l, err := link.Open(transport, cfg)
	if err != nil {
		transport.Close()
		return err
	}
	defer l.Close()

	p := tea.NewProgram(newMonitorModel(l, connInfo), tea.WithAltScreen())
	handler.program.Store(p)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("monitor UI: %v", err)
	}

	// Best effort stop on the way out.
	if pkt, err := sienna.NewStopMeasurementCommand(nextSeq()).Marshal(); err == nil {
		_ = l.SendFrame(pkt, time.Second)
	}
	return nil
}
