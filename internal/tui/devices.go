// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scope/internal/acquisition"
)

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	DetailScreen
)

// DeviceListModel lets the user pick an input device with at least two
// channels.
type DeviceListModel struct {
	fetch         func() ([]acquisition.Device, error)
	devices       []acquisition.Device
	selectedIndex int
	chosen        int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType
}

type devicesMsg struct {
	devices []acquisition.Device
}

type errMsg struct {
	err error
}

// NewDeviceListModel creates a picker listing the devices returned by fetch.
func NewDeviceListModel(fetch func() ([]acquisition.Device, error)) DeviceListModel {
	return DeviceListModel{
		fetch:        fetch,
		chosen:       acquisition.DefaultDeviceID,
		activeScreen: ListScreen,
	}
}

// Init fetches the device list.
func (m DeviceListModel) Init() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		devices, err := fetch()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{devices}
	}
}

// Chosen returns the ID picked with enter, or acquisition.DefaultDeviceID.
func (m DeviceListModel) Chosen() int {
	return m.chosen
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
			m.refreshContent()
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case devicesMsg:
		m.devices = msg.devices
		m.refreshContent()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))) {
			return m, tea.Quit
		}

		if m.activeScreen == ListScreen {
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.selectedIndex > 0 {
					m.selectedIndex--
					m.refreshContent()
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
					m.refreshContent()
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("i"))):
				if len(m.devices) > 0 {
					m.activeScreen = DetailScreen
					m.refreshContent()
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				if len(m.devices) > 0 && usable(m.devices[m.selectedIndex]) {
					m.chosen = m.devices[m.selectedIndex].ID
					return m, tea.Quit
				}
			}
		} else if key.Matches(msg, key.NewBinding(key.WithKeys("esc"))) {
			m.activeScreen = ListScreen
			m.refreshContent()
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *DeviceListModel) refreshContent() {
	if !m.ready {
		return
	}
	if m.activeScreen == DetailScreen {
		m.viewport.SetContent(m.renderDeviceDetail())
		return
	}
	m.viewport.SetContent(m.renderDevices())
}

// View renders the UI
func (m DeviceListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	var title, help string

	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Input Devices")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Use device • i: Details • q: Default device")
	} else {
		title = titleStyle.Render("Device Details")
		help = infoStyle.Render("Esc: Back • q: Default device")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

// usable reports whether d can feed both scope channels.
func usable(d acquisition.Device) bool {
	return d.MaxInputChannels >= 2
}

func (m DeviceListModel) renderDevices() string {
	var sb strings.Builder

	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	for i, device := range m.devices {
		deviceInfo := fmt.Sprintf("[%d] %s (%s)\n", device.ID, device.Name, device.Kind())
		deviceInfo += fmt.Sprintf("    Input channels: %d", device.MaxInputChannels)
		if !usable(device) {
			deviceInfo += " (needs 2)"
		}
		deviceInfo += "\n"

		if i == m.selectedIndex {
			deviceInfo = highlightStyle.Render(deviceInfo)
		}

		sb.WriteString(deviceInfo)
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m DeviceListModel) renderDeviceDetail() string {
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	fmt.Fprintf(&sb, "%s\n\n", device.Name)
	fmt.Fprintf(&sb, "Type:                %s\n", device.Kind())
	fmt.Fprintf(&sb, "Input channels:      %d\n", device.MaxInputChannels)
	fmt.Fprintf(&sb, "Output channels:     %d\n", device.MaxOutputChannels)
	fmt.Fprintf(&sb, "Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
	fmt.Fprintf(&sb, "Scope sample rate:   %.0f Hz\n", acquisition.SampleRate)
	fmt.Fprintf(&sb, "Input latency:       %.2f ms low, %.2f ms high\n",
		device.LowInputLatency.Seconds()*1000, device.HighInputLatency.Seconds()*1000)

	return sb.String()
}

// PickDevice runs the device picker and returns the chosen device ID, or
// acquisition.DefaultDeviceID when the user quits without choosing.
func PickDevice(fetch func() ([]acquisition.Device, error)) (int, error) {
	p := tea.NewProgram(NewDeviceListModel(fetch), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return acquisition.DefaultDeviceID, err
	}
	m := final.(DeviceListModel)
	return m.chosen, m.err
}
