// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scope/internal/acquisition"
	"scope/internal/analysis"
	"scope/internal/log"
	"scope/internal/mpsc"
	"scope/internal/scope"
	"scope/internal/transport"
	"scope/pkg/bitint"
)

// Controller starts and stops acquisition. acquisition.Stream satisfies it.
type Controller interface {
	Start() (*mpsc.Receiver[acquisition.SampleBatch], error)
	Stop() error
	SetRange(r acquisition.VoltageRange) (*mpsc.Receiver[acquisition.SampleBatch], error)
	Streaming() bool
}

// tickMsg drives one render pass.
type tickMsg time.Time

// Fill sizes for the synthetic data keys.
const fillSamples = 50000

// Segment lengths selectable with [ and ], which step between powers of 2.
const (
	minSegmentLength = 64
	maxSegmentLength = 1 << 16
)

// ScopeModel is the Bubble Tea model of the scope screen. Every tick it
// absorbs new samples, asks for the spectrum of the visible window and
// adopts the newest finished estimate. None of these block.
type ScopeModel struct {
	session    *scope.Session
	stream     Controller
	publish    transport.Transport
	streamID   func() string
	interval   time.Duration
	points     int
	keys       scopeKeys
	help       help.Model
	width      int
	height     int
	status     string
	err        error
	logger     *log.Logger
	spectraOut uint64
}

// ScopeOption configures a ScopeModel.
type ScopeOption func(*ScopeModel)

// WithTransport publishes every adopted spectrum on t, tagged with the
// stream ID current at the time.
func WithTransport(t transport.Transport, streamID func() string) ScopeOption {
	return func(m *ScopeModel) {
		m.publish = t
		m.streamID = streamID
	}
}

// WithRefresh sets the tick interval and the number of trace points.
func WithRefresh(interval time.Duration, points int) ScopeOption {
	return func(m *ScopeModel) {
		if interval > 0 {
			m.interval = interval
		}
		if points >= 2 {
			m.points = points
		}
	}
}

// NewScopeModel creates the scope screen for session. stream may be nil when
// only synthetic data is shown.
func NewScopeModel(session *scope.Session, stream Controller, opts ...ScopeOption) *ScopeModel {
	m := &ScopeModel{
		session:  session,
		stream:   stream,
		interval: 50 * time.Millisecond,
		points:   200,
		keys:     newScopeKeys(),
		help:     help.New(),
		width:    80,
		height:   24,
		logger:   log.Named("tui"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *ScopeModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the tick loop.
func (m *ScopeModel) Init() tea.Cmd {
	return m.tick()
}

// Update handles ticks, window resizes and key presses.
func (m *ScopeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.refresh()
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

// refresh is one non-blocking poll of samples and spectra.
func (m *ScopeModel) refresh() {
	res, ok := m.session.Tick()
	if !ok || m.publish == nil {
		return
	}
	frame := transport.NewSpectrumFrame(m.streamID(), res, acquisition.SampleRate)
	if err := m.publish.Send(frame); err != nil {
		m.logger.Warnf("failed to publish spectrum %d: %v", res.Sequence, err)
		return
	}
	m.spectraOut++
}

func (m *ScopeModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	s := m.session
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Run):
		m.toggleRun()

	case key.Matches(msg, m.keys.Follow):
		s.SetFollow(!s.Follow())

	case key.Matches(msg, m.keys.Clear):
		s.Clear()
		m.status = "cleared"

	case key.Matches(msg, m.keys.TimeBase):
		s.SetTimeBase(s.TimeBase().Next())

	case key.Matches(msg, m.keys.Range):
		m.setRange(s.VoltageRange().Next())

	case key.Matches(msg, m.keys.Window):
		s.SetWindow(s.Window().Next())

	case key.Matches(msg, m.keys.Longer):
		s.SetSegmentLength(min(bitint.NextPowerOfTwo(s.SegmentLength()+1), maxSegmentLength))

	case key.Matches(msg, m.keys.Shorter):
		s.SetSegmentLength(max(bitint.PrevPowerOfTwo(s.SegmentLength()-1), minSegmentLength))

	case key.Matches(msg, m.keys.Left):
		m.pan(-0.25)

	case key.Matches(msg, m.keys.Right):
		m.pan(0.25)

	case key.Matches(msg, m.keys.ZoomIn):
		m.zoom(0.5)

	case key.Matches(msg, m.keys.ZoomOut):
		m.zoom(2)

	case key.Matches(msg, m.keys.Sine):
		s.Fill(acquisition.WaveformSine, fillSamples)
		m.status = fmt.Sprintf("added %d sine samples", fillSamples)

	case key.Matches(msg, m.keys.Noise):
		s.Fill(acquisition.WaveformNoise, fillSamples)
		m.status = fmt.Sprintf("added %d noise samples", fillSamples)
	}
	return nil
}

func (m *ScopeModel) toggleRun() {
	if m.stream == nil {
		m.status = "no acquisition source"
		return
	}
	if m.stream.Streaming() {
		if err := m.stream.Stop(); err != nil {
			m.err = err
			return
		}
		m.session.Detach()
		m.status = "stopped"
		return
	}
	rx, err := m.stream.Start()
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.session.Attach(rx)
	m.status = "running"
}

func (m *ScopeModel) setRange(r acquisition.VoltageRange) {
	m.session.SetVoltageRange(r)
	if m.stream == nil {
		return
	}
	rx, err := m.stream.SetRange(r)
	if err != nil {
		m.err = err
		return
	}
	if rx != nil {
		m.session.Attach(rx)
	}
}

func (m *ScopeModel) pan(fraction float64) {
	m.session.SetFollow(false)
	v := m.session.View()
	d := v.Width() * fraction
	m.setView(scope.View{Min: v.Min + d, Max: v.Max + d})
}

// zoom scales the view about its centre, no wider than the session allows.
func (m *ScopeModel) zoom(factor float64) {
	v := m.session.View()
	mid := (v.Min + v.Max) / 2
	half := min(v.Width()*factor, m.session.MaxViewWidth()) / 2
	m.setView(scope.View{Min: mid - half, Max: mid + half})
}

func (m *ScopeModel) setView(v scope.View) {
	if err := m.session.SetView(v); err != nil {
		m.logger.Warnf("view %+v rejected: %v", v, err)
		m.err = err
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EB5757"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5C5C5C"))
)

// View renders the scope screen.
func (m *ScopeModel) View() string {
	s := m.session
	plotWidth := max(m.width-2, 10)
	plotHeight := max((m.height-10)/2, 4)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Scope"))
	sb.WriteString(" ")
	sb.WriteString(infoStyle.Render(m.statusLine()))
	sb.WriteString("\n")

	// Time domain.
	vr := s.VoltageRange()
	lo, hi := vr.Limits()
	_, a, b := s.Trace(plotWidth)
	trace := plotLines(plotWidth, plotHeight, lo, hi,
		series{ys: a, mark: '•', style: traceAStyle},
		series{ys: b, mark: '•', style: traceBStyle},
	)
	view := s.View()
	sb.WriteString(panelStyle.Render(trace))
	fmt.Fprintf(&sb, "\n %s A  %s B   %.4g … %.4g %s   ±%s\n",
		traceAStyle.Render("•"), traceBStyle.Render("•"),
		view.Min, view.Max, s.TimeBase(), vr)

	// Spectrum.
	res, ok := s.Spectrum()
	switch {
	case !ok:
		sb.WriteString(panelStyle.Render(strings.Repeat("\n", plotHeight-1)))
		sb.WriteString("\n waiting for spectrum\n")
	case len(res.Spectrum) == 0:
		sb.WriteString(panelStyle.Render(strings.Repeat("\n", plotHeight-1)))
		fmt.Fprintf(&sb, "\n not enough samples for segment length %d\n", s.SegmentLength())
	default:
		clipped := analysis.ClipNonFinite(res.Spectrum, transport.FloorDB, transport.CeilDB)
		floor, ceil := dbRange(clipped)
		sb.WriteString(panelStyle.Render(bars(clipped, plotWidth, plotHeight, floor, ceil)))
		sb.WriteString("\n ")
		sb.WriteString(m.spectrumLine(res))
		sb.WriteString("\n")
	}

	if m.err != nil {
		sb.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		sb.WriteString("\n")
	} else if m.status != "" {
		sb.WriteString(highlightStyle.Render(m.status))
		sb.WriteString("\n")
	}
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m *ScopeModel) statusLine() string {
	s := m.session
	state := "idle"
	if m.stream != nil && m.stream.Streaming() {
		state = "running"
	}
	follow := ""
	if s.Follow() {
		follow = " follow"
	}
	return fmt.Sprintf("%s%s  %d samples  %s  seg %d",
		state, follow, s.Samples(), s.Window(), s.SegmentLength())
}

func (m *ScopeModel) spectrumLine(res analysis.Result) string {
	bins := len(res.Spectrum)
	line := fmt.Sprintf("%d bins, resolution %s", bins,
		formatHz(acquisition.SampleRate/float64(res.SegmentLength)))
	if i, v, ok := peak(res.Spectrum); ok {
		freqs := analysis.FrequencyAxis(bins, res.SegmentLength, acquisition.SampleRate)
		line += fmt.Sprintf(", peak %.1f dB at %s", v, formatHz(freqs[i]))
	}
	if m.publish != nil {
		line += fmt.Sprintf(", %d published", m.spectraOut)
	}
	return line
}

// dbRange picks display bounds covering the spectrum, at least 20 dB tall.
func dbRange(spectrum []float64) (floor, ceil float64) {
	floor, ceil = spectrum[0], spectrum[0]
	for _, v := range spectrum {
		floor = min(floor, v)
		ceil = max(ceil, v)
	}
	if ceil-floor < 20 {
		floor = ceil - 20
	}
	return floor, ceil
}

// RunScope runs the scope screen until the user quits or ctx is done.
func RunScope(ctx context.Context, m *ScopeModel) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
