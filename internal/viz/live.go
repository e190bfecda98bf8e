package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/leibniz/internal/body"
	"github.com/san-kum/leibniz/internal/command"
	"github.com/san-kum/leibniz/internal/scheduler"
	"github.com/san-kum/leibniz/internal/vector"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 300
	trailLength     = 120
)

// State is the simulation state the view reads.
type State interface {
	Names() []string
	Funcs() []string
	Value(name string) (command.Value, error)
}

// Stepper is the part of the scheduler the view drives.
type Stepper interface {
	Activate()
	Deactivate()
	State() scheduler.State
	FrameElapsed() (int, error)
	Steps() int
	Frames() int
	Accumulator() time.Duration
	StepSize() (time.Duration, bool)
	SimulatedTime() time.Duration
}

type TickMsg time.Time

// Model hosts a bound scheduler: every tick it runs the frame protocol,
// then draws the bodies and a history of one selected quantity.
type Model struct {
	name   string
	state  State
	sched  Stepper
	bodies []*body.Body
	fps    int

	canvas *Canvas
	camera *Camera
	extent float64
	trails [][]vector.Vector

	series   []string
	selected int
	history  []float64

	err      error
	showHelp bool
}

// NewModel expects the bodies to be registered with the scheduler as
// entities so their positions are current after each frame.
func NewModel(name string, state State, sched Stepper, bodies []*body.Body, fps int) Model {
	if fps <= 0 {
		fps = 60
	}
	return Model{
		name:    name,
		state:   state,
		sched:   sched,
		bodies:  bodies,
		fps:     fps,
		canvas:  NewCanvas(width, height),
		camera:  NewCamera(),
		extent:  1,
		trails:  make([][]vector.Vector, len(bodies)),
		series:  seriesNames(state),
		history: make([]float64, 0, historyCapacity),
	}
}

// seriesNames lists the variables and functions that can be graphed.
// Vectors are graphed by their norm.
func seriesNames(state State) []string {
	names := append(state.Names(), state.Funcs()...)
	sort.Strings(names)
	return names
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	m.sched.Activate()
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.sched.Deactivate()
			return m, tea.Quit
		case " ":
			m.toggle()
		case "tab":
			m.cycleSeries()
		case "c":
			m.clearTrails()
		case "r":
			m.camera.Reset()
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "y":
			m.camera.RotateY(0.1)
		case "Y":
			m.camera.RotateY(-0.1)
		case "z":
			m.camera.RotateZ(0.1)
		case "Z":
			m.camera.RotateZ(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "?":
			m.showHelp = !m.showHelp
		}
	case tea.WindowSizeMsg:
		w := msg.Width - 54
		h := msg.Height - 4
		if w > 10 && h > 5 {
			m.canvas.Resize(w, h)
		}
	case TickMsg:
		m.frame()
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) toggle() {
	if m.sched.State() == scheduler.Active {
		m.sched.Deactivate()
		return
	}
	// Resuming after an error retries the failed step.
	m.err = nil
	m.sched.Activate()
}

func (m *Model) cycleSeries() {
	if len(m.series) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.series)
	m.history = m.history[:0]
}

func (m *Model) clearTrails() {
	for i := range m.trails {
		m.trails[i] = m.trails[i][:0]
	}
	m.extent = 1
}

// frame runs one scheduler frame. A step error pauses the simulation.
func (m *Model) frame() {
	n, err := m.sched.FrameElapsed()
	if err != nil {
		m.err = err
		m.sched.Deactivate()
		return
	}
	if n == 0 {
		return
	}
	for i, b := range m.bodies {
		p := b.Position()
		if norm := p.Norm(); p.IsValid() && norm > m.extent {
			m.extent = norm
		}
		m.trails[i] = append(m.trails[i], p)
		if len(m.trails[i]) > trailLength {
			m.trails[i] = m.trails[i][1:]
		}
	}
	if x, ok := m.sample(); ok {
		m.history = append(m.history, x)
		if len(m.history) > historyCapacity {
			m.history = m.history[1:]
		}
	}
}

func (m *Model) sample() (float64, bool) {
	if len(m.series) == 0 {
		return 0, false
	}
	v, err := m.state.Value(m.series[m.selected])
	if err != nil {
		return 0, false
	}
	x := v.Scalar()
	if !v.IsScalar() {
		x = v.Vector().Norm()
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}

func (m *Model) draw() {
	m.canvas.Clear()
	w, h := m.canvas.Dots()
	extent := m.extent * 1.1
	for i, b := range m.bodies {
		col := colorOf(b.Color())
		dim := colorOf(body.Color{R: b.Color().R * 0.4, G: b.Color().G * 0.4, B: b.Color().B * 0.4})
		for _, p := range m.trails[i] {
			if x, y, ok := m.camera.Project(p, extent, w, h); ok {
				m.canvas.Set(x, y, dim)
			}
		}
		if x, y, ok := m.camera.Project(b.Position(), extent, w, h); ok {
			for dx := -1; dx <= 1; dx++ {
				for dy := -1; dy <= 1; dy++ {
					m.canvas.Set(x+dx, y+dy, col)
				}
			}
		}
	}
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.Render())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.name)) + "\n")
	switch {
	case m.err != nil:
		s.WriteString(errorStyle.Render("STOPPED") + "\n\n")
	case m.sched.State() == scheduler.Active:
		s.WriteString(runningStyle.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(pausedStyle.Render("PAUSED") + "\n\n")
	}

	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history, asciigraph.Height(5), asciigraph.Width(34), asciigraph.Caption(m.seriesLabel()))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	step, _ := m.sched.StepSize()
	frac := 0.0
	if step > 0 {
		frac = float64(m.sched.Accumulator()) / float64(step)
	}
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.3fs", m.sched.SimulatedTime().Seconds()))
	row("Step", step.String())
	row("Steps", fmt.Sprintf("%d", m.sched.Steps()))
	row("Frames", fmt.Sprintf("%d", m.sched.Frames()))
	row("Pending", progressBar(frac, 10))

	s.WriteString("\nBODIES\n")
	if len(m.bodies) == 0 {
		s.WriteString(labelStyle.Render("  (none)") + "\n")
	}
	for _, b := range m.bodies {
		marker := lipgloss.NewStyle().Foreground(colorOf(b.Color())).Render("●")
		s.WriteString(fmt.Sprintf("%s %-8s %s\n", marker, b.Name(), b.Position()))
		if b.Err() != nil {
			s.WriteString(errorStyle.Render("  "+b.Err().Error()) + "\n")
		}
	}
	if m.err != nil {
		s.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}

	s.WriteString(helpStyle.Render("\nSP:Pause TAB:Graph C:Clear Q:Quit\nXYZ:Rotate +/-:Zoom R:Reset ?:Help"))
	statsView := statsStyle.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

func (m Model) seriesLabel() string {
	if len(m.series) == 0 {
		return ""
	}
	name := m.series[m.selected]
	if v, err := m.state.Value(name); err == nil && !v.IsScalar() {
		return "|" + name + "|"
	}
	return name
}

const helpText = `
  Space    pause or resume
  Tab      graph the next variable
  C        clear trails
  X Y Z    rotate the view (shift reverses)
  + -      zoom
  R        reset the view
  Q        quit
`
