package main

import (
	"math/rand"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gcforge/handlekit/cmd/handlescope/logger"
	"github.com/gcforge/handlekit/internal/gcsim"
	"github.com/gcforge/handlekit/pkg/diag"
	"github.com/gcforge/handlekit/pkg/gc"
	"github.com/gcforge/handlekit/roots"
	"github.com/gcforge/handlekit/roots/table"
)

const (
	maxHistory   = 32
	autoInterval = time.Second
	churnPerStep = 500
)

// keyMap defines the keybindings shown in the help footer.
type keyMap struct {
	Collect key.Binding
	Auto    key.Binding
	Gen     key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Collect, k.Auto, k.Gen, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Collect, k.Auto, k.Gen, k.Quit}}
}

var keys = keyMap{
	Collect: key.NewBinding(
		key.WithKeys(" ", "enter"),
		key.WithHelp("space", "collect"),
	),
	Auto: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "auto"),
	),
	Gen: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "condemned gen"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Model is the dashboard state: a live subsystem plus its simulated heap,
// the recent collection reports, and the UI chrome.
type Model struct {
	sub     *roots.Subsystem
	eng     *gcsim.Engine
	drv     *gcsim.Driver
	buckets []*roots.Bucket
	rng     *rand.Rand

	condemned int
	maxGen    int
	auto      bool
	running   bool

	reports []*diag.Report
	err     error

	width  int
	height int
	keys   keyMap
	help   help.Model
}

// NewModel builds the subsystem, the engine, and the starting handle
// population.
func NewModel(heaps int, seed int64) (Model, error) {
	eng := gcsim.NewEngine(heaps)
	sub, err := roots.Initialize(roots.Config{
		MultiHeap: heaps > 1,
		HeapCount: heaps,
		Collector: eng,
		Runtime:   eng,
	})
	if err != nil {
		return Model{}, err
	}

	m := Model{
		sub:    sub,
		eng:    eng,
		drv:    gcsim.NewDriver(sub, eng, heaps),
		rng:    rand.New(rand.NewSource(seed)),
		maxGen: 2,
		keys:   keys,
		help:   help.New(),
	}
	for i := 0; i < 2; i++ {
		b, err := sub.CreateBucket()
		if err != nil {
			sub.Shutdown()
			return Model{}, err
		}
		m.buckets = append(m.buckets, b)
	}
	m.churn(4 * churnPerStep)
	return m, nil
}

// Close releases the subsystem's handle tables.
func (m Model) Close() error {
	m.sub.Shutdown()
	return nil
}

// Messages

type collectDoneMsg struct {
	report *diag.Report
	err    error
}

type autoTickMsg struct{}

func autoTick() tea.Cmd {
	return tea.Tick(autoInterval, func(time.Time) tea.Msg {
		return autoTickMsg{}
	})
}

func (m *Model) collectCmd() tea.Cmd {
	condemned := m.condemned
	drv := m.drv
	return func() tea.Msg {
		rep, err := drv.Collect(condemned, m.maxGen, false)
		return collectDoneMsg{report: rep, err: err}
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Collect):
			if m.running {
				return m, nil
			}
			m.running = true
			return m, m.collectCmd()
		case key.Matches(msg, m.keys.Auto):
			m.auto = !m.auto
			logger.Info("auto mode toggled", "auto", m.auto)
			if m.auto && !m.running {
				return m, autoTick()
			}
			return m, nil
		case key.Matches(msg, m.keys.Gen):
			m.condemned = (m.condemned + 1) % (m.maxGen + 1)
			return m, nil
		}
		return m, nil

	case autoTickMsg:
		if !m.auto || m.running {
			return m, nil
		}
		m.running = true
		return m, m.collectCmd()

	case collectDoneMsg:
		m.running = false
		if msg.err != nil {
			m.err = msg.err
			logger.Error("collection failed", "error", msg.err)
			m.auto = false
			return m, nil
		}
		m.err = nil
		m.reports = append(m.reports, msg.report)
		if len(m.reports) > maxHistory {
			m.reports = m.reports[1:]
		}
		logger.Debug("collection done",
			"collection", msg.report.Collection,
			"condemned", msg.report.Condemned,
			"promoted", msg.report.PromotedObjects)

		// Mutator churn between collections: free severed weak handles,
		// allocate a fresh batch, and advance the condemned cycle.
		m.reap()
		m.churn(churnPerStep)
		m.condemned = (m.condemned + 1) % (m.maxGen + 1)
		if m.auto {
			return m, autoTick()
		}
		return m, nil
	}
	return m, nil
}

// churn allocates n handles of mixed types over fresh simulated objects.
func (m *Model) churn(n int) {
	types := []gc.Type{
		gc.TypeStrong, gc.TypeStrong, gc.TypeStrong,
		gc.TypeWeakShort, gc.TypeWeakLong,
		gc.TypePinned, gc.TypeRefCounted,
		gc.TypeDependent, gc.TypeSizedRef,
		gc.TypeWeakInterior, gc.TypeCrossReference,
	}
	for i := 0; i < n; i++ {
		b := m.buckets[m.rng.Intn(len(m.buckets))]
		tbl := b.Table(m.rng.Intn(b.Slots()))
		typ := types[m.rng.Intn(len(types))]

		h, err := tbl.Allocate(typ)
		if err != nil {
			m.err = err
			return
		}
		obj := m.eng.NewObject(0, uintptr(16+m.rng.Intn(256)))
		tbl.SetPrimary(h, obj)

		switch typ {
		case gc.TypeDependent:
			tbl.SetExtraInfo(h, gc.ExtraInfo(m.eng.NewObject(0, 32)))
		case gc.TypeWeakInterior:
			tbl.SetExtraInfo(h, gc.ExtraInfo(uintptr(obj)+8))
		case gc.TypeCrossReference:
			tbl.SetExtraInfo(h, gc.ExtraInfo(m.rng.Uint64()&0xffff))
		case gc.TypeRefCounted:
			if m.rng.Intn(2) == 0 {
				m.eng.SetExternalRefs(obj, 1)
			}
		}
		if m.rng.Intn(3) == 0 {
			child := m.eng.NewObject(0, 32)
			if err := m.eng.AddEdge(obj, child); err != nil {
				m.err = err
				return
			}
		}
	}
}

// reap frees weak-kind handles whose referent was severed, the way a
// finalizer thread would.
func (m *Model) reap() {
	weakTypes := []gc.Type{
		gc.TypeWeakShort, gc.TypeWeakLong, gc.TypeWeakNative, gc.TypeWeakInterior,
	}
	for _, b := range m.buckets {
		for i := 0; i < b.Slots(); i++ {
			tbl := b.Table(i)
			var dead []table.Handle
			tbl.Enumerate(weakTypes, func(h table.Handle, _ gc.Type, primary gc.ObjectRef, _ gc.ExtraInfo) bool {
				if primary == gc.NilRef {
					dead = append(dead, h)
				}
				return true
			})
			for _, h := range dead {
				if err := tbl.Free(h); err != nil {
					m.err = err
					return
				}
			}

			// Drop a slice of the anchoring handles too, so the object
			// graph has garbage to collect next cycle.
			var dropped []table.Handle
			tbl.Enumerate([]gc.Type{gc.TypeStrong, gc.TypePinned}, func(h table.Handle, _ gc.Type, _ gc.ObjectRef, _ gc.ExtraInfo) bool {
				if m.rng.Intn(8) == 0 {
					dropped = append(dropped, h)
				}
				return true
			})
			for _, h := range dropped {
				if err := tbl.Free(h); err != nil {
					m.err = err
					return
				}
			}
		}
	}
}
