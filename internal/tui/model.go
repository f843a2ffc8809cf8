package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/gateworks/periphmon/internal/catalog"
	"github.com/gateworks/periphmon/internal/device"
	"github.com/gateworks/periphmon/internal/engine"
	"github.com/gateworks/periphmon/internal/logging"
)

// NoticeDuration is how long a status notice stays on screen
const NoticeDuration = 4 * time.Second

// dutyStep is the duty cycle change per key press, in percent
const dutyStep = 10

// batchMsg carries one poller batch into the update loop
type batchMsg engine.Batch

// clearNoticeMsg removes the status notice it was scheduled for
type clearNoticeMsg struct {
	seq int
}

// row is one line of the device list: a category header or a device
type row struct {
	category device.Category
	record   *catalog.Record // nil for headers
}

func (r row) header() bool { return r.record == nil }

// Model is the interactive device monitor. Its Update loop is the only place
// where record values change while the monitor runs.
type Model struct {
	cat    *catalog.Catalog
	eng    *engine.Engine
	logger *zap.Logger

	expanded map[device.Category]bool
	rows     []row
	cursor   int
	offset   int // first row in the window

	Width  int
	Height int

	notice    string
	noticeErr bool
	noticeSeq int

	editingPeriod bool
	periodInput   textinput.Model

	showHelp   bool
	Help       help.Model
	Keys       monitorKeyMap
	PeriodKeys periodKeyMap

	Applied   int // updates applied from batches
	Discarded int // stale updates dropped
}

// NewModel creates the monitor for a catalog and the engine polling it.
// Every category starts expanded.
func NewModel(cat *catalog.Catalog, eng *engine.Engine) Model {
	input := textinput.New()
	input.Placeholder = "period in µs"
	input.CharLimit = engine.MaxPeriodDigits
	input.Width = 12
	input.Prompt = "Period (µs): "
	input.PromptStyle = PromptStyle

	m := Model{
		cat:         cat,
		eng:         eng,
		logger:      logging.Named("tui"),
		expanded:    make(map[device.Category]bool),
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		periodInput: input,
		Help:        help.New(),
		Keys:        newMonitorKeyMap(),
		PeriodKeys:  newPeriodKeyMap(),
	}
	for _, c := range cat.Categories() {
		m.expanded[c] = true
	}
	m.rebuildRows()
	m.syncVisibility()
	return m
}

// Init starts listening for batches
func (m Model) Init() tea.Cmd {
	return waitForBatch(m.eng.Dispatcher().Batches())
}

// waitForBatch blocks until the next batch arrives. It is re-armed after
// every batch so exactly one listener is outstanding.
func waitForBatch(ch <-chan engine.Batch) tea.Cmd {
	return func() tea.Msg {
		b, ok := <-ch
		if !ok {
			return nil
		}
		return batchMsg(b)
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Help.Width = msg.Width
		m.scrollToCursor()
		m.syncVisibility()
		return m, nil

	case batchMsg:
		res := engine.Apply(m.cat, engine.Batch(msg))
		m.Applied += res.Applied
		m.Discarded += res.Discarded
		if res.Discarded > 0 {
			m.logger.Debug("Stale updates discarded",
				zap.Stringer("category", msg.Category),
				zap.Uint64("seq", msg.Seq),
				zap.Int("discarded", res.Discarded),
			)
		}
		return m, waitForBatch(m.eng.Dispatcher().Batches())

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
			m.noticeErr = false
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.editingPeriod {
			return m.updatePeriodInput(msg)
		}
		return m.updateList(msg)
	}

	return m, nil
}

// updateList handles keys while navigating the device list
func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Help):
		m.showHelp = !m.showHelp
		m.Help.ShowAll = m.showHelp
		return m, nil

	case key.Matches(msg, m.Keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.scrollToCursor()
		m.syncVisibility()
		return m, nil

	case key.Matches(msg, m.Keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		m.scrollToCursor()
		m.syncVisibility()
		return m, nil

	case key.Matches(msg, m.Keys.Expand):
		if r, ok := m.current(); ok {
			m.setExpanded(r.category, true)
		}
		return m, nil

	case key.Matches(msg, m.Keys.Collapse):
		if r, ok := m.current(); ok {
			m.setExpanded(r.category, false)
		}
		return m, nil

	case key.Matches(msg, m.Keys.Toggle):
		r, ok := m.current()
		if !ok {
			return m, nil
		}
		if r.header() {
			m.setExpanded(r.category, !m.expanded[r.category])
			return m, nil
		}
		return m.toggle(r.record)

	case key.Matches(msg, m.Keys.Direction):
		rec := m.selected(device.GPIO)
		if rec == nil {
			return m, nil
		}
		dir := device.Out
		if v, ok := rec.Value.(device.GPIOValue); ok && v.Direction == device.Out {
			dir = device.In
		}
		return m.result(m.eng.Editor().SetGPIODirection(rec, dir), "%s set to %s", rec.Name, dir)

	case key.Matches(msg, m.Keys.Trigger):
		rec := m.selected(device.LED)
		if rec == nil {
			return m, nil
		}
		next, ok := nextTrigger(rec.Value)
		if !ok {
			return m.result(fmt.Errorf("%s has no triggers", rec.Name), "")
		}
		return m.result(m.eng.Editor().SetLEDTrigger(rec, next), "%s trigger %s", rec.Name, next)

	case key.Matches(msg, m.Keys.DutyUp), key.Matches(msg, m.Keys.DutyDown):
		rec := m.selected(device.PWM)
		if rec == nil {
			return m, nil
		}
		v, _ := rec.Value.(device.PWMValue)
		pct := roundPercent(v.DutyPercent())
		if key.Matches(msg, m.Keys.DutyUp) {
			pct += dutyStep
		} else {
			pct -= dutyStep
		}
		pct = clamp(pct, 0, 100)
		return m.result(m.eng.Editor().SetPWMDutyPercent(rec, pct), "%s duty %d%%", rec.Name, pct)

	case key.Matches(msg, m.Keys.Period):
		rec := m.selected(device.PWM)
		if rec == nil {
			return m, nil
		}
		m.editingPeriod = true
		m.periodInput.SetValue("")
		if v, ok := rec.Value.(device.PWMValue); ok {
			m.periodInput.Placeholder = fmt.Sprintf("%d", v.PeriodUS)
		}
		return m, m.periodInput.Focus()
	}

	return m, nil
}

// updatePeriodInput handles keys while the period prompt is open
func (m Model) updatePeriodInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.PeriodKeys.Cancel):
		m.closePeriodInput()
		return m, nil

	case key.Matches(msg, m.PeriodKeys.Confirm):
		value := m.periodInput.Value()
		m.closePeriodInput()
		rec := m.selected(device.PWM)
		if rec == nil {
			return m, nil
		}
		period, err := engine.ParsePeriod(value)
		if err != nil {
			return m.result(err, "")
		}
		return m.result(m.eng.Editor().SetPWMPeriod(rec, period), "%s period %dµs", rec.Name, period)
	}

	var cmd tea.Cmd
	m.periodInput, cmd = m.periodInput.Update(msg)
	return m, cmd
}

func (m *Model) closePeriodInput() {
	m.editingPeriod = false
	m.periodInput.Blur()
	m.periodInput.SetValue("")
}

// toggle performs the primary action of a device row
func (m Model) toggle(rec *catalog.Record) (tea.Model, tea.Cmd) {
	ed := m.eng.Editor()
	switch v := rec.Value.(type) {
	case device.LEDValue:
		return m.result(ed.SetLED(rec, !v.On), "%s %s", rec.Name, onOff(!v.On))
	case device.GPIOValue:
		if v.Direction != device.Out {
			return m.result(fmt.Errorf("%s is an input", rec.Name), "")
		}
		level := 1 - v.Level
		if level < 0 || level > 1 {
			level = 0
		}
		return m.result(ed.SetGPIOLevel(rec, level), "%s driven %s", rec.Name, highLow(level))
	case device.PWMValue:
		return m.result(ed.SetPWMEnabled(rec, !v.Enabled), "%s %s", rec.Name, enabledDisabled(!v.Enabled))
	case device.HWMONValue:
		return m.result(fmt.Errorf("%s is read-only", rec.Name), "")
	default:
		return m.result(fmt.Errorf("%s has not been read yet", rec.Name), "")
	}
}

// result shows the outcome of an edit as a transient notice
func (m Model) result(err error, format string, args ...interface{}) (tea.Model, tea.Cmd) {
	m.noticeSeq++
	if err != nil {
		m.notice = err.Error()
		m.noticeErr = true
		var werr *device.AccessorWriteError
		if errors.As(err, &werr) {
			m.notice = fmt.Sprintf("%s failed: %v", werr.Op, werr.Err)
		}
	} else {
		m.notice = fmt.Sprintf(format, args...)
		m.noticeErr = false
	}
	seq := m.noticeSeq
	return m, tea.Tick(NoticeDuration, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	})
}

// setExpanded shows or hides the devices of a category. Collapsing pauses
// the category's poller and expanding resumes it.
func (m *Model) setExpanded(cat device.Category, expand bool) {
	if m.expanded[cat] == expand {
		return
	}
	m.expanded[cat] = expand
	if expand {
		m.eng.Pauses().Resume(cat)
	} else {
		m.eng.Pauses().Pause(cat)
	}

	m.rebuildRows()
	// keep the cursor on the category header
	for i, r := range m.rows {
		if r.header() && r.category == cat {
			m.cursor = i
			break
		}
	}
	m.scrollToCursor()
	m.syncVisibility()
}

// rebuildRows flattens the catalog into list rows
func (m *Model) rebuildRows() {
	m.rows = m.rows[:0]
	for _, g := range m.cat.Groups() {
		m.rows = append(m.rows, row{category: g.Category})
		if !m.expanded[g.Category] {
			continue
		}
		for _, rec := range g.Records {
			m.rows = append(m.rows, row{category: g.Category, record: rec})
		}
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// listHeight is the number of rows that fit on screen
func (m Model) listHeight() int {
	h := m.Height - chromeHeight
	if h < 3 {
		h = 3
	}
	return h
}

func (m *Model) scrollToCursor() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if last := len(m.rows) - h; m.offset > last {
		m.offset = last
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// syncVisibility marks exactly the device rows inside the window visible
func (m *Model) syncVisibility() {
	for _, rec := range m.cat.Records() {
		rec.SetVisible(false)
	}
	end := m.offset + m.listHeight()
	if end > len(m.rows) {
		end = len(m.rows)
	}
	for _, r := range m.rows[m.offset:end] {
		if !r.header() {
			r.record.SetVisible(true)
		}
	}
}

func (m Model) current() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

// selected returns the record under the cursor if it belongs to cat
func (m Model) selected(cat device.Category) *catalog.Record {
	r, ok := m.current()
	if !ok || r.header() || r.category != cat {
		return nil
	}
	return r.record
}

// Selected returns the record under the cursor, or nil on a header row
func (m Model) Selected() *catalog.Record {
	r, ok := m.current()
	if !ok {
		return nil
	}
	return r.record
}

// Expanded reports whether a category is expanded
func (m Model) Expanded(cat device.Category) bool {
	return m.expanded[cat]
}

// Notice returns the current status notice
func (m Model) Notice() string {
	return m.notice
}

func nextTrigger(v device.Value) (string, bool) {
	led, ok := v.(device.LEDValue)
	if !ok || len(led.Triggers) == 0 {
		return "", false
	}
	for i, t := range led.Triggers {
		if t == led.Trigger {
			return led.Triggers[(i+1)%len(led.Triggers)], true
		}
	}
	return led.Triggers[0], true
}

// roundPercent snaps a percentage to the nearest duty step
func roundPercent(pct int) int {
	return (pct + dutyStep/2) / dutyStep * dutyStep
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func highLow(level int) string {
	if level != 0 {
		return "HIGH"
	}
	return "LOW"
}

func enabledDisabled(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
