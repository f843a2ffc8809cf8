package tui

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gateworks/periphmon/internal/catalog"
	"github.com/gateworks/periphmon/internal/device"
)

// View renders the monitor
func (m Model) View() string {
	var b strings.Builder

	end := m.offset + m.listHeight()
	if end > len(m.rows) {
		end = len(m.rows)
	}
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteString("\n")
	}
	if len(m.rows) == 0 {
		b.WriteString(HintStyle.Render("No devices found"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())

	var footer string
	if m.editingPeriod {
		footer = m.Help.View(m.PeriodKeys)
	} else {
		footer = m.Help.View(m.Keys)
	}

	return RenderApplicationContainer(b.String(), footer, m.Width, m.Height)
}

// renderRow renders one list row. A panic while rendering one device is
// contained to that row.
func (m Model) renderRow(i int) (s string) {
	r := m.rows[i]
	defer func() {
		if p := recover(); p != nil {
			name := r.category.String()
			if r.record != nil {
				name = r.record.Name
			}
			m.logger.Error("Row render failed", zap.String("row", name), zap.Any("panic", p))
			s = RowErrorStyle.Render(fmt.Sprintf("  ! %s: cannot display", name))
		}
	}()

	cursor := "  "
	if i == m.cursor {
		cursor = SelectedStyle.Render("> ")
	}

	if r.header() {
		return cursor + m.renderHeader(r.category)
	}
	return cursor + "  " + renderDevice(r.record)
}

func (m Model) renderHeader(cat device.Category) string {
	g := m.cat.Group(cat)
	marker := "▸"
	if m.expanded[cat] {
		marker = "▾"
	}
	text := fmt.Sprintf("%s %s (%d)", marker, cat, g.Len())

	if cat.Polled() && m.eng.Pauses().IsPaused(cat) {
		return CategoryPausedStyle.Render(text) + " " + HintStyle.Render("paused")
	}
	return CategoryStyle.Render(text)
}

func renderDevice(rec *catalog.Record) string {
	name := NameStyle.Render(rec.Name)

	switch v := rec.Value.(type) {
	case nil:
		return name + UnknownValueStyle.Render("…")

	case device.LEDValue:
		style := ValueStyle
		if v.On {
			style = ActiveValueStyle
		}
		return name + style.Render(fmt.Sprintf("%-4s", onOff(v.On))) + "  " +
			HintStyle.Render("trigger: ") + ValueStyle.Render(v.Trigger)

	case device.GPIOValue:
		style := ValueStyle
		if v.Level != 0 {
			style = ActiveValueStyle
		}
		line := name + ValueStyle.Render(fmt.Sprintf("%-4s", v.Direction)) + "  " + style.Render(highLow(v.Level))
		if rec.OutputOnly() {
			line += "  " + HintStyle.Render("output-only")
		}
		return line

	case device.HWMONValue:
		return name + ValueStyle.Render(v.String())

	case device.PWMValue:
		style := ValueStyle
		if v.Enabled {
			style = ActiveValueStyle
		}
		return name + style.Render(fmt.Sprintf("%-9s", enabledDisabled(v.Enabled))) + "  " +
			ValueStyle.Render(fmt.Sprintf("%dµs  ", v.PeriodUS)) + dutyBar(v.DutyPercent())

	default:
		return name + ValueStyle.Render(v.String())
	}
}

// dutyBar draws a ten-cell gauge of the duty cycle
func dutyBar(pct int) string {
	cells := clamp(pct, 0, 100) / 10
	bar := ActiveValueStyle.Render(strings.Repeat("█", cells)) +
		HintStyle.Render(strings.Repeat("░", 10-cells))
	return bar + ValueStyle.Render(fmt.Sprintf(" %3d%%", pct))
}

func (m Model) renderStatus() string {
	if m.editingPeriod {
		return m.periodInput.View()
	}
	if m.notice == "" {
		return " "
	}
	if m.noticeErr {
		return NoticeErrorStyle.Render("✗ " + m.notice)
	}
	return NoticeStyle.Render("✓ " + m.notice)
}
