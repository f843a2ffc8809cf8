package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gateworks/periphmon/internal/catalog"
	"github.com/gateworks/periphmon/internal/discovery"
)

// Printer provides methods for printing UI components to a writer.
// This is how the one-shot commands produce styled output.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	p.Println(NewHeader(title, command, params...).SetWidth(p.width).Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Param) {
	p.Println(NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details ...Param) {
	p.Println(NewWarningResult(title, details...).SetWidth(p.width).Render())
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(NewFailureResult(title, err, troubleshooting).SetWidth(p.width).Render())
}

// PrintCatalog prints every category of the catalog with its devices and
// their current values.
func (p *Printer) PrintCatalog(c *catalog.Catalog) {
	p.Print(RenderCatalog(c))
}

// PrintMonitors prints feed servers found on the network
func (p *Printer) PrintMonitors(monitors []*discovery.Monitor) {
	if len(monitors) == 0 {
		p.Println(DeviceUnreadStyle.PaddingLeft(2).Render("No monitors found"))
		return
	}
	for _, m := range monitors {
		name := DeviceNameStyle.Width(24).Render(m.Instance)
		p.Println(name + DeviceValueStyle.Render(m.FeedURL()))
	}
}

// RenderCatalog renders a catalog as category sections
func RenderCatalog(c *catalog.Catalog) string {
	var b strings.Builder
	for _, g := range c.Groups() {
		b.WriteString(CategoryTitleStyle.Render(fmt.Sprintf("%s (%d)", g.Category, g.Len())))
		b.WriteString("\n")
		for _, rec := range g.Records {
			b.WriteString(RenderRecord(rec))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderRecord renders one device line
func RenderRecord(rec *catalog.Record) string {
	value := "unavailable"
	if rec.Value != nil {
		value = rec.Value.String()
	}
	return DeviceNameStyle.Render(rec.Name) + ValueStyle(rec.Value).Render(value)
}
