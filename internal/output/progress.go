// Package output renders download progress and status lines to the
// terminal. Everything here is a sink for byte counts; it never influences
// the transfer itself.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/dget-io/dget/internal/utils"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("37"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

var StyleSymbols = map[string]string{
	"pass":   "✓",
	"fail":   "✗",
	"bullet": "•",
	"hline":  "━",
}

func PrintSuccess(text string) {
	fmt.Println(successStyle.Render(text))
}

func PrintError(text string) {
	fmt.Println(errorStyle.Render(text))
}

func PrintInfo(text string) {
	fmt.Println(infoStyle.Render(text))
}

// ProgressBar is a single-line terminal progress sink. Updates are throttled
// so the callback stays cheap on the transfer's critical path.
type ProgressBar struct {
	mu         sync.Mutex
	label      string
	out        io.Writer
	started    time.Time
	lastRender time.Time
	downloaded int64
	total      int64
}

func NewProgressBar(label string) *ProgressBar {
	return &ProgressBar{
		label:   label,
		out:     os.Stderr,
		started: time.Now(),
	}
}

// Update is the engine's progress callback: cumulative bytes so far and the
// total, -1 when the remote size is unknown.
func (p *ProgressBar) Update(downloaded, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.downloaded = downloaded
	p.total = total
	if time.Since(p.lastRender) < 100*time.Millisecond {
		return
	}
	p.lastRender = time.Now()
	p.render()
}

// Finish redraws the final state and terminates the progress line.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.render()
	fmt.Fprintln(p.out)
}

func (p *ProgressBar) render() {
	elapsed := time.Since(p.started).Seconds()
	speed := utils.FormatSpeed(p.downloaded, elapsed)
	var line string
	if p.total < 0 {
		line = fmt.Sprintf("%s %s %s", p.label, utils.SizeofFmt(p.downloaded), speed)
	} else {
		line = fmt.Sprintf("%s %s %s / %s %s", p.label,
			renderBar(p.downloaded, p.total, barWidth()),
			utils.SizeofFmt(p.downloaded), utils.SizeofFmt(p.total), speed)
	}
	fmt.Fprintf(p.out, "\r\033[K%s", line)
}

func renderBar(current, total int64, width int) string {
	if width <= 0 {
		width = 30
	}
	if total <= 0 {
		total = 1
	}
	if current < 0 {
		current = 0
	}
	if current > total {
		current = total
	}
	percent := float64(current) / float64(total)
	filled := max(0, min(int(percent*float64(width)), width))
	bar := StyleSymbols["bullet"]
	bar += strings.Repeat(StyleSymbols["hline"], filled)
	if filled < width {
		bar += strings.Repeat(" ", width-filled)
	}
	bar += StyleSymbols["bullet"]
	return barStyle.Render(fmt.Sprintf("%s %.1f%%", bar, percent*100))
}

func barWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 30
	}
	if width > 120 {
		return 40
	}
	return width / 3
}
