// Package tui renders analysis results on the terminal.
// Simple, streaming, no complex TUI - just clean prompts and output.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/caseflow/caseflow/pkg/archive"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

// PrintHeader prints the CLI banner.
func PrintHeader(version string) {
	fmt.Println()
	fmt.Println(titleStyle.Render("  CASEFLOW") + mutedStyle.Render(" v"+version))
	fmt.Println(mutedStyle.Render("  Event log analytics for process mining"))
	fmt.Println()
}

// PrintReport prints a full analysis report.
func PrintReport(r *archive.Report) {
	fmt.Println()
	fmt.Println(successStyle.Render("  ✓ ANALYSIS COMPLETE") + mutedStyle.Render("  "+r.Filename))
	fmt.Println()

	s := r.Summary
	if s != nil {
		fmt.Printf("  %s %s cases, %s events, %d activities\n",
			mutedStyle.Render("Log:"),
			titleStyle.Render(formatNumber(int64(s.TotalCases))),
			titleStyle.Render(formatNumber(int64(s.TotalEvents))),
			s.TotalActivities)

		if s.CaseDurations.AvgSeconds != nil {
			fmt.Printf("  %s avg %s, median %s, min %s, max %s\n",
				mutedStyle.Render("Case duration:"),
				titleStyle.Render(s.CaseDurations.Avg),
				s.CaseDurations.Median,
				s.CaseDurations.Min,
				s.CaseDurations.Max)
		}

		if len(s.TopVariants) > 0 {
			fmt.Println()
			fmt.Println(accentStyle.Render("  ▸ TOP VARIANTS"))
			for i, v := range s.TopVariants {
				fmt.Printf("    %2d. %s %s\n", i+1,
					titleStyle.Render(v.Variant),
					mutedStyle.Render(fmt.Sprintf("(%d cases, %.1f%%)", v.Count, v.Percent)))
			}
		}
	}

	if len(r.Bottlenecks) > 0 {
		fmt.Println()
		fmt.Println(accentStyle.Render("  ▸ BOTTLENECKS"))
		for i, b := range r.Bottlenecks {
			fmt.Printf("    %2d. %s → %s %s\n", i+1,
				titleStyle.Render(b.Source),
				titleStyle.Render(b.Target),
				mutedStyle.Render(fmt.Sprintf("(avg %s, %d occurrences, impact %.1f)",
					b.AvgDuration, b.Count, b.Impact)))
		}
	}

	if r.Graph != nil {
		fmt.Println()
		fmt.Printf("  %s %d nodes, %d edges\n",
			mutedStyle.Render("Graph:"), len(r.Graph.Nodes), len(r.Graph.Edges))
	}
	fmt.Println()
}

// PrintError prints an error line.
func PrintError(err error) {
	fmt.Println(accentStyle.Render("  ✗ " + err.Error()))
}

// PrintInfo prints a muted informational line.
func PrintInfo(msg string) {
	fmt.Println(mutedStyle.Render("  " + msg))
}

// PrintSuccess prints a success line.
func PrintSuccess(msg string) {
	fmt.Println(successStyle.Render("  ✓ " + msg))
}

// FormatBytes renders a byte count for humans.
func FormatBytes(b int64) string {
	return formatBytes(b)
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

// ShowProgress creates a progress bar for processing multiple files.
func ShowProgress(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// Spinner shows a simple loading indicator.
func Spinner(message string, done chan bool) {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	i := 0
	for {
		select {
		case <-done:
			fmt.Printf("\r%s %s\n", successStyle.Render("✓"), message)
			return
		default:
			fmt.Printf("\r%s %s", accentStyle.Render(frames[i]), message)
			i = (i + 1) % len(frames)
			time.Sleep(80 * time.Millisecond)
		}
	}
}
