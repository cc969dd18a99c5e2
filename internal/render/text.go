package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"heatmaptracker/internal/calendar"
	"heatmaptracker/internal/tracker"
)

const (
	textBlock = "■"
	textEmpty = "·"
)

var (
	textTitleStyle = lipgloss.NewStyle().Bold(true)
	textLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	textEmptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
)

// Text renders the View for a terminal: one row per weekday, one two-column
// slot per week, with a month header and the streak summary underneath.
func Text(v *tracker.View) string {
	cols := (len(v.Cells) + 6) / 7

	labelWidth := 0
	for _, l := range v.WeekdayLabels {
		if len(l) > labelWidth {
			labelWidth = len(l)
		}
	}
	if labelWidth > 0 {
		labelWidth++
	}

	var lines []string
	heading := v.Title
	if heading == "" {
		heading = v.ID
	}
	lines = append(lines, textTitleStyle.Render(fmt.Sprintf("%s %d", heading, v.Year)))
	if v.Subtitle != "" {
		lines = append(lines, textLabelStyle.Render(v.Subtitle))
	}
	lines = append(lines, "")

	header := []rune(strings.Repeat(" ", labelWidth+cols*2+3))
	for i, cell := range v.Cells {
		if cell.IsSpaceBetweenBox || !strings.HasSuffix(cell.Date, "-01") {
			continue
		}
		d, err := calendar.ParseDate(cell.Date)
		if err != nil || int(d.Month()) > len(v.MonthLabels) {
			continue
		}
		pos := labelWidth + (i/7)*2
		copy(header[pos:], []rune(v.MonthLabels[d.Month()-1]))
	}
	lines = append(lines, textLabelStyle.Render(strings.TrimRight(string(header), " ")))

	for row := 0; row < 7; row++ {
		label := ""
		if row < len(v.WeekdayLabels) {
			label = v.WeekdayLabels[row]
		}
		parts := []string{textLabelStyle.Render(fmt.Sprintf("%-*s", labelWidth, label))}
		for col := 0; col < cols; col++ {
			i := col*7 + row
			if i >= len(v.Cells) || v.Cells[i].IsSpaceBetweenBox {
				parts = append(parts, "  ")
				continue
			}
			cell := v.Cells[i]
			if cell.BackgroundColor == "" {
				parts = append(parts, textEmptyStyle.Render(textEmpty)+" ")
				continue
			}
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(cell.BackgroundColor))
			if cell.IsToday && cell.ShowBorder {
				style = style.Underline(true)
			}
			parts = append(parts, style.Render(textBlock)+" ")
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, parts...))
	}

	lines = append(lines, "",
		fmt.Sprintf("Tracked days: %d this year, %d total", v.TotalTrackingDaysThisYear, v.TotalTrackingDays),
		fmt.Sprintf("Current streak: %s", v.CurrentStreakText),
		fmt.Sprintf("Longest streak: %s", v.LongestStreakText),
	)
	for _, in := range v.Insights {
		lines = append(lines, fmt.Sprintf("%s: %s", in.Label, in.Value))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
