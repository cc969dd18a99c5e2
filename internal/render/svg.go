// Package render draws a computed tracker View as SVG, as an HTML page
// wrapping that SVG, or as a colored terminal grid.
package render

import (
	"fmt"
	"html"
	"strings"

	"heatmaptracker/internal/calendar"
	"heatmaptracker/internal/tracker"
)

// EmptyColor fills cells that have no color of their own.
const EmptyColor = "#ebedf0"

// SVGOptions controls the SVG geometry.
type SVGOptions struct {
	CellSize    int
	CellPadding int
	FontSize    int
	FontFamily  string
	EmptyColor  string
	TodayStroke string
	ShowLegend  bool
}

// DefaultSVGOptions returns the geometry used by the web UI.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		CellSize:    12,
		CellPadding: 2,
		FontSize:    10,
		FontFamily:  "sans-serif",
		EmptyColor:  EmptyColor,
		TodayStroke: "#24292f",
		ShowLegend:  true,
	}
}

func (o SVGOptions) withDefaults() SVGOptions {
	d := DefaultSVGOptions()
	if o.CellSize <= 0 {
		o.CellSize = d.CellSize
	}
	if o.CellPadding < 0 {
		o.CellPadding = 0
	}
	if o.FontSize <= 0 {
		o.FontSize = d.FontSize
	}
	if o.FontFamily == "" {
		o.FontFamily = d.FontFamily
	}
	if o.EmptyColor == "" {
		o.EmptyColor = d.EmptyColor
	}
	if o.TodayStroke == "" {
		o.TodayStroke = d.TodayStroke
	}
	return o
}

// SVG draws the View's cells column-major: cell i sits in week column i/7
// and weekday row i%7. Filler cells take a slot but draw nothing.
func SVG(v *tracker.View, opts SVGOptions) string {
	opts = opts.withDefaults()
	step := opts.CellSize + opts.CellPadding

	labelWidth := 0
	for _, l := range v.WeekdayLabels {
		if w := len(l) * opts.FontSize * 7 / 10; w > labelWidth {
			labelWidth = w
		}
	}
	if labelWidth > 0 {
		labelWidth += opts.CellPadding * 2
	}

	top := 0
	if v.Title != "" {
		top += opts.FontSize*2 + opts.CellPadding
	}
	if v.Subtitle != "" {
		top += opts.FontSize + opts.CellPadding*2
	}
	monthRow := top + opts.FontSize
	gridTop := monthRow + opts.CellPadding*2

	cols := (len(v.Cells) + 6) / 7
	gridWidth := cols * step
	width := labelWidth + gridWidth + opts.CellPadding
	height := gridTop + 7*step

	legendTop := height + opts.FontSize
	if opts.ShowLegend && len(v.Legend) > 0 {
		height = legendTop + step + opts.FontSize
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" data-tracker="%s" data-year="%d">`,
		width, height, width, height, html.EscapeString(v.ID), v.Year)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, `<g font-family="%s" font-size="%d" fill="#57606a">`, html.EscapeString(opts.FontFamily), opts.FontSize)
	sb.WriteString("\n")

	y := 0
	if v.Title != "" {
		y += opts.FontSize * 2
		fmt.Fprintf(&sb, `<text class="title" x="0" y="%d" font-size="%d" font-weight="bold" fill="#24292f">%s</text>`,
			y, opts.FontSize*2-opts.FontSize/2, html.EscapeString(v.Title))
		sb.WriteString("\n")
		y += opts.CellPadding
	}
	if v.Subtitle != "" {
		y += opts.FontSize + opts.CellPadding
		fmt.Fprintf(&sb, `<text class="subtitle" x="0" y="%d">%s</text>`, y, html.EscapeString(v.Subtitle))
		sb.WriteString("\n")
	}

	for i, cell := range v.Cells {
		if cell.IsSpaceBetweenBox || !strings.HasSuffix(cell.Date, "-01") {
			continue
		}
		d, err := calendar.ParseDate(cell.Date)
		if err != nil || int(d.Month()) > len(v.MonthLabels) {
			continue
		}
		x := labelWidth + (i/7)*step
		fmt.Fprintf(&sb, `<text class="month" x="%d" y="%d">%s</text>`, x, monthRow, html.EscapeString(v.MonthLabels[d.Month()-1]))
		sb.WriteString("\n")
	}

	for row, label := range v.WeekdayLabels {
		if label == "" {
			continue
		}
		ly := gridTop + row*step + opts.CellSize - 2
		fmt.Fprintf(&sb, `<text class="weekday" x="0" y="%d">%s</text>`, ly, html.EscapeString(label))
		sb.WriteString("\n")
	}
	sb.WriteString("</g>\n")

	for i, cell := range v.Cells {
		if cell.IsSpaceBetweenBox {
			continue
		}
		x := labelWidth + (i/7)*step
		cy := gridTop + (i%7)*step
		color := cell.BackgroundColor
		if color == "" {
			color = opts.EmptyColor
		}

		stroke := ""
		if cell.IsToday && cell.ShowBorder {
			stroke = fmt.Sprintf(` stroke="%s" stroke-width="1.5"`, html.EscapeString(opts.TodayStroke))
		}
		class := "day"
		if cell.Name != "" {
			class += " " + cell.Name
		}
		if cell.HasData {
			class += " has-data"
		}

		fmt.Fprintf(&sb, `<rect class="%s" x="%d" y="%d" width="%d" height="%d" rx="2" ry="2" fill="%s"%s data-date="%s"><title>%s</title></rect>`,
			class, x, cy, opts.CellSize, opts.CellSize, html.EscapeString(color), stroke,
			html.EscapeString(cell.Date), html.EscapeString(Tooltip(cell.Date, cell.Content)))
		sb.WriteString("\n")
	}

	if opts.ShowLegend && len(v.Legend) > 0 {
		x := labelWidth
		fmt.Fprintf(&sb, `<text class="legend" x="%d" y="%d" font-family="%s" font-size="%d" fill="#57606a">Less</text>`,
			x, legendTop+opts.CellSize-2, html.EscapeString(opts.FontFamily), opts.FontSize)
		sb.WriteString("\n")
		x += opts.FontSize * 3
		for _, item := range v.Legend {
			fmt.Fprintf(&sb, `<rect class="legend-item" x="%d" y="%d" width="%d" height="%d" rx="2" ry="2" fill="%s"><title>%s</title></rect>`,
				x, legendTop, opts.CellSize, opts.CellSize, html.EscapeString(item.Color),
				html.EscapeString(fmt.Sprintf("%d: %.2f - %.2f", item.Intensity, item.Min, item.Max)))
			sb.WriteString("\n")
			x += step
		}
		fmt.Fprintf(&sb, `<text class="legend" x="%d" y="%d" font-family="%s" font-size="%d" fill="#57606a">More</text>`,
			x+opts.CellPadding, legendTop+opts.CellSize-2, html.EscapeString(opts.FontFamily), opts.FontSize)
		sb.WriteString("\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// Tooltip is the hover text for a day: the date, then the content if any.
func Tooltip(date string, content any) string {
	if content == nil {
		return date
	}
	s := strings.TrimSpace(fmt.Sprint(content))
	if s == "" {
		return date
	}
	return date + ": " + s
}
