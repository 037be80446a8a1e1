package sparkline

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// Width and Height are the heartbeat viewBox extents.
const (
	Width    = 300
	Height   = 24
	baseline = 12
)

// DefaultPath is drawn when no history is available.
const DefaultPath = "M0 12 H20 L30 3 L40 21 L50 12 H60 L70 6 L80 18 L90 12 H120 L130 1 L140 23 L150 12 H300"

type point struct{ x, y float64 }

// Path builds a heartbeat SVG path from a series. Values are normalised to
// y in [2, 22] and spread over x in [0, 300]. Each segment gets a spike at
// its midpoint whose direction comes from rnd, so repeated calls differ.
func Path(history []float64, rnd *rand.Rand) string {
	if len(history) == 0 {
		return DefaultPath
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}

	lo, hi := history[0], history[0]
	for _, v := range history[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	pts := make([]point, len(history))
	for i, v := range history {
		x := 0.0
		if len(history) > 1 {
			x = float64(i) / float64(len(history)-1) * Width
		}
		pts[i] = point{x: x, y: 2 + (v-lo)/span*20}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "M0 %s", num(pts[0].y))
	for i, cur := range pts {
		fmt.Fprintf(&b, " L%s %s", num(cur.x), num(cur.y))
		if i == len(pts)-1 {
			break
		}
		nxt := pts[i+1]
		mid := (cur.x + nxt.x) / 2
		amp := math.Abs(nxt.y-cur.y) * 0.8
		dir := 1.0
		if rnd.Float64() <= 0.5 {
			dir = -1
		}
		fmt.Fprintf(&b, " L%s %s", num(mid-5), num(baseline-amp*dir))
		fmt.Fprintf(&b, " L%s %s", num(mid+5), num(baseline+amp*dir))
	}
	fmt.Fprintf(&b, " L%d %s", Width, num(pts[len(pts)-1].y))
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var blocks = []rune("▁▂▃▄▅▆▇█")

// Blocks renders the last width values as a block sparkline.
func Blocks(history []float64, width int) string {
	if width <= 0 || len(history) == 0 {
		return ""
	}
	if len(history) > width {
		history = history[len(history)-width:]
	}
	lo, hi := history[0], history[0]
	for _, v := range history[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo

	out := make([]rune, len(history))
	for i, v := range history {
		idx := 0
		if span > 0 {
			idx = int(math.Round((v - lo) / span * float64(len(blocks)-1)))
		}
		out[i] = blocks[idx]
	}
	return string(out)
}

// Row is one component line in a heartbeat SVG.
type Row struct {
	Name    string
	Color   string
	History []float64
}

var svgColors = map[string]string{
	"green":  "#22c55e",
	"yellow": "#eab308",
	"red":    "#ef4444",
	"orange": "#f97316",
	"blue":   "#3b82f6",
	"gray":   "#6b7280",
}

// WriteSVG writes one heartbeat strip per row.
func WriteSVG(w io.Writer, rows []Row, rnd *rand.Rand) error {
	const rowHeight = Height + 16
	height := rowHeight * len(rows)
	if height == 0 {
		height = rowHeight
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`+"\n", Width, height, Width*2, height*2)
	for i, row := range rows {
		color, ok := svgColors[row.Color]
		if !ok {
			color = svgColors["gray"]
		}
		fmt.Fprintf(&b, `  <g transform="translate(0 %d)">`+"\n", i*rowHeight)
		fmt.Fprintf(&b, `    <text x="0" y="10" font-family="monospace" font-size="9" fill="%s">%s</text>`+"\n", color, escape(row.Name))
		fmt.Fprintf(&b, `    <g transform="translate(0 14)">`+"\n")
		fmt.Fprintf(&b, `      <path d="M0 12 H300" stroke="%s" stroke-opacity="0.1" stroke-width="1"/>`+"\n", color)
		fmt.Fprintf(&b, `      <path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"/>`+"\n", Path(row.History, rnd), color)
		b.WriteString("    </g>\n  </g>\n")
	}
	b.WriteString("</svg>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
