package shaping

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/bidi"
)

// Visual reorders every line of text from logical to visual order. The
// paragraph direction of a line follows its first strong character and
// falls back to left-to-right.
func Visual(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = visualLine(line)
	}
	return strings.Join(lines, "\n")
}

// BaseDirection reports the direction of the first strong character in s.
func BaseDirection(s string) bidi.Direction {
	for _, r := range s {
		props, _ := bidi.LookupRune(r)
		switch props.Class() {
		case bidi.L:
			return bidi.LeftToRight
		case bidi.R, bidi.AL:
			return bidi.RightToLeft
		}
	}
	return bidi.LeftToRight
}

type run struct {
	text  string
	start int
	level int
}

func visualLine(line string) string {
	if line == "" {
		return line
	}
	base := BaseDirection(line)

	var p bidi.Paragraph
	if _, err := p.SetString(line, bidi.DefaultDirection(base)); err != nil {
		return line
	}
	order, err := p.Order()
	if err != nil {
		return line
	}

	runes := []rune(line)
	baseLevel := 0
	if base == bidi.RightToLeft {
		baseLevel = 1
	}

	runs := make([]run, 0, order.NumRuns())
	for i := 0; i < order.NumRuns(); i++ {
		r := order.Run(i)
		start, _ := r.Pos()
		n := len([]rune(r.String()))
		if start < 0 || start+n > len(runes) {
			return line
		}
		runs = append(runs, run{
			text:  string(runes[start : start+n]),
			start: start,
			level: runLevel(baseLevel, r.Direction()),
		})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].start < runs[j].start })

	return reorder(runs)
}

// runLevel assigns the lowest embedding level of the given direction
// that sits on top of the paragraph level.
func runLevel(base int, dir bidi.Direction) int {
	rtl := dir == bidi.RightToLeft
	switch {
	case rtl && base%2 == 1, !rtl && base%2 == 0:
		return base
	default:
		return base + 1
	}
}

// reorder applies rule L2 to runs that are in logical order: from the
// highest level down to 1, every maximal sequence of runs at that level
// or above is reversed. Odd-level runs have their characters reversed
// too, with mirrored brackets swapped.
func reorder(runs []run) string {
	maxLevel := 0
	for _, r := range runs {
		if r.level > maxLevel {
			maxLevel = r.level
		}
	}
	for level := maxLevel; level >= 1; level-- {
		for i := 0; i < len(runs); {
			if runs[i].level < level {
				i++
				continue
			}
			j := i
			for j < len(runs) && runs[j].level >= level {
				j++
			}
			for a, b := i, j-1; a < b; a, b = a+1, b-1 {
				runs[a], runs[b] = runs[b], runs[a]
			}
			i = j
		}
	}

	var b strings.Builder
	for _, r := range runs {
		if r.level%2 == 1 {
			b.WriteString(bidi.ReverseString(r.text))
			continue
		}
		b.WriteString(r.text)
	}
	return b.String()
}
