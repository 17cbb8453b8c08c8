// Package shaping turns logical-order text into the glyph sequence a
// left-to-right rasterizer can draw: Arabic-script letters get their
// contextual presentation forms and bidirectional runs are put in visual
// order.
package shaping

import "strings"

// LineBreak is the escape users type to force a new line.
const LineBreak = "&"

// forms holds the presentation forms of one letter. A zero initial form
// means the letter only joins to the preceding one.
type forms struct {
	isolated, final, initial, medial rune
}

func (f forms) joinsNext() bool { return f.initial != 0 }
func (f forms) joinsPrev() bool { return f.final != 0 }

var letters = map[rune]forms{
	'ء': {0xFE80, 0, 0, 0},
	'آ': {0xFE81, 0xFE82, 0, 0},
	'أ': {0xFE83, 0xFE84, 0, 0},
	'ؤ': {0xFE85, 0xFE86, 0, 0},
	'إ': {0xFE87, 0xFE88, 0, 0},
	'ئ': {0xFE89, 0xFE8A, 0xFE8B, 0xFE8C},
	'ا': {0xFE8D, 0xFE8E, 0, 0},
	'ب': {0xFE8F, 0xFE90, 0xFE91, 0xFE92},
	'ة': {0xFE93, 0xFE94, 0, 0},
	'ت': {0xFE95, 0xFE96, 0xFE97, 0xFE98},
	'ث': {0xFE99, 0xFE9A, 0xFE9B, 0xFE9C},
	'ج': {0xFE9D, 0xFE9E, 0xFE9F, 0xFEA0},
	'ح': {0xFEA1, 0xFEA2, 0xFEA3, 0xFEA4},
	'خ': {0xFEA5, 0xFEA6, 0xFEA7, 0xFEA8},
	'د': {0xFEA9, 0xFEAA, 0, 0},
	'ذ': {0xFEAB, 0xFEAC, 0, 0},
	'ر': {0xFEAD, 0xFEAE, 0, 0},
	'ز': {0xFEAF, 0xFEB0, 0, 0},
	'س': {0xFEB1, 0xFEB2, 0xFEB3, 0xFEB4},
	'ش': {0xFEB5, 0xFEB6, 0xFEB7, 0xFEB8},
	'ص': {0xFEB9, 0xFEBA, 0xFEBB, 0xFEBC},
	'ض': {0xFEBD, 0xFEBE, 0xFEBF, 0xFEC0},
	'ط': {0xFEC1, 0xFEC2, 0xFEC3, 0xFEC4},
	'ظ': {0xFEC5, 0xFEC6, 0xFEC7, 0xFEC8},
	'ع': {0xFEC9, 0xFECA, 0xFECB, 0xFECC},
	'غ': {0xFECD, 0xFECE, 0xFECF, 0xFED0},
	'ـ': {0x0640, 0x0640, 0x0640, 0x0640},
	'ف': {0xFED1, 0xFED2, 0xFED3, 0xFED4},
	'ق': {0xFED5, 0xFED6, 0xFED7, 0xFED8},
	'ك': {0xFED9, 0xFEDA, 0xFEDB, 0xFEDC},
	'ل': {0xFEDD, 0xFEDE, 0xFEDF, 0xFEE0},
	'م': {0xFEE1, 0xFEE2, 0xFEE3, 0xFEE4},
	'ن': {0xFEE5, 0xFEE6, 0xFEE7, 0xFEE8},
	'ه': {0xFEE9, 0xFEEA, 0xFEEB, 0xFEEC},
	'و': {0xFEED, 0xFEEE, 0, 0},
	'ى': {0xFEEF, 0xFEF0, 0, 0},
	'ي': {0xFEF1, 0xFEF2, 0xFEF3, 0xFEF4},
	'ٱ': {0xFB50, 0xFB51, 0, 0},
	'پ': {0xFB56, 0xFB57, 0xFB58, 0xFB59},
	'چ': {0xFB7A, 0xFB7B, 0xFB7C, 0xFB7D},
	'ژ': {0xFB8A, 0xFB8B, 0, 0},
	'ک': {0xFB8E, 0xFB8F, 0xFB90, 0xFB91},
	'گ': {0xFB92, 0xFB93, 0xFB94, 0xFB95},
	'ۀ': {0xFBA4, 0xFBA5, 0, 0},
	'ی': {0xFBFC, 0xFBFD, 0xFBFE, 0xFBFF},
}

const lam = 'ل'

// lam followed by one of these alefs collapses into a single ligature
var lamAlef = map[rune]forms{
	'آ': {0xFEF5, 0xFEF6, 0, 0},
	'أ': {0xFEF7, 0xFEF8, 0, 0},
	'إ': {0xFEF9, 0xFEFA, 0, 0},
	'ا': {0xFEFB, 0xFEFC, 0, 0},
}

// harakat and other combining marks do not break a join
func transparent(r rune) bool {
	return (r >= 0x064B && r <= 0x065F) || r == 0x0670 ||
		(r >= 0x06D6 && r <= 0x06DC) || (r >= 0x06DF && r <= 0x06E4) ||
		r == 0x06E7 || r == 0x06E8 || (r >= 0x06EA && r <= 0x06ED)
}

type unit struct {
	r      rune
	letter *forms
}

// Reshape replaces Arabic-script letters with their contextual
// presentation forms. Text outside the Arabic block is left alone, line
// breaks included.
func Reshape(text string) string {
	var units []unit
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == lam && i+1 < len(runes) {
			if lig, ok := lamAlef[runes[i+1]]; ok {
				units = append(units, unit{r: r, letter: &lig})
				i++
				continue
			}
		}
		if f, ok := letters[r]; ok {
			units = append(units, unit{r: r, letter: &f})
			continue
		}
		units = append(units, unit{r: r})
	}

	var b strings.Builder
	b.Grow(len(text))
	for i, u := range units {
		if u.letter == nil {
			b.WriteRune(u.r)
			continue
		}
		prev := neighbour(units, i, -1)
		next := neighbour(units, i, 1)
		joinPrev := u.letter.joinsPrev() && prev != nil && prev.joinsNext()
		joinNext := u.letter.joinsNext() && next != nil && next.joinsPrev()

		switch {
		case joinPrev && joinNext:
			b.WriteRune(u.letter.medial)
		case joinPrev:
			b.WriteRune(u.letter.final)
		case joinNext:
			b.WriteRune(u.letter.initial)
		default:
			b.WriteRune(u.letter.isolated)
		}
	}
	return b.String()
}

// neighbour finds the closest letter in direction step, skipping marks.
// Anything else that is not a letter ends the search.
func neighbour(units []unit, i, step int) *forms {
	for j := i + step; j >= 0 && j < len(units); j += step {
		if units[j].letter != nil {
			return units[j].letter
		}
		if !transparent(units[j].r) {
			return nil
		}
	}
	return nil
}

// Lines prepares raw user text for drawing: the line-break escape becomes
// a newline, letters are reshaped, each line is put in visual order and
// the result is split into lines. Reshaping has to run first because
// reordering works on the shaped glyphs.
func Lines(raw string) []string {
	text := strings.ReplaceAll(raw, LineBreak, "\n")
	text = Reshape(text)
	text = Visual(text)
	return strings.Split(text, "\n")
}
