package card

import "strings"

const (
	minPANLength = 13
	maxPANLength = 19
)

// segment is an unbroken run of ASCII digits in text[start:end].
type segment struct {
	start, end int
}

func (s segment) size() int { return s.end - s.start }

// RedactPAN replaces every card number found in text with its masked form.
//
// Digits separated by at most one space or dash form a run. Within a run, any
// stretch of whole digit groups holding 13 to 19 digits that passes the Luhn
// check is masked, longest first, so a card number followed by a CVV or
// preceded by a quantity is still caught. A single group longer than 19 digits
// is searched with a sliding window. The second return value reports whether
// anything was replaced.
func RedactPAN(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return text, false
	}

	type span struct {
		start, end int
		digits     string
	}
	var spans []span

	for _, run := range digitRuns(text) {
		for i := 0; i < len(run); {
			if j, digits, ok := alignedPAN(text, run, i); ok {
				spans = append(spans, span{run[i].start, run[j].end, digits})
				i = j + 1
				continue
			}
			if run[i].size() > maxPANLength {
				for _, w := range slidePAN(text[run[i].start:run[i].end]) {
					spans = append(spans, span{run[i].start + w[0], run[i].start + w[1], text[run[i].start+w[0] : run[i].start+w[1]]})
				}
			}
			i++
		}
	}

	if len(spans) == 0 {
		return text, false
	}

	var out strings.Builder
	out.Grow(len(text))
	last := 0
	for _, s := range spans {
		out.WriteString(text[last:s.start])
		out.WriteString(MaskCardNumber(s.digits))
		last = s.end
	}
	out.WriteString(text[last:])
	return out.String(), true
}

// digitRuns groups the digit segments of text. Two segments belong to the same
// run when exactly one space or dash separates them.
func digitRuns(text string) [][]segment {
	var runs [][]segment
	var cur []segment

	for i := 0; i < len(text); {
		if !isDigit(text[i]) {
			i++
			continue
		}
		start := i
		for i < len(text) && isDigit(text[i]) {
			i++
		}
		seg := segment{start, i}

		if len(cur) > 0 {
			prev := cur[len(cur)-1]
			if seg.start-prev.end != 1 || (text[prev.end] != ' ' && text[prev.end] != '-') {
				runs = append(runs, cur)
				cur = nil
			}
		}
		cur = append(cur, seg)
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}

// alignedPAN finds the longest stretch run[i..j] of whole segments that holds a
// Luhn-valid number of card length.
func alignedPAN(text string, run []segment, i int) (int, string, bool) {
	var b strings.Builder
	candidates := make([]string, 0, len(run)-i)
	for j := i; j < len(run); j++ {
		if b.Len()+run[j].size() > maxPANLength {
			break
		}
		b.WriteString(text[run[j].start:run[j].end])
		candidates = append(candidates, b.String())
	}

	for k := len(candidates) - 1; k >= 0; k-- {
		digits := candidates[k]
		if len(digits) >= minPANLength && IsValidLuhn(digits) {
			return i + k, digits, true
		}
	}
	return 0, "", false
}

// slidePAN returns the [start, end) offsets of non-overlapping Luhn-valid
// windows in a digit string, preferring the longest window at each offset.
func slidePAN(digits string) [][2]int {
	var found [][2]int
	for p := 0; p+minPANLength <= len(digits); {
		matched := false
		for l := min(maxPANLength, len(digits)-p); l >= minPANLength; l-- {
			if IsValidLuhn(digits[p : p+l]) {
				found = append(found, [2]int{p, p + l})
				p += l
				matched = true
				break
			}
		}
		if !matched {
			p++
		}
	}
	return found
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
