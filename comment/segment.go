package comment

import (
	"fmt"
	"iter"
	"slices"
	"strconv"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// MaxLen is the platform's hard per-comment character limit. Position markers count toward it.
const MaxLen = 180

// Closed-form bands for EstimateChunkCount. A band covers every chunk total N with the same number of
// decimal digits; the prefix is what the earlier chunks hold once the total has the wider width.
const (
	band1Budget   = 176 // MaxLen - len(" i/N"), 1-digit i and N
	band1Capacity = 1584

	band2Budget   = 174
	band2Prefix   = 1575 // 9 * 175
	band2Capacity = 17235

	band3Budget   = 172
	band3Prefix   = 17136 // 9*174 + 90*173
	band3Capacity = 171936

	// markerOverhead is the literal space and slash in " i/N".
	markerOverhead = 2

	// fallbackReservation is the first digit width tried once N no longer fits in three digits.
	fallbackReservation = 4
)

// Unit selects what counts as one character toward MaxLen.
type Unit int

const (
	// UnitRune counts Unicode code points.
	UnitRune Unit = iota
	// UnitGrapheme counts user-perceived characters (extended grapheme clusters).
	UnitGrapheme
)

func (u Unit) String() string {
	switch u {
	case UnitRune:
		return "rune"
	case UnitGrapheme:
		return "grapheme"
	default:
		return fmt.Sprintf("Unit(%d)", int(u))
	}
}

// ParseUnit maps "rune" or "grapheme" to a Unit.
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "", "rune", "runes":
		return UnitRune, nil
	case "grapheme", "graphemes":
		return UnitGrapheme, nil
	}
	return 0, fmt.Errorf("ParseUnit: unknown unit %q (want rune or grapheme)", s)
}

// InconsistencyError is the panic value raised when segmentation produced a different number of chunks
// than EstimateChunkCount promised. It signals a defect, never a bad input.
type InconsistencyError struct {
	Length    int
	Estimated int
	Produced  int
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("comment: segmenting %d characters produced %d chunks, estimated %d", e.Length, e.Produced, e.Estimated)
}

// EstimateChunkCount returns the smallest number of chunks N such that length characters fit when every
// chunk carries a " i/N" marker and no chunk exceeds MaxLen. Lengths up to MaxLen need a single, unmarked chunk.
func EstimateChunkCount(length int) int {
	switch {
	case length <= MaxLen:
		return 1
	case length <= band1Capacity:
		return ceilDiv(length, band1Budget)
	case length <= band2Capacity:
		return 9 + ceilDiv(length-band2Prefix, band2Budget)
	case length <= band3Capacity:
		return 99 + ceilDiv(length-band3Prefix, band3Budget)
	}

	for reserved := fallbackReservation; ; reserved++ {
		if n, ok := packWithReservation(length, reserved); ok {
			return n
		}
	}
}

// packWithReservation fills chunks one at a time assuming the total has exactly reserved digits.
// It reports false as soon as an index would need more digits than were reserved.
func packWithReservation(length, reserved int) (int, bool) {
	remaining := length
	i := 0
	for remaining > chunkBudget(i+1, reserved) {
		remaining -= chunkBudget(i+1, reserved)
		i++
		if digits(i+1) > reserved {
			return 0, false
		}
	}
	return i + 1, true
}

// chunkBudget is the number of content characters chunk index can carry when the total has totalDigits digits.
func chunkBudget(index, totalDigits int) int {
	return MaxLen - markerOverhead - digits(index) - totalDigits
}

// Marker formats the position suffix appended to chunk index of total.
func Marker(index, total int) string {
	return " " + strconv.Itoa(index) + "/" + strconv.Itoa(total)
}

// Segment splits text into comments of at most MaxLen code points. See Segmenter.Split.
func Segment(text string) []string {
	return Segmenter{}.Split(text)
}

// Segmenter splits text into bounded, position-marked chunks. The zero value counts code points.
// It holds no state and is safe for concurrent use.
type Segmenter struct {
	Unit Unit
}

// Len returns the length of text in the segmenter's unit.
func (s Segmenter) Len(text string) int {
	if s.Unit == UnitGrapheme {
		return uniseg.GraphemeClusterCount(text)
	}
	return utf8.RuneCountInString(text)
}

// Split returns text unchanged as a single element when it fits in MaxLen. Longer text is cut into
// EstimateChunkCount pieces in order, each suffixed with " i/N".
func (s Segmenter) Split(text string) []string {
	return slices.Collect(s.Chunks(text))
}

// Chunks yields the same sequence as Split one chunk at a time.
func (s Segmenter) Chunks(text string) iter.Seq[string] {
	return s.chunks(text, EstimateChunkCount)
}

func (s Segmenter) chunks(text string, estimate func(int) int) iter.Seq[string] {
	return func(yield func(string) bool) {
		bounds := s.boundaries(text)
		length := len(bounds) - 1
		if length <= MaxLen {
			yield(text)
			return
		}

		total := estimate(length)
		totalDigits := digits(total)
		index := 0
		for start := 0; start < length; {
			index++
			if index > total {
				panic(&InconsistencyError{Length: length, Estimated: total, Produced: index})
			}
			end := min(start+chunkBudget(index, totalDigits), length)
			if !yield(text[bounds[start]:bounds[end]] + Marker(index, total)) {
				return
			}
			start = end
		}
		if index != total {
			panic(&InconsistencyError{Length: length, Estimated: total, Produced: index})
		}
	}
}

// boundaries returns the byte offset of every unit in text followed by len(text).
func (s Segmenter) boundaries(text string) []int {
	bounds := make([]int, 0, len(text)+1)
	if s.Unit == UnitGrapheme {
		gr := uniseg.NewGraphemes(text)
		for gr.Next() {
			from, _ := gr.Positions()
			bounds = append(bounds, from)
		}
	} else {
		for i := range text {
			bounds = append(bounds, i)
		}
	}
	return append(bounds, len(text))
}

func digits(n int) int {
	d := 1
	for n >= 10 {
		n /= 10
		d++
	}
	return d
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
