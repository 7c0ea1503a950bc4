package grounding

import (
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/grounding-cli/internal/metrics"
)

// OffsetUnit is the unit span offsets are measured in.
type OffsetUnit string

const (
	// UnitRune counts Unicode code points.
	UnitRune OffsetUnit = "rune"
	// UnitByte counts UTF-8 bytes, as the Gemini API reports them.
	UnitByte OffsetUnit = "byte"
)

// Length returns the length of s in unit u.
func (u OffsetUnit) Length(s string) int {
	if u == UnitByte {
		return len(s)
	}
	return utf8.RuneCountInString(s)
}

// Slice returns s[start:end] measured in unit u. ok is false when the range
// is invalid for s.
func (u OffsetUnit) Slice(s string, start, end int) (string, bool) {
	if u == UnitByte {
		if start < 0 || start >= end || end > len(s) {
			return "", false
		}
		return s[start:end], true
	}
	r := []rune(s)
	if start < 0 || start >= end || end > len(r) {
		return "", false
	}
	return string(r[start:end]), true
}

// Edit replaces [Start, End) of the original text with Replacement.
type Edit struct {
	Start       int
	End         int
	Replacement string
}

// Annotate applies edits to text. Offsets in edits refer to the original
// text; edits must be sorted by Start and must not overlap. A running delta
// shifts each edit past the length changes of the ones before it. Edits
// whose shifted range falls outside the current text are skipped and logged.
func Annotate(text string, edits []Edit, unit OffsetUnit, log *zap.Logger) string {
	if len(edits) == 0 {
		return text
	}
	if log == nil {
		log = zap.L()
	}
	if unit == UnitByte {
		return string(splice([]byte(text), edits, func(s string) []byte { return []byte(s) }, log))
	}
	return string(splice([]rune(text), edits, func(s string) []rune { return []rune(s) }, log))
}

func splice[E any](buf []E, edits []Edit, encode func(string) []E, log *zap.Logger) []E {
	offset := 0
	for i, e := range edits {
		start, end := e.Start+offset, e.End+offset
		if start < 0 || start >= end || end > len(buf) {
			log.Warn("grounding: skipping edit outside text",
				zap.Int("edit", i),
				zap.Int("start", e.Start),
				zap.Int("end", e.End),
				zap.Int("adjusted_start", start),
				zap.Int("adjusted_end", end),
				zap.Int("length", len(buf)),
			)
			metrics.EditsSkipped.WithLabelValues("out_of_range").Inc()
			continue
		}

		rep := encode(e.Replacement)
		out := make([]E, 0, len(buf)-(end-start)+len(rep))
		out = append(out, buf[:start]...)
		out = append(out, rep...)
		out = append(out, buf[end:]...)
		buf = out

		offset += len(rep) - (e.End - e.Start)
	}
	return buf
}
