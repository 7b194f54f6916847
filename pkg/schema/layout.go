package schema

import (
	"math"
	"strconv"
	"strings"
)

const (
	// GridColumns is the number of columns in the canvas grid.
	GridColumns = 12

	MinSpan  = 1
	MaxSpan  = 12
	MinWidth = 10
	MaxWidth = 100
)

var widthKeywords = map[string]int{
	"full":           100,
	"three-quarters": 75,
	"two-thirds":     67,
	"half":           50,
	"third":          33,
	"one-third":      33,
	"quarter":        25,
}

// ParseWidth converts a legacy width ("50%", "half", 50, "50") into a
// percentage clamped to [10,100]. Unreadable input resolves to full width.
func ParseWidth(width any) int {
	switch v := width.(type) {
	case nil:
		return MaxWidth
	case Width:
		return ParseWidth(string(v))
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(v))
		if trimmed == "" {
			return MaxWidth
		}
		if pct, ok := widthKeywords[trimmed]; ok {
			return pct
		}
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "%"))
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return MaxWidth
		}
		return clampInt(int(math.Round(parsed)), MinWidth, MaxWidth)
	default:
		if f, ok := toFloat(width); ok {
			return clampInt(int(math.Round(f)), MinWidth, MaxWidth)
		}
		return MaxWidth
	}
}

// WidthToSpan maps a legacy width onto a column span in [1,12]. A
// totalColumns of zero or less means the default 12-column grid.
func WidthToSpan(width any, totalColumns int) int {
	if totalColumns <= 0 {
		totalColumns = GridColumns
	}
	pct := ParseWidth(width)
	span := int(math.Round(float64(pct) / 100 * float64(totalColumns)))
	return clampInt(span, MinSpan, MaxSpan)
}

// SpanToWidth maps a column span back onto a percentage in [10,100].
func SpanToWidth(span, totalColumns int) int {
	if totalColumns <= 0 {
		totalColumns = GridColumns
	}
	pct := int(math.Round(float64(span) / float64(totalColumns) * 100))
	return clampInt(pct, MinWidth, MaxWidth)
}

// FormatWidth renders a percentage as the legacy "NN%" string.
func FormatWidth(pct int) Width {
	return Width(strconv.Itoa(clampInt(pct, MinWidth, MaxWidth)) + "%")
}

// ClampSpan keeps a span inside the grid.
func ClampSpan(span int) int {
	return clampInt(span, MinSpan, MaxSpan)
}

// SyncFromSpan clamps Span and rewrites Width to match it.
func (l *FieldLayout) SyncFromSpan() {
	if l.Span == 0 {
		l.Span = MaxSpan
	}
	l.Span = ClampSpan(l.Span)
	l.Width = FormatWidth(SpanToWidth(l.Span, GridColumns))
}

// SyncFromWidth derives Span from Width, then normalises Width.
func (l *FieldLayout) SyncFromWidth() {
	l.Span = WidthToSpan(l.Width, GridColumns)
	l.Width = FormatWidth(SpanToWidth(l.Span, GridColumns))
}

// Normalize picks whichever representation is present. Span wins when both
// are set.
func (l *FieldLayout) Normalize() {
	if l.Span == 0 && l.Width != "" {
		l.SyncFromWidth()
		return
	}
	l.SyncFromSpan()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
