// Package present turns raw telemetry into display values: sanitized text,
// scaled byte sizes, rates and percentage bars. Nothing in this package
// returns an error; unusable input becomes NotAvailable.
package present

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// NotAvailable is shown for missing, empty or unusable values.
const NotAvailable = "N/A"

// DefaultPrecision is the number of decimals used for scaled byte sizes.
const DefaultPrecision = 2

// WarningThreshold is the percentage above which a bar switches to warning.
const WarningThreshold = 90.0

// State classifies a percentage bar.
type State string

const (
	StateNone    State = ""
	StateNormal  State = "normal"
	StateWarning State = "warning"
)

// DisplayValue is a formatted field ready for a dashboard card.
type DisplayValue struct {
	Text  string   `json:"text"`
	Unit  string   `json:"unit,omitempty"`
	Ratio *float64 `json:"ratio,omitempty"` // bar fill, 0-100
	State State    `json:"state,omitempty"`
}

// Available reports whether the value carries data.
func (d DisplayValue) Available() bool {
	return d.Text != NotAvailable
}

func (d DisplayValue) String() string {
	return d.Text
}

// NA returns the placeholder value.
func NA() DisplayValue {
	return DisplayValue{Text: NotAvailable}
}

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB", "PB"}

// FormatBytes renders b with the largest binary unit that keeps the scaled
// value at or above 1, e.g. "8.00 GB". Zero is "0 Bytes".
func FormatBytes(b float64) string {
	return formatBytes(b, DefaultPrecision)
}

func formatBytes(b float64, precision int) string {
	text, _ := scaleBytes(b, precision)
	return text
}

// scaleBytes returns the formatted size and its unit. Negative and
// non-finite sizes are not available.
func scaleBytes(b float64, precision int) (string, string) {
	if math.IsNaN(b) || math.IsInf(b, 0) || b < 0 {
		return NotAvailable, ""
	}
	if b == 0 {
		return "0 Bytes", "Bytes"
	}
	if precision < 0 {
		precision = 0
	}

	i := 0
	if b >= 1 {
		i = int(math.Floor(math.Log(b) / math.Log(1024)))
	}
	// Log can land one step off near exact powers of 1024.
	for i > 0 && b/math.Pow(1024, float64(i)) < 1 {
		i--
	}
	for i < len(byteUnits)-1 && b/math.Pow(1024, float64(i)) >= 1024 {
		i++
	}
	if i >= len(byteUnits) {
		i = len(byteUnits) - 1
	}

	scaled := b / math.Pow(1024, float64(i))
	// 반올림 결과가 1024가 되면 다음 단위로 올림
	if i < len(byteUnits)-1 && roundedText(scaled, precision) >= 1024 {
		i++
		scaled = b / math.Pow(1024, float64(i))
	}
	unit := byteUnits[i]
	if i == 0 && scaled == math.Trunc(scaled) {
		return strconv.FormatFloat(scaled, 'f', 0, 64) + " " + unit, unit
	}
	return strconv.FormatFloat(scaled, 'f', precision, 64) + " " + unit, unit
}

// roundedText returns v as it reads once printed with precision decimals.
func roundedText(v float64, precision int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', precision, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// Percent returns value/max*100 rounded to one decimal, or 0 when max is not
// positive. The result is not clamped.
func Percent(value, max float64) float64 {
	if max <= 0 || math.IsNaN(value) || math.IsNaN(max) {
		return 0
	}
	return math.Round(value/max*1000) / 10
}

// Ratio builds a percentage bar for value out of max. The fill is clamped to
// [0, 100]; State is warning above WarningThreshold. Non-finite input is not
// available.
func Ratio(value, max float64) DisplayValue {
	if math.IsInf(value, 0) || math.IsInf(max, 0) || math.IsNaN(value) || math.IsNaN(max) {
		return NA()
	}
	pct := Percent(value, max)
	fill := math.Max(0, math.Min(100, pct))
	state := StateNormal
	if pct > WarningThreshold {
		state = StateWarning
	}
	return DisplayValue{
		Text:  strconv.FormatFloat(pct, 'f', 1, 64) + "%",
		Unit:  "%",
		Ratio: &fill,
		State: state,
	}
}

// Usage renders a used/total pair of byte counts: the used size as text plus
// the usage bar.
func Usage(used, total uint64) DisplayValue {
	bar := Ratio(float64(used), float64(total))
	text, unit := scaleBytes(float64(used), DefaultPrecision)
	bar.Text = text
	bar.Unit = unit
	return bar
}

// SanitizeText removes control characters (except tab, LF and CR), DEL, C1
// controls and U+FFFD, then trims surrounding whitespace. An empty result is
// NotAvailable.
func SanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if r == utf8.RuneError && size <= 1 {
			// invalid byte
			continue
		}
		if dropRune(r) {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" {
		return NotAvailable
	}
	return cleaned
}

func dropRune(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return false
	case r <= 0x1F:
		return true
	case r >= 0x7F && r <= 0x9F:
		return true
	case r == utf8.RuneError:
		return true
	}
	return false
}

// TextOr sanitizes s and substitutes fallback when nothing is left.
func TextOr(s, fallback string) string {
	if cleaned := SanitizeText(s); cleaned != NotAvailable {
		return cleaned
	}
	return fallback
}

// JoinText joins the non-empty sanitized parts with a space, e.g. vendor and
// version of a BIOS.
func JoinText(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if cleaned := SanitizeText(p); cleaned != NotAvailable {
			kept = append(kept, cleaned)
		}
	}
	if len(kept) == 0 {
		return NotAvailable
	}
	return strings.Join(kept, " ")
}

// formatMinutes renders a minute count as "2h 05m" or "45 min".
func formatMinutes(minutes float64) string {
	total := int64(math.Round(minutes))
	if total < 60 {
		return fmt.Sprintf("%d min", total)
	}
	return fmt.Sprintf("%dh %02dm", total/60, total%60)
}

// formatSeconds renders an uptime such as "3d 4h 12m".
func formatSeconds(seconds float64) string {
	total := int64(seconds)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
