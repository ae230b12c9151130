package present

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Rule selects how a raw value is formatted.
type Rule int

const (
	RuleText        Rule = iota // sanitized string
	RuleBytes                   // byte size, "8.00 GB"
	RuleRate                    // bytes per second, "1.50 MB/s"
	RuleTemperature             // °C
	RuleUsage                   // 0-100 utilization with a bar
	RulePercent                 // plain percentage, no bar
	RuleFrequency               // GHz
	RuleCount                   // integer count with thousands separators
	RuleLinkSpeed               // Mbit/s
	RuleDuration                // minutes
	RuleEnergy                  // mWh
	RuleVoltage                 // volts
)

var ruleNames = map[Rule]string{
	RuleText:        "text",
	RuleBytes:       "bytes",
	RuleRate:        "rate",
	RuleTemperature: "temperature",
	RuleUsage:       "usage",
	RulePercent:     "percent",
	RuleFrequency:   "frequency",
	RuleCount:       "count",
	RuleLinkSpeed:   "linkSpeed",
	RuleDuration:    "duration",
	RuleEnergy:      "energy",
	RuleVoltage:     "voltage",
}

func (r Rule) String() string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	return "rule(" + strconv.Itoa(int(r)) + ")"
}

// ZeroPolicy decides how a measured reading of exactly zero is shown.
type ZeroPolicy int

const (
	// ZeroAsAbsent treats 0 as "not reported", e.g. a sensor that reads 0°C.
	ZeroAsAbsent ZeroPolicy = iota
	// ZeroAsValue shows 0 as a real reading.
	ZeroAsValue
)

// ParseZeroPolicy accepts "absent" or "value".
func ParseZeroPolicy(s string) (ZeroPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "absent":
		return ZeroAsAbsent, nil
	case "value":
		return ZeroAsValue, nil
	}
	return ZeroAsAbsent, fmt.Errorf("unknown zero policy %q", s)
}

func (p ZeroPolicy) String() string {
	if p == ZeroAsValue {
		return "value"
	}
	return "absent"
}

// Normalizer formats raw values according to a Rule. The zero value uses no
// decimals for byte sizes; use NewNormalizer for the defaults.
type Normalizer struct {
	Precision  int
	ZeroPolicy ZeroPolicy
}

// NewNormalizer returns a Normalizer with DefaultPrecision and ZeroAsAbsent.
func NewNormalizer() Normalizer {
	return Normalizer{Precision: DefaultPrecision, ZeroPolicy: ZeroAsAbsent}
}

// Normalize formats raw under rule. Missing, empty and unsupported input
// yields NotAvailable; Normalize never panics.
func (n Normalizer) Normalize(raw any, rule Rule) (dv DisplayValue) {
	defer func() {
		if recover() != nil {
			dv = NA()
		}
	}()

	if rule == RuleText {
		return n.text(raw)
	}

	v, ok := toFloat(raw)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return NA()
	}

	switch rule {
	case RuleBytes:
		text, unit := scaleBytes(v, n.Precision)
		return DisplayValue{Text: text, Unit: unit}
	}

	if v == 0 && n.ZeroPolicy == ZeroAsAbsent {
		return NA()
	}

	switch rule {
	case RuleRate:
		text, unit := scaleBytes(v, n.Precision)
		return DisplayValue{Text: text + "/s", Unit: unit + "/s"}
	case RuleTemperature:
		return DisplayValue{Text: strconv.FormatFloat(v, 'f', 1, 64) + "°C", Unit: "°C"}
	case RuleUsage:
		return Ratio(v, 100)
	case RulePercent:
		return DisplayValue{Text: strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64) + "%", Unit: "%"}
	case RuleFrequency:
		return DisplayValue{Text: strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + " GHz", Unit: "GHz"}
	case RuleCount:
		if v >= math.MaxInt64 {
			return DisplayValue{Text: humanize.Commaf(math.Round(v))}
		}
		return DisplayValue{Text: humanize.Comma(int64(math.Round(v)))}
	case RuleLinkSpeed:
		return DisplayValue{Text: strconv.FormatFloat(v, 'f', -1, 64) + " Mbps", Unit: "Mbps"}
	case RuleDuration:
		return DisplayValue{Text: formatMinutes(v), Unit: "min"}
	case RuleEnergy:
		return DisplayValue{Text: strconv.FormatFloat(math.Round(v), 'f', 0, 64) + " mWh", Unit: "mWh"}
	case RuleVoltage:
		return DisplayValue{Text: strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + " V", Unit: "V"}
	}
	return NA()
}

// Bar renders value out of max as a percentage bar. Unlike RuleUsage a zero
// reading is a real 0.0%.
func (n Normalizer) Bar(value any, max float64) DisplayValue {
	v, ok := toFloat(value)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return NA()
	}
	return Ratio(v, max)
}

// Text is shorthand for Normalize(raw, RuleText).
func (n Normalizer) Text(raw any) DisplayValue {
	return n.text(raw)
}

func (n Normalizer) text(raw any) DisplayValue {
	raw = deref(raw)
	switch v := raw.(type) {
	case nil:
		return NA()
	case string:
		return DisplayValue{Text: SanitizeText(v)}
	case []byte:
		return DisplayValue{Text: SanitizeText(string(v))}
	case time.Time:
		if v.IsZero() {
			return NA()
		}
		return DisplayValue{Text: v.Format(time.RFC3339)}
	case fmt.Stringer:
		return DisplayValue{Text: SanitizeText(v.String())}
	case bool:
		return DisplayValue{Text: strconv.FormatBool(v)}
	}
	if rv := reflect.ValueOf(raw); rv.Kind() == reflect.String {
		return DisplayValue{Text: SanitizeText(rv.String())}
	}
	if f, ok := toFloat(raw); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return DisplayValue{Text: strconv.FormatFloat(f, 'f', -1, 64)}
	}
	return NA()
}

// deref follows pointers; a nil pointer becomes nil.
func deref(raw any) any {
	for raw != nil {
		rv := reflect.ValueOf(raw)
		if rv.Kind() != reflect.Pointer {
			return raw
		}
		if rv.IsNil() {
			return nil
		}
		raw = rv.Elem().Interface()
	}
	return raw
}

func toFloat(raw any) (float64, bool) {
	raw = deref(raw)
	switch v := raw.(type) {
	case nil:
		return 0, false
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
