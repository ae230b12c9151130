package present

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer()
	var nilFloat *float64
	var nilUint *uint64

	tests := []struct {
		name string
		raw  any
		rule Rule
		want string
	}{
		{"text nil", nil, RuleText, NotAvailable},
		{"text nil pointer", (*string)(nil), RuleText, NotAvailable},
		{"text whitespace", "  ", RuleText, NotAvailable},
		{"text control", "Intel\u0007 i7", RuleText, "Intel i7"},
		{"text number", 42, RuleText, "42"},
		{"bytes", uint64(8589934592), RuleBytes, "8.00 GB"},
		{"bytes pointer", ptr(uint64(1536)), RuleBytes, "1.50 KB"},
		{"bytes zero", 0, RuleBytes, "0 Bytes"},
		{"bytes nil", nilUint, RuleBytes, NotAvailable},
		{"bytes json number", json.Number("2048"), RuleBytes, "2.00 KB"},
		{"rate", 1572864.0, RuleRate, "1.50 MB/s"},
		{"rate zero", 0.0, RuleRate, NotAvailable},
		{"temperature", 48.26, RuleTemperature, "48.3°C"},
		{"temperature zero", 0.0, RuleTemperature, NotAvailable},
		{"temperature nil", nilFloat, RuleTemperature, NotAvailable},
		{"temperature NaN", math.NaN(), RuleTemperature, NotAvailable},
		{"temperature negative", -5.0, RuleTemperature, NotAvailable},
		{"usage", 37.0, RuleUsage, "37.0%"},
		{"percent", 83.33, RulePercent, "83.3%"},
		{"frequency", 3.6, RuleFrequency, "3.6 GHz"},
		{"count", 12345, RuleCount, "12,345"},
		{"count zero", 0, RuleCount, NotAvailable},
		{"count beyond int64", 1e19, RuleCount, "10,000,000,000,000,000,000"},
		{"link speed", 1000.0, RuleLinkSpeed, "1000 Mbps"},
		{"duration short", 45.0, RuleDuration, "45 min"},
		{"duration long", 150.0, RuleDuration, "2h 30m"},
		{"energy", 50000.4, RuleEnergy, "50000 mWh"},
		{"voltage", 11.4, RuleVoltage, "11.4 V"},
		{"unsupported", struct{}{}, RuleBytes, NotAvailable},
		{"unsupported map", map[string]int{}, RuleText, NotAvailable},
		{"numeric string", "12.5", RuleTemperature, "12.5°C"},
		{"bad string", "hot", RuleTemperature, NotAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.raw, tt.rule).Text)
		})
	}
}

func TestNormalize_ZeroAsValue(t *testing.T) {
	n := Normalizer{Precision: DefaultPrecision, ZeroPolicy: ZeroAsValue}

	assert.Equal(t, "0.0°C", n.Normalize(0.0, RuleTemperature).Text)
	assert.Equal(t, "0", n.Normalize(0, RuleCount).Text)
	assert.Equal(t, "0 Bytes/s", n.Normalize(0, RuleRate).Text)
	assert.Equal(t, NotAvailable, n.Normalize(-1, RuleCount).Text, "negative stays absent")
}

func TestNormalize_Precision(t *testing.T) {
	assert.Equal(t, "8 GB", Normalizer{Precision: 0}.Normalize(8589934592, RuleBytes).Text)
	assert.Equal(t, "1.500 KB", Normalizer{Precision: 3}.Normalize(1536, RuleBytes).Text)
}

func TestNormalize_UsageBar(t *testing.T) {
	dv := NewNormalizer().Normalize(95.0, RuleUsage)
	assert.Equal(t, StateWarning, dv.State)
	assert.Equal(t, 95.0, *dv.Ratio)
}

func TestBar(t *testing.T) {
	n := NewNormalizer()
	assert.Equal(t, "0.0%", n.Bar(0.0, 100).Text, "a bar shows a real zero")
	assert.Equal(t, NotAvailable, n.Bar(nil, 100).Text)
	assert.Nil(t, n.Bar(nil, 100).Ratio)
}

func TestParseZeroPolicy(t *testing.T) {
	p, err := ParseZeroPolicy("value")
	assert.NoError(t, err)
	assert.Equal(t, ZeroAsValue, p)

	p, err = ParseZeroPolicy("")
	assert.NoError(t, err)
	assert.Equal(t, ZeroAsAbsent, p)

	_, err = ParseZeroPolicy("maybe")
	assert.Error(t, err)
}

func ptr[T any](v T) *T { return &v }
