package present

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0 Bytes"},
		{0.5, "0.50 Bytes"},
		{512, "512 Bytes"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{8589934592, "8.00 GB"},
		{17179869184, "16.00 GB"},
		{math.Pow(1024, 5), "1.00 PB"},
		{math.Pow(1024, 6), "1024.00 PB"},
		{1023.999, "1.00 KB"},
		{1048575, "1.00 MB"},
		{1<<30 - 1, "1.00 GB"},
		{-1, NotAvailable},
		{math.NaN(), NotAvailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in), "FormatBytes(%v)", tt.in)
	}
}

func TestFormatBytes_PicksLargestUnit(t *testing.T) {
	for _, b := range []float64{1, 999, 1023, 1023.999, 1025, 1048575, 1<<30 - 1, 123456789, 1 << 40, 5e15} {
		text := FormatBytes(b)
		parts := strings.SplitN(text, " ", 2)
		require.Len(t, parts, 2, text)

		scaled, err := strconv.ParseFloat(parts[0], 64)
		require.NoError(t, err)
		idx := -1
		for i, u := range byteUnits {
			if u == parts[1] {
				idx = i
			}
		}
		require.GreaterOrEqual(t, idx, 0, text)

		assert.GreaterOrEqual(t, scaled, 1.0, text)
		assert.Less(t, scaled, 1024.0, text)
		recovered := scaled * math.Pow(1024, float64(idx))
		assert.InDelta(t, b, recovered, 0.005*math.Pow(1024, float64(idx)), text)
	}
}

func TestRatio(t *testing.T) {
	dv := Ratio(8589934592, 17179869184)
	require.NotNil(t, dv.Ratio)
	assert.Equal(t, 50.0, *dv.Ratio)
	assert.Equal(t, "50.0%", dv.Text)
	assert.Equal(t, StateNormal, dv.State)

	dv = Ratio(5, 0)
	assert.Equal(t, 0.0, *dv.Ratio)
	assert.Equal(t, StateNormal, dv.State)

	dv = Ratio(120, 100)
	assert.Equal(t, 100.0, *dv.Ratio, "fill is clamped")
	assert.Equal(t, StateWarning, dv.State)

	dv = Ratio(90, 100)
	assert.Equal(t, StateNormal, dv.State, "exactly 90 is not a warning")

	for _, dv := range []DisplayValue{
		Ratio(math.Inf(1), 100),
		Ratio(50, math.Inf(1)),
		Ratio(math.NaN(), 100),
	} {
		assert.Equal(t, NotAvailable, dv.Text)
		assert.Nil(t, dv.Ratio)
	}

	for _, v := range []float64{0, 1, 33, 99.99, 100} {
		pct := Percent(v, 100)
		assert.GreaterOrEqual(t, pct, 0.0)
		assert.LessOrEqual(t, pct, 100.0)
	}
}

func TestUsage(t *testing.T) {
	dv := Usage(8589934592, 17179869184)
	assert.Equal(t, "8.00 GB", dv.Text)
	assert.Equal(t, "GB", dv.Unit)
	assert.Equal(t, 50.0, *dv.Ratio)
	assert.Equal(t, StateNormal, dv.State)

	dv = Usage(16000000000, 17179869184)
	assert.InDelta(t, 93.1, *dv.Ratio, 0.05)
	assert.Equal(t, StateWarning, dv.State)
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Intel\u0007 i7", "Intel i7"},
		{"  ASUS\u0000TeK  ", "ASUSTeK"},
		{"line1\nline2\tx", "line1\nline2\tx"},
		{"Bad�name\u0085", "Badname"},
		{"del\u007f", "del"},
		{"", NotAvailable},
		{"   ", NotAvailable},
		{"\u0001\u0002", NotAvailable},
		{"삼성전자", "삼성전자"},
		{"bad\xffbyte", "badbyte"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeText(tt.in), "SanitizeText(%q)", tt.in)
	}
}

func TestJoinText(t *testing.T) {
	assert.Equal(t, "AMI 1.2", JoinText("AMI", "1.2"))
	assert.Equal(t, "AMI", JoinText("AMI", " "))
	assert.Equal(t, NotAvailable, JoinText("", "\u0000"))
	assert.Equal(t, "Unknown", TextOr("", "Unknown"))
}
