package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "1.5", want: "1.50"},
		{raw: " 10 ", want: "10.00"},
		{raw: "0", want: "0.00"},
		{raw: "2.499", want: "2.50"},
		{raw: "", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "-0.01", wantErr: true},
		{raw: "1,50", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			p, err := ParsePrice(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Format())
		})
	}
}

func TestPrice_JSONIsBareNumber(t *testing.T) {
	p, err := ParsePrice("3.50")
	require.NoError(t, err)

	data, err := json.Marshal(struct {
		Price Price `json:"price"`
	}{p})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price": 3.5}`, string(data))

	var back struct {
		Price Price `json:"price"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price": 12.75}`), &back))
	assert.Equal(t, "12.75", back.Price.Format())
}

func TestPrice_KeepsScaleThroughJSON(t *testing.T) {
	for _, raw := range []string{"1.50", "1.5", "3", "4.125"} {
		p, err := ParsePrice(raw)
		require.NoError(t, err)

		data, err := json.Marshal(p)
		require.NoError(t, err)

		var back Price
		require.NoError(t, json.Unmarshal(data, &back))
		assert.True(t, p.Equal(back.Decimal), raw)
		assert.Equal(t, p.Exponent(), back.Exponent(), raw)
		assert.Equal(t, string(data), mustJSON(t, back))
	}

	p, err := ParsePrice("1.5")
	require.NoError(t, err)
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, "1.50", string(data))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
