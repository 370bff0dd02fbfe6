package amount

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centralbank/usdw/backend/internal/ledgererr"
)

func TestParsePositive(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		kind  ledgererr.Kind
	}{
		{name: "small", input: "500", want: "500"},
		{name: "beyond int64", input: "123456789012345678901234567890", want: "123456789012345678901234567890"},
		{name: "surrounding space", input: " 7 ", want: "7"},
		{name: "zero", input: "0", kind: ledgererr.KindInvalidAmount},
		{name: "negative", input: "-5", kind: ledgererr.KindInvalidAmount},
		{name: "fraction", input: "1.5", kind: ledgererr.KindInvalidAmount},
		{name: "garbage", input: "ten", kind: ledgererr.KindInvalidAmount},
		{name: "empty", input: "", kind: ledgererr.KindInvalidAmount},
		{name: "exponent", input: "1e3", kind: ledgererr.KindInvalidAmount},
		{name: "upper exponent", input: "5E2", kind: ledgererr.KindInvalidAmount},
		{name: "huge exponent", input: "1e5000000", kind: ledgererr.KindInvalidAmount},
		{name: "plus sign", input: "+5", kind: ledgererr.KindInvalidAmount},
		{name: "trailing fraction zero", input: "1.0", kind: ledgererr.KindInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePositive(tt.input)
			if tt.kind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.kind, ledgererr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, Format(got))
		})
	}
}

func TestParseNonNegativeAcceptsZero(t *testing.T) {
	got, err := ParseNonNegative("0")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = ParseNonNegative("-1")
	assert.ErrorIs(t, err, ledgererr.ErrInvalidAmount)
}

func TestParseStored(t *testing.T) {
	got, err := ParseStored("")
	require.NoError(t, err)
	assert.Equal(t, "0", Format(got))

	_, err = ParseStored("-3")
	assert.ErrorIs(t, err, ledgererr.ErrMalformedRecord)

	_, err = ParseStored("{}")
	assert.ErrorIs(t, err, ledgererr.ErrMalformedRecord)

	for _, stored := range []string{"1e3", "1e2000000000", "+5", "1.0"} {
		_, err = ParseStored(stored)
		assert.ErrorIs(t, err, ledgererr.ErrMalformedRecord, stored)
	}
}

func TestRejectedAmountMessageIsBounded(t *testing.T) {
	long := "1" + strings.Repeat("0", 10000) + "x"
	_, err := Parse(long)
	require.Error(t, err)
	assert.Less(t, len(err.Error()), 200)
}
