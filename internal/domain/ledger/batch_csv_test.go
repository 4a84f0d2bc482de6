package ledger

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthlyToRate(t *testing.T) {
	rate, err := MonthlyToRate(decimal.RequireFromString("2592"), 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), rate)

	// 5000.50 * 10^6 / 2592000 = 1929.20...
	rate, err = MonthlyToRate(decimal.RequireFromString("5000.50"), 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1929), rate)

	_, err = MonthlyToRate(decimal.RequireFromString("0.000001"), 6)
	require.ErrorIs(t, err, ErrZeroRate)

	_, err = MonthlyToRate(decimal.RequireFromString("-5"), 6)
	require.ErrorIs(t, err, ErrInvalidSalary)

	_, err = MonthlyToRate(decimal.RequireFromString("1e40"), 18)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestParseBatchCSV(t *testing.T) {
	in := strings.Join([]string{
		"address,monthlySalary",
		"0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb, 2592",
		"",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb\t5184",
	}, "\n")

	entries, err := ParseBatchCSV(strings.NewReader(in), 6)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, alice, entries[0].Employee)
	assert.Equal(t, uint64(1000), entries[0].RatePerSecond)
	assert.Equal(t, bob, entries[1].Employee)
	assert.Equal(t, uint64(2000), entries[1].RatePerSecond)
}

func TestParseBatchCSVRejectsWholeFile(t *testing.T) {
	cases := map[string]struct {
		input string
		want  error
	}{
		"empty":          {"\n\n", ErrInvalidBatch},
		"missing salary": {"0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb", ErrInvalidBatch},
		"bad address":    {"0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb,10\n0x123,10", ErrInvalidAddress},
		"bad checksum":   {"0xDBf03b407c01e7cd3cbea99509d93f8dddc8c6fb,10", ErrInvalidAddress},
		"zero address":   {"0x0000000000000000000000000000000000000000,10", ErrZeroAddress},
		"bad salary":     {"0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb,ten", ErrInvalidSalary},
		"salary too low": {"0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb,0.000001", ErrZeroRate},
		"empty field":    {"0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb,,5000", ErrInvalidBatch},
		"extra column":   {"0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb,5000,junk", ErrInvalidBatch},
		"trailing comma": {"0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb,5000,", ErrInvalidBatch},
		"mixed columns":  {"0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb\t5000,1", ErrInvalidBatch},
		"no address":     {",5000", ErrInvalidBatch},
		"late bad line":  {"0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb,10\n0xd1220a0cf47c7b9be7a2e6ba89f429762e7b9adb,10,x", ErrInvalidBatch},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			entries, err := ParseBatchCSV(strings.NewReader(tc.input), 6)
			require.ErrorIs(t, err, tc.want)
			assert.Nil(t, entries)
		})
	}
}
