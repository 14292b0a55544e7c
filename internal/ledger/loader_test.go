package ledger

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timekeepco/timekeep/internal/domain"
)

const tarCSV = `SPA,Service Code,Charge,Stop Date,New Charge
8155, VP00181557000 , $ 12.50 ,123124,
8155,VP06881557001,"$1,200.00",010125, $ 15.00
`

const ecbCSV = "\ufeffSPA,Service Code,Charge,Stop Date,New Charge,Record Desc,System,Prin,Agent\n" +
	"8155,VP00181557000,12.5,123124,0,Basic cable,VP001,8155,0001\n"

func TestParseCurrency(t *testing.T) {
	cases := map[string]string{
		" $ 12.50 ":  "12.5",
		"$12.00":     "12",
		"$1,200.00":  "1200",
		"7":          "7",
		" -3.25 ":    "-3.25",
		"0000004.10": "4.1",
	}
	for raw, want := range cases {
		got, err := ParseCurrency(raw)
		require.NoError(t, err, raw)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "%q parsed to %s", raw, got)
	}

	for _, raw := range []string{"", "   ", "abc", "$", "12.50$"} {
		_, err := ParseCurrency(raw)
		assert.ErrorIs(t, err, ErrInvalidAmount, raw)
	}
}

func TestCleanDate(t *testing.T) {
	assert.Equal(t, "123124", CleanDate(" 123124 "))
	assert.Equal(t, "12/31/24", CleanDate("12/31/24"))
}

func TestLoadTAR(t *testing.T) {
	var warnings []Warning
	l, err := LoadTAR(strings.NewReader(tarCSV), "tar.csv", WithWarningHandler(func(w Warning) {
		warnings = append(warnings, w)
	}))
	require.NoError(t, err)
	require.Equal(t, 2, l.Len())
	assert.Empty(t, warnings)

	rec, ok := l.Get(domain.RecordKey{SPA: "8155", ServiceCode: "VP00181557000"})
	require.True(t, ok)
	assert.True(t, rec.Charge.Equal(decimal.RequireFromString("12.50")))
	assert.True(t, rec.NewCharge.IsZero())
	assert.Equal(t, "123124", rec.StopDate)
	assert.Equal(t, 2, rec.Line)

	rec, ok = l.Get(domain.RecordKey{SPA: "8155", ServiceCode: "VP06881557001"})
	require.True(t, ok)
	assert.True(t, rec.Charge.Equal(decimal.NewFromInt(1200)))
	assert.True(t, rec.NewCharge.Equal(decimal.NewFromInt(15)))
}

func TestLoadECBReadsDescriptiveColumns(t *testing.T) {
	l, err := LoadECB(strings.NewReader(ecbCSV), "ecb.csv")
	require.NoError(t, err)

	rec, ok := l.Get(domain.RecordKey{SPA: "8155", ServiceCode: "VP00181557000"})
	require.True(t, ok)
	assert.Equal(t, "Basic cable", rec.RecordDesc)
	assert.Equal(t, "VP001", rec.System)
	assert.Equal(t, "0001", rec.Agent)
}

func TestLoadECBToleratesBareQuotes(t *testing.T) {
	raw := "SPA,Service Code,Charge,Stop Date,New Charge,Record Desc,System,Prin,Agent\n" +
		"8155,VP32481557002,4.00,123124,0,32\" Box Rental,VP324,8155,0001\n"

	l, err := LoadECB(strings.NewReader(raw), "ecb.csv")
	require.NoError(t, err)

	rec, ok := l.Get(domain.RecordKey{SPA: "8155", ServiceCode: "VP32481557002"})
	require.True(t, ok)
	assert.Equal(t, `32" Box Rental`, rec.RecordDesc)
	assert.True(t, decimal.RequireFromString("4").Equal(rec.Charge))
}

func TestLoadWarnsOnInvalidAmountAndDuplicates(t *testing.T) {
	input := `SPA,Service Code,Charge,Stop Date,New Charge
1,A,abc,010125,
1,A,5,010125,
`
	var warnings []Warning
	l, err := LoadTAR(strings.NewReader(input), "tar.csv", WithWarningHandler(func(w Warning) {
		warnings = append(warnings, w)
	}))
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	assert.ErrorIs(t, warnings[0].Err, ErrInvalidAmount)
	assert.Equal(t, ColumnCharge, warnings[0].Column)
	assert.Equal(t, 2, warnings[0].Line)
	assert.Equal(t, 3, warnings[1].Line)

	rec, _ := l.Get(domain.RecordKey{SPA: "1", ServiceCode: "A"})
	assert.True(t, rec.Charge.Equal(decimal.NewFromInt(5)))
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadTAR(strings.NewReader(""), "tar.csv")
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = LoadECB(strings.NewReader(tarCSV), "ecb.csv")
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "Record Desc")

	_, err = LoadTAR(strings.NewReader("SPA,Service Code,Charge,Stop Date,New Charge\n1,A,5\n"), "tar.csv")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingColumn))
}
