package indicators

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/patrickcap/exploronomics/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Country Name,Country Code,Series Name,Series Code,1999 [YR1999],2000 [YR2000]
United States,USA,GDP (current US$),NY.GDP.MKTP.CD,9631172000000,10250952000000
United States,USA,"Population, total",SP.POP.TOTL,279040000,282162411
China,CHN,GDP (current US$),NY.GDP.MKTP.CD,..,1211346869605.24
China,CHN,Inflation,FP.CPI.TOTL.ZG,-1.40147,0.347811
`

func TestCoerce(t *testing.T) {
	tests := []struct {
		cell string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{" 3.5 ", 3.5, true},
		{"-1.2e3", -1200, true},
		{"inf", posInf(), true},
		{"..", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"n/a", 0, false},
		{"1,234", 0, false},
		{"0x10", 0, false},
		{"1_000", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			got, ok := coerce(tt.cell)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func posInf() float64 { return math.Inf(1) }

func TestRound(t *testing.T) {
	tests := []struct {
		in       float64
		decimals int
		want     float64
	}{
		{21.137518, 3, 21.138},
		{-1.40147, 3, -1.401},
		{331000000, 3, 331000000},
		{2.5, 0, 2},
		{3.5, 0, 4},
		{-0.5, 0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, round(tt.in, tt.decimals), "round(%v, %d)", tt.in, tt.decimals)
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{21.138, "21.138"},
		{331000000, "331000000.0"},
		{0, "0.0"},
		{-1.401, "-1.401"},
		{0.0001, "0.0001"},
		{0.00005, "5e-05"},
		{1e16, "1e+16"},
		{9631.172, "9631.172"},
		{posInf(), "inf"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatFloat(tt.in))
		})
	}
}

func TestReadTable(t *testing.T) {
	t.Run("parses header and rows", func(t *testing.T) {
		tbl, err := ReadTable(strings.NewReader(sampleCSV))
		require.NoError(t, err)
		assert.Len(t, tbl.Header, 6)
		assert.Len(t, tbl.Rows, 4)
		assert.Equal(t, "Population, total", tbl.Rows[1][2])

		idx, ok := tbl.Column(SeriesNameColumn)
		assert.True(t, ok)
		assert.Equal(t, 2, idx)
	})

	t.Run("strips byte order mark", func(t *testing.T) {
		tbl, err := ReadTable(strings.NewReader(utf8BOM + "Series Name,1999 [YR1999]\nA,1\n"))
		require.NoError(t, err)
		assert.Equal(t, SeriesNameColumn, tbl.Header[0])
	})

	t.Run("strips byte order mark written by spreadsheet exports", func(t *testing.T) {
		tbl, err := ReadTable(bytes.NewReader([]byte("\xef\xbb\xbfSeries Name,1999 [YR1999]\nA,1\n")))
		require.NoError(t, err)
		assert.Equal(t, []string{SeriesNameColumn, "1999 [YR1999]"}, tbl.Header)
		assert.Equal(t, []string{"A", "1"}, tbl.Rows[0])
	})

	t.Run("pads short rows and skips blank lines", func(t *testing.T) {
		tbl, err := ReadTable(strings.NewReader("a,b,c\n\n1\n"))
		require.NoError(t, err)
		require.Len(t, tbl.Rows, 1)
		assert.Equal(t, []string{"1", MissingValue, MissingValue}, tbl.Rows[0])
	})

	t.Run("long row is a parse error with its line", func(t *testing.T) {
		_, err := ReadTable(strings.NewReader("a,b\n1,2\n1,2,3\n"))
		require.Error(t, err)
		assert.True(t, errors.IsErrorType(err, errors.ErrParse))

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		line, _ := appErr.GetContext("line")
		assert.Equal(t, 3, line)
	})

	t.Run("empty input is a parse error", func(t *testing.T) {
		_, err := ReadTable(strings.NewReader(""))
		assert.True(t, errors.IsErrorType(err, errors.ErrParse))
	})

	t.Run("unterminated quote is a parse error", func(t *testing.T) {
		_, err := ReadTable(strings.NewReader("a,b\n\"1,2\n"))
		assert.True(t, errors.IsErrorType(err, errors.ErrParse))
	})
}

func TestFormat(t *testing.T) {
	tbl, err := ReadTable(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	stats, err := Format(tbl)
	require.NoError(t, err)
	assert.Equal(t, Stats{Rows: 4, Rescaled: 2, Missing: 1}, stats)

	assert.Equal(t, []string{"United States", "USA", GDPBillionsSeries, "NY.GDP.MKTP.CD", "9631.172", "10250.952"}, tbl.Rows[0])
	assert.Equal(t, []string{"United States", "USA", "Population, total", "SP.POP.TOTL", "279040000.0", "282162411.0"}, tbl.Rows[1])
	assert.Equal(t, []string{"China", "CHN", GDPBillionsSeries, "NY.GDP.MKTP.CD", MissingValue, "1211.347"}, tbl.Rows[2])
	assert.Equal(t, []string{"China", "CHN", "Inflation", "FP.CPI.TOTL.ZG", "-1.401", "0.348"}, tbl.Rows[3])
}

func TestFormatIsIdempotent(t *testing.T) {
	tbl, err := ReadTable(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	_, err = Format(tbl)
	require.NoError(t, err)

	var first bytes.Buffer
	require.NoError(t, WriteTable(&first, tbl))

	// The relabelled GDP rows are not rescaled a second time
	again, err := ReadTable(bytes.NewReader(first.Bytes()))
	require.NoError(t, err)
	stats, err := Format(again)
	require.NoError(t, err)
	assert.Zero(t, stats.Rescaled)

	var second bytes.Buffer
	require.NoError(t, WriteTable(&second, again))
	assert.Equal(t, first.String(), second.String())
}

func TestFormatLeavesColumnsBeforeYearBlock(t *testing.T) {
	input := "Code,Series Name,Note,1999 [YR1999]\n007,GDP (current US$),1.23456,2000000000\n"
	tbl, err := ReadTable(strings.NewReader(input))
	require.NoError(t, err)

	_, err = Format(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"007", GDPBillionsSeries, "1.23456", "2.0"}, tbl.Rows[0])
}

func TestFormatIntegerColumnsRenderAsFloats(t *testing.T) {
	// No GDP row and no missing cells: every year cell is still written in float form
	input := "Series Name,1999 [YR1999],2000 [YR2000]\n\"Population, total\",331000000,282162411\nSurface area,9833520,9833517\n"
	tbl, err := ReadTable(strings.NewReader(input))
	require.NoError(t, err)

	stats, err := Format(tbl)
	require.NoError(t, err)
	assert.Equal(t, Stats{Rows: 2}, stats)
	assert.Equal(t, []string{"Population, total", "331000000.0", "282162411.0"}, tbl.Rows[0])
	assert.Equal(t, []string{"Surface area", "9833520.0", "9833517.0"}, tbl.Rows[1])
}

func TestFormatMissingColumns(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		column string
	}{
		{"no series name", "Country,1999 [YR1999]\nUSA,1\n", SeriesNameColumn},
		{"no year block", "Series Name,2000 [YR2000]\nGDP (current US$),1\n", FirstYearColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := ReadTable(strings.NewReader(tt.input))
			require.NoError(t, err)

			_, err = Format(tbl)
			require.Error(t, err)
			assert.True(t, errors.IsErrorType(err, errors.ErrSchema))

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			column, _ := appErr.GetContext("column")
			assert.Equal(t, tt.column, column)
		})
	}
}

func TestFormatFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("writes formatted output", func(t *testing.T) {
		input := filepath.Join(dir, "in.csv")
		output := filepath.Join(dir, "out", "formatted.csv")
		content := "Country,Series Name,1999 [YR1999]\n" +
			"USA,GDP (current US$),21137518000\n" +
			"USA,\"Population, total\",331000000\n"
		require.NoError(t, os.WriteFile(input, []byte(content), 0644))

		stats, err := FormatFile(input, output)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Rescaled)

		got, err := os.ReadFile(output)
		require.NoError(t, err)
		want := "Country,Series Name,1999 [YR1999]\n" +
			"USA,GDP (current US$B),21.138\n" +
			"USA,\"Population, total\",331000000.0\n"
		assert.Equal(t, want, string(got))
	})

	t.Run("missing series column writes nothing", func(t *testing.T) {
		input := filepath.Join(dir, "bad.csv")
		output := filepath.Join(dir, "bad_out.csv")
		require.NoError(t, os.WriteFile(input, []byte("Country,1999 [YR1999]\nUSA,1\n"), 0644))

		_, err := FormatFile(input, output)
		assert.True(t, errors.IsErrorType(err, errors.ErrSchema))

		_, statErr := os.Stat(output)
		assert.True(t, os.IsNotExist(statErr), "output must not be created")
	})

	t.Run("missing input file", func(t *testing.T) {
		_, err := FormatFile(filepath.Join(dir, "nope.csv"), filepath.Join(dir, "x.csv"))
		assert.True(t, errors.IsErrorType(err, errors.ErrFileNotFound))
	})
}

func TestSavedMessage(t *testing.T) {
	assert.Equal(t, "Formatted CSV has been saved to out.csv.", SavedMessage("out.csv"))
}

func TestCountrySeries(t *testing.T) {
	t.Run("returns every series for the country", func(t *testing.T) {
		series, err := CountrySeries(strings.NewReader(sampleCSV), "China")
		require.NoError(t, err)
		require.Len(t, series, 2)

		assert.Equal(t, GDPSeries, series[0].Name)
		assert.Nil(t, series[0].Values["1999"])
		require.NotNil(t, series[0].Values["2000"])
		assert.Equal(t, "1211346869605.24", *series[0].Values["2000"])

		assert.Equal(t, "Inflation", series[1].Name)
		assert.Len(t, series[1].Values, 2)
	})

	t.Run("unknown country yields nothing", func(t *testing.T) {
		series, err := CountrySeries(strings.NewReader(sampleCSV), "Atlantis")
		require.NoError(t, err)
		assert.Empty(t, series)
	})

	t.Run("missing country column", func(t *testing.T) {
		_, err := CountrySeries(strings.NewReader("Series Name,1999 [YR1999]\nA,1\n"), "USA")
		assert.True(t, errors.IsErrorType(err, errors.ErrSchema))
	})
}
