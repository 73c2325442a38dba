package indicators

import (
	"io"
	"regexp"

	"github.com/patrickcap/exploronomics/errors"
)

var yearColumnPattern = regexp.MustCompile(`^(\d{4}) \[YR\d{4}\]$`)

// placeholder the World Bank export uses for "no data"
const noData = ".."

// Series is one indicator for one country. A nil value means no data
// was recorded for that year.
type Series struct {
	Name   string             `json:"seriesName"`
	Values map[string]*string `json:"values"`
}

// CountrySeries streams the indicators CSV and returns every series
// recorded for the named country, in file order. Year keys are the four
// digit year taken from the column header.
func CountrySeries(in io.Reader, country string) ([]Series, error) {
	r := newReader(in)

	header, err := r.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrParse, "input has no header row").WithContext("line", 1)
	}
	if err != nil {
		return nil, parseError(err, 1)
	}
	header = cleanHeader(header)

	countryIdx, seriesIdx := -1, -1
	years := make(map[int]string)
	for i, h := range header {
		switch h {
		case CountryNameColumn:
			countryIdx = i
		case SeriesNameColumn:
			seriesIdx = i
		}
		if m := yearColumnPattern.FindStringSubmatch(h); m != nil {
			years[i] = m[1]
		}
	}
	if countryIdx < 0 {
		return nil, errors.NewMissingColumnError(CountryNameColumn)
	}
	if seriesIdx < 0 {
		return nil, errors.NewMissingColumnError(SeriesNameColumn)
	}

	var result []Series
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, parseError(err, 0)
		}
		line, _ := r.FieldPos(0)
		row, err := fitRow(record, len(header), line)
		if err != nil {
			return nil, err
		}
		if row[countryIdx] != country {
			continue
		}

		s := Series{Name: row[seriesIdx], Values: make(map[string]*string, len(years))}
		for i, year := range years {
			s.Values[year] = value(row[i])
		}
		result = append(result, s)
	}

	return result, nil
}

func value(cell string) *string {
	if cell == noData || cell == MissingValue {
		return nil
	}
	v := cell
	return &v
}
