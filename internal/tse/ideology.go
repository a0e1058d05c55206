package tse

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ideology2018Additions fills parties absent from the Zucco & Power survey
// waves. Scores follow the study's codebook (0 = left, 10 = right).
var ideology2018Additions = map[string]float64{
	"PSL":   8.5,
	"NOVO":  9.0,
	"PATRI": 5.0,
	"PODE":  4.5,
	"PMN":   5.5,
}

// IdeologyTable holds ideology scores keyed by election year and party label.
type IdeologyTable map[int]map[string]float64

// LoadIdeologies reads the Zucco & Power classification CSV
// (party,ideology,year header) and applies the 2018 additions.
func LoadIdeologies(path string) (IdeologyTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ideology file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read ideology header: %w", err)
	}

	partyIdx, scoreIdx, yearIdx := -1, -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "party":
			partyIdx = i
		case "ideology":
			scoreIdx = i
		case "year":
			yearIdx = i
		}
	}
	if partyIdx < 0 || scoreIdx < 0 || yearIdx < 0 {
		return nil, fmt.Errorf("ideology file %s: missing party/ideology/year columns", path)
	}

	table := make(IdeologyTable)
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ideology file line %d: %w", line, err)
		}

		year, err := strconv.Atoi(strings.TrimSpace(rec[yearIdx]))
		if err != nil {
			return nil, fmt.Errorf("ideology file line %d: bad year %q", line, rec[yearIdx])
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(rec[scoreIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("ideology file line %d: bad score %q", line, rec[scoreIdx])
		}

		party := strings.ToUpper(strings.TrimSpace(rec[partyIdx]))
		if table[year] == nil {
			table[year] = make(map[string]float64)
		}
		table[year][party] = score
	}

	// 2018 additions, without clobbering scores the file already carries.
	if table[2018] == nil {
		table[2018] = make(map[string]float64)
	}
	for party, score := range ideology2018Additions {
		if _, ok := table[2018][party]; !ok {
			table[2018][party] = score
		}
	}

	return table, nil
}

// Score returns the ideology position for a party in a given election year.
func (t IdeologyTable) Score(year int, party string) (float64, bool) {
	scores, ok := t[year]
	if !ok {
		return 0, false
	}
	score, ok := scores[strings.ToUpper(strings.TrimSpace(party))]
	return score, ok
}
