package mun

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Crosswalk maps TSE municipal codes to IBGE codes. TSE raw files carry the
// court's own numbering, which shares nothing with IBGE's.
type Crosswalk map[string]Code

// LoadCrosswalk reads a two-column CSV (cod_tse,cod_ibge) with a header row.
func LoadCrosswalk(path string) (Crosswalk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open crosswalk: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read crosswalk header: %w", err)
	}
	tseIdx, ibgeIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "cod_tse":
			tseIdx = i
		case "cod_ibge":
			ibgeIdx = i
		}
	}
	if tseIdx < 0 || ibgeIdx < 0 {
		return nil, fmt.Errorf("crosswalk %s: missing cod_tse/cod_ibge columns", path)
	}

	cw := make(Crosswalk)
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("crosswalk %s line %d: %w", path, line, err)
		}
		code, err := Parse(rec[ibgeIdx])
		if err != nil {
			return nil, fmt.Errorf("crosswalk %s line %d: %w", path, line, err)
		}
		cw[strings.TrimSpace(rec[tseIdx])] = code
	}
	return cw, nil
}

// Resolve maps a raw municipal code through the crosswalk if one is loaded,
// otherwise parses it directly as an IBGE code.
func (cw Crosswalk) Resolve(raw string) (Code, error) {
	raw = strings.TrimSpace(raw)
	if cw != nil {
		if code, ok := cw[raw]; ok {
			return code, nil
		}
	}
	return Parse(raw)
}
