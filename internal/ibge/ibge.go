// Package ibge loads the IBGE municipal demographics extract used as
// controls in the merged dataset.
package ibge

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/censolab/polarbr/internal/mun"
)

// Row is one municipality's demographic controls.
type Row struct {
	Municipality mun.Code
	Population   int64
	GDPPerCapita float64
	ShareUrban   float64
	Region       string
}

// Load reads the demographics CSV (utf-8, comma-separated, header
// cod_municipio,populacao,pib_per_capita,share_urbana,regiao).
func Load(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open demographics file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read demographics header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range []string{"cod_municipio", "populacao", "pib_per_capita", "share_urbana", "regiao"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("demographics file %s: missing column %q", path, col)
		}
	}

	var rows []Row
	seen := make(map[mun.Code]bool)
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("demographics file line %d: %w", line, err)
		}

		code, err := mun.Parse(rec[idx["cod_municipio"]])
		if err != nil {
			return nil, fmt.Errorf("demographics file line %d: %w", line, err)
		}
		if seen[code] {
			return nil, fmt.Errorf("demographics file line %d: duplicate municipality %s", line, code)
		}
		seen[code] = true

		pop, err := strconv.ParseInt(strings.TrimSpace(rec[idx["populacao"]]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("demographics file line %d: bad population %q", line, rec[idx["populacao"]])
		}
		gdp, err := strconv.ParseFloat(strings.TrimSpace(rec[idx["pib_per_capita"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("demographics file line %d: bad pib_per_capita %q", line, rec[idx["pib_per_capita"]])
		}
		urban, err := strconv.ParseFloat(strings.TrimSpace(rec[idx["share_urbana"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("demographics file line %d: bad share_urbana %q", line, rec[idx["share_urbana"]])
		}
		if urban < 0 || urban > 1 {
			return nil, fmt.Errorf("demographics file line %d: share_urbana %v outside [0,1]", line, urban)
		}

		rows = append(rows, Row{
			Municipality: code,
			Population:   pop,
			GDPPerCapita: gdp,
			ShareUrban:   urban,
			Region:       strings.TrimSpace(rec[idx["regiao"]]),
		})
	}
	return rows, nil
}
