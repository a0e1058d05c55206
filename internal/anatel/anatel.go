// Package anatel cleans raw ANATEL station licensing records into a
// per-municipality mobile coverage summary: first year with a licensed
// 4G station, 3G presence, and the 4G station count.
package anatel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/censolab/polarbr/internal/brcsv"
	"github.com/censolab/polarbr/internal/mun"
)

// Generation is a mobile network generation derived from a technology label.
type Generation int

const (
	GenUnknown Generation = iota
	Gen2G
	Gen3G
	Gen4G
)

func (g Generation) String() string {
	switch g {
	case Gen2G:
		return "2G"
	case Gen3G:
		return "3G"
	case Gen4G:
		return "4G"
	default:
		return "unknown"
	}
}

// ClassifyTechnology maps an ANATEL technology label to a generation.
// Labels are matched case-insensitively; LTE variants (LTE, LTE-A,
// LTE ADVANCED) all count as 4G.
func ClassifyTechnology(label string) Generation {
	s := strings.ToUpper(strings.TrimSpace(label))
	switch {
	case s == "4G" || strings.HasPrefix(s, "LTE"):
		return Gen4G
	case s == "3G" || strings.HasPrefix(s, "WCDMA") || strings.HasPrefix(s, "HSPA") || strings.HasPrefix(s, "UMTS"):
		return Gen3G
	case s == "2G" || strings.HasPrefix(s, "GSM") || strings.HasPrefix(s, "GPRS") || strings.HasPrefix(s, "EDGE"):
		return Gen2G
	default:
		return GenUnknown
	}
}

// Row summarizes one municipality's mobile coverage.
type Row struct {
	Municipality mun.Code
	First4G      int // 0 when the municipality never received 4G
	Has3G        bool
	Stations4G   int
}

// Cleaner aggregates licensing records into coverage rows.
type Cleaner struct {
	RawFile   string
	Crosswalk mun.Crosswalk
	Logger    *slog.Logger
}

// NewCleaner returns a Cleaner reading the standard licensing export.
func NewCleaner(rawDir string, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cleaner{
		RawFile: filepath.Join(rawDir, "licenciamento_estacoes.csv"),
		Logger:  logger,
	}
}

// Clean reads the licensing file and returns one row per municipality,
// sorted by municipality code.
func (c *Cleaner) Clean(ctx context.Context) ([]Row, error) {
	f, err := brcsv.Open(c.RawFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cols, err := f.Columns("CodMunicipio", "Tecnologia", "AnoLicenciamento")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.RawFile, err)
	}
	codeIdx, techIdx, yearIdx := cols[0], cols[1], cols[2]

	type summary struct {
		first4G    int
		has3G      bool
		stations4G int
	}
	byMun := make(map[mun.Code]*summary)
	unknown := make(map[string]bool)

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := f.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", c.RawFile, line, err)
		}

		gen := ClassifyTechnology(rec[techIdx])
		if gen == GenUnknown {
			unknown[strings.TrimSpace(rec[techIdx])] = true
			continue
		}

		code, err := c.Crosswalk.Resolve(rec[codeIdx])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", c.RawFile, line, err)
		}
		year, err := strconv.Atoi(strings.TrimSpace(rec[yearIdx]))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad year %q", c.RawFile, line, rec[yearIdx])
		}

		s := byMun[code]
		if s == nil {
			s = &summary{}
			byMun[code] = s
		}
		switch gen {
		case Gen4G:
			s.stations4G++
			if s.first4G == 0 || year < s.first4G {
				s.first4G = year
			}
		case Gen3G:
			s.has3G = true
		}
	}

	if len(unknown) > 0 {
		labels := make([]string, 0, len(unknown))
		for l := range unknown {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		c.Logger.Warn("records skipped for unknown technology labels",
			"labels", strings.Join(labels, ","))
	}

	rows := make([]Row, 0, len(byMun))
	for code, s := range byMun {
		rows = append(rows, Row{
			Municipality: code,
			First4G:      s.first4G,
			Has3G:        s.has3G,
			Stations4G:   s.stations4G,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Municipality < rows[j].Municipality })

	c.Logger.Info("cleaned licensing records", "municipalities", len(rows))
	return rows, nil
}

// WriteCSV writes the coverage summary. ano_primeiro_4g is empty for
// municipalities that never received a 4G station; tem_3g is 0/1.
func WriteCSV(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"cod_municipio", "ano_primeiro_4g", "tem_3g", "num_estacoes_4g"}); err != nil {
		return err
	}
	for _, r := range rows {
		first := ""
		if r.First4G != 0 {
			first = strconv.Itoa(r.First4G)
		}
		has3G := "0"
		if r.Has3G {
			has3G = "1"
		}
		rec := []string{r.Municipality.String(), first, has3G, strconv.Itoa(r.Stations4G)}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
