// Package tse cleans raw TSE electoral results into a municipality-year
// polarization panel. Raw files are the per-year votacao_candidato_munzona
// exports (latin1, semicolon-separated); the output is tse_cleaned.csv.
package tse

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
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/censolab/polarbr/internal/brcsv"
	"github.com/censolab/polarbr/internal/mun"
)

// DefaultYears are the presidential election years in the study window.
var DefaultYears = []int{2010, 2014, 2018, 2022}

// Row is one municipality-year observation of the cleaned panel.
type Row struct {
	Municipality mun.Code
	Year         int
	Polarization float64
	NumParties   int
	TotalVotes   int64
}

// Cleaner computes the Esteban-Ray polarization panel from raw TSE files.
type Cleaner struct {
	RawDir    string
	Years     []int
	Alpha     float64
	Crosswalk mun.Crosswalk
	Logger    *slog.Logger
}

// NewCleaner returns a Cleaner with study defaults applied.
func NewCleaner(rawDir string, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cleaner{
		RawDir: rawDir,
		Years:  DefaultYears,
		Alpha:  DefaultAlpha,
		Logger: logger,
	}
}

// voteFile returns the raw file path for an election year.
func (c *Cleaner) voteFile(year int) string {
	return filepath.Join(c.RawDir, fmt.Sprintf("votacao_candidato_munzona_%d.csv", year))
}

// partyVotes accumulates votes per (municipality, party) for one year.
type partyVotes map[mun.Code]map[string]int64

// Clean processes every configured election year and returns the combined
// panel sorted by (municipality, year). Years are processed concurrently;
// the result is deterministic regardless of scheduling.
func (c *Cleaner) Clean(ctx context.Context, ideologies IdeologyTable) ([]Row, error) {
	var (
		mu   sync.Mutex
		rows []Row
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, year := range c.Years {
		g.Go(func() error {
			yearRows, err := c.cleanYear(ctx, year, ideologies)
			if err != nil {
				return fmt.Errorf("year %d: %w", year, err)
			}
			mu.Lock()
			rows = append(rows, yearRows...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Municipality != rows[j].Municipality {
			return rows[i].Municipality < rows[j].Municipality
		}
		return rows[i].Year < rows[j].Year
	})
	return rows, nil
}

// cleanYear reads one raw file, filters first-round presidential votes,
// joins ideology scores, and computes per-municipality polarization.
func (c *Cleaner) cleanYear(ctx context.Context, year int, ideologies IdeologyTable) ([]Row, error) {
	votes, err := c.readVotes(ctx, year)
	if err != nil {
		return nil, err
	}

	missing := make(map[string]bool)
	var rows []Row
	for code, parties := range votes {
		var (
			shares, positions []float64
			scoredTotal       int64
			numParties        int
		)
		for party, count := range parties {
			score, ok := ideologies.Score(year, party)
			if !ok {
				missing[party] = true
				continue
			}
			shares = append(shares, float64(count))
			positions = append(positions, score)
			scoredTotal += count
			numParties++
		}
		if scoredTotal == 0 {
			continue
		}
		for i := range shares {
			shares[i] /= float64(scoredTotal)
		}

		rows = append(rows, Row{
			Municipality: code,
			Year:         year,
			Polarization: EstebanRay(shares, positions, c.Alpha),
			NumParties:   numParties,
			TotalVotes:   scoredTotal,
		})
	}

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for p := range missing {
			names = append(names, p)
		}
		sort.Strings(names)
		c.Logger.Warn("votes excluded for parties without ideology score",
			"year", year, "parties", strings.Join(names, ","))
	}

	c.Logger.Info("cleaned election year", "year", year, "municipalities", len(rows))
	return rows, nil
}

// readVotes aggregates first-round presidential votes per municipality and
// party from one raw TSE file.
func (c *Cleaner) readVotes(ctx context.Context, year int) (partyVotes, error) {
	path := c.voteFile(year)
	f, err := brcsv.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cols, err := f.Columns("CD_MUNICIPIO", "SG_PARTIDO", "QT_VOTOS", "DS_CARGO", "NR_TURNO")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	codeIdx, partyIdx, votesIdx, officeIdx, roundIdx := cols[0], cols[1], cols[2], cols[3], cols[4]

	votes := make(partyVotes)
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := f.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}

		if !strings.EqualFold(strings.TrimSpace(rec[officeIdx]), "Presidente") {
			continue
		}
		if strings.TrimSpace(rec[roundIdx]) != "1" {
			continue
		}

		code, err := c.Crosswalk.Resolve(rec[codeIdx])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		count, err := strconv.ParseInt(strings.TrimSpace(rec[votesIdx]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad vote count %q", path, line, rec[votesIdx])
		}

		party := strings.ToUpper(strings.TrimSpace(rec[partyIdx]))
		if votes[code] == nil {
			votes[code] = make(map[string]int64)
		}
		votes[code][party] += count
	}
	return votes, nil
}

// WriteCSV writes the cleaned panel in the replication package's column
// order. Float formatting is fixed so reruns are byte-identical.
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
	if err := w.Write([]string{"cod_municipio", "ano", "polarizacao_er", "num_partidos", "total_votos"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Municipality.String(),
			strconv.Itoa(r.Year),
			strconv.FormatFloat(r.Polarization, 'f', 6, 64),
			strconv.Itoa(r.NumParties),
			strconv.FormatInt(r.TotalVotes, 10),
		}
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
