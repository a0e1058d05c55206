package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/censolab/polarbr/internal/ibge"
	"github.com/censolab/polarbr/internal/mun"
)

// Merger joins the cleaned TSE panel with ANATEL coverage and IBGE
// demographics and derives the treatment variables.
type Merger struct {
	TSEPath    string
	AnatelPath string
	IBGEPath   string
	OutputPath string
	Years      []int
	Logger     *slog.Logger
}

// Report summarizes the merged panel and its coverage.
type Report struct {
	Rows           int64
	Municipalities int64
	MissingAnatel  int64
	MissingIBGE    int64
	Unbalanced     int64
}

// Merge builds the final_dataset table in db and exports it to OutputPath.
// The table stays in db so ad-hoc queries can reach it afterwards.
func (m *Merger) Merge(ctx context.Context, db *DB) (*Report, error) {
	logger := m.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// Validate demographics before handing the file to DuckDB: column set,
	// code validity, duplicates, share_urbana range.
	demographics, err := ibge.Load(m.IBGEPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("demographics validated", "municipalities", len(demographics))

	if err := db.LoadCSV(ctx, "tse_panel", m.TSEPath); err != nil {
		return nil, err
	}
	if err := db.LoadCSV(ctx, "anatel_coverage", m.AnatelPath); err != nil {
		return nil, err
	}
	if err := db.LoadCSV(ctx, "ibge_demographics", m.IBGEPath); err != nil {
		return nil, err
	}

	if err := db.Exec(ctx, "CREATE OR REPLACE TABLE election_years (ano INTEGER)"); err != nil {
		return nil, err
	}
	for _, year := range m.Years {
		if err := db.Exec(ctx, "INSERT INTO election_years VALUES (?)", year); err != nil {
			return nil, err
		}
	}

	if err := m.validateKeys(ctx, db); err != nil {
		return nil, err
	}

	// Cohort is the first election year at or after the first-4G year.
	// Licensing after the last election leaves the municipality
	// never-treated in sample (cohort NULL).
	const buildSQL = `
CREATE OR REPLACE TABLE final_dataset AS
WITH cohorts AS (
    SELECT
        a.cod_municipio,
        a.ano_primeiro_4g,
        a.tem_3g,
        a.num_estacoes_4g,
        (SELECT min(e.ano) FROM election_years e WHERE e.ano >= a.ano_primeiro_4g) AS cohort
    FROM anatel_coverage a
)
SELECT
    t.cod_municipio,
    t.ano,
    t.polarizacao_er,
    t.num_partidos,
    t.total_votos,
    c.ano_primeiro_4g,
    COALESCE(c.tem_3g, 0) AS tem_3g,
    COALESCE(c.num_estacoes_4g, 0) AS num_estacoes_4g,
    c.cohort,
    CAST(c.cohort IS NOT NULL AS INTEGER) AS treated,
    CAST(c.cohort IS NOT NULL AND t.ano >= c.cohort AS INTEGER) AS post,
    CASE WHEN c.cohort IS NOT NULL THEN t.ano - c.cohort END AS event_time,
    i.populacao,
    CASE WHEN i.populacao > 0 THEN ln(i.populacao) END AS log_populacao,
    i.pib_per_capita,
    i.share_urbana,
    i.regiao
FROM tse_panel t
LEFT JOIN cohorts c USING (cod_municipio)
LEFT JOIN ibge_demographics i USING (cod_municipio)
ORDER BY t.cod_municipio, t.ano`
	if err := db.Exec(ctx, buildSQL); err != nil {
		return nil, fmt.Errorf("failed to build final dataset: %w", err)
	}

	report, err := m.report(ctx, db, logger)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(m.OutputPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := db.CopyTo(ctx, "final_dataset", m.OutputPath); err != nil {
		return nil, err
	}

	logger.Info("merged dataset written",
		"path", m.OutputPath, "rows", report.Rows, "municipalities", report.Municipalities)
	return report, nil
}

// validateKeys rejects duplicate panel keys and invalid municipality codes.
func (m *Merger) validateKeys(ctx context.Context, db *DB) error {
	var dups int64
	err := db.QueryRow(ctx, `
SELECT count(*) FROM (
    SELECT cod_municipio, ano FROM tse_panel
    GROUP BY cod_municipio, ano HAVING count(*) > 1
)`).Scan(&dups)
	if err != nil {
		return fmt.Errorf("failed to check panel keys: %w", err)
	}
	if dups > 0 {
		return fmt.Errorf("tse panel has %d duplicate (cod_municipio, ano) keys", dups)
	}

	rows, err := db.Query(ctx, "SELECT DISTINCT cod_municipio FROM tse_panel")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var code int64
		if err := rows.Scan(&code); err != nil {
			return fmt.Errorf("failed to scan municipality code: %w", err)
		}
		if _, err := mun.Parse(fmt.Sprintf("%07d", code)); err != nil {
			return fmt.Errorf("tse panel: %w", err)
		}
	}
	return rows.Err()
}

// report computes coverage and balance counts, warning on gaps.
func (m *Merger) report(ctx context.Context, db *DB, logger *slog.Logger) (*Report, error) {
	var r Report
	scan := func(dest *int64, query string, args ...any) error {
		if err := db.QueryRow(ctx, query, args...).Scan(dest); err != nil {
			return fmt.Errorf("failed to compute merge report: %w", err)
		}
		return nil
	}

	if err := scan(&r.Rows, "SELECT count(*) FROM final_dataset"); err != nil {
		return nil, err
	}
	if err := scan(&r.Municipalities, "SELECT count(DISTINCT cod_municipio) FROM final_dataset"); err != nil {
		return nil, err
	}
	if err := scan(&r.MissingAnatel, `
SELECT count(DISTINCT t.cod_municipio) FROM tse_panel t
LEFT JOIN anatel_coverage a USING (cod_municipio)
WHERE a.cod_municipio IS NULL`); err != nil {
		return nil, err
	}
	if err := scan(&r.MissingIBGE, `
SELECT count(DISTINCT t.cod_municipio) FROM tse_panel t
LEFT JOIN ibge_demographics i USING (cod_municipio)
WHERE i.cod_municipio IS NULL`); err != nil {
		return nil, err
	}
	if err := scan(&r.Unbalanced, `
SELECT count(*) FROM (
    SELECT cod_municipio FROM tse_panel
    GROUP BY cod_municipio
    HAVING count(DISTINCT ano) < ?
)`, len(m.Years)); err != nil {
		return nil, err
	}

	if r.MissingAnatel > 0 {
		logger.Warn("municipalities without licensing coverage kept with NULLs",
			"count", r.MissingAnatel)
	}
	if r.MissingIBGE > 0 {
		logger.Warn("municipalities without demographics kept with NULLs",
			"count", r.MissingIBGE)
	}
	if r.Unbalanced > 0 {
		logger.Warn("municipalities missing some election years",
			"count", r.Unbalanced)
	}
	return &r, nil
}
