package tse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/censolab/polarbr/internal/mun"
)

const voteHeader = "DT_GERACAO;SG_UF;CD_MUNICIPIO;NM_MUNICIPIO;NR_TURNO;DS_CARGO;SG_PARTIDO;QT_VOTOS"

func writeVoteFile(t *testing.T, dir string, year int, rows []string) {
	t.Helper()
	content := voteHeader + "\n" + strings.Join(rows, "\n") + "\n"
	path := filepath.Join(dir, fmt.Sprintf("votacao_candidato_munzona_%d.csv", year))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func voteRow(code string, round int, office, party string, votes int) string {
	return fmt.Sprintf("01/01/2023;SP;%s;CIDADE;%d;%s;%s;%d", code, round, office, party, votes)
}

func testIdeologies() IdeologyTable {
	return IdeologyTable{
		2018: {"PT": 2.5, "PSL": 8.5},
		2022: {"PT": 2.8, "PL": 8.0},
	}
}

func TestCleaner_Clean(t *testing.T) {
	dir := t.TempDir()
	writeVoteFile(t, dir, 2018, []string{
		// Two zones for the same municipality and party aggregate.
		voteRow("3550308", 1, "Presidente", "PT", 100),
		voteRow("3550308", 1, "Presidente", "PT", 50),
		voteRow("3550308", 1, "Presidente", "PSL", 150),
		// Second round and other offices are ignored.
		voteRow("3550308", 2, "Presidente", "PT", 999),
		voteRow("3550308", 1, "Governador", "PT", 999),
	})
	writeVoteFile(t, dir, 2022, []string{
		voteRow("3550308", 1, "Presidente", "PT", 200),
		voteRow("3550308", 1, "Presidente", "PL", 200),
		voteRow("3304557", 1, "Presidente", "PT", 120),
		voteRow("3304557", 1, "Presidente", "PL", 80),
	})

	c := NewCleaner(dir, nil)
	c.Years = []int{2018, 2022}

	rows, err := c.Clean(context.Background(), testIdeologies())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Sorted by (municipality, year).
	assert.Equal(t, mun.Code("3304557"), rows[0].Municipality)
	assert.Equal(t, 2022, rows[0].Year)
	assert.Equal(t, mun.Code("3550308"), rows[1].Municipality)
	assert.Equal(t, 2018, rows[1].Year)
	assert.Equal(t, mun.Code("3550308"), rows[2].Municipality)
	assert.Equal(t, 2022, rows[2].Year)

	sp2018 := rows[1]
	assert.Equal(t, int64(300), sp2018.TotalVotes)
	assert.Equal(t, 2, sp2018.NumParties)
	want := EstebanRay([]float64{0.5, 0.5}, []float64{2.5, 8.5}, DefaultAlpha)
	assert.InDelta(t, want, sp2018.Polarization, 1e-12)

	// The 50/50 split in São Paulo 2022 is more polarized than Rio's 60/40.
	assert.Greater(t, rows[2].Polarization, rows[0].Polarization)
}

func TestCleaner_DropsUnscoredParties(t *testing.T) {
	dir := t.TempDir()
	writeVoteFile(t, dir, 2018, []string{
		voteRow("3550308", 1, "Presidente", "PT", 100),
		voteRow("3550308", 1, "Presidente", "PSL", 100),
		voteRow("3550308", 1, "Presidente", "XYZ", 500),
	})

	c := NewCleaner(dir, nil)
	c.Years = []int{2018}

	rows, err := c.Clean(context.Background(), testIdeologies())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// Unscored votes are excluded from the total and shares renormalize.
	assert.Equal(t, int64(200), rows[0].TotalVotes)
	assert.Equal(t, 2, rows[0].NumParties)
}

func TestCleaner_MunicipalityWithOnlyUnscoredParties(t *testing.T) {
	dir := t.TempDir()
	writeVoteFile(t, dir, 2018, []string{
		voteRow("3550308", 1, "Presidente", "XYZ", 500),
	})

	c := NewCleaner(dir, nil)
	c.Years = []int{2018}

	rows, err := c.Clean(context.Background(), testIdeologies())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCleaner_CrosswalkResolvesTSECodes(t *testing.T) {
	dir := t.TempDir()
	writeVoteFile(t, dir, 2018, []string{
		voteRow("71072", 1, "Presidente", "PT", 100),
		voteRow("71072", 1, "Presidente", "PSL", 100),
	})

	c := NewCleaner(dir, nil)
	c.Years = []int{2018}
	c.Crosswalk = mun.Crosswalk{"71072": "3550308"}

	rows, err := c.Clean(context.Background(), testIdeologies())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, mun.Code("3550308"), rows[0].Municipality)
}

func TestCleaner_InvalidCodeFails(t *testing.T) {
	dir := t.TempDir()
	writeVoteFile(t, dir, 2018, []string{
		voteRow("9999999", 1, "Presidente", "PT", 100),
	})

	c := NewCleaner(dir, nil)
	c.Years = []int{2018}

	_, err := c.Clean(context.Background(), testIdeologies())
	assert.Error(t, err)
}

func TestCleaner_MissingFileFails(t *testing.T) {
	c := NewCleaner(t.TempDir(), nil)
	c.Years = []int{2018}

	_, err := c.Clean(context.Background(), testIdeologies())
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed", "tse_cleaned.csv")
	rows := []Row{
		{Municipality: "3304557", Year: 2018, Polarization: 1.234567891, NumParties: 3, TotalVotes: 1000},
		{Municipality: "3550308", Year: 2018, Polarization: 0, NumParties: 1, TotalVotes: 500},
	}

	require.NoError(t, WriteCSV(path, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "cod_municipio,ano,polarizacao_er,num_partidos,total_votos", lines[0])
	assert.Equal(t, "3304557,2018,1.234568,3,1000", lines[1])
	assert.Equal(t, "3550308,2018,0.000000,1,500", lines[2])
}
