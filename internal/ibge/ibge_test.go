package ibge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDemographics(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ibge_demographics.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeDemographics(t,
		"cod_municipio,populacao,pib_per_capita,share_urbana,regiao\n"+
			"3550308,11451245,58691.90,0.99,Sudeste\n"+
			"3304557,6211223,54446.98,1.0,Sudeste\n")

	rows, err := Load(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	sp := rows[0]
	assert.Equal(t, "3550308", sp.Municipality.String())
	assert.Equal(t, int64(11451245), sp.Population)
	assert.InDelta(t, 58691.90, sp.GDPPerCapita, 1e-9)
	assert.InDelta(t, 0.99, sp.ShareUrban, 1e-9)
	assert.Equal(t, "Sudeste", sp.Region)
}

func TestLoad_RejectsDuplicates(t *testing.T) {
	path := writeDemographics(t,
		"cod_municipio,populacao,pib_per_capita,share_urbana,regiao\n"+
			"3550308,100,1.0,0.5,Sudeste\n"+
			"3550308,200,2.0,0.6,Sudeste\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "duplicate municipality")
}

func TestLoad_RejectsInvalidCode(t *testing.T) {
	path := writeDemographics(t,
		"cod_municipio,populacao,pib_per_capita,share_urbana,regiao\n"+
			"1234567,100,1.0,0.5,Norte\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsShareOutOfRange(t *testing.T) {
	path := writeDemographics(t,
		"cod_municipio,populacao,pib_per_capita,share_urbana,regiao\n"+
			"3550308,100,1.0,1.5,Sudeste\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "share_urbana")
}

func TestLoad_MissingColumns(t *testing.T) {
	path := writeDemographics(t, "cod_municipio,populacao\n3550308,100\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "missing column")
}
