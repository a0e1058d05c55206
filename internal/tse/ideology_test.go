package tse

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIdeologyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ideology.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadIdeologies(t *testing.T) {
	path := writeIdeologyFile(t, "party,ideology,year\nPT,2.5,2018\npsdb,6.0,2018\nPT,2.8,2022\n")

	table, err := LoadIdeologies(path)
	require.NoError(t, err)

	score, ok := table.Score(2018, "PT")
	require.True(t, ok)
	assert.Equal(t, 2.5, score)

	// Lookup is case-insensitive on the party label.
	score, ok = table.Score(2018, "PSDB")
	require.True(t, ok)
	assert.Equal(t, 6.0, score)

	score, ok = table.Score(2022, "pt")
	require.True(t, ok)
	assert.Equal(t, 2.8, score)

	_, ok = table.Score(2022, "PSDB")
	assert.False(t, ok)
}

func TestLoadIdeologies_Applies2018Additions(t *testing.T) {
	path := writeIdeologyFile(t, "party,ideology,year\nPT,2.5,2018\n")

	table, err := LoadIdeologies(path)
	require.NoError(t, err)

	for party, want := range ideology2018Additions {
		score, ok := table.Score(2018, party)
		require.True(t, ok, "missing 2018 addition for %s", party)
		assert.Equal(t, want, score, party)
	}
}

func TestLoadIdeologies_AdditionsDoNotClobber(t *testing.T) {
	// A file-provided score wins over the built-in addition.
	path := writeIdeologyFile(t, "party,ideology,year\nPSL,7.0,2018\n")

	table, err := LoadIdeologies(path)
	require.NoError(t, err)

	score, ok := table.Score(2018, "PSL")
	require.True(t, ok)
	assert.Equal(t, 7.0, score)
}

func TestLoadIdeologies_MissingColumns(t *testing.T) {
	path := writeIdeologyFile(t, "sigla,nota\nPT,2.5\n")

	_, err := LoadIdeologies(path)
	assert.Error(t, err)
}
