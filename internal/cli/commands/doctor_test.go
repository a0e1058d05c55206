package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "party_ideology.csv")
	require.NoError(t, os.WriteFile(path, []byte("sigla,ideologia\nXX,0.5\n"), 0o644))

	res := checkFile("Party ideology", path)
	assert.True(t, res.OK)
	assert.Equal(t, path, res.Detail)

	res = checkFile("Party ideology", filepath.Join(dir, "absent.csv"))
	assert.False(t, res.OK)
}

func TestCheckBRCSV(t *testing.T) {
	dir := t.TempDir()
	votes := filepath.Join(dir, "votacao.csv")
	require.NoError(t, os.WriteFile(votes, []byte(
		"CD_MUNICIPIO;NR_TURNO;DS_CARGO;SG_PARTIDO;QT_VOTOS\n"+
			"71072;1;Deputado Federal;XX;100\n"), 0o644))

	cases := []struct {
		name    string
		path    string
		columns []string
		wantOK  bool
		detail  string
	}{
		{
			name:    "columns present",
			path:    votes,
			columns: []string{"CD_MUNICIPIO", "QT_VOTOS"},
			wantOK:  true,
			detail:  votes,
		},
		{
			name:    "missing column",
			path:    votes,
			columns: []string{"CD_MUNICIPIO", "QT_VOTOS_NOMINAIS"},
			wantOK:  false,
			detail:  "QT_VOTOS_NOMINAIS",
		},
		{
			name:    "missing file",
			path:    filepath.Join(dir, "absent.csv"),
			columns: []string{"CD_MUNICIPIO"},
			wantOK:  false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := checkBRCSV("TSE votes", tc.path, tc.columns...)
			assert.Equal(t, tc.wantOK, res.OK)
			if tc.detail != "" {
				assert.Contains(t, res.Detail, tc.detail)
			}
		})
	}
}

func TestCheckWritableDir(t *testing.T) {
	dir := t.TempDir()

	// Created on demand.
	res := checkWritableDir("Processed directory", filepath.Join(dir, "data", "processed"))
	assert.True(t, res.OK)
	assert.DirExists(t, filepath.Join(dir, "data", "processed"))

	// Empty path means the current directory, always accepted.
	res = checkWritableDir("Output directory", "")
	assert.True(t, res.OK)
}
