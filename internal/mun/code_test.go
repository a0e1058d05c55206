package mun

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse_KnownCodes(t *testing.T) {
	// Capitals with published IBGE codes.
	valid := []string{
		"3550308", // São Paulo
		"3304557", // Rio de Janeiro
		"5300108", // Brasília
		"2927408", // Salvador
		"1302603", // Manaus
		"4314902", // Porto Alegre
	}
	for _, s := range valid {
		if _, err := Parse(s); err != nil {
			t.Errorf("Parse(%q) failed: %v", s, err)
		}
	}
}

func TestParse_CheckDigitExceptions(t *testing.T) {
	// Published codes whose last digit breaks the modulo-10 formula.
	exceptions := []string{
		"2201919", // Bom Princípio do Piauí
		"2202251", // Canavieira
		"2611533", // Quixaba
		"3117836", // Cássia
		"4305871", // Coronel Barros
	}
	for _, s := range exceptions {
		c, err := Parse(s)
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", s, err)
			continue
		}
		if c.String() != s {
			t.Errorf("Parse(%q) = %q", s, c)
		}
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"too short", "355030"},
		{"too long", "35503080"},
		{"non-digit", "355030a"},
		{"bad check digit", "3550309"},
		{"unknown uf", "9950308"},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(tc.in); err == nil {
				t.Errorf("Parse(%q) succeeded, expected error", tc.in)
			}
		})
	}
}

func TestParse_TrimsWhitespace(t *testing.T) {
	c, err := Parse("  3550308 ")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if c.String() != "3550308" {
		t.Errorf("got %q, want 3550308", c)
	}
}

func TestCode_UF(t *testing.T) {
	if uf := MustParse("3550308").UF(); uf != 35 {
		t.Errorf("UF = %d, want 35", uf)
	}
}

func TestCheckDigit(t *testing.T) {
	cases := []struct {
		first6 string
		want   int
	}{
		{"355030", 8},
		{"330455", 7},
		{"530010", 8},
	}
	for _, tc := range cases {
		got, err := CheckDigit(tc.first6)
		if err != nil {
			t.Fatalf("CheckDigit(%q) failed: %v", tc.first6, err)
		}
		if got != tc.want {
			t.Errorf("CheckDigit(%q) = %d, want %d", tc.first6, got, tc.want)
		}
	}
}

func TestCrosswalk_Resolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crosswalk.csv")
	content := "cod_tse,cod_ibge\n71072,3550308\n60011,3304557\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cw, err := LoadCrosswalk(path)
	if err != nil {
		t.Fatalf("LoadCrosswalk failed: %v", err)
	}

	// Mapped TSE code.
	c, err := cw.Resolve("71072")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if c.String() != "3550308" {
		t.Errorf("Resolve(71072) = %s, want 3550308", c)
	}

	// Unmapped code falls through to direct IBGE parsing.
	c, err = cw.Resolve("5300108")
	if err != nil {
		t.Fatalf("Resolve fallthrough failed: %v", err)
	}
	if c.String() != "5300108" {
		t.Errorf("Resolve(5300108) = %s", c)
	}

	// Unmapped and not a valid IBGE code.
	if _, err := cw.Resolve("99999"); err == nil {
		t.Error("Resolve(99999) succeeded, expected error")
	}
}

func TestNilCrosswalk_ResolvesDirectly(t *testing.T) {
	var cw Crosswalk
	c, err := cw.Resolve("3550308")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if c.String() != "3550308" {
		t.Errorf("got %s", c)
	}
}
