// Package mun handles 7-digit IBGE municipal codes, the join key shared by
// every dataset in the pipeline.
//
// An IBGE code is UF prefix (2 digits) + municipality sequence (4 digits) +
// check digit (1 digit). The check digit is computed from the first six
// digits with alternating weights 1,2; two-digit products contribute the sum
// of their digits.
package mun

import (
	"fmt"
	"strconv"
	"strings"
)

// validUF holds the two-digit state prefixes assigned by IBGE.
var validUF = map[int]bool{
	11: true, 12: true, 13: true, 14: true, 15: true, 16: true, 17: true, // Norte
	21: true, 22: true, 23: true, 24: true, 25: true, 26: true, 27: true, 28: true, 29: true, // Nordeste
	31: true, 32: true, 33: true, 35: true, // Sudeste
	41: true, 42: true, 43: true, // Sul
	50: true, 51: true, 52: true, 53: true, // Centro-Oeste
}

// checkDigitExceptions lists published IBGE codes whose final digit does not
// follow the modulo-10 formula (the DATASUS-documented exceptions). They are
// real municipalities and must parse.
var checkDigitExceptions = map[string]bool{
	"2201919": true, // Bom Princípio do Piauí/PI
	"2202251": true, // Canavieira/PI
	"2611533": true, // Quixaba/PE
	"3117836": true, // Cássia/MG
	"4305871": true, // Coronel Barros/RS
}

// Code is a validated 7-digit IBGE municipal code.
type Code string

// UF returns the two-digit state prefix.
func (c Code) UF() int {
	n, _ := strconv.Atoi(string(c[:2]))
	return n
}

// String returns the code as its 7-digit decimal form.
func (c Code) String() string { return string(c) }

// CheckDigit computes the IBGE check digit for the first six digits of a code.
func CheckDigit(first6 string) (int, error) {
	if len(first6) != 6 {
		return 0, fmt.Errorf("expected 6 digits, got %d", len(first6))
	}
	sum := 0
	for i, r := range first6 {
		d := int(r - '0')
		if d < 0 || d > 9 {
			return 0, fmt.Errorf("non-digit character %q", r)
		}
		p := d * (1 + i%2)
		if p >= 10 {
			p = p - 9 // sum of the two digits of p
		}
		sum += p
	}
	return (10 - sum%10) % 10, nil
}

// Parse validates s as a 7-digit IBGE municipal code.
// Leading/trailing whitespace is tolerated; anything else is an error.
func Parse(s string) (Code, error) {
	s = strings.TrimSpace(s)
	if len(s) != 7 {
		return "", fmt.Errorf("municipal code %q: expected 7 digits, got %d", s, len(s))
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("municipal code %q: non-digit character", s)
		}
	}
	uf, _ := strconv.Atoi(s[:2])
	if !validUF[uf] {
		return "", fmt.Errorf("municipal code %q: unknown UF prefix %02d", s, uf)
	}
	dv, err := CheckDigit(s[:6])
	if err != nil {
		return "", fmt.Errorf("municipal code %q: %w", s, err)
	}
	if got := int(s[6] - '0'); got != dv && !checkDigitExceptions[s] {
		return "", fmt.Errorf("municipal code %q: check digit %d, expected %d", s, got, dv)
	}
	return Code(s), nil
}

// MustParse is Parse that panics on error. For tests and static tables.
func MustParse(s string) Code {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}
