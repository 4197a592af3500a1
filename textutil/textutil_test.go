package textutil

import (
	"reflect"
	"testing"
	"unicode/utf8"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"Hola", "hola"},
		{"¿Cómo estás?", "como estas"},
		{"  DOLOR   torácico!!  ", "dolor toracico"},
		{"¿Tenés fiebre, náuseas o vómitos?", "tenes fiebre nauseas o vomitos"},
		{"presión 120/80 mmHg", "presion 120 80 mmhg"},
		{"médico-cirujano", "medico cirujano"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	samples := []string{
		"¿Cuál es su edad, señora?",
		"Dolor torácico opresivo de 2hs. ¡Irradiado al brazo!",
		"   múltiples    espacios \t y saltos \n de línea ",
		"ñandú pingüino",
		"",
	}
	for _, s := range samples {
		once := Normalize(s)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize no es idempotente para %q: %q != %q", s, once, twice)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("¿Desde cuándo tiene el dolor de pecho?")
	want := []string{"dolor", "pecho"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}

	if toks := Tokenize(""); len(toks) != 0 {
		t.Fatalf("Tokenize(\"\") = %v, want vacío", toks)
	}
}

func TestTokenizeFilters(t *testing.T) {
	samples := []string{
		"¿Qué medicamentos toma usted habitualmente y desde cuándo?",
		"el la de un dos si no",
		"Paciente de 55 años con disnea súbita",
	}
	for _, s := range samples {
		for _, tok := range Tokenize(s) {
			if utf8.RuneCountInString(tok) < 3 {
				t.Errorf("token %q de %q tiene menos de 3 runas", tok, s)
			}
			if IsStopword(tok) {
				t.Errorf("token %q de %q es stopword", tok, s)
			}
		}
	}
}

func TestJaccard(t *testing.T) {
	a := []string{"dolor", "pecho", "izquierdo"}
	if got := Jaccard(a, a); got != 1 {
		t.Errorf("Jaccard(a,a) = %v, want 1", got)
	}
	if got := Jaccard(nil, nil); got != 0 {
		t.Errorf("Jaccard(nil,nil) = %v, want 0", got)
	}
	got := Jaccard([]string{"dolor", "pecho"}, []string{"dolor", "cabeza"})
	if got != 1.0/3.0 {
		t.Errorf("Jaccard = %v, want 1/3", got)
	}
	// Set semantics: duplicates do not inflate the score.
	if got := Jaccard([]string{"dolor", "dolor"}, []string{"dolor"}); got != 1 {
		t.Errorf("Jaccard con duplicados = %v, want 1", got)
	}
}
