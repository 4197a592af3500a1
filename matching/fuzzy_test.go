package matching

import "testing"

func testCorpus() []fuzzyDoc {
	return []fuzzyDoc{
		{Intent: "fiebre", Variants: []string{"tiene fiebre", "fiebre"}, Answer: "Sí, desde anoche."},
		{Intent: "apetito", Variants: []string{"como esta su apetito"}, Answer: "Casi no como nada."},
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "tos", 3},
		{"fiebre", "fiebre", 0},
		{"fiebre", "fiebres", 1},
		{"fiebre", "firbre", 1},
		{"gato", "perro", 4},
	}
	for _, c := range cases {
		if got := levenshtein([]rune(c.a), []rune(c.b)); got != c.want {
			t.Errorf("levenshtein(%q,%q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestFuzzySearchRanksByDistance(t *testing.T) {
	ix := newFuzzyIndex(testCorpus())

	res := ix.search("tiene fiebres")
	if len(res) == 0 {
		t.Fatal("search sin resultados para un typo de una letra")
	}
	if res[0].doc.Intent != "fiebre" {
		t.Fatalf("mejor candidato = %q, want fiebre", res[0].doc.Intent)
	}
	if res[0].score > fuzzyAcceptThreshold {
		t.Fatalf("score = %v, esperaba distancia baja", res[0].score)
	}
}

func TestFuzzySearchThresholdFiltersFarCandidates(t *testing.T) {
	ix := newFuzzyIndex(testCorpus())
	if res := ix.search("antecedentes quirurgicos previos"); len(res) != 0 {
		t.Fatalf("search devolvió %d candidatos lejanos, want 0", len(res))
	}
}

func TestFuzzySearchMinQueryLength(t *testing.T) {
	ix := newFuzzyIndex(testCorpus())
	if res := ix.search("ab"); res != nil {
		t.Fatalf("consultas de menos de 3 runas no deben buscar, got %v", res)
	}
}

func TestVariantDistanceContainment(t *testing.T) {
	// Un fragmento contenido en la variante se penaliza solo por el
	// resto no cubierto, sin importar la posición.
	d := variantDistance([]rune("fiebre"), "tiene fiebre")
	if d > fuzzyAcceptThreshold {
		t.Fatalf("distancia de fragmento contenido = %v, esperaba <= %v", d, fuzzyAcceptThreshold)
	}
	if d0 := variantDistance([]rune("fiebre"), "fiebre"); d0 != 0 {
		t.Fatalf("distancia de igualdad = %v, want 0", d0)
	}
}

func TestFuzzySearchNilIndex(t *testing.T) {
	var ix *fuzzyIndex
	if res := ix.search("tiene fiebre"); res != nil {
		t.Fatalf("índice nil debe devolver nil, got %v", res)
	}
}
