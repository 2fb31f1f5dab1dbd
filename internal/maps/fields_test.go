package maps

import "testing"

func TestResolveFieldPrefersEarlierCandidates(t *testing.T) {
	props := map[string]any{
		"PARCELA":    "940/2",
		"ST_PARCELE": "940/1",
	}
	got, ok := ResolveField(props, FieldParcelNumber)
	if !ok || got != "940/1" {
		t.Fatalf("got %q ok=%v, want 940/1", got, ok)
	}
}

func TestResolveFieldCaseInsensitive(t *testing.T) {
	got, ok := ResolveField(map[string]any{"ime_ko": "Litija"}, FieldCadastralUnit)
	if !ok || got != "Litija" {
		t.Fatalf("got %q ok=%v, want Litija", got, ok)
	}
}

func TestResolveFieldSkipsEmptyValues(t *testing.T) {
	props := map[string]any{
		"ST_PARCELE": "  ",
		"PARCELA":    "15",
	}
	got, ok := ResolveField(props, FieldParcelNumber)
	if !ok || got != "15" {
		t.Fatalf("got %q ok=%v, want 15", got, ok)
	}

	if _, ok := ResolveField(map[string]any{"OTHER": "x"}, FieldParcelNumber); ok {
		t.Fatal("resolved a field with no candidates present")
	}
	if _, ok := ResolveField(nil, FieldParcelNumber); ok {
		t.Fatal("resolved a field from nil props")
	}
}

func TestResolveFieldStringifiesNumbers(t *testing.T) {
	got, ok := ResolveField(map[string]any{"ST_PARCELE": float64(940)}, FieldParcelNumber)
	if !ok || got != "940" {
		t.Fatalf("got %q ok=%v, want 940", got, ok)
	}
}

func TestResolveArea(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]any
		want  float64
	}{
		{"plain", map[string]any{"POVRSINA": "1250.5"}, 1250.5},
		{"decimal comma", map[string]any{"POVRSINA": "1250,5"}, 1250.5},
		{"numeric", map[string]any{"AREA": 830.0}, 830},
		{"unparseable", map[string]any{"POVRSINA": "cca 1200"}, 0},
		{"negative", map[string]any{"POVRSINA": "-5"}, 0},
		{"missing", map[string]any{"OTHER": "1"}, 0},
	}
	for _, tt := range tests {
		if got := ResolveArea(tt.props); got != tt.want {
			t.Fatalf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}
