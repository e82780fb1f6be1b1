package binding

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return data
}

func TestInterpolate(t *testing.T) {
	data := decode(t, `{
		"region": {"name": "Lisbon", "code": "lis"},
		"year": 2024,
		"stations": [{"id": "s1"}, {"id": "s2"}]
	}`)

	cases := map[string]string{
		"Climate of ${region.name}":  "Climate of Lisbon",
		"${region.code}-${year}.pdf": "lis-2024.pdf",
		"station ${stations[1].id}":  "station s2",
		"station ${stations.0.id}":   "station s1",
		"${ region.name }":           "Lisbon",
		"${region.country|Portugal}": "Portugal",
		"${region.name|unused}":      "Lisbon",
		"${stations[5].id|none}":     "none",
		"${missing.path}":            "${missing.path}",
		"${|empty path}":             "empty path",
		"no placeholders":            "no placeholders",
		"${stations[x].id}":          "${stations[x].id}",
	}
	for in, want := range cases {
		if got := Interpolate(in, data); got != want {
			t.Errorf("Interpolate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInterpolateWithoutData(t *testing.T) {
	if got := Interpolate("${a.b}", nil); got != "${a.b}" {
		t.Fatalf("nil data should keep placeholder, got %q", got)
	}
	if got := Interpolate("${a.b|fallback}", nil); got != "fallback" {
		t.Fatalf("nil data should use fallback, got %q", got)
	}
}

func TestLookupTypedValues(t *testing.T) {
	data := map[string]any{
		"labels": map[string]string{"rain": "Rainfall"},
		"ids":    []string{"analysis", "charts"},
	}
	if got := Interpolate("${labels.rain} / ${ids[1]}", data); got != "Rainfall / charts" {
		t.Fatalf("Interpolate = %q", got)
	}
}

func TestLookup(t *testing.T) {
	data := decode(t, `{"titles": {"analysis": "Analysis"}}`)
	if v, ok := Lookup(data, "titles.analysis"); !ok || v != "Analysis" {
		t.Fatalf("Lookup = %v, %v", v, ok)
	}
	if _, ok := Lookup(data, "titles.charts"); ok {
		t.Fatalf("missing key should not resolve")
	}
	if _, ok := Lookup(nil, "titles"); ok {
		t.Fatalf("nil data should not resolve")
	}
}
