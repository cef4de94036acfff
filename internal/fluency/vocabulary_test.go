package fluency

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultVocabulary(t *testing.T) {
	v := DefaultVocabulary()
	if v != DefaultVocabulary() {
		t.Fatal("expected the default vocabulary to be built once")
	}
	if v.Len() < 100 {
		t.Fatalf("expected a broad default vocabulary, got %d names", v.Len())
	}
	if v.MaxWords() != 2 {
		t.Fatalf("expected two-word entries to be the longest, got %d", v.MaxWords())
	}
	for _, name := range []string{"lion", "guinea pig", "polar bear", "pig"} {
		if got, ok := v.Lookup(name); !ok || got != name {
			t.Fatalf("Lookup(%q) = %q, %v", name, got, ok)
		}
	}
	if _, ok := v.Lookup("guinea"); ok {
		t.Fatal("guinea on its own is not an animal")
	}
}

func TestLookupNormalizes(t *testing.T) {
	v := DefaultVocabulary()
	cases := map[string]string{
		"  Guinea-Pig ": "guinea pig",
		"LIONS":         "lion",
		"mice":          "mouse",
		"Wolves!":       "wolf",
		"ladybugs":      "ladybug",
	}
	for in, want := range cases {
		got, ok := v.Lookup(in)
		if !ok || got != want {
			t.Fatalf("Lookup(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
}

func TestNewVocabularyValidation(t *testing.T) {
	if _, err := NewVocabulary(nil, nil); err == nil {
		t.Fatal("expected error for empty vocabulary")
	}
	if _, err := NewVocabulary([]string{"cat", "  ...  "}, nil); err == nil {
		t.Fatal("expected error for blank entry")
	}
	if _, err := NewVocabulary([]string{"cat"}, map[string]string{"kitty": "tabby"}); err == nil {
		t.Fatal("expected error for alias to unknown animal")
	}

	v, err := NewVocabulary([]string{"Cat", "cat", "Snow Leopard"}, map[string]string{"kitty": "CAT"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Len() != 2 {
		t.Fatalf("expected duplicates collapsed, got %d", v.Len())
	}
	if got, ok := v.Lookup("kitty"); !ok || got != "cat" {
		t.Fatalf("alias lookup = %q, %v", got, ok)
	}
	names := v.Names()
	if len(names) != 2 || names[0] != "cat" || names[1] != "snow leopard" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestLoadVocabulary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	doc := "animals:\n  - dodo\n  - sabre tooth tiger\naliases:\n  dodos: dodo\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write vocab: %v", err)
	}
	v, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("load vocabulary: %v", err)
	}
	if v.MaxWords() != 3 {
		t.Fatalf("expected three-word max, got %d", v.MaxWords())
	}

	res := New(v, DefaultOptions()).Analyze("a sabre-tooth tiger chased the dodo and a tiger")
	if res.AnimalCount != 2 || res.Repetitions != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	if _, err := LoadVocabulary(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := ParseVocabulary([]byte("animals: [unterminated")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("  Lion,tiger;\tBEAR... (wolf)  ")
	want := []string{"lion", "tiger", "bear", "wolf"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tokenize = %v, want %v", got, want)
		}
	}
	if len(Tokenize("")) != 0 {
		t.Fatal("expected no tokens for empty input")
	}
}
