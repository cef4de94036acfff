package fluency

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed animals.yaml
var defaultVocabularyYAML []byte

// Vocabulary is the set of recognized animal names. It is read-only after
// construction and safe to share between goroutines.
type Vocabulary struct {
	entries  map[string]string
	singles  []string
	maxWords int
	size     int
}

type vocabularyFile struct {
	Animals []string          `yaml:"animals"`
	Aliases map[string]string `yaml:"aliases"`
}

var defaultVocabulary = sync.OnceValue(func() *Vocabulary {
	v, err := ParseVocabulary(defaultVocabularyYAML)
	if err != nil {
		panic(fmt.Sprintf("fluency: embedded vocabulary: %v", err))
	}
	return v
})

// DefaultVocabulary returns the built-in animal vocabulary.
func DefaultVocabulary() *Vocabulary {
	return defaultVocabulary()
}

// NewVocabulary builds a vocabulary from canonical names and an optional alias
// table mapping alternative spellings to canonical names.
func NewVocabulary(names []string, aliases map[string]string) (*Vocabulary, error) {
	v := &Vocabulary{entries: make(map[string]string, len(names)+len(aliases))}
	for _, name := range names {
		tokens := Tokenize(name)
		if len(tokens) == 0 {
			return nil, fmt.Errorf("vocabulary entry %q has no words", name)
		}
		canonical := strings.Join(tokens, " ")
		if _, dup := v.entries[canonical]; dup {
			continue
		}
		v.entries[canonical] = canonical
		v.size++
		if len(tokens) == 1 {
			v.singles = append(v.singles, canonical)
		}
		if len(tokens) > v.maxWords {
			v.maxWords = len(tokens)
		}
	}
	if v.size == 0 {
		return nil, errors.New("vocabulary is empty")
	}

	// Sorted for deterministic alias and fuzzy resolution.
	keys := make([]string, 0, len(aliases))
	for alias := range aliases {
		keys = append(keys, alias)
	}
	sort.Strings(keys)
	for _, alias := range keys {
		target := strings.Join(Tokenize(aliases[alias]), " ")
		if _, ok := v.entries[target]; !ok || v.entries[target] != target {
			return nil, fmt.Errorf("alias %q points at unknown animal %q", alias, aliases[alias])
		}
		tokens := Tokenize(alias)
		if len(tokens) == 0 {
			return nil, fmt.Errorf("alias for %q has no words", target)
		}
		key := strings.Join(tokens, " ")
		if _, exists := v.entries[key]; exists {
			continue
		}
		v.entries[key] = target
		if len(tokens) > v.maxWords {
			v.maxWords = len(tokens)
		}
	}
	sort.Strings(v.singles)
	return v, nil
}

// ParseVocabulary decodes a YAML vocabulary document with an "animals" list and
// an optional "aliases" map.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	return NewVocabulary(file.Animals, file.Aliases)
}

// LoadVocabulary reads a YAML vocabulary file from disk.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return ParseVocabulary(data)
}

// Lookup resolves free text such as "Guinea-Pig" to its canonical animal name.
func (v *Vocabulary) Lookup(phrase string) (string, bool) {
	return v.match(Tokenize(phrase))
}

// Len reports the number of canonical animals, aliases excluded.
func (v *Vocabulary) Len() int { return v.size }

// MaxWords is the word count of the longest entry.
func (v *Vocabulary) MaxWords() int { return v.maxWords }

// Names returns the canonical animal names in sorted order.
func (v *Vocabulary) Names() []string {
	names := make([]string, 0, v.size)
	for key, canonical := range v.entries {
		if key == canonical {
			names = append(names, canonical)
		}
	}
	sort.Strings(names)
	return names
}

// match looks up a token phrase exactly, then with its last word reduced from a
// regular plural.
func (v *Vocabulary) match(tokens []string) (string, bool) {
	if len(tokens) == 0 || len(tokens) > v.maxWords {
		return "", false
	}
	if canonical, ok := v.entries[strings.Join(tokens, " ")]; ok {
		return canonical, true
	}
	last := tokens[len(tokens)-1]
	for _, stem := range singularForms(last) {
		candidate := append(append([]string(nil), tokens[:len(tokens)-1]...), stem)
		if canonical, ok := v.entries[strings.Join(candidate, " ")]; ok {
			return canonical, true
		}
	}
	return "", false
}

func singularForms(word string) []string {
	if len(word) <= 3 || !strings.HasSuffix(word, "s") || strings.HasSuffix(word, "ss") {
		return nil
	}
	forms := []string{strings.TrimSuffix(word, "s")}
	if strings.HasSuffix(word, "ies") {
		forms = append(forms, strings.TrimSuffix(word, "ies")+"y")
	}
	if stem, ok := strings.CutSuffix(word, "es"); ok && takesES(stem) {
		forms = append(forms, stem)
	}
	return forms
}

// takesES reports whether stem forms its plural with "-es" (fox, finch,
// mosquito), so words like "rates" are not read as "rat".
func takesES(stem string) bool {
	for _, suffix := range []string{"s", "x", "z", "ch", "sh", "o"} {
		if strings.HasSuffix(stem, suffix) {
			return true
		}
	}
	return false
}
