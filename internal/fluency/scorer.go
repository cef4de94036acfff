// Package fluency scores the spoken animal naming test. A transcript is
// tokenized, matched against a fixed animal vocabulary with greedy
// longest-match, and reduced to distinct-animal and repetition counts from
// which two bounded scores are derived.
//
// Everything in this package is pure: a Scorer holds only immutable state and
// may be used from any number of goroutines.
package fluency

const (
	// MaxScore is the upper bound of both scores.
	MaxScore = 100

	// DefaultTargetAnimals is the number of distinct animals that earns a full
	// memory score.
	DefaultTargetAnimals = 15

	// DefaultRepetitionPenalty is subtracted from the memory score for every
	// repeated mention.
	DefaultRepetitionPenalty = 5

	// DefaultFuzzyThreshold is the minimum Jaro-Winkler similarity for a
	// misheard word to be corrected to an animal.
	DefaultFuzzyThreshold = 0.88
)

// Options tunes the scoring arithmetic and matching.
type Options struct {
	TargetAnimals     int
	RepetitionPenalty int
	FuzzyMatch        bool
	FuzzyThreshold    float64
}

// DefaultOptions returns the options used by the package-level helpers.
func DefaultOptions() Options {
	return Options{
		TargetAnimals:     DefaultTargetAnimals,
		RepetitionPenalty: DefaultRepetitionPenalty,
		FuzzyThreshold:    DefaultFuzzyThreshold,
	}
}

// Result is the outcome of analyzing one transcript.
type Result struct {
	AnimalCount      int      `json:"animal_count"`
	Repetitions      int      `json:"repetitions"`
	MemoryScore      int      `json:"memory_score"`
	BrainHealthScore int      `json:"brain_health_score"`
	TotalMentions    int      `json:"total_mentions"`
	Animals          []string `json:"animals"`
	Mentions         []string `json:"mentions"`
}

// Scorer analyzes transcripts against an injected vocabulary.
type Scorer struct {
	vocab *Vocabulary
	opts  Options
}

// New returns a Scorer. A nil vocabulary selects DefaultVocabulary; zero or
// negative tuning values fall back to their defaults.
func New(vocab *Vocabulary, opts Options) *Scorer {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if opts.TargetAnimals <= 0 {
		opts.TargetAnimals = DefaultTargetAnimals
	}
	if opts.RepetitionPenalty < 0 {
		opts.RepetitionPenalty = DefaultRepetitionPenalty
	}
	if opts.FuzzyThreshold <= 0 || opts.FuzzyThreshold > 1 {
		opts.FuzzyThreshold = DefaultFuzzyThreshold
	}
	return &Scorer{vocab: vocab, opts: opts}
}

// Vocabulary exposes the vocabulary the scorer matches against.
func (s *Scorer) Vocabulary() *Vocabulary { return s.vocab }

// Options reports the effective options after defaults were applied.
func (s *Scorer) Options() Options { return s.opts }

// Analyze scores a transcript. It never fails: text without any recognizable
// animal yields a zero result.
func (s *Scorer) Analyze(transcript string) Result {
	mentions := s.Mentions(transcript)

	seen := make(map[string]struct{}, len(mentions))
	animals := make([]string, 0, len(mentions))
	for _, m := range mentions {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		animals = append(animals, m)
	}

	count := len(animals)
	repetitions := len(mentions) - count
	memory := MemoryScore(count, s.opts.TargetAnimals)
	return Result{
		AnimalCount:      count,
		Repetitions:      repetitions,
		MemoryScore:      memory,
		BrainHealthScore: BrainHealthScore(memory, repetitions, s.opts.RepetitionPenalty),
		TotalMentions:    len(mentions),
		Animals:          animals,
		Mentions:         mentions,
	}
}

// Mentions returns the canonical animal names found in transcript in the
// order they were said, repeats included.
func (s *Scorer) Mentions(transcript string) []string {
	tokens := Tokenize(transcript)
	mentions := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		name, width := s.matchAt(tokens, i)
		if width == 0 {
			i++
			continue
		}
		mentions = append(mentions, name)
		i += width
	}
	return mentions
}

// matchAt tries the longest phrase starting at i first. It returns the number
// of tokens consumed, or 0 when nothing matched.
func (s *Scorer) matchAt(tokens []string, i int) (string, int) {
	longest := min(s.vocab.MaxWords(), len(tokens)-i)
	for n := longest; n >= 1; n-- {
		if name, ok := s.vocab.match(tokens[i : i+n]); ok {
			return name, n
		}
	}
	if s.opts.FuzzyMatch {
		if name, ok := s.vocab.closest(tokens[i], s.opts.FuzzyThreshold); ok {
			return name, 1
		}
	}
	return "", 0
}

// MemoryScore maps a distinct-animal count linearly onto [0, MaxScore],
// reaching the maximum at target animals.
func MemoryScore(animalCount, target int) int {
	if target <= 0 {
		target = DefaultTargetAnimals
	}
	return clamp(animalCount * MaxScore / target)
}

// BrainHealthScore lowers the memory score by penalty points per repetition.
func BrainHealthScore(memoryScore, repetitions, penalty int) int {
	if repetitions < 0 {
		repetitions = 0
	}
	if penalty < 0 {
		penalty = 0
	}
	memoryScore = clamp(memoryScore)
	// Saturate before multiplying so a huge penalty cannot overflow.
	if penalty > 0 && repetitions > memoryScore/penalty {
		return 0
	}
	return clamp(memoryScore - penalty*repetitions)
}

func clamp(score int) int {
	switch {
	case score < 0:
		return 0
	case score > MaxScore:
		return MaxScore
	default:
		return score
	}
}

var defaultScorer = New(nil, DefaultOptions())

// Analyze scores a transcript with the default vocabulary and options.
func Analyze(transcript string) Result {
	return defaultScorer.Analyze(transcript)
}
