package fluency

import "github.com/antzucaro/matchr"

// minFuzzyLength keeps short words like "cap" from being pulled onto "cat".
const minFuzzyLength = 4

// closest finds the single-word animal that sounds like token, using Double
// Metaphone to shortlist candidates and Jaro-Winkler to rank them. Ties go to
// the alphabetically first name.
func (v *Vocabulary) closest(token string, threshold float64) (string, bool) {
	if len([]rune(token)) < minFuzzyLength {
		return "", false
	}
	primary, secondary := matchr.DoubleMetaphone(token)

	var (
		best      string
		bestScore float64
	)
	for _, name := range v.singles {
		if !sharesCode(primary, secondary, name) {
			continue
		}
		score := matchr.JaroWinkler(token, name, false)
		if score >= threshold && score > bestScore {
			best, bestScore = name, score
		}
	}
	return best, best != ""
}

func sharesCode(primary, secondary, name string) bool {
	p, s := matchr.DoubleMetaphone(name)
	for _, a := range []string{primary, secondary} {
		if a == "" {
			continue
		}
		if a == p || a == s {
			return true
		}
	}
	return false
}
