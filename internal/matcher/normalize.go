package matcher

import (
	"strings"
	"unicode"

	"github.com/claude/coachplan/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalizeName lowercases, trims and collapses internal whitespace.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// foldName strips diacritics and keeps only [a-z0-9 ] on top of
// normalizeName.
func foldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, normalizeName(name))
	if err != nil {
		stripped = normalizeName(name)
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// similarity is the share of the shorter string's runes that occur
// anywhere in the longer one, divided by the longer length. It is a
// coarse overlap score, not an edit distance.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longer, shorter := ra, rb
	if len(rb) > len(ra) {
		longer, shorter = rb, ra
	}
	if len(longer) == 0 {
		return 1.0
	}

	present := make(map[rune]bool, len(longer))
	for _, r := range longer {
		present[r] = true
	}
	matches := 0
	for _, r := range shorter {
		if present[r] {
			matches++
		}
	}
	return float64(matches) / float64(len(longer))
}

// muscleKeywords is checked in order; the first group with a keyword
// contained in the folded name wins.
var muscleKeywords = []struct {
	group    models.MuscleGroup
	keywords []string
}{
	{models.MuscleChest, []string{"supino", "peito", "chest", "crucifixo", "peck", "bench press", "fly"}},
	{models.MuscleBack, []string{"remada", "pulldown", "puxada", "costas", "back", "row", "pull up", "barra fixa"}},
	{models.MuscleLegs, []string{"agachamento", "leg press", "squat", "perna", "coxa", "quadriceps", "lunge", "stiff", "panturrilha", "calf"}},
	{models.MuscleShoulders, []string{"desenvolvimento", "elevacao lateral", "ombro", "shoulder", "lateral raise", "overhead press"}},
	{models.MuscleBiceps, []string{"rosca", "biceps", "curl"}},
	{models.MuscleTriceps, []string{"triceps", "extensao", "frances", "pushdown", "mergulho", "dip"}},
	{models.MuscleCore, []string{"abdominal", "prancha", "core", "plank", "crunch"}},
}

// guessMuscleGroup classifies a free-text exercise name. Unknown names
// default to CHEST.
func guessMuscleGroup(name string) models.MuscleGroup {
	folded := foldName(name)
	for _, mk := range muscleKeywords {
		for _, kw := range mk.keywords {
			if strings.Contains(folded, kw) {
				return mk.group
			}
		}
	}
	return models.MuscleChest
}
