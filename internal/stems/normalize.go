package stems

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxNormalizePasses bounds the fixed-point loop in Normalize. Real labels
// settle after two passes.
const maxNormalizePasses = 4

var modifierPattern = regexp.MustCompile(`\b(full|dry|wet|clean|distorted|heavy|light|soft|hard)\b`)

// shieldedPattern matches canonical tokens that contain a modifier word. The
// modifier inside them must survive stripping or the token degrades on the
// next pass ("electric clean" would become "electric", a bass label).
var shieldedPattern = regexp.MustCompile(`\b(electric\s+clean|full\s+kit)\b`)

var (
	punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s\-]`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

type rewriteRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// rewriteRules collapse synonym clusters to one token. Order matters: later
// rules see the output of earlier ones.
var rewriteRules = []rewriteRule{
	// piano
	{regexp.MustCompile(`\b(acoustic\s*piano|grand\s*piano|upright\s*piano)\b`), "piano"},
	{regexp.MustCompile(`\bpno\b`), "piano"},
	{regexp.MustCompile(`\bgrand\b`), "piano"},

	// electric piano
	{regexp.MustCompile(`\b(electric\s*piano|e\.?piano|e\.?p\.?)\b`), "ep"},
	{regexp.MustCompile(`\b(fender\s*)?rhodes\b`), "rhodes"},
	{regexp.MustCompile(`\b(wurlitzer|wurly)\b`), "wurli"},

	// bass
	{regexp.MustCompile(`\b(acoustic\s*bass|upright\s*bass|double\s*bass|standup\s*bass)\b`), "upright bass"},
	{regexp.MustCompile(`\b(electric\s*bass|bass\s*guitar|e\.?bass)\b`), "electric bass"},
	{regexp.MustCompile(`\b(synthesizer\s*bass|synth\s*bass|sub\s*bass)\b`), "synth bass"},
	{regexp.MustCompile(`\b(808\s*bass|808\s*sub)\b`), "808"},

	// guitar
	{regexp.MustCompile(`\b(acoustic\s*guitar|nylon\s*guitar|classical\s*guitar)\b`), "nylon"},
	{regexp.MustCompile(`\b(steel\s*string|steel\s*guitar|acoustic\s*steel)\b`), "steel"},
	{regexp.MustCompile(`\b(electric\s*guitar|e\.?guitar)\b`), "electric clean"},
	{regexp.MustCompile(`\b(jazz\s*guitar|clean\s*guitar)\b`), "jazz"},
	{regexp.MustCompile(`\b(muted\s*guitar|palm\s*muted)\b`), "muted"},

	// drums
	{regexp.MustCompile(`\b(drum\s*kit|full\s*kit|acoustic\s*drums|live\s*drums)\b`), "full kit"},
	{regexp.MustCompile(`\b(808\s*drums|tr\-?808|drum\s*machine)\b`), "808 drums"},
	{regexp.MustCompile(`\b(percussion\s*loops?|perc\s*loops?)\b`), "perc loops"},
	{regexp.MustCompile(`\b(percussion|percussive)\b`), "perc"},

	// synth leads
	{regexp.MustCompile(`\b(pluck\s*lead|plucked\s*lead)\b`), "pluck lead"},
	{regexp.MustCompile(`\b(saw\s*lead|sawtooth\s*lead)\b`), "saw lead"},
	{regexp.MustCompile(`\b(arp\s*lead|arpeggio\s*lead|arpeggiated\s*lead)\b`), "arp-lead"},
	{regexp.MustCompile(`\b(synthesizer|synth)\b`), "synth"},

	// organ
	{regexp.MustCompile(`\b(hammond\s*organ|b3\s*organ)\b`), "organ"},
	{regexp.MustCompile(`\b(clavinet|clav)\b`), "clav"},
}

// Normalize canonicalizes a free-text stem label into the reduced vocabulary
// used for matching. It never fails; empty input yields "". The result is a
// fixed point: Normalize(Normalize(x)) == Normalize(x).
func Normalize(label string) string {
	if strings.TrimSpace(label) == "" {
		return ""
	}
	current := normalizePass(label)
	for i := 1; i < maxNormalizePasses; i++ {
		next := normalizePass(current)
		if next == current {
			break
		}
		current = next
	}
	return current
}

func normalizePass(label string) string {
	value := strings.ToLower(strings.TrimSpace(norm.NFKC.String(label)))
	value = stripModifiers(value)
	for _, rule := range rewriteRules {
		value = rule.pattern.ReplaceAllString(value, rule.replacement)
	}
	value = punctuationPattern.ReplaceAllString(value, " ")
	value = whitespacePattern.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

func stripModifiers(value string) string {
	matches := modifierPattern.FindAllStringIndex(value, -1)
	if len(matches) == 0 {
		return value
	}
	shielded := shieldedPattern.FindAllStringIndex(value, -1)

	var b strings.Builder
	b.Grow(len(value))
	last := 0
	for _, m := range matches {
		if withinAny(m, shielded) {
			continue
		}
		b.WriteString(value[last:m[0]])
		last = m[1]
	}
	b.WriteString(value[last:])
	return b.String()
}

func withinAny(span []int, ranges [][]int) bool {
	for _, r := range ranges {
		if span[0] >= r[0] && span[1] <= r[1] {
			return true
		}
	}
	return false
}
