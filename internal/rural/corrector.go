package rural

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Correction methods, recorded per word for observability and debugging.
const (
	MethodExact     = "exact"
	MethodAudio     = "audio_confusion"
	MethodVariant   = "rural_variant"
	MethodPattern   = "error_pattern"
	MethodPhonetic  = "phonetic"
	MethodFuzzy     = "fuzzy"
	MethodUnchanged = "unchanged"
)

// WordCorrection is a single token decision.
type WordCorrection struct {
	Original   string  `json:"original"`
	Corrected  string  `json:"corrected"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// MessageCorrection is the outcome of correcting a whole message.
type MessageCorrection struct {
	Original          string           `json:"original"`
	Corrected         string           `json:"corrected"`
	Corrections       []WordCorrection `json:"corrections,omitempty"`
	Confidence        float64          `json:"confidence"`
	NeedsConfirmation bool             `json:"needs_confirmation"`
}

// Corrector fixes misspelled and mistranscribed words against the rural
// vocabulary. Each correction carries a confidence from the method that
// produced it; methods are tried from most to least reliable.
type Corrector struct {
	dict       *Dictionary
	vocab      map[string]struct{}
	variants   map[string]string
	confusions map[string]string
	folded     map[string][]string
}

type patternRule struct {
	from string
	to   string
}

// Orthographic rewrites common in rural typing. A candidate produced by a
// rule only counts when it lands on a known word.
var errorPatterns = []patternRule{
	{"k", "qu"},
	{"k", "c"},
	{"x", "ch"},
	{"ss", "ç"},
	{"ç", "ss"},
	{"z", "s"},
	{"s", "z"},
	{"u", "o"},
	{"i", "e"},
	{"aum", "ão"},
	{"am", "ão"},
}

func NewCorrector(dict *Dictionary) *Corrector {
	c := &Corrector{
		dict:       dict,
		vocab:      dict.Vocabulary(),
		variants:   make(map[string]string),
		confusions: make(map[string]string),
		folded:     make(map[string][]string),
	}
	for canon, vars := range dict.Expressions {
		for _, v := range vars {
			if !strings.ContainsRune(v, ' ') && !strings.ContainsRune(canon, ' ') {
				c.variants[v] = canon
			}
		}
	}
	for canon, vars := range dict.Terms {
		for _, v := range vars {
			if !strings.ContainsRune(v, ' ') {
				c.variants[v] = canon
			}
		}
	}
	for canon, vars := range dict.AudioConfusions {
		for _, v := range vars {
			c.confusions[v] = canon
		}
	}
	for w := range c.vocab {
		if strings.ContainsRune(w, ' ') {
			continue
		}
		key := phoneticFold(w)
		c.folded[key] = append(c.folded[key], w)
	}
	return c
}

// CorrectWord resolves a single token. The returned confidence reflects the
// method: exact 1.0, audio confusion 0.9, known variant 0.85, error pattern
// 0.8, phonetic 0.75, fuzzy 0.7, and 0.0 when nothing applied.
func (c *Corrector) CorrectWord(word string) WordCorrection {
	word = strings.ToLower(word)
	if skipToken(word) {
		return WordCorrection{Original: word, Corrected: word, Confidence: 1.0, Method: MethodUnchanged}
	}

	if _, ok := c.vocab[word]; ok {
		return WordCorrection{Original: word, Corrected: word, Confidence: 1.0, Method: MethodExact}
	}

	if canon, ok := c.confusions[word]; ok && similarity(word, canon) >= 0.8 {
		return WordCorrection{Original: word, Corrected: canon, Confidence: 0.9, Method: MethodAudio}
	}

	if canon, ok := c.variants[word]; ok {
		return WordCorrection{Original: word, Corrected: canon, Confidence: 0.85, Method: MethodVariant}
	}

	for _, p := range errorPatterns {
		if !strings.Contains(word, p.from) {
			continue
		}
		candidate := strings.Replace(word, p.from, p.to, 1)
		if _, ok := c.vocab[candidate]; ok {
			return WordCorrection{Original: word, Corrected: candidate, Confidence: 0.8, Method: MethodPattern}
		}
	}

	if matches, ok := c.folded[phoneticFold(word)]; ok {
		for _, m := range matches {
			if similarity(word, m) >= 0.8 {
				return WordCorrection{Original: word, Corrected: m, Confidence: 0.75, Method: MethodPhonetic}
			}
		}
	}

	if best, score := c.closestMatch(word); score >= 0.6 {
		return WordCorrection{Original: word, Corrected: best, Confidence: 0.7, Method: MethodFuzzy}
	}

	return WordCorrection{Original: word, Corrected: word, Confidence: 0.0, Method: MethodUnchanged}
}

// CorrectMessage corrects each token of the message. When preserveOriginal is
// set, only corrections with confidence 0.9 or better are substituted into
// the output; otherwise anything above 0.6 is. Confidence is the mean over
// all tokens, with untouched known tokens counting as 1.0.
func (c *Corrector) CorrectMessage(text string, preserveOriginal bool) MessageCorrection {
	mc := MessageCorrection{Original: text}
	tokens := tokenRe.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		mc.Corrected = text
		mc.Confidence = 1.0
		return mc
	}

	replacements := make(map[string]string)
	var sum float64
	for _, tok := range tokens {
		wc := c.CorrectWord(tok)
		if wc.Confidence == 0.0 {
			// Unknown word, assume it is fine rather than drag the
			// message score down.
			sum += 0.7
			continue
		}
		sum += wc.Confidence
		if wc.Corrected == wc.Original {
			continue
		}
		substitute := wc.Confidence >= 0.9 || (!preserveOriginal && wc.Confidence > 0.6)
		if substitute {
			replacements[tok] = wc.Corrected
		}
		mc.Corrections = append(mc.Corrections, wc)
	}

	mc.Corrected = tokenRe.ReplaceAllStringFunc(strings.ToLower(text), func(tok string) string {
		if r, ok := replacements[tok]; ok {
			return r
		}
		return tok
	})
	mc.Confidence = sum / float64(len(tokens))
	mc.NeedsConfirmation = len(mc.Corrections) > 3 || mc.Confidence < 0.6
	return mc
}

// ImproveTranscription refines speech-to-text output. A weak upstream
// confidence switches to aggressive substitution; the final confidence
// averages the transcriber's score with the corrector's own.
func (c *Corrector) ImproveTranscription(text string, upstreamConfidence float64) MessageCorrection {
	aggressive := upstreamConfidence < 0.7
	mc := c.CorrectMessage(text, !aggressive)
	mc.Confidence = (upstreamConfidence + mc.Confidence) / 2
	mc.NeedsConfirmation = len(mc.Corrections) > 3 || mc.Confidence < 0.6
	return mc
}

// ClarificationPrompt builds the question sent back to the producer when a
// correction run needs confirming.
func ClarificationPrompt(mc MessageCorrection) string {
	if len(mc.Corrections) == 0 {
		return "Desculpa, não entendi direito. Pode repetir, por favor?"
	}
	var b strings.Builder
	b.WriteString("Só para confirmar, você quis dizer")
	for i, wc := range mc.Corrections {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, " %q no lugar de %q", wc.Corrected, wc.Original)
	}
	b.WriteString("? Responde sim ou me corrige, por favor.")
	return b.String()
}

func (c *Corrector) closestMatch(word string) (string, float64) {
	var best string
	var bestScore float64
	for w := range c.vocab {
		if strings.ContainsRune(w, ' ') {
			continue
		}
		if s := similarity(word, w); s > bestScore {
			best, bestScore = w, s
		}
	}
	return best, bestScore
}

func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := len([]rune(a)), len([]rune(b))
	max := la
	if lb > max {
		max = lb
	}
	if max == 0 {
		return 1.0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(d)/float64(max)
}

func skipToken(tok string) bool {
	if len([]rune(tok)) <= 2 {
		return true
	}
	for _, r := range tok {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

var foldReplacer = strings.NewReplacer(
	"ch", "x", "lh", "l", "nh", "n", "qu", "k", "ç", "s", "ss", "s",
	"á", "a", "â", "a", "ã", "a", "é", "e", "ê", "e", "í", "i",
	"ó", "o", "ô", "o", "õ", "o", "ú", "u", "h", "",
)

// phoneticFold reduces a word to a rough phonetic key for rural Portuguese:
// accents stripped, digraphs collapsed, voiced and unvoiced sibilants merged,
// unstressed final vowels merged.
func phoneticFold(word string) string {
	w := foldReplacer.Replace(strings.ToLower(word))
	var b strings.Builder
	var prev rune
	runes := []rune(w)
	for i, r := range runes {
		switch r {
		case 'c':
			if i+1 < len(runes) && (runes[i+1] == 'e' || runes[i+1] == 'i') {
				r = 's'
			} else {
				r = 'k'
			}
		case 'z':
			r = 's'
		case 'w':
			r = 'u'
		case 'y':
			r = 'i'
		}
		if i == len(runes)-1 {
			if r == 'o' {
				r = 'u'
			} else if r == 'e' {
				r = 'i'
			}
		}
		if r == prev {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
