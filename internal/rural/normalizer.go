package rural

import (
	"regexp"
	"sort"
	"strings"
)

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}']+`)

// Normalizer rewrites dialectal and abbreviated forms to canonical Portuguese.
// Normalization is idempotent: every output word is either canonical or was
// left untouched, so a second pass changes nothing.
type Normalizer struct {
	words   map[string]string
	phrases []phraseRule
}

type phraseRule struct {
	re        *regexp.Regexp
	canonical string
}

// NewNormalizer builds the rewrite tables from the dictionary. Variants that
// collide with a canonical form are skipped so canonical text survives
// normalization unchanged.
func NewNormalizer(dict *Dictionary) *Normalizer {
	n := &Normalizer{words: make(map[string]string)}

	canonical := make(map[string]struct{})
	for k := range dict.Expressions {
		canonical[k] = struct{}{}
	}
	for k := range dict.Terms {
		canonical[k] = struct{}{}
	}

	add := func(canon string, variants []string) {
		for _, v := range variants {
			if v == canon {
				continue
			}
			if _, clash := canonical[v]; clash {
				continue
			}
			if strings.ContainsRune(v, ' ') {
				re := regexp.MustCompile(`(^|[^\p{L}\p{N}])` + regexp.QuoteMeta(v) + `($|[^\p{L}\p{N}])`)
				n.phrases = append(n.phrases, phraseRule{re: re, canonical: canon})
				continue
			}
			n.words[v] = canon
		}
	}
	for canon, variants := range dict.Expressions {
		add(canon, variants)
	}
	for canon, variants := range dict.Terms {
		add(canon, variants)
	}

	// Longest phrase first so "tá certo" wins over "tá".
	sort.Slice(n.phrases, func(i, j int) bool {
		return len(n.phrases[i].re.String()) > len(n.phrases[j].re.String())
	})
	return n
}

// Normalize lowercases, collapses whitespace and rewrites known variants to
// their canonical forms. Unknown words pass through untouched.
func (n *Normalizer) Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}

	for _, p := range n.phrases {
		// Two passes so back-to-back occurrences both match.
		text = p.re.ReplaceAllString(text, "${1}"+p.canonical+"${2}")
		text = p.re.ReplaceAllString(text, "${1}"+p.canonical+"${2}")
	}

	return tokenRe.ReplaceAllStringFunc(text, func(tok string) string {
		if canon, ok := n.words[tok]; ok {
			return canon
		}
		return tok
	})
}

// Canonical reports whether the word maps to itself under normalization.
func (n *Normalizer) Canonical(word string) bool {
	_, known := n.words[strings.ToLower(word)]
	return !known
}
