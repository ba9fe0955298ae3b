package rural

import (
	"sort"
	"strings"
)

// Intent is a coarse label for what the producer wants from the message.
type Intent string

const (
	IntentPurchase     Intent = "purchase_interest"
	IntentTechnical    Intent = "technical_question"
	IntentProblem      Intent = "production_problem"
	IntentGreeting     Intent = "greeting"
	IntentFarewell     Intent = "farewell"
	IntentConfirmation Intent = "confirmation"
)

// Urgency ranks how quickly the message needs attention.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// Emotion is a lightweight affect signal used to shape reply tone.
type Emotion string

const (
	EmotionJoy       Emotion = "joy"
	EmotionSurprise  Emotion = "surprise"
	EmotionConcern   Emotion = "concern"
	EmotionAgreement Emotion = "agreement"
	EmotionDenial    Emotion = "denial"
)

// ConfidenceBand describes how sure of themselves the producer sounds.
type ConfidenceBand string

const (
	BandHigh   ConfidenceBand = "high"
	BandMedium ConfidenceBand = "medium"
	BandLow    ConfidenceBand = "low"
)

// Classification is the full read on a normalized message.
type Classification struct {
	Intents        []Intent       `json:"intents,omitempty"`
	TechnicalTerms []string       `json:"technical_terms,omitempty"`
	Urgency        Urgency        `json:"urgency"`
	Emotions       []Emotion      `json:"emotions,omitempty"`
	ConfidenceBand ConfidenceBand `json:"confidence_band"`
}

// HasIntent reports whether the given intent was detected.
func (c Classification) HasIntent(want Intent) bool {
	for _, i := range c.Intents {
		if i == want {
			return true
		}
	}
	return false
}

// Classifier detects intents, urgency, domain terms and emotional markers in
// normalized text. Purely keyword driven, no model call.
type Classifier struct {
	terms []string
}

func NewClassifier(dict *Dictionary) *Classifier {
	terms := dict.CanonicalTerms()
	sort.Strings(terms)
	return &Classifier{terms: terms}
}

// Classify reads a message that already went through the normalizer.
func (c *Classifier) Classify(text string) Classification {
	padded := " " + strings.ToLower(text) + " "

	out := Classification{Urgency: UrgencyLow, ConfidenceBand: BandMedium}

	intentSets := []struct {
		intent   Intent
		keywords []string
	}{
		{IntentPurchase, purchaseKeywords},
		{IntentTechnical, technicalQuestionKeywords},
		{IntentProblem, productionProblemKeywords},
		{IntentGreeting, greetingKeywords},
		{IntentFarewell, farewellKeywords},
		{IntentConfirmation, confirmationKeywords},
	}
	for _, set := range intentSets {
		if containsAny(padded, set.keywords) {
			out.Intents = append(out.Intents, set.intent)
		}
	}

	for _, term := range c.terms {
		if containsWord(padded, term) {
			out.TechnicalTerms = append(out.TechnicalTerms, term)
		}
	}

	switch {
	case containsAny(padded, highUrgencyKeywords):
		out.Urgency = UrgencyHigh
	case containsAny(padded, mediumUrgencyKeywords):
		out.Urgency = UrgencyMedium
	}

	for _, emo := range []Emotion{EmotionJoy, EmotionSurprise, EmotionConcern, EmotionAgreement, EmotionDenial} {
		if containsAny(padded, emotionKeywords[emo]) {
			out.Emotions = append(out.Emotions, emo)
		}
	}

	switch {
	case containsAny(padded, affirmingKeywords):
		out.ConfidenceBand = BandHigh
	case containsAny(padded, hedgingKeywords):
		out.ConfidenceBand = BandLow
	}

	return out
}

func containsAny(padded string, keywords []string) bool {
	for _, kw := range keywords {
		if containsWord(padded, kw) {
			return true
		}
	}
	return false
}

// containsWord matches on word boundaries so "morreu" does not fire inside
// "morreuova" style concatenations. The haystack must be space padded.
func containsWord(padded, word string) bool {
	idx := 0
	for {
		i := strings.Index(padded[idx:], word)
		if i < 0 {
			return false
		}
		i += idx
		before := padded[i-1]
		afterIdx := i + len(word)
		after := padded[afterIdx]
		if !isWordByte(before) && !isWordByte(after) {
			return true
		}
		idx = i + 1
	}
}

func isWordByte(b byte) bool {
	return b == '\'' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b >= 0x80
}
