package conversation

import (
	"context"
	"strings"
	"unicode"
)

// Answer is the customer's reply to a confirmation question.
type Answer int

const (
	AnswerNone Answer = iota
	AnswerYes
	AnswerNo
)

// Extraction is what an extractor understood from one message. Empty
// fields mean the message did not mention them.
type Extraction struct {
	Drink          string
	Milk           string
	Size           string
	FriendName     string
	Answer         Answer
	Restart        bool
	ForSomeoneElse bool
	Usual          bool
}

// HasFields reports whether the message named any order field.
func (e Extraction) HasFields() bool {
	return e.Drink != "" || e.Milk != "" || e.Size != ""
}

// Extractor parses a customer message in the context of the order built so
// far. Implementations may call out to a language model.
type Extractor interface {
	Extract(ctx context.Context, message string, partial Partial) (Extraction, error)
}

type ExtractorFunc func(ctx context.Context, message string, partial Partial) (Extraction, error)

func (f ExtractorFunc) Extract(ctx context.Context, message string, partial Partial) (Extraction, error) {
	return f(ctx, message, partial)
}

// Vocabulary maps spoken phrases to canonical order values per dimension.
type Vocabulary struct {
	Drinks map[string]string
	Milks  map[string]string
	Sizes  map[string]string
}

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Drinks: map[string]string{
			"espresso":     "espresso",
			"americano":    "americano",
			"cappuccino":   "cappuccino",
			"capp":         "cappuccino",
			"latte":        "latte",
			"flat white":   "flat white",
			"cortado":      "cortado",
			"mocha":        "mocha",
			"drip coffee":  "drip coffee",
			"drip":         "drip coffee",
			"filter":       "drip coffee",
			"cold brew":    "cold brew",
			"chai":         "chai latte",
			"chai latte":   "chai latte",
			"matcha":       "matcha latte",
			"matcha latte": "matcha latte",
			"tea":          "tea",
			"black tea":    "tea",
			"green tea":    "tea",
			"macchiato":    "macchiato",
		},
		Milks: map[string]string{
			"whole":       "whole",
			"whole milk":  "whole",
			"skim":        "skim",
			"skimmed":     "skim",
			"skim milk":   "skim",
			"oat":         "oat",
			"oatmilk":     "oat",
			"oat milk":    "oat",
			"almond":      "almond",
			"almond milk": "almond",
			"soy":         "soy",
			"soy milk":    "soy",
			"coconut":     "coconut",
			"no milk":     "none",
			"black":       "none",
		},
		Sizes: map[string]string{
			"small":   "small",
			"short":   "small",
			"tall":    "small",
			"medium":  "medium",
			"regular": "medium",
			"grande":  "medium",
			"large":   "large",
			"big":     "large",
			"venti":   "large",
		},
	}
}

var (
	yesPhrases = []string{
		"yes", "yeah", "yep", "yup", "sure", "ok", "okay", "confirm", "correct",
		"perfect", "sounds good", "go ahead", "that's right", "please do",
	}
	noPhrases = []string{
		"no", "nope", "nah", "wrong", "not quite", "that's wrong",
	}
	restartPhrases = []string{
		"start over", "start again", "restart", "reset", "cancel", "never mind", "nevermind",
	}
	someoneElsePhrases = []string{
		"someone else", "somebody else", "for a friend", "for my friend", "for a colleague",
		"for my colleague", "for my partner", "for my wife", "for my husband", "friend's",
	}
	// Words that may sit between "for" and a name, or that are never a name.
	nameSkipWords = map[string]bool{
		"my": true, "a": true, "an": true, "the": true, "friend": true, "colleague": true,
		"coworker": true, "partner": true, "wife": true, "husband": true, "buddy": true,
		"someone": true, "somebody": true, "else": true, "is": true, "it's": true, "its": true,
		"it": true, "for": true, "her": true, "his": true, "their": true, "name": true,
		"name's": true, "called": true, "please": true, "oh": true, "um": true,
	}
	relationWords = map[string]bool{
		"friend": true, "colleague": true, "coworker": true, "partner": true,
		"wife": true, "husband": true, "buddy": true, "someone": true, "somebody": true,
	}
	selfWords = map[string]bool{
		"me": true, "myself": true, "here": true, "there": true, "now": true, "today": true,
		"later": true, "takeaway": true, "pickup": true, "collection": true, "delivery": true,
		"breakfast": true, "brunch": true, "lunch": true, "dinner": true, "road": true,
		"work": true, "office": true, "meeting": true, "tomorrow": true, "tonight": true,
	}
)

const maxPhraseWords = 3

type phraseMatch struct {
	dimension string
	value     string
}

// KeywordExtractor recognises order fields and intents by matching known
// phrases, longest first. It is the default when no language model is
// configured.
type KeywordExtractor struct {
	index map[string]phraseMatch
}

func NewKeywordExtractor(vocab Vocabulary) *KeywordExtractor {
	index := make(map[string]phraseMatch)
	add := func(dimension string, entries map[string]string) {
		for phrase, value := range entries {
			index[strings.ToLower(strings.TrimSpace(phrase))] = phraseMatch{dimension: dimension, value: value}
		}
	}
	add("drink", vocab.Drinks)
	add("milk", vocab.Milks)
	add("size", vocab.Sizes)
	return &KeywordExtractor{index: index}
}

func (k *KeywordExtractor) Extract(ctx context.Context, message string, partial Partial) (Extraction, error) {
	var ext Extraction

	original := tokenize(message)
	lower := make([]string, len(original))
	for i, tok := range original {
		lower[i] = strings.ToLower(tok)
	}
	consumed := make([]bool, len(lower))

	for n := maxPhraseWords; n >= 1; n-- {
		for i := 0; i+n <= len(lower); i++ {
			if anyConsumed(consumed, i, n) {
				continue
			}
			m, ok := k.index[strings.Join(lower[i:i+n], " ")]
			if !ok {
				continue
			}
			switch m.dimension {
			case "drink":
				ext.Drink = m.value
			case "milk":
				ext.Milk = m.value
			case "size":
				ext.Size = m.value
			}
			markConsumed(consumed, i, n)
		}
	}

	rest := remaining(lower, consumed)
	ext.Restart = containsPhrase(rest, restartPhrases)
	ext.ForSomeoneElse = containsPhrase(rest, someoneElsePhrases)
	ext.Usual = containsPhrase(rest, []string{"usual"})

	switch {
	case containsPhrase(rest, noPhrases):
		ext.Answer = AnswerNo
	case containsPhrase(rest, yesPhrases):
		ext.Answer = AnswerYes
	}

	if name, relation := captureName(original, lower, consumed); name != "" || relation {
		ext.FriendName = name
		ext.ForSomeoneElse = true
	}

	return ext, nil
}

// captureName looks for "for <name>" or "name is <name>". After a bare
// "for" the name must be capitalised or follow a relation word, so "for
// pickup" is not a recipient. relation is set when the recipient was
// described ("for my friend") without a name.
func captureName(original, lower []string, consumed []bool) (name string, relation bool) {
	for i := 0; i < len(lower); i++ {
		if consumed[i] {
			continue
		}
		explicit := lower[i] == "called" || lower[i] == "name's"
		if i+1 < len(lower) && lower[i] == "name" && lower[i+1] == "is" {
			explicit = true
			i++
		}
		if !explicit && lower[i] != "for" {
			continue
		}

		for j := i + 1; j < len(lower); j++ {
			if consumed[j] {
				break
			}
			word := lower[j]
			if selfWords[word] {
				break
			}
			if relationWords[word] {
				relation = true
			}
			if nameSkipWords[word] {
				continue
			}
			if !explicit && !relation && !isCapitalized(original[j]) {
				break
			}
			if !unicode.IsLetter([]rune(word)[0]) {
				break
			}
			return capitalize(original[j]), relation
		}
	}
	return "", relation
}

// NameFromText reads a bare reply such as "Alice" or "it's for bob" as a
// name. It returns "" when nothing usable is left.
func NameFromText(message string) string {
	var parts []string
	for _, tok := range tokenize(message) {
		lower := strings.ToLower(tok)
		if nameSkipWords[lower] || selfWords[lower] {
			continue
		}
		parts = append(parts, capitalize(tok))
		if len(parts) == 2 {
			break
		}
	}
	return strings.Join(parts, " ")
}

func tokenize(message string) []string {
	return strings.FieldsFunc(message, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '%'
	})
}

func isCapitalized(word string) bool {
	for _, r := range word {
		return unicode.IsUpper(r)
	}
	return false
}

func capitalize(word string) string {
	runes := []rune(word)
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func anyConsumed(consumed []bool, from, n int) bool {
	for i := from; i < from+n; i++ {
		if consumed[i] {
			return true
		}
	}
	return false
}

func markConsumed(consumed []bool, from, n int) {
	for i := from; i < from+n; i++ {
		consumed[i] = true
	}
}

func remaining(tokens []string, consumed []bool) []string {
	var rest []string
	for i, tok := range tokens {
		if !consumed[i] {
			rest = append(rest, tok)
		}
	}
	return rest
}

// containsPhrase matches whole words only, so "no" does not match "now".
func containsPhrase(tokens []string, phrases []string) bool {
	text := " " + strings.Join(tokens, " ") + " "
	for _, p := range phrases {
		if strings.Contains(text, " "+p+" ") {
			return true
		}
	}
	return false
}
