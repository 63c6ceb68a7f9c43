package retrieval

import (
	"strings"
	"unicode"
)

// Intent is the kind of message a user sent.
type Intent int

const (
	// IntentDocumentQuery asks something the documents may answer.
	IntentDocumentQuery Intent = iota
	IntentGreeting
	IntentAboutAssistant
	IntentSmallTalk
)

func (i Intent) String() string {
	switch i {
	case IntentGreeting:
		return "greeting"
	case IntentAboutAssistant:
		return "about_assistant"
	case IntentSmallTalk:
		return "small_talk"
	default:
		return "document_query"
	}
}

// MarshalText encodes the intent by name.
func (i Intent) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

const (
	maxGreetingWords  = 3
	maxSmallTalkWords = 5
)

var (
	greetingPhrases = phrases(
		"hello", "hi", "hey", "greetings", "good morning", "good afternoon",
		"good evening", "howdy", "sup", "yo",
	)
	aboutPhrases = phrases(
		"what is locket", "what are you", "who are you", "tell me about yourself",
		"what do you do", "your purpose", "what can you do",
	)
	smallTalkPhrases = phrases(
		"how are you", "what's up", "thank you", "thanks", "bye", "goodbye",
		"nice", "cool", "okay", "ok", "got it", "i see", "interesting",
	)
)

// Classify decides how a message is answered. Checks run in order:
// greeting, question about the assistant, small talk. Anything else is a
// document query.
func Classify(message string) Intent {
	tokens := tokenize(message)
	if len(tokens) == 0 {
		return IntentDocumentQuery
	}
	switch {
	case isGreeting(tokens):
		return IntentGreeting
	case containsAny(tokens, aboutPhrases):
		return IntentAboutAssistant
	case len(tokens) <= maxSmallTalkWords && containsAny(tokens, smallTalkPhrases):
		return IntentSmallTalk
	default:
		return IntentDocumentQuery
	}
}

// isGreeting accepts a message of at most maxGreetingWords words that
// opens with a greeting phrase.
func isGreeting(tokens []string) bool {
	if len(tokens) > maxGreetingWords {
		return false
	}
	for _, p := range greetingPhrases {
		if hasPrefix(tokens, p) {
			return true
		}
	}
	return false
}

func containsAny(tokens []string, set [][]string) bool {
	for _, p := range set {
		for i := 0; i+len(p) <= len(tokens); i++ {
			if hasPrefix(tokens[i:], p) {
				return true
			}
		}
	}
	return false
}

func hasPrefix(tokens, phrase []string) bool {
	if len(phrase) > len(tokens) {
		return false
	}
	for i, w := range phrase {
		if tokens[i] != w {
			return false
		}
	}
	return true
}

// tokenize lowercases message and splits it into words. Apostrophes stay
// inside words so "what's" is one token.
func tokenize(message string) []string {
	return strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '’')
	})
}

func phrases(list ...string) [][]string {
	out := make([][]string, len(list))
	for i, p := range list {
		out[i] = strings.Fields(p)
	}
	return out
}
