package brain

import (
	"strings"
	"unicode"
)

// Rule maps any of its keywords to a canned reply. Keywords are matched
// against whole words, so "hi" does not fire on "this".
type Rule struct {
	Name     string
	Keywords []string
	Reply    string
}

const demoFallbackReply = "I heard you! I'm running in demo mode, so my answers are limited. Add an OpenAI API key for real AI responses."

// demoRules are checked in order; the first match wins.
var demoRules = []Rule{
	{
		Name:     "greeting",
		Keywords: []string{"hello", "hi", "hey", "greetings", "howdy", "good morning", "good afternoon", "good evening"},
		Reply:    "Hello! I'm ARIA, your futuristic voice assistant. This is a demo version!",
	},
	{
		Name:     "farewell",
		Keywords: []string{"bye", "goodbye", "good night", "see you", "farewell"},
		Reply:    "Thank you for trying out this futuristic voice assistant demo! Goodbye!",
	},
	{
		Name:     "thanks",
		Keywords: []string{"thanks", "thank you", "cheers"},
		Reply:    "You're welcome! My systems are working perfectly.",
	},
	{
		Name:     "identity",
		Keywords: []string{"who are you", "your name", "what are you"},
		Reply:    "I'm ARIA. I would normally be powered by GPT-4, but this demo works offline!",
	},
	{
		Name:     "voice",
		Keywords: []string{"voice", "voices", "persona", "alien", "female", "male"},
		Reply:    "You can test the male, female and alien voice modes with the persona selector.",
	},
	{
		Name:     "help",
		Keywords: []string{"help", "demo", "what can you do", "how does"},
		Reply:    "In this demo, I can show you how the voice assistant interface works. Add an OpenAI API key for real AI responses!",
	},
}

// Rules returns the demo rule table in match order.
func Rules() []Rule {
	out := make([]Rule, len(demoRules))
	copy(out, demoRules)
	return out
}

// MatchRule returns the first rule whose keywords appear in text.
func MatchRule(text string) (Rule, bool) {
	padded := " " + normalizeWords(text) + " "
	if strings.TrimSpace(padded) == "" {
		return Rule{}, false
	}
	for _, r := range demoRules {
		for _, kw := range r.Keywords {
			if strings.Contains(padded, " "+kw+" ") {
				return r, true
			}
		}
	}
	return Rule{}, false
}

// DemoReply is the offline reply for text. It depends on nothing but text.
func DemoReply(text string) string {
	if r, ok := MatchRule(text); ok {
		return r.Reply
	}
	return demoFallbackReply
}

// normalizeWords lower-cases text and collapses every run of non-letter,
// non-digit characters into a single space.
func normalizeWords(text string) string {
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(text)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	return strings.Join(fields, " ")
}
