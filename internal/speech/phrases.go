package speech

import "sync"

var demoPhrases = []string{
	"Hello ARIA, how are you today?",
	"Can you tell me about this demo?",
	"What features do you have?",
	"This interface looks amazing!",
	"How does the voice recognition work?",
	"Show me the different voice modes",
	"What can you help me with?",
	"This is a great demonstration!",
}

// PhraseSource stands in for speech recognition by cycling through canned
// utterances.
type PhraseSource struct {
	mu      sync.Mutex
	phrases []string
	next    int
}

// NewPhraseSource uses the built-in phrases when none are given.
func NewPhraseSource(phrases ...string) *PhraseSource {
	if len(phrases) == 0 {
		phrases = demoPhrases
	}
	return &PhraseSource{phrases: append([]string(nil), phrases...)}
}

// Listen returns the next phrase, wrapping after the last one.
func (p *PhraseSource) Listen() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	phrase := p.phrases[p.next%len(p.phrases)]
	p.next++
	return phrase
}
