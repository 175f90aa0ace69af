package persona

import (
	"errors"
	"fmt"
	"strings"
)

// Tag identifies one of the fixed voice personas.
type Tag string

const (
	Male   Tag = "Male"
	Female Tag = "Female"
	Alien  Tag = "Alien"
)

// Pitch is an engine-neutral pitch descriptor. Speech backends translate it
// into whatever knob they expose (voice choice, pitch value, etc).
type Pitch string

const (
	PitchBaseline Pitch = "baseline"
	PitchHigh     Pitch = "high"
	PitchRobotic  Pitch = "robotic"
)

var ErrUnknownPersona = errors.New("unknown persona")

// VoiceParameters are the speech tuning values for one persona.
type VoiceParameters struct {
	Rate  float64 `json:"rate"`
	Pitch Pitch   `json:"pitch"`
	Label string  `json:"label"`
}

var profiles = map[Tag]VoiceParameters{
	Male:   {Rate: 1.0, Pitch: PitchBaseline, Label: "Male"},
	Female: {Rate: 1.15, Pitch: PitchHigh, Label: "Female"},
	Alien:  {Rate: 0.75, Pitch: PitchRobotic, Label: "Alien"},
}

var order = []Tag{Male, Female, Alien}

// Resolve returns the voice parameters for tag.
func Resolve(tag Tag) (VoiceParameters, error) {
	p, ok := profiles[tag]
	if !ok {
		return VoiceParameters{}, fmt.Errorf("%w: %q", ErrUnknownPersona, string(tag))
	}
	return p, nil
}

// Parse maps user input such as "female" or " ALIEN " onto a Tag.
func Parse(raw string) (Tag, error) {
	v := strings.TrimSpace(raw)
	for _, t := range order {
		if strings.EqualFold(v, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPersona, raw)
}

// All lists the personas in display order.
func All() []Tag {
	out := make([]Tag, len(order))
	copy(out, order)
	return out
}

// Next returns the persona after tag in display order, wrapping around.
func Next(tag Tag) Tag {
	for i, t := range order {
		if t == tag {
			return order[(i+1)%len(order)]
		}
	}
	return order[0]
}

func (t Tag) String() string { return string(t) }

// Valid reports whether t is one of the fixed personas.
func (t Tag) Valid() bool {
	_, ok := profiles[t]
	return ok
}
