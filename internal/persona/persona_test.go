package persona

import (
	"errors"
	"testing"
)

func TestResolveAllPersonasHavePositiveRate(t *testing.T) {
	for _, tag := range All() {
		p, err := Resolve(tag)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", tag, err)
		}
		if p.Rate <= 0 {
			t.Fatalf("Resolve(%q).Rate = %v, want > 0", tag, p.Rate)
		}
		if p.Label == "" {
			t.Fatalf("Resolve(%q).Label is empty", tag)
		}
	}
}

func TestResolveRateOrdering(t *testing.T) {
	male, _ := Resolve(Male)
	female, _ := Resolve(Female)
	alien, _ := Resolve(Alien)
	if !(female.Rate > male.Rate && male.Rate > alien.Rate) {
		t.Fatalf("rates female=%v male=%v alien=%v, want female > male > alien", female.Rate, male.Rate, alien.Rate)
	}
	if male.Pitch != PitchBaseline || female.Pitch != PitchHigh || alien.Pitch != PitchRobotic {
		t.Fatalf("unexpected pitch mapping: male=%q female=%q alien=%q", male.Pitch, female.Pitch, alien.Pitch)
	}
}

func TestResolveUnknownPersona(t *testing.T) {
	_, err := Resolve(Tag("Robot"))
	if !errors.Is(err, ErrUnknownPersona) {
		t.Fatalf("Resolve(Robot) error = %v, want ErrUnknownPersona", err)
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		in      string
		want    Tag
		wantErr bool
	}{
		{"Male", Male, false},
		{"female", Female, false},
		{"  ALIEN ", Alien, false},
		{"", "", true},
		{"robot", "", true},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrUnknownPersona) {
				t.Fatalf("Parse(%q) error = %v, want ErrUnknownPersona", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("Parse(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestNextWraps(t *testing.T) {
	if got := Next(Male); got != Female {
		t.Fatalf("Next(Male) = %q, want Female", got)
	}
	if got := Next(Alien); got != Male {
		t.Fatalf("Next(Alien) = %q, want Male", got)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	a := All()
	a[0] = Alien
	if All()[0] != Male {
		t.Fatalf("All() aliases internal order")
	}
}
