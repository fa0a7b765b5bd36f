package presence

import (
	"reflect"
	"testing"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name       string
		previous   string
		current    string
		transition Transition
		want       []Effect
	}{
		{name: "none to none", transition: TransitionNone},
		{name: "same game", previous: "Chess", current: "Chess", transition: TransitionNone},
		{
			name: "started", current: "Chess", transition: TransitionStarted,
			want: []Effect{
				{EffectOpenSession, "Chess"},
				{EffectCountStarted, "Chess"},
				{EffectIncActive, "Chess"},
			},
		},
		{
			name: "ended", previous: "Chess", transition: TransitionEnded,
			want: []Effect{
				{EffectCloseSession, "Chess"},
				{EffectCountEnded, "Chess"},
				{EffectDecActive, "Chess"},
			},
		},
		{
			name: "switched", previous: "Chess", current: "Go", transition: TransitionSwitched,
			want: []Effect{
				{EffectCloseSession, "Chess"},
				{EffectCountEnded, "Chess"},
				{EffectDecActive, "Chess"},
				{EffectOpenSession, "Go"},
				{EffectCountStarted, "Go"},
				{EffectIncActive, "Go"},
			},
		},
		{
			name: "case differs", previous: "Chess", current: "chess", transition: TransitionSwitched,
			want: []Effect{
				{EffectCloseSession, "Chess"},
				{EffectCountEnded, "Chess"},
				{EffectDecActive, "Chess"},
				{EffectOpenSession, "chess"},
				{EffectCountStarted, "chess"},
				{EffectIncActive, "chess"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.previous, tt.current); got != tt.transition {
				t.Errorf("Classify = %v, want %v", got, tt.transition)
			}
			if got := Plan(tt.previous, tt.current); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Plan = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlayingGame(t *testing.T) {
	tests := []struct {
		name       string
		activities []Activity
		want       string
	}{
		{"empty", nil, ""},
		{"only listening", []Activity{{ActivityListening, "Spotify"}}, ""},
		{"custom then playing", []Activity{{ActivityCustom, "brb"}, {ActivityPlaying, "Chess"}}, "Chess"},
		{"first playing wins", []Activity{{ActivityPlaying, "Chess"}, {ActivityPlaying, "Go"}}, "Chess"},
		{"streaming ignored", []Activity{{ActivityStreaming, "Chess"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlayingGame(tt.activities); got != tt.want {
				t.Errorf("PlayingGame = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSnapshotCache(t *testing.T) {
	c := NewSnapshotCache()
	c.Seed("u1", "Chess")
	c.Seed("u1", "Go") // existing entry kept
	if got := c.Get("u1"); got != "Chess" {
		t.Fatalf("Get = %q, want Chess", got)
	}
	if prev := c.Swap("u1", "Go"); prev != "Chess" {
		t.Fatalf("Swap prev = %q, want Chess", prev)
	}
	if prev := c.Swap("u1", ""); prev != "Go" {
		t.Fatalf("Swap prev = %q, want Go", prev)
	}
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0 after clearing", c.Len())
	}
	if prev := c.Swap("u2", "Chess"); prev != "" {
		t.Fatalf("Swap prev for new user = %q", prev)
	}
}
