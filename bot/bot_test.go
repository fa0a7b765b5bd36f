package bot

import (
	"context"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/playtime/commands"
	"github.com/onnwee/playtime/presence"
)

type collectHandler struct {
	mu      sync.Mutex
	updates []presence.Update
}

func (c *collectHandler) Handle(ctx context.Context, u presence.Update) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, u)
	return nil
}

func TestPresenceUpdateFlowsThroughDispatcher(t *testing.T) {
	h := &collectHandler{}
	cache := presence.NewSnapshotCache()
	d := presence.NewDispatcher(h, cache, 2, 4)
	d.Start(context.Background())

	b, err := New(Options{Token: "x"}, d, cache, commands.NewRouter(nil))
	if err != nil {
		t.Fatal(err)
	}

	// A partial user is resolved from the state member cache.
	if err := b.session.State.GuildAdd(&discordgo.Guild{ID: "g1"}); err != nil {
		t.Fatalf("guild add: %v", err)
	}
	if err := b.session.State.MemberAdd(&discordgo.Member{
		GuildID: "g1",
		User:    &discordgo.User{ID: "1", Username: "alice"},
		Nick:    "Ali",
	}); err != nil {
		t.Fatalf("member add: %v", err)
	}

	send := func(game string) {
		p := &discordgo.PresenceUpdate{GuildID: "g1", Presence: discordgo.Presence{User: &discordgo.User{ID: "1"}}}
		if game != "" {
			p.Activities = []*discordgo.Activity{{Name: game, Type: discordgo.ActivityTypeGame}}
		}
		b.onPresenceUpdate(b.session, p)
	}
	send("Chess")
	send("Go")
	send("")
	b.onPresenceUpdate(b.session, &discordgo.PresenceUpdate{GuildID: "g1"})
	d.Stop()

	if len(h.updates) != 3 {
		t.Fatalf("got %d updates, want 3", len(h.updates))
	}
	want := [][2]string{{"", "Chess"}, {"Chess", "Go"}, {"Go", ""}}
	for i, u := range h.updates {
		if u.Previous != want[i][0] || u.Current != want[i][1] {
			t.Errorf("update %d = %q->%q, want %q->%q", i, u.Previous, u.Current, want[i][0], want[i][1])
		}
		if u.User.Name != "alice" || u.User.DisplayName != "Ali" {
			t.Errorf("update %d user = %+v", i, u.User)
		}
	}
}
