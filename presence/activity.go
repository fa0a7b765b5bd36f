// Package presence turns presence updates into game session spans.
//
// The planner is pure: Plan maps a (previous, current) pair of game names onto an
// ordered list of effects. The Tracker applies those effects against the session
// store and metrics sink. Because the gateway only delivers the new presence, a
// SnapshotCache remembers the last game seen per user, and the Dispatcher
// serializes events per user so the two sides of a transition are never observed
// out of order.
package presence

// ActivityKind mirrors the gateway activity type values.
type ActivityKind int

const (
	ActivityPlaying ActivityKind = iota
	ActivityStreaming
	ActivityListening
	ActivityWatching
	ActivityCustom
	ActivityCompeting
)

// Activity is a single presence activity.
type Activity struct {
	Kind ActivityKind
	Name string
}

// PlayingGame returns the name of the first Playing activity, or "" when none.
func PlayingGame(activities []Activity) string {
	for _, a := range activities {
		if a.Kind == ActivityPlaying && a.Name != "" {
			return a.Name
		}
	}
	return ""
}
