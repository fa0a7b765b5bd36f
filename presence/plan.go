package presence

// Transition classifies a (previous, current) pair.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionStarted
	TransitionEnded
	TransitionSwitched
)

func (t Transition) String() string {
	switch t {
	case TransitionStarted:
		return "started"
	case TransitionEnded:
		return "ended"
	case TransitionSwitched:
		return "switched"
	default:
		return "none"
	}
}

// EffectKind names one side effect of a transition.
type EffectKind int

const (
	EffectCloseSession EffectKind = iota + 1
	EffectCountEnded
	EffectDecActive
	EffectOpenSession
	EffectCountStarted
	EffectIncActive
)

func (k EffectKind) String() string {
	switch k {
	case EffectCloseSession:
		return "close_session"
	case EffectCountEnded:
		return "count_ended"
	case EffectDecActive:
		return "dec_active"
	case EffectOpenSession:
		return "open_session"
	case EffectCountStarted:
		return "count_started"
	case EffectIncActive:
		return "inc_active"
	default:
		return "unknown"
	}
}

// Effect is an action against the store or metrics for one game.
type Effect struct {
	Kind EffectKind
	Game string
}

// Classify names the transition between two game names. "" means no game.
// Names compare exactly; "Chess" and "chess" are different games.
func Classify(previous, current string) Transition {
	switch {
	case previous == current:
		return TransitionNone
	case previous == "":
		return TransitionStarted
	case current == "":
		return TransitionEnded
	default:
		return TransitionSwitched
	}
}

// Plan returns the ordered effects for a transition. Ending effects always come
// before starting effects.
func Plan(previous, current string) []Effect {
	switch Classify(previous, current) {
	case TransitionStarted:
		return starting(current)
	case TransitionEnded:
		return ending(previous)
	case TransitionSwitched:
		return append(ending(previous), starting(current)...)
	default:
		return nil
	}
}

func ending(game string) []Effect {
	return []Effect{
		{Kind: EffectCloseSession, Game: game},
		{Kind: EffectCountEnded, Game: game},
		{Kind: EffectDecActive, Game: game},
	}
}

func starting(game string) []Effect {
	return []Effect{
		{Kind: EffectOpenSession, Game: game},
		{Kind: EffectCountStarted, Game: game},
		{Kind: EffectIncActive, Game: game},
	}
}
