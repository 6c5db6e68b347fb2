package model

// LoadState tracks the population of one lazily imported component group.
type LoadState int

const (
	// Unloaded groups have no backing store; the next access imports them.
	Unloaded LoadState = iota
	// Loading groups are being filled by the importer. Re-entrant access sees
	// the partially filled store and does not trigger a second import.
	Loading
	// Loaded groups are complete and are never imported again unless reset.
	Loaded
)

func (s LoadState) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "invalid"
	}
}

// loadGroup is the import coordinator for a single component group.
type loadGroup struct {
	state LoadState
	// alloc installs an empty store, reset drops it.
	alloc func()
	reset func()
}

// ensure imports the group at most once. load runs with the store allocated and
// the state set to Loading; when it fails the group falls back to Unloaded.
func (g *loadGroup) ensure(load func() error) error {
	if g.state != Unloaded {
		return nil
	}
	g.alloc()
	g.state = Loading
	if load != nil {
		if err := load(); err != nil {
			g.reset()
			g.state = Unloaded
			return err
		}
	}
	g.state = Loaded
	return nil
}

// set marks the group as pre-populated (keeping any content already received)
// or clears it so the next access imports again.
func (g *loadGroup) set(imported bool) {
	if imported {
		if g.state == Unloaded {
			g.alloc()
		}
		g.state = Loaded
		return
	}
	g.reset()
	g.state = Unloaded
}
