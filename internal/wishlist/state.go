package wishlist

// State is the loader lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoadingFirstPage
	StateLoadingMore
	StateReady
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoadingFirstPage:
		return "loading_first_page"
	case StateLoadingMore:
		return "loading_more"
	case StateReady:
		return "ready"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Loading reports whether a page fetch is in flight.
func (s State) Loading() bool {
	return s == StateLoadingFirstPage || s == StateLoadingMore
}
