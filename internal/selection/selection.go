// Package selection tracks which captured requests the user has picked.
//
// Selection is independent of the filter: ids hidden by the current view stay
// selected, and Intersect decides what an export actually sees.
package selection

import (
	"sort"

	"github.com/dgnsrekt/netpanel/internal/types"
)

// Modifiers are the keyboard modifiers held during a selection gesture.
type Modifiers struct {
	Shift bool `json:"shift,omitempty"`
	Ctrl  bool `json:"ctrl,omitempty"`
	Meta  bool `json:"meta,omitempty"`
}

// State is a set of selected ids plus the anchor used for range selection.
// The zero value is an empty selection. State is not safe for concurrent use.
type State struct {
	selected map[string]struct{}
	anchor   types.Option[string]
}

// New returns an empty selection.
func New() *State {
	return &State{selected: make(map[string]struct{})}
}

func (s *State) ensure() {
	if s.selected == nil {
		s.selected = make(map[string]struct{})
	}
}

// Click makes id the only selected entry.
func (s *State) Click(id string) {
	s.selected = map[string]struct{}{id: {}}
	s.anchor = types.Some(id)
}

// Toggle flips membership of id.
func (s *State) Toggle(id string) {
	s.ensure()
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
	} else {
		s.selected[id] = struct{}{}
	}
	s.anchor = types.Some(id)
}

// Range adds the inclusive span between the anchor and id in visibleIDs to
// the selection. When either end is not visible nothing is added. The anchor
// moves to id in every case.
func (s *State) Range(id string, visibleIDs []string) {
	s.ensure()
	defer func() { s.anchor = types.Some(id) }()

	anchor, ok := s.anchor.Get()
	if !ok {
		return
	}
	from, to := indexOf(visibleIDs, anchor), indexOf(visibleIDs, id)
	if from < 0 || to < 0 {
		return
	}
	if from > to {
		from, to = to, from
	}
	for _, v := range visibleIDs[from : to+1] {
		s.selected[v] = struct{}{}
	}
}

// Apply dispatches a gesture on id. Shift with an anchor selects a range;
// ctrl or meta toggles; anything else is a plain click. Shift without an
// anchor falls through to the other rules.
func (s *State) Apply(id string, visibleIDs []string, mods Modifiers) {
	switch {
	case mods.Shift && s.anchor.IsPresent():
		s.Range(id, visibleIDs)
	case mods.Ctrl || mods.Meta:
		s.Toggle(id)
	default:
		s.Click(id)
	}
}

// SelectAll selects every visible id, or clears the selection when it already
// equals exactly that set. Returns true when the selection is now non-empty.
func (s *State) SelectAll(visibleIDs []string) bool {
	s.ensure()
	if s.equals(visibleIDs) {
		s.selected = make(map[string]struct{})
		return false
	}
	s.selected = make(map[string]struct{}, len(visibleIDs))
	for _, id := range visibleIDs {
		s.selected[id] = struct{}{}
	}
	return len(s.selected) > 0
}

func (s *State) equals(ids []string) bool {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	if len(set) != len(s.selected) {
		return false
	}
	for id := range set {
		if _, ok := s.selected[id]; !ok {
			return false
		}
	}
	return true
}

// Clear empties the selection and forgets the anchor.
func (s *State) Clear() {
	s.selected = make(map[string]struct{})
	s.anchor = types.None[string]()
}

// Has reports whether id is selected.
func (s *State) Has(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// Len returns the number of selected ids.
func (s *State) Len() int {
	return len(s.selected)
}

// Anchor returns the last id touched by a gesture.
func (s *State) Anchor() (string, bool) {
	return s.anchor.Get()
}

// Selected returns the selected ids in sorted order.
func (s *State) Selected() []string {
	out := make([]string, 0, len(s.selected))
	for id := range s.selected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Intersect returns the visible entries that are selected, in visible order.
func Intersect(visible []types.CapturedRequest, s *State) []types.CapturedRequest {
	out := make([]types.CapturedRequest, 0, s.Len())
	for _, r := range visible {
		if s.Has(r.ID) {
			out = append(out, r)
		}
	}
	return out
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
