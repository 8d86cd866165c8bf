package selection

import (
	"testing"

	"github.com/dgnsrekt/netpanel/internal/types"
	"github.com/google/go-cmp/cmp"
)

var visible = []string{"a", "b", "c", "d", "e", "f", "g"}

func assertSelected(t *testing.T, s *State, want ...string) {
	t.Helper()
	if want == nil {
		want = []string{}
	}
	if diff := cmp.Diff(want, s.Selected()); diff != "" {
		t.Fatalf("Selected() mismatch (-want +got):\n%s", diff)
	}
}

func TestClickReplacesSelection(t *testing.T) {
	s := New()
	s.Click("a")
	s.Click("c")
	assertSelected(t, s, "c")
	if got, _ := s.Anchor(); got != "c" {
		t.Fatalf("Anchor() = %q; want %q", got, "c")
	}
}

func TestToggleFlipsMembership(t *testing.T) {
	s := New()
	s.Apply("a", visible, Modifiers{})
	s.Apply("c", visible, Modifiers{Ctrl: true})
	assertSelected(t, s, "a", "c")
	s.Apply("a", visible, Modifiers{Meta: true})
	assertSelected(t, s, "c")
	if got, _ := s.Anchor(); got != "a" {
		t.Fatalf("Anchor() = %q; want %q", got, "a")
	}
}

func TestRangeIsOrderIndependent(t *testing.T) {
	tests := []struct {
		name           string
		anchor, target string
	}{
		{"forward", "c", "f"},
		{"backward", "f", "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.Click(tt.anchor)
			s.Apply(tt.target, visible, Modifiers{Shift: true})
			assertSelected(t, s, "c", "d", "e", "f")
			if got, _ := s.Anchor(); got != tt.target {
				t.Fatalf("Anchor() = %q; want %q", got, tt.target)
			}
		})
	}
}

func TestRangeAddsToExistingSelection(t *testing.T) {
	s := New()
	s.Click("a")
	s.Apply("e", visible, Modifiers{Ctrl: true})
	s.Apply("g", visible, Modifiers{Shift: true})
	assertSelected(t, s, "a", "e", "f", "g")
}

func TestRangeWithHiddenEndIsNoop(t *testing.T) {
	s := New()
	s.Click("zz")
	s.Apply("c", visible, Modifiers{Shift: true})
	assertSelected(t, s, "zz")
	if got, _ := s.Anchor(); got != "c" {
		t.Fatalf("Anchor() = %q; want %q", got, "c")
	}

	s.Apply("missing", visible, Modifiers{Shift: true})
	assertSelected(t, s, "zz")
}

func TestShiftWithoutAnchorFallsThrough(t *testing.T) {
	s := New()
	s.Apply("b", visible, Modifiers{Shift: true})
	assertSelected(t, s, "b")

	s.Clear()
	s.Click("x")
	s.Clear()
	s.Apply("d", visible, Modifiers{Shift: true, Ctrl: true})
	assertSelected(t, s, "d")
}

func TestSelectAllToggleLaw(t *testing.T) {
	starts := map[string]func(*State){
		"empty":    func(*State) {},
		"partial":  func(s *State) { s.Click("b") },
		"superset": func(s *State) { s.SelectAll(visible); s.Toggle("hidden") },
	}
	for name, setup := range starts {
		t.Run(name, func(t *testing.T) {
			s := New()
			setup(s)
			s.SelectAll(visible)
			assertSelected(t, s, visible...)
			s.SelectAll(visible)
			assertSelected(t, s)
		})
	}
}

func TestSelectAllIgnoresOrderAndDuplicates(t *testing.T) {
	s := New()
	s.SelectAll([]string{"c", "a", "b"})
	if on := s.SelectAll([]string{"a", "b", "c", "a"}); on {
		t.Fatalf("SelectAll() = true; want false when selection already equals the visible set")
	}
	assertSelected(t, s)
}

func TestClearForgetsAnchor(t *testing.T) {
	s := New()
	s.Click("a")
	s.Clear()
	assertSelected(t, s)
	if _, ok := s.Anchor(); ok {
		t.Fatalf("Anchor() present after Clear")
	}
}

func TestZeroValueIsUsable(t *testing.T) {
	var s State
	if s.Has("a") {
		t.Fatalf("Has(a) = true on zero State")
	}
	s.Toggle("a")
	if !s.Has("a") {
		t.Fatalf("Has(a) = false after Toggle")
	}
}

func TestIntersectKeepsVisibleOrder(t *testing.T) {
	reqs := []types.CapturedRequest{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	s := New()
	s.Click("d")
	s.Toggle("b")
	s.Toggle("hidden")

	var got []string
	for _, r := range Intersect(reqs, s) {
		got = append(got, r.ID)
	}
	if diff := cmp.Diff([]string{"b", "d"}, got); diff != "" {
		t.Fatalf("Intersect() mismatch (-want +got):\n%s", diff)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d; want 3 (hidden ids stay selected)", s.Len())
	}
}
