package flow_test

import (
	"errors"
	"testing"

	"github.com/mhalder/overbot/internal/flow"
)

func TestSelectIndex(t *testing.T) {
	candidates := []string{"A", "B", "C"}

	tests := []struct {
		name  string
		text  string
		want  string
		match bool
	}{
		{name: "second", text: "2", want: "B", match: true},
		{name: "first", text: "1", want: "A", match: true},
		{name: "last", text: "3", want: "C", match: true},
		{name: "zero is out of range", text: "0", match: false},
		{name: "past the end", text: "9", match: false},
		{name: "not a number", text: "x", match: false},
		{name: "negative", text: "-1", match: false},
		{name: "whitespace tolerated", text: " 2 ", want: "B", match: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := flow.SelectIndex(candidates, tt.text)
			if ok != tt.match {
				t.Fatalf("SelectIndex(%q) match = %v, want %v", tt.text, ok, tt.match)
			}
			if ok && got != tt.want {
				t.Errorf("SelectIndex(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestSelectIndex_EmptyCandidates(t *testing.T) {
	if _, ok := flow.SelectIndex([]string{}, "1"); ok {
		t.Error("expected no match against empty candidates")
	}
}

func TestResolveKind(t *testing.T) {
	tests := []struct {
		prefix  string
		want    string
		wantErr bool
	}{
		{prefix: "app", want: "approved"},
		{prefix: "a", wantErr: true}, // ambiguous: all, approved, available
		{prefix: "pe", want: "pending"},
		{prefix: "pr", want: "processing"},
		{prefix: "p", wantErr: true}, // ambiguous: pending, processing
		{prefix: "u", want: "unavailable"},
		{prefix: "f", want: "failed"},
		{prefix: "all", want: "all"},
		{prefix: "ALL", want: "all"},
		{prefix: "", want: "all"},
		{prefix: "zzz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			got, err := flow.ResolveKind(tt.prefix)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ResolveKind(%q) = %q, want error", tt.prefix, got)
				}
				var filterErr *flow.KindFilterError
				if !errors.As(err, &filterErr) {
					t.Fatalf("ResolveKind(%q) error is %T, want *KindFilterError", tt.prefix, err)
				}
				if filterErr.UserMessage() == "" {
					t.Error("expected a user-facing message")
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveKind(%q) unexpected error: %v", tt.prefix, err)
			}
			if got != tt.want {
				t.Errorf("ResolveKind(%q) = %q, want %q", tt.prefix, got, tt.want)
			}
		})
	}
}

func TestParseTurn_SearchStage(t *testing.T) {
	unselected := flow.Stage{}
	selected := flow.Stage{Selected: true}

	if cmd, ok := flow.ParseTurn("more", unselected); !ok || cmd.Kind != flow.KindMore {
		t.Errorf("expected more to parse before selection, got %+v ok=%v", cmd, ok)
	}
	if cmd, ok := flow.ParseTurn("M", unselected); !ok || cmd.Kind != flow.KindMore {
		t.Errorf("expected short form to parse, got %+v ok=%v", cmd, ok)
	}

	// Selection-only commands are illegal before a result is picked.
	if _, ok := flow.ParseTurn("cover", unselected); ok {
		t.Error("cover should not parse before selection")
	}
	if _, ok := flow.ParseTurn("request", unselected); ok {
		t.Error("request should not parse before selection")
	}

	if cmd, ok := flow.ParseTurn("cover", selected); !ok || cmd.Kind != flow.KindCover {
		t.Errorf("expected cover to parse, got %+v ok=%v", cmd, ok)
	}
	if cmd, ok := flow.ParseTurn("REQ", selected); !ok || cmd.Kind != flow.KindRequest {
		t.Errorf("expected req to parse, got %+v ok=%v", cmd, ok)
	}

	cmd, ok := flow.ParseTurn("request 4k in movies", selected)
	if !ok || cmd.Kind != flow.KindRequest {
		t.Fatalf("expected request with params to parse, got %+v ok=%v", cmd, ok)
	}
	if cmd.Params != "4k in movies" {
		t.Errorf("params = %q, want %q", cmd.Params, "4k in movies")
	}

	// Prefix-tolerant does not mean arbitrary prefixes.
	if _, ok := flow.ParseTurn("mo", unselected); ok {
		t.Error("\"mo\" is not a recognized form of more")
	}
	if _, ok := flow.ParseTurn("requ", selected); ok {
		t.Error("\"requ\" is not a recognized form of request")
	}
}

func TestParseTurn_BrowseStage(t *testing.T) {
	pending := flow.Stage{Selected: true, Pending: true, Browse: true}
	settled := flow.Stage{Selected: true, Browse: true}

	if cmd, ok := flow.ParseTurn("a", pending); !ok || cmd.Kind != flow.KindApprove {
		t.Errorf("expected approve while pending, got %+v ok=%v", cmd, ok)
	}
	if cmd, ok := flow.ParseTurn("decline", pending); !ok || cmd.Kind != flow.KindDecline {
		t.Errorf("expected decline while pending, got %+v ok=%v", cmd, ok)
	}

	// Approve/decline are only offered while the media is pending.
	if _, ok := flow.ParseTurn("approve", settled); ok {
		t.Error("approve should not parse when not pending")
	}
	if _, ok := flow.ParseTurn("d", settled); ok {
		t.Error("decline should not parse when not pending")
	}

	if cmd, ok := flow.ParseTurn("r", settled); !ok || cmd.Kind != flow.KindRetry {
		t.Errorf("expected r to mean retry while browsing, got %+v ok=%v", cmd, ok)
	}
	if cmd, ok := flow.ParseTurn("del", settled); !ok || cmd.Kind != flow.KindDelete {
		t.Errorf("expected del to parse, got %+v ok=%v", cmd, ok)
	}
	if cmd, ok := flow.ParseTurn("DELETE", settled); !ok || cmd.Kind != flow.KindDelete {
		t.Errorf("expected delete to parse, got %+v ok=%v", cmd, ok)
	}

	// The search-style request command does not exist while browsing.
	if cmd, ok := flow.ParseTurn("request 4k", settled); ok {
		t.Errorf("request should not parse while browsing, got %+v", cmd)
	}
}
