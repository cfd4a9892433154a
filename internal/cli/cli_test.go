package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bastiangx/battserve/pkg/cart"
	"github.com/bastiangx/battserve/pkg/catalog"
	"github.com/bastiangx/battserve/pkg/match"
)

func newTestEngine(t *testing.T) *match.Engine {
	t.Helper()
	c, err := catalog.New([]catalog.Record{
		{ID: "BLP885", Name: "VIVO Y12 BLP885 Battery"},
		{ID: "BM58", Name: "XIAOMI REDMI 9 BM58 Battery"},
		{ID: "BN47", Name: "XIAOMI REDMI NOTE 9 BN47"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return match.NewEngine(c, match.DefaultOptions())
}

func TestMatchSpans(t *testing.T) {
	testCases := []struct {
		name        string
		query       string
		expected    [][2]int
		description string
	}{
		{"XIAOMI REDMI 9 BM58 Battery", "redmi", [][2]int{{7, 12}}, "Whole query"},
		{"XIAOMI REDMI NOTE 9 BN47", "note redmi", [][2]int{{7, 12}, {13, 17}}, "Tokens in name order"},
		{"XIAOMI REDMI NOTE 9 BN47", "redmi x", [][2]int{{7, 12}}, "Single rune token skipped"},
		{"VIVO Y12 BLP885 Battery", "zzzz", nil, "No match"},
		{"VIVO Y12 BLP885 Battery", "   ", nil, "Blank"},
		{"Ładowarka BL-5C", "bl-5c", [][2]int{{10, 15}}, "Runes not bytes"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			got := matchSpans(tc.name, tc.query)
			if len(got) != len(tc.expected) {
				t.Fatalf("got %v, expected %v", got, tc.expected)
			}
			for i := range got {
				if got[i] != tc.expected[i] {
					t.Errorf("span %d: got %v, expected %v", i, got[i], tc.expected[i])
				}
			}
		})
	}
}

func TestMergeSpans(t *testing.T) {
	got := mergeSpans([][2]int{{5, 9}, {0, 3}, {2, 4}, {9, 10}})
	expected := [][2]int{{0, 4}, {5, 10}}
	if len(got) != len(expected) || got[0] != expected[0] || got[1] != expected[1] {
		t.Errorf("got %v, expected %v", got, expected)
	}
}

func TestHighlightKeepsText(t *testing.T) {
	name := "XIAOMI REDMI NOTE 9 BN47"
	got := Highlight(name, "note")
	for _, part := range []string{"XIAOMI REDMI ", "NOTE", " 9 BN47"} {
		if !strings.Contains(got, part) {
			t.Errorf("%q missing from %q", part, got)
		}
	}
	if Highlight(name, "zzzz") != name {
		t.Error("names without a match must be returned unchanged")
	}
}

func TestInputHandler(t *testing.T) {
	input := strings.Join([]string{
		"redmi",
		":add 2",
		":add BLP885",
		":add BLP885",
		":qty BN47 4",
		":rm BLP885",
		":cart",
		":add NOPE",
		":ids BN",
		":ids Q",
		"zzzz",
		":quit",
		"never read",
	}, "\n")

	var out bytes.Buffer
	selection := cart.NewList(cart.NewMemoryStore())
	h := NewInputHandlerWithIO(newTestEngine(t), selection, true, strings.NewReader(input), &out)

	if err := h.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	items := selection.Items()
	if len(items) != 1 || items[0].ID != "BN47" || items[0].Qty != 4 {
		t.Errorf("unexpected cart: %+v", items)
	}

	text := out.String()
	for _, want := range []string{
		"Found 2 matches for 'redmi'",
		"BM58",
		"exact",
		"Added BN47 (x1)",
		"Added BLP885 (x2)",
		"BN47 now x4",
		"Removed BLP885",
		"Unknown record: NOPE",
		"1. BN47",
		"No ids start with Q",
		"No matches for 'zzzz'",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if h.requestCount != 2 {
		t.Errorf("expected 2 queries, got %d", h.requestCount)
	}
}

func TestInputHandlerEOF(t *testing.T) {
	var out bytes.Buffer
	h := NewInputHandlerWithIO(newTestEngine(t), nil, false, strings.NewReader("BLP885"), &out)

	if err := h.Start(); err != nil {
		t.Fatalf("end of input should stop cleanly: %v", err)
	}
	if strings.Contains(out.String(), "exact") {
		t.Error("scores shown although disabled")
	}
	if !strings.Contains(out.String(), "BLP885") {
		t.Errorf("result missing:\n%s", out.String())
	}
}
