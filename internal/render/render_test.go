package render

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func baseCtx() Context {
	return Context{
		TeamEmail: "team@example.com",
		TeamName:  "Platform",
	}
}

func TestRender_EmptyListsOmitSections(t *testing.T) {
	out, err := Render(baseCtx())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "Were these items done?") {
		t.Fatalf("todos header present with empty list:\n%s", out)
	}
	if strings.Contains(out, "Were these blockers addressed?") {
		t.Fatalf("blockers header present with empty list:\n%s", out)
	}
}

func TestRender_NilListEqualsEmptyList(t *testing.T) {
	a := baseCtx()
	a.PreviousTodos = nil
	a.PreviousBlockers = nil

	b := baseCtx()
	b.PreviousTodos = []string{}
	b.PreviousBlockers = []string{}

	outA, err := Render(a)
	if err != nil {
		t.Fatalf("nil lists: %v", err)
	}
	outB, err := Render(b)
	if err != nil {
		t.Fatalf("empty lists: %v", err)
	}
	if outA != outB {
		t.Fatalf("nil and empty lists rendered differently:\n%q\nvs\n%q", outA, outB)
	}
}

func TestRender_TodosHeaderAndOrder(t *testing.T) {
	ctx := baseCtx()
	ctx.PreviousTodos = []string{"Fix bug A", "Write doc B"}

	out, err := Render(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hdr := strings.Index(out, "Were these items done?")
	if hdr < 0 {
		t.Fatalf("missing todos header:\n%s", out)
	}
	first := strings.Index(out, "Fix bug A")
	second := strings.Index(out, "Write doc B")
	if first < 0 || second < 0 {
		t.Fatalf("todo items not echoed verbatim:\n%s", out)
	}
	if !(hdr < first && first < second) {
		t.Fatalf("items out of order: hdr=%d first=%d second=%d", hdr, first, second)
	}

	// Cada item en su propia línea bullet.
	for _, item := range ctx.PreviousTodos {
		if !strings.Contains(out, "  + "+item+"\n") {
			t.Fatalf("missing bullet line for %q:\n%s", item, out)
		}
	}
}

func TestRender_BlockersSection(t *testing.T) {
	ctx := baseCtx()
	ctx.PreviousBlockers = []string{"Waiting on access"}

	out, err := Render(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hdr := strings.Index(out, "Were these blockers addressed?")
	if hdr < 0 {
		t.Fatalf("missing blockers header:\n%s", out)
	}
	line := strings.Index(out, "  * Waiting on access\n")
	if line < 0 {
		t.Fatalf("missing blocker bullet:\n%s", out)
	}
	if line < hdr {
		t.Fatalf("bullet before header")
	}
	if strings.Contains(out, "Were these items done?") {
		t.Fatalf("todos header present without todos")
	}
}

func TestRender_InterpolatesExactlyOnce(t *testing.T) {
	out, err := Render(baseCtx())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := strings.Count(out, "team@example.com"); n != 1 {
		t.Fatalf("team email appears %d times, want 1:\n%s", n, out)
	}
	if n := strings.Count(out, "Platform"); n != 1 {
		t.Fatalf("team name appears %d times, want 1:\n%s", n, out)
	}
}

func TestRender_Deterministic(t *testing.T) {
	ctx := baseCtx()
	ctx.PreviousTodos = []string{"a", "b", "c"}
	ctx.PreviousBlockers = []string{"x"}

	first, err := Render(ctx)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := Render(ctx)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if first != second {
		t.Fatalf("render is not deterministic")
	}
}

func TestRender_LargeListsNoTruncation(t *testing.T) {
	ctx := baseCtx()
	for i := 0; i < 5000; i++ {
		ctx.PreviousTodos = append(ctx.PreviousTodos, fmt.Sprintf("todo item %04d", i))
	}

	out, err := Render(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "todo item 0000") || !strings.Contains(out, "todo item 4999") {
		t.Fatalf("large list truncated")
	}
}

func TestRender_MissingRequiredFields(t *testing.T) {
	cases := []struct {
		name  string
		ctx   Context
		field string
	}{
		{"no email", Context{TeamName: "Platform"}, "team_email"},
		{"no name", Context{TeamEmail: "team@example.com"}, "team_name"},
		{"blank email", Context{TeamEmail: "   ", TeamName: "Platform"}, "team_email"},
	}
	for _, tc := range cases {
		_, err := Render(tc.ctx)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		var mf *MissingFieldError
		if !errors.As(err, &mf) {
			t.Fatalf("%s: expected *MissingFieldError, got %T", tc.name, err)
		}
		if mf.Field != tc.field {
			t.Fatalf("%s: field = %q, want %q", tc.name, mf.Field, tc.field)
		}
	}
}

func TestRender_SectionOrderIsFixed(t *testing.T) {
	ctx := baseCtx()
	ctx.PreviousTodos = []string{"todo"}
	ctx.PreviousBlockers = []string{"blocker"}

	out, err := Render(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	idx := func(s string) int {
		i := strings.Index(out, s)
		if i < 0 {
			t.Fatalf("missing %q in output:\n%s", s, out)
		}
		return i
	}

	instructions := idx("For example:")
	todos := idx("Were these items done?")
	blockers := idx("Were these blockers addressed?")
	tip := idx("team@example.com")
	closing := idx("Platform")

	if !(instructions < todos && todos < blockers && blockers < tip && tip < closing) {
		t.Fatalf("sections out of order: %d %d %d %d %d",
			instructions, todos, blockers, tip, closing)
	}
}
