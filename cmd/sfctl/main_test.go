package main

import (
	"errors"
	"strings"
	"testing"

	"storefront/internal/catalog"
	"storefront/internal/page"
)

func TestReorderArgs(t *testing.T) {
	got := reorderArgs([]string{"shoes", "-page", "2", "-state", "-config=x.yaml"}, "state")
	want := []string{"-page", "2", "-state", "-config=x.yaml", "shoes"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("expected %v, got %v", want, got)
	}
	got = reorderArgs([]string{"-state", "shoes"})
	if len(got) != 2 || got[0] != "-state" || got[1] != "shoes" {
		t.Fatalf("without bool hint the value is consumed: %v", got)
	}
}

func TestStepPage(t *testing.T) {
	st := page.State{NavParams: &catalog.NavParams{TotalCount: 45, Size: 20, Page: 2}}
	loc := page.ParseLocation("/shoes?page=2")

	next, ok := stepPage(loc, st, 1)
	if !ok || next.String() != "/shoes?page=3" {
		t.Fatalf("expected page 3, got %s (%v)", next, ok)
	}
	if _, ok := stepPage(page.ParseLocation("/shoes?page=3"), st, 1); ok {
		t.Fatal("cannot step past the last page")
	}
	prev, ok := stepPage(loc, st, -1)
	if !ok || prev.String() != "/shoes?page=1" {
		t.Fatalf("expected page 1, got %s", prev)
	}
	if _, ok := stepPage(loc, page.State{}, 1); ok {
		t.Fatal("no nav params means no paging")
	}
}

func TestTextView(t *testing.T) {
	st := page.State{
		Section: &catalog.Section{Code: "shoes", Name: "Shoes"},
		Items: []catalog.Item{{
			Name:         "Runner",
			SelectedData: &catalog.SelectedData{Article: "A-1"},
			Properties: catalog.Properties{RatingReview: struct {
				Value catalog.Rating `json:"VALUE"`
			}{Value: "3"}},
		}},
		NavParams: &catalog.NavParams{TotalCount: 45, Size: 20, Page: 2},
	}
	out := textView(st, "\r\n")
	for _, want := range []string{"Shoes\r\n", " 1. Runner [A-1] ..*..\r\n", "page 2/3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}

	loading := textView(page.State{Loading: true, Err: errors.New("boom")}, "\n")
	if !strings.Contains(loading, "loading...") || !strings.Contains(loading, "error: boom") {
		t.Fatalf("unexpected loading view:\n%s", loading)
	}
}
