package main

import (
	"testing"
)

func TestHelp(t *testing.T) {
	if code := run([]string{"-h"}); code != 0 {
		t.Fatalf("expected help to return 0, got %d", code)
	}
}

func TestUnknownSubcommand(t *testing.T) {
	if code := run([]string{"unknown"}); code == 0 {
		t.Fatalf("expected non-zero for unknown subcommand")
	}
}

func TestVersion(t *testing.T) {
	if code := run([]string{"version"}); code != 0 {
		t.Fatalf("expected version to return 0, got %d", code)
	}
}

func TestSubcommandHelp(t *testing.T) {
	for _, sub := range []string{"serve", "generate", "publish"} {
		if code := run([]string{sub, "-h"}); code != 0 {
			t.Fatalf("%s -h returned %d", sub, code)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example , ,https://b.example")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("splitList = %v", got)
	}
	if splitList("") != nil {
		t.Fatalf("expected nil for empty input")
	}
}
