package dedup

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestStreamFirstSeenWins(t *testing.T) {
	in := strings.Join([]string{
		`{"url":"/p/1","title":"first copy"}`,
		`{"url":"/p/2","title":"other"}`,
		`{"url":"/p/1","title":"second copy"}`,
	}, "\n")
	var out strings.Builder

	res, err := Stream(strings.NewReader(in), &out, "url", testLogger())
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if res.Input != 3 || res.Output != 2 || res.Duplicates != 1 {
		t.Errorf("counts = %+v, want 3/2/1", res)
	}
	if !strings.Contains(out.String(), "first copy") || strings.Contains(out.String(), "second copy") {
		t.Errorf("first occurrence must win:\n%s", out.String())
	}
}

func TestStreamSkipsInvalidAndKeyless(t *testing.T) {
	in := strings.Join([]string{
		`{"url":"/p/1"}`,
		`not json at all`,
		`{"title":"no url field"}`,
		``,
		`{"url":"/p/2"}`,
	}, "\n")
	var out strings.Builder

	res, err := Stream(strings.NewReader(in), &out, "url", testLogger())
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if res.Output != 2 {
		t.Errorf("output = %d, want 2", res.Output)
	}
	if res.Duplicates != 0 {
		t.Errorf("invalid lines are not duplicates: %+v", res)
	}
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.jsonl")
	outPath := filepath.Join(dir, "out.jsonl")
	content := `{"url":"/a"}` + "\n" + `{"url":"/a"}` + "\n" + `{"url":"/b"}` + "\n"
	if err := os.WriteFile(inPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := File(inPath, outPath, "url", testLogger())
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if res.Input != 3 || res.Output != 2 || res.Duplicates != 1 {
		t.Errorf("counts = %+v, want 3/2/1", res)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines++
	}
	if lines != 2 {
		t.Errorf("output has %d lines, want 2", lines)
	}

	// Input must be untouched.
	data, err := os.ReadFile(inPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != content {
		t.Error("input file was modified")
	}
}
