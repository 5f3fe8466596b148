// Command gleandedup removes duplicate records from a JSONL file, keeping
// the first occurrence of each key.
//
// Usage:
//
//	gleandedup records.jsonl                      # writes records.dedup.jsonl
//	gleandedup -o clean.jsonl -k url records.jsonl
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gleanware/glean/dedup"
)

func main() {
	output := flag.String("o", "", "output path (default: <input>.dedup.jsonl)")
	key := flag.String("k", "url", "record field to deduplicate by")
	quiet := flag.Bool("q", false, "suppress the summary line")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: gleandedup [-o <out>] [-k <key>] <input.jsonl>")
		os.Exit(1)
	}
	input := flag.Arg(0)

	out := *output
	if out == "" {
		out = strings.TrimSuffix(input, ".jsonl") + ".dedup.jsonl"
	}
	if out == input {
		fmt.Fprintln(os.Stderr, "gleandedup: output path equals input path")
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	res, err := dedup.File(input, out, *key, logger)
	if err != nil {
		logger.Error("gleandedup: fatal", "error", err)
		os.Exit(1)
	}

	if !*quiet {
		data, _ := json.Marshal(res)
		os.Stdout.Write(data)
		os.Stdout.Write([]byte("\n"))
	}
}
