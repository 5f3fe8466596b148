// Package dedup collapses duplicate records in JSON Lines files. The first
// occurrence of each key wins; later occurrences are dropped. Lines that are
// not valid JSON are skipped with a warning, and records lacking the key
// field are dropped outright.
package dedup

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Result summarizes one deduplication pass.
type Result struct {
	Input      int `json:"input"`
	Output     int `json:"output"`
	Duplicates int `json:"duplicates"`
}

// File deduplicates inPath into outPath by the given record field. inPath
// and outPath must differ; the input is never modified.
func File(inPath, outPath, key string, logger *slog.Logger) (Result, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return Result{}, fmt.Errorf("dedup: open input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return Result{}, fmt.Errorf("dedup: create output: %w", err)
	}
	defer out.Close()

	res, err := Stream(in, out, key, logger)
	if err != nil {
		return res, err
	}
	return res, out.Sync()
}

// Stream deduplicates JSONL from r into w, keyed by field key.
func Stream(r io.Reader, w io.Writer, key string, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var res Result
	seen := make(map[string]struct{})

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		res.Input++

		var rec map[string]any
		if err := json.Unmarshal(raw, &rec); err != nil {
			logger.Warn("dedup: skipping invalid line", "line", line, "error", err)
			continue
		}
		val, ok := rec[key].(string)
		if !ok || val == "" {
			logger.Warn("dedup: dropping record without key field", "line", line, "key", key)
			continue
		}
		if _, dup := seen[val]; dup {
			res.Duplicates++
			continue
		}
		seen[val] = struct{}{}

		if _, err := w.Write(append(raw, '\n')); err != nil {
			return res, fmt.Errorf("dedup: write: %w", err)
		}
		res.Output++
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("dedup: read: %w", err)
	}
	return res, nil
}
