package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/framesync/internal/fsutil"
	"github.com/banshee-data/framesync/internal/synchro"
)

// readTrace reads one sample per line; blank lines and lines starting with
// '#' are skipped.
func readTrace(fsys fsutil.FileSystem, path string) ([]float64, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseTrace(f)
}

func parseTrace(r io.Reader) ([]float64, error) {
	var out []float64
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, synchro.ErrEmptySequence
	}
	return out, nil
}

func readStimulus(fsys fsutil.FileSystem, path string) (*synchro.Stimulus, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s synchro.Stimulus
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse stimulus JSON: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Len() == 0 {
		return nil, synchro.ErrEmptySequence
	}
	return &s, nil
}

func readStimList(fsys fsutil.FileSystem, path string) ([]int, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to parse stimulus list: %w", err)
	}
	return ids, nil
}

// writeJSON writes v indented to path, or to stdout when path is "-".
func writeJSON(fsys fsutil.FileSystem, path string, v any) error {
	if path == "-" {
		return encodeJSON(os.Stdout, v)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	if err := encodeJSON(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
