package test

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// TestEngine_DelegateMethodComplexity keeps Engine methods in the root
// package short. Login, refresh and logout state machines belong in
// internal/flows; root methods map errors, emit audit events and count
// metrics.
//
// Every exception must name a reason and the file the logic should move to.
func TestEngine_DelegateMethodComplexity(t *testing.T) {
	const maxLines = 60

	type delegateException struct {
		limit  int
		reason string
		target string
	}

	exceptions := map[string]delegateException{
		"buildFlows":     {80, "wiring function", "internal/flows/deps.go"},
		"SecurityReport": {80, "field copy", "internal/security/report.go"},
	}
	for name, exc := range exceptions {
		if exc.reason == "" {
			t.Errorf("exception %q missing reason", name)
		}
		if exc.target == "" {
			t.Errorf("exception %q missing target file", name)
		}
	}

	files, err := filepath.Glob("../engine*.go")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	files = append(files, "../security_report.go")

	scanned := 0
	for _, filename := range files {
		if strings.HasSuffix(filename, "_test.go") {
			continue
		}
		scanned++
		checkMethodLengths(t, filename, maxLines, func(name string) (int, bool) {
			exc, ok := exceptions[name]
			return exc.limit, ok
		})
	}
	if scanned == 0 {
		t.Fatal("no engine sources found")
	}
}

var engineMethodSig = regexp.MustCompile(`^func \(e \*Engine\) ([A-Za-z]\w*)\(`)

func checkMethodLengths(t *testing.T, filename string, maxLines int, exception func(string) (int, bool)) {
	t.Helper()

	f, err := os.Open(filename)
	if err != nil {
		t.Fatalf("open %s: %v", filename, err)
	}
	defer f.Close()

	type methodInfo struct {
		name  string
		start int
		depth int
	}

	scanner := bufio.NewScanner(f)
	lineNum := 0
	var current *methodInfo

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if current == nil {
			m := engineMethodSig.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			depth := strings.Count(line, "{") - strings.Count(line, "}")
			if depth <= 0 {
				continue
			}
			current = &methodInfo{name: m[1], start: lineNum, depth: depth}
			continue
		}

		current.depth += strings.Count(line, "{") - strings.Count(line, "}")
		if current.depth > 0 {
			continue
		}
		length := lineNum - current.start + 1
		limit := maxLines
		if l, ok := exception(current.name); ok {
			limit = l
		}
		if length > limit {
			t.Errorf("%s:%d: method %s is %d lines (limit %d); move business logic to internal/flows/",
				filename, current.start, current.name, length, limit)
		}
		current = nil
	}

	if err := scanner.Err(); err != nil {
		t.Fatalf("scan %s: %v", filename, err)
	}
}
