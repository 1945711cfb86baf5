package media

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestCommandExecutorDeliversLinesSerially(t *testing.T) {
	const perStream = 500

	// Interleave heavy output on both streams; every line must arrive intact
	// and none may be lost to concurrent callback invocations.
	script := fmt.Sprintf(
		`i=0; while [ $i -lt %d ]; do echo "out $i"; echo "err $i" >&2; i=$((i+1)); done`,
		perStream,
	)

	var lines []string
	err := CommandExecutor{}.Run(context.Background(), "/bin/sh", []string{"-c", script}, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(lines) != 2*perStream {
		t.Fatalf("expected %d lines, got %d", 2*perStream, len(lines))
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "out ") && !strings.HasPrefix(line, "err ") {
			t.Fatalf("corrupted line delivered: %q", line)
		}
	}
}

func TestCommandExecutorReportsFailure(t *testing.T) {
	err := CommandExecutor{}.Run(context.Background(), "/bin/sh", []string{"-c", "exit 3"}, func(string) {})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
}
