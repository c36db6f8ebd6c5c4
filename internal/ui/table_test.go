package ui

import (
	"strings"
	"testing"
)

func TestTableRender(t *testing.T) {
	t.Parallel()

	table := NewTable(
		Column{Header: "Image"},
		Column{Header: "Port", Align: AlignRight},
	)
	table.AddRow("pyship-demo-abc123", "5000")
	table.AddRow("pyship-api-def456", "8080")

	var sb strings.Builder
	if err := table.Render(&sb); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	out := sb.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("rendered %d lines, want 4 (header, separator, 2 rows):\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "Image") {
		t.Errorf("header line = %q", lines[0])
	}
	if !strings.Contains(lines[2], "pyship-demo-abc123") {
		t.Errorf("row line = %q", lines[2])
	}
	if !strings.HasSuffix(strings.TrimRight(lines[2], " "), "5000") {
		t.Errorf("right-aligned port missing: %q", lines[2])
	}
}

func TestTableTruncation(t *testing.T) {
	t.Parallel()

	table := NewTable(Column{Header: "Name", MaxWidth: 8})
	table.AddRow("averylongcontainername")

	var sb strings.Builder
	if err := table.Render(&sb); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(sb.String(), "averylo…") {
		t.Fatalf("expected truncated cell in output:\n%s", sb.String())
	}
}
