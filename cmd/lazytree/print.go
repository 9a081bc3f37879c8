package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/lazytree/pkg/tree"
)

// printTree writes the visible rows as an indented outline:
//
//	- Root [id]
//	  + Collapsed child [id]
//	  * Search hit [id]
//
// "-" marks an expanded row, "+" an expandable collapsed one, "*" a search
// match and "." a leaf. Lines are cut to width display cells.
func printTree(w io.Writer, v tree.View, width int) error {
	bw := bufio.NewWriter(w)
	if len(v.Rows) == 0 {
		if v.Query != "" {
			fmt.Fprintf(bw, "No matches for %q.\n", v.Query)
		} else {
			fmt.Fprintln(bw, "No records.")
		}
		return bw.Flush()
	}
	for _, row := range v.Rows {
		line := strings.Repeat("  ", row.Depth) + rowMarker(row) + " " + row.Display.Title + " [" + row.ID + "]"
		if width > 0 && runewidth.StringWidth(line) > width {
			line = runewidth.Truncate(line, width, "…")
		}
		bw.WriteString(line)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func rowMarker(row tree.Row) string {
	switch {
	case row.Highlighted:
		return "*"
	case row.Expanded || row.Context:
		return "-"
	case row.Expandable:
		return "+"
	}
	return "."
}
