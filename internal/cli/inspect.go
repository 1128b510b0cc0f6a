package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/simp-lee/epub2md"
)

// titleWidth caps title columns in display cells, so wide CJK titles keep
// the tables aligned.
const titleWidth = 48

func newInspectCommand(a *app) *cobra.Command {
	var includeNonLinear bool

	cmd := &cobra.Command{
		Use:   "inspect EPUB",
		Short: "Show the chapters, navigation and table of contents of an ePub",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _ := parseOptions(cmd, a.cfg, parseFlags{includeNonLinear: includeNonLinear})
			opts.Logger = a.log
			doc, err := epub2md.Parse(args[0], opts)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", args[0], err)
			}
			renderInspection(cmd.OutOrStdout(), doc)
			return nil
		},
	}
	cmd.Flags().BoolVar(&includeNonLinear, "include-nonlinear", false, "also list spine items marked linear=\"no\"")
	return cmd
}

func renderInspection(w io.Writer, doc *epub2md.Document) {
	meta := doc.Metadata()
	fmt.Fprintf(w, "Title:    %s\n", meta.Title)
	fmt.Fprintf(w, "Creator:  %s\n", meta.Creator)
	if len(meta.Authors) > 0 {
		fmt.Fprintf(w, "Authors:  %s\n", formatAuthors(meta.Authors))
	}
	fmt.Fprintf(w, "Language: %s\n", meta.Language)
	fmt.Fprintf(w, "Blocks:   %d\n\n", doc.BlockCount())

	chapters := newTable(w, "Chapters")
	chapters.AppendHeader(table.Row{"#", "Href", "Title", "Blocks", "License"})
	for _, ch := range doc.Chapters() {
		license := ""
		if ch.License {
			license = "yes"
		}
		chapters.AppendRow(table.Row{ch.Index + 1, ch.Href, truncate(ch.DisplayTitle()), len(ch.Blocks), license})
	}
	chapters.Render()

	if nav := doc.Navigation(); len(nav) > 0 {
		fmt.Fprintln(w)
		t := newTable(w, "Navigation")
		t.AppendHeader(table.Row{"Level", "Title", "Target"})
		for _, e := range nav {
			target := e.Target
			if e.Fragment != "" {
				target += "#" + e.Fragment
			}
			t.AppendRow(table.Row{e.Level, indent(e.Level, e.Title), target})
		}
		t.Render()
	}

	if toc := doc.TOC(); len(toc) > 0 {
		fmt.Fprintln(w)
		t := newTable(w, epub2md.TOCHeading)
		t.AppendHeader(table.Row{"Level", "Title", "Anchor"})
		for _, e := range toc {
			t.AppendRow(table.Row{e.Level, indent(1, e.Title), "#" + e.Target})
			for _, c := range e.Children {
				t.AppendRow(table.Row{c.Level, indent(2, c.Title), "#" + c.Target})
			}
		}
		t.Render()
	}

	if warnings := doc.Warnings(); len(warnings) > 0 {
		fmt.Fprintln(w)
		t := newTable(w, "Warnings")
		for _, msg := range warnings {
			t.AppendRow(table.Row{msg})
		}
		t.Render()
	}
}

// formatAuthors lists authors as "Name (role, file-as)".
func formatAuthors(authors []epub2md.Author) string {
	parts := make([]string, len(authors))
	for i, a := range authors {
		var extra []string
		if a.Role != "" {
			extra = append(extra, a.Role)
		}
		if a.FileAs != "" {
			extra = append(extra, a.FileAs)
		}
		parts[i] = a.Name
		if len(extra) > 0 {
			parts[i] += " (" + strings.Join(extra, ", ") + ")"
		}
	}
	return strings.Join(parts, "; ")
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleLight)
	return t
}

func indent(level int, title string) string {
	return strings.Repeat("  ", max(level-1, 0)) + truncate(title)
}

func truncate(s string) string {
	return runewidth.Truncate(s, titleWidth, "…")
}
