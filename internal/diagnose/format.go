package diagnose

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	badColor  = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

// WriteText renders r as a human-readable, colorized report.
func WriteText(w io.Writer, r *Report) error {
	conn := okColor.Sprint("ok")
	if !r.ConnectionOK {
		conn = badColor.Sprint("FAILED")
	}
	if _, err := fmt.Fprintf(w, "Connection: %s\nChecked at: %s\n\n", conn, r.CheckedAt.Format("2006-01-02 15:04:05 MST")); err != nil {
		return err
	}

	if len(r.Tables) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TABLE\tROWS\tSTATUS\tREFERENCES")
		for _, t := range r.Tables {
			refs := ""
			for i, fk := range t.ForeignKeys {
				if i > 0 {
					refs += ", "
				}
				refs += fk.Column + "→" + fk.References
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", t.Name, t.RowCount, statusColor(t.Status).Sprint(t.Status), dimColor.Sprint(refs))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	if len(r.Issues) == 0 {
		fmt.Fprintln(w, "Issues: none")
	} else {
		fmt.Fprintf(w, "Issues (%d):\n", len(r.Issues))
		for _, is := range r.Issues {
			fmt.Fprintf(w, "  [%s] %s: %s\n", severityColor(is.Severity).Sprint(is.Severity), is.Type, is.Message)
		}
	}

	fmt.Fprintln(w, "\nRecommendations:")
	for _, rec := range r.Recommendations {
		if _, err := fmt.Fprintf(w, "  - %s\n", rec); err != nil {
			return err
		}
	}
	return nil
}

func statusColor(s TableStatus) *color.Color {
	switch s {
	case StatusPopulated:
		return okColor
	case StatusEmpty:
		return warnColor
	default:
		return badColor
	}
}

func severityColor(s Severity) *color.Color {
	switch s {
	case SeverityCritical:
		return badColor
	case SeverityHigh:
		return warnColor
	default:
		return dimColor
	}
}
