package report

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"sightline/pkg/models"
)

// PrintSummary writes the end-of-run totals to w.
func PrintSummary(w io.Writer, counts models.Counts, severity *models.SeverityCounts, outDir string, elapsed time.Duration) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %d targets in %s\n", bold("Scan complete:"), counts.Total, elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  %s %d    %s %d    %s %d\n",
		green("ok"), counts.Success,
		yellow("warn"), counts.Warn,
		red("fail"), counts.Fail)

	if severity != nil {
		fmt.Fprintf(w, "%s %d changed, %d new, %d unchanged\n", bold("Diff:"),
			severity.Changed(), severity.New, severity.Unchanged)
		if severity.Critical > 0 || severity.High > 0 {
			fmt.Fprintf(w, "  %s %d    %s %d    %s %d    %s %d\n",
				red("critical"), severity.Critical,
				red("high"), severity.High,
				yellow("medium"), severity.Medium,
				green("low"), severity.Low)
		}
	}

	fmt.Fprintf(w, "%s %s\n", bold("Report:"), cyan(outDir))
}
