package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"BreakoutScreener/internal/model"
	"BreakoutScreener/internal/report"
)

// FormatScreenReport formats a run into a Telegram message. At most topN
// candidates are listed; topN <= 0 lists all of them.
func FormatScreenReport(res *model.ScreenResult, topN int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📈 <b>NSE Breakout Screener</b> | %s\n\n", res.FinishedAt.Format("2006-01-02 15:04")))
	if res.Canceled {
		b.WriteString("⚠️ Run was interrupted, results are partial\n")
	}
	b.WriteString(report.Summary(res) + "\n")
	b.WriteString(fmt.Sprintf("Universe: %d | Evaluated: %d | Skipped: %d\n",
		res.UniverseSize, res.Evaluated, res.SkippedTotal()))
	if detail := formatSkips(res.Skipped); detail != "" {
		b.WriteString(detail + "\n")
	}
	b.WriteString(fmt.Sprintf("Duration: %s\n", res.FinishedAt.Sub(res.StartedAt).Round(time.Second)))

	if res.Empty() {
		return b.String()
	}

	shown := res.Candidates
	if topN > 0 && len(shown) > topN {
		shown = shown[:topN]
	}

	b.WriteString("\n<pre>")
	b.WriteString(fmt.Sprintf("%-12s %9s %9s %6s %6s %8s\n", "Symbol", "Close", "52W_High", "RSI", "VolX", "Profit%"))
	for _, c := range shown {
		volX := 0.0
		if c.AvgVolume > 0 {
			volX = float64(c.VolumeToday) / float64(c.AvgVolume)
		}
		b.WriteString(fmt.Sprintf("%-12s %9s %9s %6s %6.1f %8s\n",
			html.EscapeString(c.Symbol),
			c.Close.StringFixed(2),
			c.High52w.StringFixed(2),
			c.RSI.StringFixed(1),
			volX,
			c.ProfitPotentialPct.StringFixed(2),
		))
	}
	b.WriteString("</pre>")

	if rest := len(res.Candidates) - len(shown); rest > 0 {
		b.WriteString(fmt.Sprintf("\n…and %d more in the CSV export", rest))
	}
	return b.String()
}

func formatSkips(skipped map[model.SkipReason]int) string {
	if len(skipped) == 0 {
		return ""
	}
	reasons := make([]string, 0, len(skipped))
	for r := range skipped {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	parts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		parts = append(parts, fmt.Sprintf("%s=%d", strings.ToLower(r), skipped[model.SkipReason(r)]))
	}
	return "  (" + strings.Join(parts, ", ") + ")"
}

// FormatRunError formats a failed run.
func FormatRunError(err error) string {
	return fmt.Sprintf("❌ <b>Screening failed</b>\n\n%s", html.EscapeString(err.Error()))
}

// HelpText lists the supported chat commands.
func HelpText() string {
	return "Available commands:\n" +
		"• /screen - run the breakout screen now\n" +
		"• /last - show the most recent result\n" +
		"• /help - show this message"
}
