package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"madipath/internal/core"
	"madipath/internal/view"
	"madipath/pkg"
)

var jsonFlag bool

var (
	colorText    = lipgloss.Color("#c0caf5")
	colorTextDim = lipgloss.Color("#565f89")
	colorPrimary = lipgloss.Color("#7aa2f7")
	colorLow     = lipgloss.Color("#9ece6a")
	colorMedium  = lipgloss.Color("#e0af68")
	colorHigh    = lipgloss.Color("#f7768e")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	reportStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Foreground(colorText).
			Padding(0, 1).
			MarginTop(1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(colorTextDim).
			Italic(true)

	linkStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Underline(true)
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [symptoms]",
	Short: "Assess a symptom description and print the report",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symptoms, err := readSymptoms(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		d, err := loadDeps()
		if err != nil {
			return err
		}
		defer d.log.Sync()

		if d.gate.Check(cmd.Context()) != pkg.ConnectionConnected {
			return fmt.Errorf("%w: set %s or credentials.key_file", core.ErrDisconnected, d.cfg.Credentials.EnvVar)
		}
		a, err := d.triage.Analyze(cmd.Context(), symptoms)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonFlag {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(a)
		}
		fmt.Fprintln(out, renderReport(view.NewReport(a, d.links)))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the assessment as JSON")
}

// readSymptoms takes the positional argument, or stdin when there is none.
func readSymptoms(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if f, ok := stdin.(*os.File); ok {
		if stat, err := f.Stat(); err == nil && stat.Mode()&os.ModeCharDevice != 0 {
			return "", errors.New("no symptoms given: pass them as an argument or on stdin")
		}
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func riskStyle(r pkg.RiskLevel) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch r {
	case pkg.RiskHigh:
		return s.Background(colorHigh)
	case pkg.RiskMedium:
		return s.Background(colorMedium)
	default:
		return s.Background(colorLow)
	}
}

// renderReport lays out a report for the terminal.
func renderReport(rep view.Report) string {
	var b strings.Builder
	b.WriteString(riskStyle(rep.Analysis.RiskLevel).Render(string(rep.Analysis.RiskLevel)))
	b.WriteString(" " + titleStyle.Render(rep.RiskLabel) + "\n")
	if rep.Fallback {
		b.WriteString(noticeStyle.Render("The triage engine was unavailable. This is a standard safety assessment.") + "\n")
	}
	b.WriteString("\n" + rep.Analysis.Explanation + "\n")

	list := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		b.WriteString("\n" + titleStyle.Render(title) + "\n")
		for _, it := range items {
			b.WriteString("  • " + it + "\n")
		}
	}
	list("Next steps", rep.Analysis.NextSteps)
	list("Warning signs", rep.Analysis.WarningSigns)
	list("Over-the-counter options", rep.Analysis.SuggestedOTCMedicines)
	list("Reference codes", rep.Analysis.MedicalCodes)

	if len(rep.Analysis.Sources) > 0 {
		b.WriteString("\n" + titleStyle.Render("Sources") + "\n")
		for _, s := range rep.Analysis.Sources {
			b.WriteString("  • " + s.Title + " " + linkStyle.Render(s.URI) + "\n")
		}
	}

	b.WriteString("\n" + titleStyle.Render("Find nearby hospital") + " " + linkStyle.Render(rep.NearbyURL))
	if rep.ShowDoctorCTA {
		b.WriteString("\n" + titleStyle.Render("Go to doctor") + " " + linkStyle.Render(rep.DoctorURL))
	}
	return reportStyle.Render(b.String())
}
