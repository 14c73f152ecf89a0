package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/sensortrend/pkg/report"
)

// stdinPath selects standard input as the document source.
const stdinPath = "-"

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "validate <report.json|->",
		Short: "Validate a JSON report against the report schema",
		Long: `Validate a report produced by "sensortrend run --format json".

Examples:
  sensortrend validate report.json
  sensortrend run --format json | sensortrend validate -
`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], noColor)
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}

func runValidate(cmd *cobra.Command, inputPath string, noColor bool) error {
	doc, label, err := readDocument(cmd.InOrStdin(), inputPath)
	if err != nil {
		return err
	}

	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)

	if noColor {
		ok.DisableColor()
		bad.DisableColor()
	}

	out := cmd.OutOrStdout()

	violations, err := report.ValidateJSON(doc)
	if len(violations) == 0 {
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}

		ok.Fprintf(out, "report is valid (%s)\n", label)

		return nil
	}

	bad.Fprintf(out, "report validation failed (%s)\n", label)

	for _, violation := range violations {
		bad.Fprintf(out, "  - %s: %s\n", violation.Field, violation.Description)
	}

	return fmt.Errorf("%s: %w", label, err)
}

func readDocument(stdin io.Reader, inputPath string) (doc []byte, label string, err error) {
	if inputPath == stdinPath {
		doc, err = io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}

		return doc, "stdin", nil
	}

	doc, err = os.ReadFile(inputPath)
	if err != nil {
		return nil, "", fmt.Errorf("read report: %w", err)
	}

	return doc, inputPath, nil
}
