package notifier

import (
	"fmt"
	"io"
	"strings"

	"StopHunter/internal/scanner"
)

// Console renders scan results for an operator terminal.
type Console struct {
	Out io.Writer
}

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer) *Console { return &Console{Out: out} }

// PrintScan writes a banner and the plain-text report.
func (c *Console) PrintScan(report *scanner.Report) error {
	rule := strings.Repeat("=", 50)
	_, err := fmt.Fprintf(c.Out, "\n%s\nScanning at %s\n%s\n%s",
		rule, report.StartedAt.Format("15:04:05"), rule, FormatScanReport(report, Plain))
	return err
}
