// Package cli provides helpers shared by the edgerelay commands: typed errors
// that map to exit codes, text and JSON output formatting, and a
// signal-cancelled context.
//
//	formatter := cli.NewFormatter(cli.FormatJSON)
//	if err := formatter.FormatTo(os.Stdout, report); err != nil {
//		return err
//	}
package cli
