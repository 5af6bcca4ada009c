package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gitlab.com/dirk.krummacker/contacts-converter/internal/convert"
	"gitlab.com/dirk.krummacker/contacts-converter/internal/service"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert a contact file on this machine",
	Example: `  contacts-client convert contacts.txt
  contacts-client convert --from vcard --to text phone.vcf
  contacts-client convert --from spreadsheet --encodings utf-8,windows-1252 team.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("from", "text", "source format: text, vcard or spreadsheet")
	convertCmd.Flags().String("to", "vcard", "target format: vcard or text")
	convertCmd.Flags().StringSlice("encodings", convert.DefaultEncodings, "encodings to try in order")
	convertCmd.Flags().StringP("output", "o", "", "output file (default: <name>_converted.<ext> next to the input)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	encodings, _ := cmd.Flags().GetStringSlice("encodings")
	output, _ := cmd.Flags().GetString("output")

	source, err := convert.ParseFormat(from)
	if err != nil {
		return err
	}
	target, err := convert.ParseFormat(to)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	report, err := convert.Convert(convert.Request{
		Source:    source,
		Target:    target,
		Data:      data,
		Encodings: encodings,
	})
	if err != nil {
		return fmt.Errorf("converting %s: %w", args[0], err)
	}
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "Read %d entries (%s), converted %d, skipped %d\n",
		report.TotalUnits, report.Encoding, report.Produced, len(report.Skipped))
	for _, skip := range report.Skipped {
		fmt.Fprintf(out, "  skipped #%d: %s\n", skip.Index, skip.Reason)
	}
	if report.Outcome == convert.OutcomeNoValidRecords {
		return fmt.Errorf("no valid contacts found in %s", args[0])
	}

	if output == "" {
		output = filepath.Join(filepath.Dir(args[0]), service.OutputFileName(filepath.Base(args[0]), target))
	}
	if err := os.WriteFile(output, report.Document, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s\n", output)
	return nil
}
