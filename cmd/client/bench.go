package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var benchCmd = &cobra.Command{
	Use:   "bench <file>",
	Short: "Measure how long the service takes to convert a file",
	Example: `  contacts-client bench --user 42 --loops 100,500,1000 contacts.txt`,
	Args:  cobra.ExactArgs(1),
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().String("direction", "txt_to_vcf", "conversion direction")
	benchCmd.Flags().IntSlice("loops", []int{10, 50, 100, 500}, "number of uploads per round")
}

func runBench(cmd *cobra.Command, args []string) error {
	baseURL, _ := cmd.Flags().GetString("url")
	userId, _ := cmd.Flags().GetInt64("user")
	direction, _ := cmd.Flags().GetString("direction")
	sizes, _ := cmd.Flags().GetIntSlice("loops")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	fileName := filepath.Base(args[0])
	client := &http.Client{Timeout: 60 * time.Second}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "     Loops   avg µs   max µs")
	fmt.Fprintln(out, "----------------------------")
	for _, loops := range sizes {
		if loops <= 0 {
			continue
		}
		var total, longest time.Duration
		for i := 0; i < loops; i++ {
			before := time.Now()
			res, body, err := sendUpload(client, baseURL, userId, direction, fileName, data)
			if err != nil {
				return err
			}
			if res.StatusCode != http.StatusOK {
				return fmt.Errorf("service answered %s: %s", res.Status, errorMessage(body))
			}
			d := time.Since(before)
			total += d
			longest = max(longest, d)
		}
		fmt.Fprintf(out, "%10d%9d%9d\n", loops, (total / time.Duration(loops)).Microseconds(), longest.Microseconds())
	}
	return nil
}
