package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"gitlab.com/dirk.krummacker/contacts-converter/internal/convert"
	"gitlab.com/dirk.krummacker/contacts-converter/internal/service"
	"gitlab.com/dirk.krummacker/contacts-converter/pkg/model"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Convert a contact file with the converter service",
	Example: `  contacts-client upload --user 42 contacts.txt
  contacts-client upload --user 42 --direction xlsx_to_vcf team.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().String("direction", "txt_to_vcf", "conversion direction: txt_to_vcf, txt2vcf, vcf_to_txt, xlsx_to_vcf or admin_file")
	uploadCmd.Flags().StringP("output", "o", "", "output file (default: the name suggested by the service)")
	uploadCmd.Flags().Duration("timeout", 60*time.Second, "HTTP request timeout")
}

func runUpload(cmd *cobra.Command, args []string) error {
	baseURL, _ := cmd.Flags().GetString("url")
	userId, _ := cmd.Flags().GetInt64("user")
	direction, _ := cmd.Flags().GetString("direction")
	output, _ := cmd.Flags().GetString("output")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: timeout}
	res, body, err := sendUpload(client, baseURL, userId, direction, filepath.Base(args[0]), data)
	if err != nil {
		return err
	}

	out := cmd.ErrOrStderr()
	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusUnprocessableEntity:
		var summary model.ConversionSummary
		if err := json.Unmarshal(body, &summary); err != nil {
			return fmt.Errorf("could not unmarshal JSON: %w", err)
		}
		for _, skip := range summary.Skipped {
			fmt.Fprintf(out, "  skipped #%d: %s\n", skip.Index, skip.Reason)
		}
		return fmt.Errorf("no valid contacts found in %s", summary.FileName)
	default:
		return fmt.Errorf("service answered %s: %s", res.Status, errorMessage(body))
	}

	fmt.Fprintf(out, "Read %s entries, converted %s, skipped %s\n",
		res.Header.Get(model.HeaderTotal), res.Header.Get(model.HeaderConverted), res.Header.Get(model.HeaderSkipped))
	if output == "" {
		output = suggestedFileName(res.Header.Get("Content-Disposition"))
	}
	if output == "" {
		target := convert.FormatVCard
		if d, ok := service.LookupDirection(direction); ok {
			target = d.Target
		}
		output = service.OutputFileName(filepath.Base(args[0]), target)
	}
	if err := os.WriteFile(output, body, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s\n", output)
	return nil
}

// sendUpload posts the file as a multipart form and returns the response with its body.
func sendUpload(client *http.Client, baseURL string, userId int64, direction string, fileName string, data []byte) (*http.Response, []byte, error) {
	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/conversions/"+direction, &form)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(model.HeaderUserId, strconv.FormatInt(userId, 10))
	res, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("error making http request: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read response body: %w", err)
	}
	return res, body, nil
}

// suggestedFileName returns the file name from a Content-Disposition header, or an empty string.
func suggestedFileName(disposition string) string {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil || params["filename"] == "" {
		return ""
	}
	return filepath.Base(params["filename"])
}

// errorMessage extracts the message of a JSON error response.
func errorMessage(body []byte) string {
	var response struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &response); err != nil || response.Message == "" {
		return string(body)
	}
	return response.Message
}
