package form

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"
)

const (
	MsgNotCSV       = "Please upload a CSV file"
	MsgNoFile       = "Please select a file to upload"
	MsgBulkFailed   = "Failed to process file. Please try again."
	MsgManualFailed = "Failed to make prediction. Please try again."

	// CSVHelp describes the columns the prediction service expects
	CSVHelp = "File should include columns: monthly_sales, stock_value, num_customers, monthly_expenses, etc."
)

// IsCSV accepts a file when its declared type is text/csv or its name ends in .csv
func IsCSV(fileName, contentType string) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "text/csv" {
		return true
	}
	return strings.HasSuffix(fileName, ".csv")
}

// FileSelection is the bulk upload's selected file and its error message
type FileSelection struct {
	File  *multipart.FileHeader
	Error string
}

// Select replaces the selection. A non-CSV file sets an error and leaves the
// selection empty; selecting nothing clears the file.
func (s *FileSelection) Select(fh *multipart.FileHeader) bool {
	if fh == nil {
		s.File = nil
		return false
	}
	if !IsCSV(fh.Filename, fh.Header.Get("Content-Type")) {
		s.Error = MsgNotCSV
		s.File = nil
		return false
	}
	s.Error = ""
	s.File = fh
	return true
}

// Ready reports whether a file can be submitted, setting an error if not
func (s *FileSelection) Ready() bool {
	if s.File != nil {
		return true
	}
	if s.Error == "" {
		s.Error = MsgNoFile
	}
	return false
}

// Reset clears the selection and its error
func (s *FileSelection) Reset() {
	s.File = nil
	s.Error = ""
}

// CountRows counts the data rows of a CSV file, excluding the header line.
// Blank lines are not rows.
func CountRows(r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	n := 0
	for {
		_, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("reading csv line %d: %w", n+1, err)
		}
		n++
	}

	if n == 0 {
		return 0, nil
	}
	return n - 1, nil
}
