package dataset

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/agusespa/bugharvest/internal/types"
)

const rowFields = 5

// ReadRecords splits dataset file contents into raw row records. A record
// starts at a line beginning with a label and the delimiter and runs until
// the next such line, so source code newlines stay inside their record.
// Concatenating the records gives back data unchanged; anything before the
// first row start belongs to the first record.
func ReadRecords(data []byte, delim string) []string {
	text := string(data)
	if text == "" {
		return nil
	}

	starts := rowStart(delim).FindAllStringIndex(text, -1)
	if len(starts) == 0 {
		return []string{text}
	}

	records := make([]string, 0, len(starts))
	for i := range starts {
		from := starts[i][0]
		if i == 0 {
			from = 0
		}
		to := len(text)
		if i+1 < len(starts) {
			to = starts[i+1][0]
		}
		records = append(records, text[from:to])
	}
	return records
}

func rowStart(delim string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^[01]` + regexp.QuoteMeta(delim))
}

// ParseRow decodes one record. The code field is everything after the fourth
// delimiter, minus the row terminator.
func ParseRow(record, delim string) (types.DatasetRow, error) {
	fields := strings.SplitN(strings.TrimSuffix(record, "\n"), delim, rowFields)
	if len(fields) != rowFields {
		return types.DatasetRow{}, fmt.Errorf("row has %d fields, want %d", len(fields), rowFields)
	}

	label, err := strconv.Atoi(fields[0])
	if err != nil || (label != types.LabelDefective && label != types.LabelClean) {
		return types.DatasetRow{}, fmt.Errorf("invalid label %q", fields[0])
	}

	return types.DatasetRow{
		Label:        label,
		SourceURL:    fields[1],
		FunctionName: fields[2],
		PullTitle:    fields[3],
		Code:         fields[4],
	}, nil
}
