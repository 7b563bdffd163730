package mockapi

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nathanaday/iot-data-core/internal/api"
)

// parsedCSV is the result of reading one uploaded file: sorted points
// plus the column labels taken from the header row, if one was present.
type parsedCSV struct {
	filename   string
	points     []api.Point
	timeLabel  string
	valueLabel string
	start      time.Time
	end        time.Time
}

// readCSVForm pulls the "file" part out of a multipart form and parses
// it. On failure it writes a 400 and returns ok=false.
func readCSVForm(c *gin.Context) (parsedCSV, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file upload"})
		return parsedCSV{}, false
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file upload"})
		return parsedCSV{}, false
	}
	defer f.Close()

	parsed, err := parseCSV(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return parsedCSV{}, false
	}
	parsed.filename = fh.Filename
	return parsed, true
}

// parseCSV reads a two-column series: timestamp, value. The first row is
// taken as a header when its timestamp column does not parse. Timestamps
// may be RFC3339 or unix seconds.
func parseCSV(r io.Reader) (parsedCSV, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	var out parsedCSV
	out.timeLabel = "time"
	out.valueLabel = "value"

	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return parsedCSV{}, fmt.Errorf("row %d: %v", row+1, err)
		}
		row++
		if len(record) < 2 {
			return parsedCSV{}, fmt.Errorf("row %d: expected at least 2 columns, got %d", row, len(record))
		}

		ts, tsErr := parseTimestamp(record[0])
		if row == 1 && tsErr != nil {
			out.timeLabel = record[0]
			out.valueLabel = record[1]
			continue
		}
		if tsErr != nil {
			return parsedCSV{}, fmt.Errorf("row %d: invalid timestamp %q", row, record[0])
		}
		v, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return parsedCSV{}, fmt.Errorf("row %d: invalid value %q", row, record[1])
		}
		out.points = append(out.points, api.Point{Timestamp: ts, Value: v})
	}

	if len(out.points) == 0 {
		return parsedCSV{}, fmt.Errorf("no data rows found")
	}

	sort.Slice(out.points, func(i, j int) bool {
		return out.points[i].Timestamp.Before(out.points[j].Timestamp)
	})
	out.start = out.points[0].Timestamp
	out.end = out.points[len(out.points)-1].Timestamp
	return out, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
