package agent

import (
	"sort"
	"strings"

	"grapebot/app/client/graphdb"
)

const maxInterpretRows = 100

func formatCSVValue(value string) string {
	text := strings.ReplaceAll(value, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.TrimSpace(text)

	if strings.ContainsAny(text, ",\"") {
		text = "\"" + strings.ReplaceAll(text, "\"", "\"\"") + "\""
	}

	return text
}

// rowsToCSV flattens result rows into a delimited text block for the
// interpretation prompt, capped at maxRows.
func rowsToCSV(rows []graphdb.Row, maxRows int) string {
	if len(rows) == 0 {
		return ""
	}

	var headers []string
	seen := map[string]bool{}
	for _, row := range rows {
		for key := range row {
			if !seen[key] {
				seen[key] = true
				headers = append(headers, key)
			}
		}
	}
	sort.Strings(headers)

	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	lines := []string{strings.Join(headers, ",")}
	for _, row := range rows {
		cells := make([]string, 0, len(headers))
		for _, header := range headers {
			cells = append(cells, formatCSVValue(row[header]))
		}
		lines = append(lines, strings.Join(cells, ","))
	}

	return strings.Join(lines, "\n")
}
