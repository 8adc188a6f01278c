package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// WriteCSV writes one row per result. Nested objects become dotted column
// names such as ping.rtt_ms.median; lists are written as JSON. The header is
// the sorted union of every row's columns.
func WriteCSV(w io.Writer, results []*Result) error {
	if len(results) == 0 {
		return nil
	}

	rows := make([]map[string]string, 0, len(results))
	columns := make(map[string]struct{})
	for _, r := range results {
		row, err := Flatten(r)
		if err != nil {
			return err
		}
		for k := range row {
			columns[k] = struct{}{}
		}
		rows = append(rows, row)
	}

	header := make([]string, 0, len(columns))
	for k := range columns {
		header = append(header, k)
	}
	sort.Strings(header)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, k := range header {
			record[i] = row[k]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Flatten renders v through its JSON form into a flat map of dotted keys.
func Flatten(v any) (map[string]string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(b, &tree); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	out := make(map[string]string)
	if err := flattenInto(out, "", tree); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenInto(out map[string]string, prefix string, tree map[string]any) error {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			if err := flattenInto(out, key, val); err != nil {
				return err
			}
		case []any:
			b, err := json.Marshal(val)
			if err != nil {
				return fmt.Errorf("failed to marshal %s: %w", key, err)
			}
			out[key] = string(b)
		case nil:
			out[key] = ""
		case string:
			out[key] = val
		case bool:
			out[key] = strconv.FormatBool(val)
		case float64:
			out[key] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			out[key] = fmt.Sprint(val)
		}
	}
	return nil
}
