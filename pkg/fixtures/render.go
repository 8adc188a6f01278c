// Package fixtures renders text/template test fixtures, such as captured
// traceroute output, into lines.
package fixtures

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
)

// seq generates a sequence of integers from start to end (inclusive)
func seq(start, end int) []int {
	if start > end {
		return []int{}
	}
	result := make([]int, end-start+1)
	for i := range result {
		result[i] = start + i
	}
	return result
}

// rtt formats a deterministic per-hop round trip time in milliseconds.
func rtt(hop, probe int) string {
	return fmt.Sprintf("%.3f", float64(hop)*1.5+float64(probe)*0.125)
}

var templateFuncs = template.FuncMap{
	"seq": seq,
	"rtt": rtt,
}

// Render renders a template string with the given data. Referencing a map
// key the data does not carry is an error.
func Render(content string, data any) (string, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).Option("missingkey=error").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse fixture: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render fixture: %w", err)
	}
	return buf.String(), nil
}

// RenderLines reads a fixture file, renders it and splits the result into
// lines without the trailing empty line.
func RenderLines(path string, data any) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out, err := Render(string(content), data)
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimSuffix(out, "\n"), "\n"), nil
}
