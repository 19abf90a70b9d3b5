package normalize

import "strings"

// CleanJSON pulls a JSON object out of model output that may be wrapped
// in markdown fences or preceded by prose.
func CleanJSON(raw string) string {
	txt := strings.TrimSpace(raw)

	// Markdown code fences
	if strings.HasPrefix(txt, "```") {
		lines := strings.Split(txt, "\n")
		start, end := 1, len(lines)
		for i := len(lines) - 1; i > 0; i-- {
			if strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
				end = i
				break
			}
		}
		if start < end {
			txt = strings.Join(lines[start:end], "\n")
		}
	}

	// Leading prose
	if !strings.HasPrefix(strings.TrimSpace(txt), "{") {
		if i := strings.Index(txt, "{"); i >= 0 {
			txt = txt[i:]
		}
	}

	// Trailing prose
	if i := strings.LastIndex(txt, "}"); i >= 0 {
		txt = txt[:i+1]
	}

	txt = strings.ReplaceAll(txt, "`", "")

	lines := strings.Split(txt, "\n")
	clean := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "json" && trimmed != "" {
			clean = append(clean, line)
		}
	}
	return strings.TrimSpace(strings.Join(clean, "\n"))
}
