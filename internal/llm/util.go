package llm

import "strings"

// Text returns the trimmed text of a response, tolerating nil.
func Text(resp *Response) string {
	if resp == nil {
		return ""
	}
	return strings.TrimSpace(resp.Text)
}
