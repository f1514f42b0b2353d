package utils

import "encoding/json"

// Truncate bounds v to n bytes, appending "..." when it cuts. Non-string
// values are JSON-encoded first. Used to keep log lines and context
// sections small.
func Truncate(v any, n int) string {
	s, ok := v.(string)
	if !ok {
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		s = string(b)
	}
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
