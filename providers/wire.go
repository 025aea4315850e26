package providers

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ParseTime accepts RFC 3339 timestamps and unix seconds. Unparseable
// values yield nil.
func ParseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		value := parsed.UTC()
		return &value
	}
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil && seconds > 0 {
		value := time.Unix(seconds, 0).UTC()
		return &value
	}
	return nil
}

func TimeOr(raw string, fallback time.Time) time.Time {
	if parsed := ParseTime(raw); parsed != nil {
		return *parsed
	}
	return fallback
}

func FormatTime(value *time.Time) string {
	if value == nil || value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func FormatDate(value *time.Time) string {
	if value == nil || value.IsZero() {
		return ""
	}
	return value.UTC().Format("2006-01-02")
}

func Path(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		escaped = append(escaped, url.PathEscape(strings.Trim(segment, "/")))
	}
	return "/" + strings.Join(escaped, "/")
}

func PageQuery(page int, perPage int) map[string]string {
	query := map[string]string{}
	if page > 0 {
		query["page"] = strconv.Itoa(page)
	}
	if perPage > 0 {
		query["per_page"] = strconv.Itoa(perPage)
	}
	return query
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
