package logger

import (
	"net/url"
	"reflect"
	"strings"
)

const (
	// DefaultMaxDepth is the default maximum recursion depth for filtering
	DefaultMaxDepth = 8
	// DefaultMaskValue replaces sensitive values in log output
	DefaultMaskValue = "[MASKED]"
)

// FilterConfig defines the configuration for sensitive data filtering
type FilterConfig struct {
	// SensitiveFields contains field names that should be masked in logs.
	// Matching is case-insensitive and substring based.
	SensitiveFields []string
	// MaskValue is the value used to replace sensitive data (default: "[MASKED]")
	MaskValue string
}

// DefaultFilterConfig returns a configuration covering common credential fields and headers.
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		SensitiveFields: []string{
			"password", "passwd", "pwd",
			"secret", "key", "api_key", "apikey",
			"token", "access_token", "refresh_token",
			"auth", "authorization",
			"credential", "credentials",
			"cookie", "signature", "sig",
		},
		MaskValue: DefaultMaskValue,
	}
}

// SensitiveDataFilter masks sensitive values before they reach a log event.
type SensitiveDataFilter struct {
	config *FilterConfig
}

// NewSensitiveDataFilter creates a new filter with the given configuration
func NewSensitiveDataFilter(config *FilterConfig) *SensitiveDataFilter {
	if config == nil {
		config = DefaultFilterConfig()
	}
	if config.MaskValue == "" {
		config.MaskValue = DefaultMaskValue
	}
	return &SensitiveDataFilter{config: config}
}

// FilterString masks value when key is sensitive. URLs logged under any key get their
// password and sensitive query parameters masked.
func (f *SensitiveDataFilter) FilterString(key, value string) string {
	if f.isSensitiveField(key) {
		return f.maskString(value)
	}
	if isURL(value) {
		return f.maskURL(value)
	}
	return value
}

// FilterValue filters sensitive data from any value
func (f *SensitiveDataFilter) FilterValue(key string, value any) any {
	return f.filterValue(key, value, DefaultMaxDepth)
}

// FilterFields filters a map of fields for sensitive data
func (f *SensitiveDataFilter) FilterFields(fields map[string]any) map[string]any {
	filtered := make(map[string]any, len(fields))
	for key, value := range fields {
		filtered[key] = f.FilterValue(key, value)
	}
	return filtered
}

func (f *SensitiveDataFilter) filterValue(key string, value any, depth int) any {
	if f.isSensitiveField(key) {
		return f.config.MaskValue
	}
	if value == nil || depth <= 0 {
		return value
	}

	switch v := value.(type) {
	case string:
		if isURL(v) {
			return f.maskURL(v)
		}
		return v
	case map[string]any:
		filtered := make(map[string]any, len(v))
		for k, inner := range v {
			filtered[k] = f.filterValue(k, inner, depth-1)
		}
		return filtered
	case map[string]string:
		// Header maps: mask by header name
		filtered := make(map[string]string, len(v))
		for k, inner := range v {
			if f.isSensitiveField(k) {
				filtered[k] = f.config.MaskValue
				continue
			}
			filtered[k] = inner
		}
		return filtered
	case map[string][]string:
		filtered := make(map[string][]string, len(v))
		for k, inner := range v {
			if f.isSensitiveField(k) {
				filtered[k] = []string{f.config.MaskValue}
				continue
			}
			filtered[k] = inner
		}
		return filtered
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return value
		}
		filtered := make([]any, rv.Len())
		for i := range rv.Len() {
			filtered[i] = f.filterValue(key, rv.Index(i).Interface(), depth-1)
		}
		return filtered
	case reflect.Struct:
		return f.filterStruct(rv, depth)
	case reflect.Pointer:
		if !rv.IsNil() && rv.Elem().Kind() == reflect.Struct {
			return f.filterStruct(rv.Elem(), depth)
		}
	}
	return value
}

// filterStruct renders a struct as a map keyed by json names, masking sensitive fields.
func (f *SensitiveDataFilter) filterStruct(rv reflect.Value, depth int) map[string]any {
	rt := rv.Type()
	result := make(map[string]any, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := fieldName(&field)
		if name == "" {
			continue
		}
		result[name] = f.filterValue(name, rv.Field(i).Interface(), depth-1)
	}
	return result
}

// fieldName prefers the json tag; an empty result means the field is skipped.
func fieldName(field *reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}

func (f *SensitiveDataFilter) isSensitiveField(fieldName string) bool {
	lowerFieldName := strings.ToLower(fieldName)
	for _, sensitiveField := range f.config.SensitiveFields {
		if strings.Contains(lowerFieldName, strings.ToLower(sensitiveField)) {
			return true
		}
	}
	return false
}

func (f *SensitiveDataFilter) maskString(value string) string {
	if value == "" {
		return value
	}
	// URLs keep their structure so the target stays readable
	if isURL(value) {
		return f.maskURL(value)
	}
	return f.config.MaskValue
}

func isURL(value string) bool {
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}

// maskURL masks the userinfo password and sensitive query parameters.
func (f *SensitiveDataFilter) maskURL(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return f.config.MaskValue
	}

	changed := false
	if parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(parsed.User.Username(), f.config.MaskValue)
			changed = true
		}
	}

	if parsed.RawQuery != "" {
		query := parsed.Query()
		for name := range query {
			if f.isSensitiveField(name) {
				query.Set(name, f.config.MaskValue)
				changed = true
			}
		}
		if changed {
			parsed.RawQuery = query.Encode()
		}
	}

	if !changed {
		return urlStr
	}
	// url.URL.String escapes the mask brackets; keep them readable
	masked := parsed.String()
	escaped := url.QueryEscape(f.config.MaskValue)
	return strings.ReplaceAll(masked, escaped, f.config.MaskValue)
}
