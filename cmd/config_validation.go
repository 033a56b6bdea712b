package cmd

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
)

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// validateStartupConfig validates startup configuration from the shared config source.
// It returns an error when any configured value is malformed or violates constraints.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.S.Get(key)
	})
}

// validateStartupConfigWithGetter validates startup configuration via a key-value getter.
// It accepts a value getter and returns nil when all configured values are valid.
func validateStartupConfigWithGetter(get configGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	validationErrs := make([]string, 0)

	validateIglooConfig(get, &validationErrs)
	validateMCPToolsConfig(get, &validationErrs)
	validateMCPAuthConfig(get, &validationErrs)
	validateMCPSearchConfig(get, &validationErrs)
	validateMCPFetchConfig(get, &validationErrs)
	validateWebSiteConfig(get, &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

// validateIglooConfig validates Igloo platform connection configuration.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateIglooConfig(get configGetter, errs *[]string) {
	validateOptionalURL(get, "settings.igloo.api_base_url", errs)
	validateOptionalStringNonEmpty(get, "settings.igloo.community_key", errs)
	validateOptionalStringNonEmpty(get, "settings.igloo.session_key", errs)
	validateOptionalIntMin(get, "settings.igloo.page_size", 1, errs)
	validateOptionalIntMin(get, "settings.igloo.timeout_secs", 1, errs)
	validateOptionalIntMin(get, "settings.igloo.max_retries", 0, errs)
	validateOptionalIntMin(get, "settings.igloo.retry_backoff_ms", 1, errs)
}

// validateMCPToolsConfig validates MCP tool toggles.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateMCPToolsConfig(get configGetter, errs *[]string) {
	keys := []string{
		"settings.mcp.tools.search.enabled",
		"settings.mcp.tools.fetch.enabled",
		"settings.mcp.tools.search_members.enabled",
		"settings.mcp.tools.get_member_profile.enabled",
	}

	for _, key := range keys {
		validateOptionalBool(get, key, errs)
	}
}

// validateMCPAuthConfig validates the MCP access token configuration.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateMCPAuthConfig(get configGetter, errs *[]string) {
	validateOptionalStringNonEmpty(get, "settings.mcp.auth_token", errs)
}

// validateMCPSearchConfig validates search limit configuration.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateMCPSearchConfig(get configGetter, errs *[]string) {
	validateOptionalIntMin(get, "settings.mcp.search.default_limit", 1, errs)
	validateOptionalIntMin(get, "settings.mcp.search.max_limit", 1, errs)

	defaultRaw := get("settings.mcp.search.default_limit")
	maxRaw := get("settings.mcp.search.max_limit")
	if defaultRaw != nil && maxRaw != nil {
		defaultLimit, defaultErr := parseStrictInt(defaultRaw)
		maxLimit, maxErr := parseStrictInt(maxRaw)
		if defaultErr == nil && maxErr == nil && defaultLimit > maxLimit {
			appendValidationError(errs, "settings.mcp.search.default_limit must be <= settings.mcp.search.max_limit")
		}
	}
}

// validateMCPFetchConfig validates fetch output configuration.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateMCPFetchConfig(get configGetter, errs *[]string) {
	validateOptionalIntMin(get, "settings.mcp.fetch.max_chars", 1, errs)
}

// validateWebSiteConfig validates web surface configuration.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateWebSiteConfig(get configGetter, errs *[]string) {
	validateOptionalPathPrefix(get, "settings.web.url_prefix", errs)
	validateOptionalStringList(get, "settings.web.allowed_origin_suffixes", errs)
}

// validateOptionalBool validates an optionally configured boolean key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalBool(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if _, ok := parseStrictBool(raw); !ok {
		appendValidationError(errs, "%s must be a boolean", key)
	}
}

// validateOptionalIntMin validates an optionally configured integer key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalIntMin(get configGetter, key string, min int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalURL validates an optionally configured absolute URL key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalURL(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string URL", key)
		return
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		appendValidationError(errs, "%s must not be empty", key)
		return
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		appendValidationError(errs, "%s must be a valid absolute URL", key)
	}
}

// validateOptionalPathPrefix validates an optionally configured URL base path.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalPathPrefix(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string path", key)
		return
	}

	if !isValidBasePath(value) {
		appendValidationError(errs, "%s must be empty or start with '/'", key)
	}
}

// validateOptionalStringNonEmpty validates an optionally configured non-empty string key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalStringNonEmpty(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	if strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must not be empty", key)
	}
}

// validateOptionalStringList validates an optionally configured list of non-empty strings.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalStringList(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	items, ok := toStringSlice(raw)
	if !ok {
		appendValidationError(errs, "%s must be a list of strings", key)
		return
	}

	for i, item := range items {
		if strings.TrimSpace(item) == "" {
			appendValidationError(errs, "%s[%d] must not be empty", key, i)
		}
	}
}

// parseStrictBool parses a value as boolean using strict conversion rules.
// It accepts a raw value and returns the parsed boolean and whether parsing succeeded.
func parseStrictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		if math.Trunc(v) != v {
			return false, false
		}
		return int64(v) != 0, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false, false
		}
		switch strings.ToLower(trimmed) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// parseStrictInt parses a value as a strict integer.
// It accepts a raw value and returns the parsed int and an error when parsing fails.
func parseStrictInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.Trunc(v) != v {
			return 0, errors.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, errors.New("empty integer string")
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, errors.Wrap(err, "atoi")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("unsupported int type %T", value)
	}
}

// parseStrictString parses a value as a strict string.
// It accepts a raw value and returns the parsed string and an error when parsing fails.
func parseStrictString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.Errorf("unsupported string type %T", value)
	}
}

// toStringSlice converts a raw configuration value into a string slice.
// It accepts a raw value and returns the converted slice and whether conversion succeeded.
func toStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			text, err := parseStrictString(item)
			if err != nil {
				return nil, false
			}
			out = append(out, text)
		}
		return out, true
	default:
		return nil, false
	}
}

// isValidBasePath validates a base path used for URL prefixes.
// It accepts a path string and returns whether it is empty or starts with '/'.
func isValidBasePath(path string) bool {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return true
	}
	return strings.HasPrefix(trimmed, "/")
}

// appendValidationError appends a formatted validation error to the collector.
// It accepts an error slice pointer, a format string, and format arguments, and has no return value.
func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
