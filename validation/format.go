package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/marcelom97/scimprobe/model"
)

var (
	emailPattern    = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	phonePattern    = regexp.MustCompile(`^\+?[\d \-().]{7,20}$`)
	dateTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(:\d{2})?(\.\d+)?(Z|[+-]\d{2}:?\d{2})?$`)
)

// checkFormat applies a FieldMappingRule's format predicate to a resolved
// attribute value, per spec.md §4.2. A nil error means the value passes.
func checkFormat(format model.FieldFormat, value any, regexPattern *string) error {
	switch format {
	case model.FormatNone, "":
		return nil
	case model.FormatEmail:
		s, ok := value.(string)
		if !ok || !emailPattern.MatchString(s) {
			return fmt.Errorf("value %v does not match email format", value)
		}
		return nil
	case model.FormatURI:
		s, ok := value.(string)
		if !ok || !(strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "urn:")) {
			return fmt.Errorf("value %v does not match uri format", value)
		}
		return nil
	case model.FormatPhone:
		s, ok := value.(string)
		if !ok || !phonePattern.MatchString(s) {
			return fmt.Errorf("value %v does not match phone format", value)
		}
		return nil
	case model.FormatBoolean:
		switch v := value.(type) {
		case bool:
			return nil
		case string:
			lv := strings.ToLower(v)
			if lv == "true" || lv == "false" {
				return nil
			}
		}
		return fmt.Errorf("value %v is not a boolean", value)
	case model.FormatInteger:
		switch v := value.(type) {
		case float64:
			if v == math.Trunc(v) {
				return nil
			}
		case string:
			if _, err := strconv.Atoi(v); err == nil {
				return nil
			}
			if f, err := strconv.ParseFloat(v, 64); err == nil && f == math.Trunc(f) {
				return nil
			}
		}
		return fmt.Errorf("value %v is not an integer", value)
	case model.FormatDateTime:
		s, ok := value.(string)
		if !ok || !dateTimePattern.MatchString(s) {
			return fmt.Errorf("value %v does not match datetime format", value)
		}
		return nil
	case model.FormatRegex:
		if regexPattern == nil {
			return fmt.Errorf("rule has no regex pattern configured")
		}
		re, err := regexp.Compile(*regexPattern)
		if err != nil {
			return fmt.Errorf("invalid regex pattern %q: %w", *regexPattern, err)
		}
		s, ok := value.(string)
		if !ok || !re.MatchString(s) {
			return fmt.Errorf("value %v does not match pattern %q", value, *regexPattern)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
