package browser

import (
	"fmt"
	"strings"

	"ui_verification/domain/entities"
)

// toXPath converts locator to an XPath expression for drivers without
// native text and style matching. CSS locators have no XPath form.
func toXPath(locator entities.Locator) (string, error) {
	switch locator.Kind {
	case entities.LocatorText:
		// an element owning a text node equal to the text, ignoring surrounding whitespace
		return fmt.Sprintf("//*[text()[normalize-space(.)=%s]]", xpathLiteral(strings.TrimSpace(locator.Value))), nil
	case entities.LocatorStyle:
		return styleXPath(locator), nil
	case entities.LocatorXPath:
		return locator.Value, nil
	default:
		return "", fmt.Errorf("locator %s has no xpath form", locator)
	}
}

func styleXPath(locator entities.Locator) string {
	tag := locator.Tag
	if tag == "" {
		tag = "*"
	}
	return fmt.Sprintf("//%s[contains(@style, %s)]", tag, xpathLiteral(locator.Value))
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so strings holding both quote kinds are built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}

	parts := strings.Split(s, `"`)
	args := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			args = append(args, `'"'`)
		}
		if part != "" {
			args = append(args, `"`+part+`"`)
		}
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}

// isClosedError reports whether err only says the browser is already gone
func isClosedError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "closed") || strings.Contains(errStr, "target closed")
}
