package entities

import "fmt"

// LocatorKind represents the strategy used to find an element
type LocatorKind string

const (
	LocatorText  LocatorKind = "text"
	LocatorStyle LocatorKind = "style"
	LocatorXPath LocatorKind = "xpath"
	LocatorCSS   LocatorKind = "css"
)

// Locator describes how to find a UI element on the page.
// Every locator resolves to the first match in document order.
type Locator struct {
	Kind  LocatorKind `json:"kind" yaml:"kind"`
	Value string      `json:"value" yaml:"value"`
	// Tag restricts style locators to one element name, "*" when empty
	Tag string `json:"tag,omitempty" yaml:"tag,omitempty"`
}

// TextLocator matches an element whose own text is exactly text
func TextLocator(text string) Locator {
	return Locator{Kind: LocatorText, Value: text}
}

// StyleLocator matches elements of tag whose style attribute contains marker
func StyleLocator(tag, marker string) Locator {
	return Locator{Kind: LocatorStyle, Tag: tag, Value: marker}
}

// Validate checks that the locator can be resolved by a driver
func (l Locator) Validate() error {
	switch l.Kind {
	case LocatorText, LocatorStyle, LocatorXPath, LocatorCSS:
	default:
		return fmt.Errorf("%w: unknown locator kind %q", ErrInvalidScenario, l.Kind)
	}
	if l.Value == "" {
		return fmt.Errorf("%w: %s locator has empty value", ErrInvalidScenario, l.Kind)
	}
	return nil
}

func (l Locator) String() string {
	switch l.Kind {
	case LocatorText:
		return fmt.Sprintf("text=%q", l.Value)
	case LocatorStyle:
		tag := l.Tag
		if tag == "" {
			tag = "*"
		}
		return fmt.Sprintf("%s[style*=%q]", tag, l.Value)
	default:
		return fmt.Sprintf("%s=%s", l.Kind, l.Value)
	}
}
