package core

import (
	"fmt"
	"strings"
)

// Message is an ordered sequence of text lines.
type Message []string

// Text splits s on line breaks. An empty s is an empty message.
func Text(s string) Message {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Textf formats and splits like Text.
func Textf(format string, args ...any) Message {
	return Text(fmt.Sprintf(format, args...))
}

// Flatten concatenates strings, string slices, Messages and nested []any in
// order, splitting every string on embedded line breaks. An empty string
// part adds no lines. Unsupported values are rendered with %v.
func Flatten(parts ...any) Message {
	var out Message
	for _, p := range parts {
		out = appendLines(out, p)
	}
	return out
}

func appendLines(out Message, part any) Message {
	switch v := part.(type) {
	case nil:
		return out
	case string:
		if v == "" {
			return out
		}
		return append(out, strings.Split(v, "\n")...)
	case Message:
		for _, line := range v {
			out = append(out, strings.Split(line, "\n")...)
		}
		return out
	case []string:
		for _, line := range v {
			out = append(out, strings.Split(line, "\n")...)
		}
		return out
	case []any:
		for _, nested := range v {
			out = appendLines(out, nested)
		}
		return out
	default:
		return append(out, strings.Split(fmt.Sprint(v), "\n")...)
	}
}

// Empty reports whether m carries nothing to send: no lines, or only
// blank ones.
func (m Message) Empty() bool {
	for _, line := range m {
		if line != "" {
			return false
		}
	}
	return true
}

// String joins the lines with newlines.
func (m Message) String() string {
	return strings.Join(m, "\n")
}
