package projection

import "strings"

// Policy picks the placeholder one host format receives for expression
// spans. Policies layer on top of the shared cleaning pass; the segment
// table and the mapping rules are the same for every format.
type Policy interface {
	// Format names the host format this policy applies to.
	Format() Format

	// Placeholder produces the replacement for an expression span of width
	// bytes. The result is padded or cut to exactly width bytes, so a policy
	// cannot break the length-preserving mapping.
	Placeholder(width int) string
}

// MarkdownPolicy replaces expressions with bare spaces. Prose linters treat
// whitespace as layout, while the numeric stand-in would read as content.
type MarkdownPolicy struct{}

func (MarkdownPolicy) Format() Format { return FormatMarkdown }

func (MarkdownPolicy) Placeholder(width int) string {
	if width < 0 {
		return ""
	}
	return strings.Repeat(" ", width)
}

// neutralPlaceholder pads with spaces and ends in a single digit, so a value
// position in a data format still scans as a number and a string position
// stays inert.
func neutralPlaceholder(width int) string {
	if width <= 0 {
		return ""
	}
	return strings.Repeat(" ", width-1) + "0"
}

func fitWidth(s string, width int) string {
	switch {
	case len(s) == width:
		return s
	case len(s) > width:
		return s[:width]
	default:
		return s + strings.Repeat(" ", width-len(s))
	}
}

// policyFor selects the policy serving format. Caller-supplied policies win
// over the built-in ones; nil means the neutral placeholder.
func policyFor(format Format, policies []Policy) Policy {
	for _, p := range policies {
		if p.Format() == format {
			return p
		}
	}
	if format == FormatMarkdown {
		return MarkdownPolicy{}
	}
	return nil
}

func placeholderFor(pol Policy, width int) string {
	if pol == nil {
		return neutralPlaceholder(width)
	}
	return fitWidth(pol.Placeholder(width), width)
}
