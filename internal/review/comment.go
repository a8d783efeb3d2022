package review

import (
	"fmt"
	"regexp"
	"strconv"
)

// Comment bodies follow a fixed convention so that prior runs can be
// recognized: "**Violation of <prefix/label>**: <message>" for inline
// comments, with a "Violation at `path:line`" header for general
// comments that could not be anchored inline.

var (
	violationOfRe = regexp.MustCompile("\\*\\*Violation of ([a-z0-9-]+/[a-z0-9-]+)\\*\\*:")
	bareIDRe      = regexp.MustCompile("\\*\\*([a-z0-9-]+/[a-z0-9-]+)\\*\\*:")
	locationRe    = regexp.MustCompile("\\*\\*Violation at `([^`]+):(\\d+)`\\*\\*")
)

// FormatCommentBody renders a finding as an inline comment body.
func FormatCommentBody(f Finding) string {
	return fmt.Sprintf("**Violation of %s**: %s", f.GuidelineID, f.Message)
}

// FormatGeneralBody renders a finding as a general comment body with an
// explicit file and line reference.
func FormatGeneralBody(f Finding) string {
	return fmt.Sprintf("**Violation at `%s:%d`**\n\n**%s**: %s", f.Path, f.Line, f.GuidelineID, f.Message)
}

// ParseGuidelineID extracts a guideline ID from a comment body, or ""
// if the comment does not follow the convention.
func ParseGuidelineID(body string) string {
	if m := violationOfRe.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	if m := bareIDRe.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}

// ParseLocation extracts the file path and line from a general comment
// body. ok is false when the body carries no location header.
func ParseLocation(body string) (path string, line int, ok bool) {
	m := locationRe.FindStringSubmatch(body)
	if m == nil {
		return "", 0, false
	}
	line, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], line, true
}
