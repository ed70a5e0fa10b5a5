package token

import (
	"errors"
	"fmt"
)

// Delimiters is one open/close marker pair.
type Delimiters struct {
	Open  string
	Close string
}

// DelimiterConfig is the full delimiter set of a document. The zero value is
// not usable; start from Default. DelimiterConfig is comparable and serves as
// a cache key, so it must stay free of slices and pointers.
type DelimiterConfig struct {
	Statement  Delimiters
	Expression Delimiters
	Comment    Delimiters
	TrimMark   byte
}

// Default returns the Jinja-style delimiter set.
func Default() DelimiterConfig {
	return DelimiterConfig{
		Statement:  Delimiters{Open: "{%", Close: "%}"},
		Expression: Delimiters{Open: "{{", Close: "}}"},
		Comment:    Delimiters{Open: "{#", Close: "#}"},
		TrimMark:   '-',
	}
}

// Validate rejects configurations the scanner cannot disambiguate.
func (c DelimiterConfig) Validate() error {
	pairs := []struct {
		name string
		d    Delimiters
	}{
		{"statement", c.Statement},
		{"expression", c.Expression},
		{"comment", c.Comment},
	}

	opens := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if p.d.Open == "" || p.d.Close == "" {
			return fmt.Errorf("%s delimiters must be non-empty", p.name)
		}
		if prev, dup := opens[p.d.Open]; dup {
			return fmt.Errorf("%s and %s share the open marker %q", prev, p.name, p.d.Open)
		}
		opens[p.d.Open] = p.name
	}

	if c.TrimMark == 0 {
		return errors.New("trim mark must be set")
	}
	if isSpaceByte(c.TrimMark) {
		return errors.New("trim mark must not be whitespace")
	}
	for _, p := range pairs {
		if p.d.Close[0] == c.TrimMark {
			return fmt.Errorf("%s close marker starts with the trim mark %q", p.name, c.TrimMark)
		}
	}
	return nil
}
