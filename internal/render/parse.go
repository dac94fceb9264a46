// Package render implements the placeholder language used by templates.
//
// A placeholder is written {{ key }} or {{ key | default }}. Keys are dotted paths
// into a parameter tree, e.g. user.name or items.0.title.
package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

var keyPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// placeholder is a parsed {{ key | default }} marker.
type placeholder struct {
	key        string
	def        string
	hasDefault bool
}

// segment is either literal text or a placeholder.
type segment struct {
	text string
	ph   *placeholder
}

// Validate checks the placeholder syntax of body. The returned error is a
// *multierror.Error with one entry per problem found, or nil.
func Validate(body string) error {
	_, err := parse(body)
	return err
}

// parse splits body into literal and placeholder segments. It keeps scanning
// after a syntax error so that every problem is reported at once.
func parse(body string) ([]segment, error) {
	var (
		segs []segment
		merr *multierror.Error
	)

	pos := 0
	for pos < len(body) {
		rest := body[pos:]
		open := strings.Index(rest, openDelim)
		closing := strings.Index(rest, closeDelim)

		// A closing delimiter before any opening one has nothing to close.
		if closing >= 0 && (open < 0 || closing < open) {
			merr = multierror.Append(merr, fmt.Errorf("unmatched %q at offset %d", closeDelim, pos+closing))
			segs = append(segs, segment{text: rest[:closing+len(closeDelim)]})
			pos += closing + len(closeDelim)
			continue
		}
		if open < 0 {
			segs = append(segs, segment{text: rest})
			break
		}
		if open > 0 {
			segs = append(segs, segment{text: rest[:open]})
		}

		start := pos + open
		inner := body[start+len(openDelim):]
		end := strings.Index(inner, closeDelim)
		if end < 0 {
			merr = multierror.Append(merr, fmt.Errorf("unclosed %q at offset %d", openDelim, start))
			segs = append(segs, segment{text: body[start:]})
			break
		}
		if nested := strings.Index(inner[:end], openDelim); nested >= 0 {
			merr = multierror.Append(merr, fmt.Errorf("unclosed %q at offset %d", openDelim, start))
			next := start + len(openDelim) + nested
			segs = append(segs, segment{text: body[start:next]})
			pos = next
			continue
		}

		ph, err := parsePlaceholder(inner[:end], start)
		if err != nil {
			merr = multierror.Append(merr, err)
		}
		segs = append(segs, segment{ph: ph})
		pos = start + len(openDelim) + end + len(closeDelim)
	}

	return segs, merr.ErrorOrNil()
}

func parsePlaceholder(content string, offset int) (*placeholder, error) {
	ph := &placeholder{}
	key := content
	if i := strings.Index(content, "|"); i >= 0 {
		key = content[:i]
		ph.def = strings.TrimSpace(content[i+1:])
		ph.hasDefault = true
	}
	ph.key = strings.TrimSpace(key)

	if ph.key == "" {
		return ph, fmt.Errorf("empty key at offset %d", offset)
	}
	if !keyPattern.MatchString(ph.key) {
		return ph, fmt.Errorf("invalid key %q at offset %d: keys use letters, digits, '_' and '.'", ph.key, offset)
	}
	return ph, nil
}
