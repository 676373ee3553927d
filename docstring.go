package gptcommands

import (
	"regexp"
	"strings"
)

// docInfo is the parsed form of a command doc string.
type docInfo struct {
	Summary string
	Params  map[string]string // parameter name -> description
}

// The doc micro-grammar:
//
//	<summary: leading free-text block, first paragraph>
//
//	Args:
//	    name (type): description
//	        continuation lines are folded into the description
//
//	Returns:
//	    ignored
//
// The "(type)" group is advisory and ignored; types come from the function
// signature. Section headers are matched case-insensitively. Parameter names
// with no matching declared parameter are kept here and ignored by the caller.
var (
	sectionRe = regexp.MustCompile(`(?i)^(args|arguments|returns|yields|raises|examples?|note|notes):$`)
	argLineRe = regexp.MustCompile(`^(\w+)\s*(?:\([^)]*\))?:\s*(.*)$`)
)

// parseDoc parses a command doc string. Pure and total: any input yields a
// result; doc text is advisory, so nothing here is an error.
func parseDoc(doc string) docInfo {
	info := docInfo{Params: make(map[string]string)}

	const (
		inSummary = iota
		inArgs
		skipping
	)
	section := inSummary
	var summary []string
	current := "" // parameter whose description is being accumulated

	for _, raw := range strings.Split(doc, "\n") {
		line := strings.TrimSpace(raw)
		if sectionRe.MatchString(line) {
			if strings.EqualFold(line, "args:") || strings.EqualFold(line, "arguments:") {
				section = inArgs
			} else {
				section = skipping
			}
			current = ""
			continue
		}

		switch section {
		case inSummary:
			if line == "" {
				// summary is the first paragraph only
				if len(summary) > 0 {
					section = skipping
				}
				continue
			}
			summary = append(summary, line)
		case inArgs:
			if line == "" {
				current = ""
				continue
			}
			if m := argLineRe.FindStringSubmatch(line); m != nil {
				current = m[1]
				info.Params[current] = strings.TrimSpace(m[2])
				continue
			}
			if current != "" {
				info.Params[current] = strings.TrimSpace(info.Params[current] + " " + line)
			}
		}
	}

	info.Summary = strings.Join(summary, " ")
	return info
}
