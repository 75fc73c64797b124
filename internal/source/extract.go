package source

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const DefaultMarker = "fact"

// Extract finds the first JSON object assigned to marker (`marker = {...}`)
// in html and decodes it. Anything after the object is ignored.
func Extract(html, marker string) (*Document, error) {
	re, err := markerPattern(marker)
	if err != nil {
		return nil, err
	}
	for _, loc := range re.FindAllStringIndex(html, -1) {
		rest := html[loc[1]:]
		if !strings.HasPrefix(rest, "{") {
			continue
		}
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(rest)).Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
		return &doc, nil
	}
	return nil, fmt.Errorf("%w: marker %q", ErrExtractionFailed, marker)
}

func markerPattern(marker string) (*regexp.Regexp, error) {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		marker = DefaultMarker
	}
	// Property access ("DisconSchedule.fact = ") matches; "myfact = " does not.
	return regexp.Compile(`(?:^|[^\w$])` + regexp.QuoteMeta(marker) + `\s*=\s*`)
}
