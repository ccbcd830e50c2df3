// Package calendar syncs booking feeds (iCal exports from listing platforms)
// into per-property calendar events.
package calendar

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// FeedEvent is one booking parsed from an iCal feed. Floating marks events
// whose times carried no zone information; they are interpreted in the
// property's timezone downstream.
type FeedEvent struct {
	UID      string
	Summary  string
	Start    time.Time
	End      time.Time
	Floating bool
}

// Parser parses iCal/ICS booking feeds.
type Parser struct {
	http *resty.Client
}

// NewParser creates a new iCal parser.
func NewParser() *Parser {
	return &Parser{
		http: resty.New().
			SetTimeout(30 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(time.Second),
	}
}

// FetchAndParse downloads and parses an iCal feed from a URL.
func (p *Parser) FetchAndParse(url string) ([]FeedEvent, error) {
	resp, err := p.http.R().Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode())
	}

	return p.Parse(strings.NewReader(string(resp.Body())))
}

// Parse reads and parses iCal data from a reader.
func (p *Parser) Parse(r io.Reader) ([]FeedEvent, error) {
	var events []FeedEvent
	var current *FeedEvent
	var currentField string
	var multilineValue strings.Builder

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		// Handle line continuation (lines starting with space or tab)
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if currentField != "" {
				multilineValue.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, " "), "\t"))
			}
			continue
		}

		// Process previous multiline field
		if currentField != "" && current != nil {
			setEventField(current, currentField, multilineValue.String())
			currentField = ""
			multilineValue.Reset()
		}

		// Parse field:value
		colonIdx := strings.Index(line, ":")
		if colonIdx == -1 {
			continue
		}

		field := line[:colonIdx]
		value := line[colonIdx+1:]

		// Handle property parameters (e.g., DTSTART;VALUE=DATE:20231215)
		if semicolonIdx := strings.Index(field, ";"); semicolonIdx != -1 {
			field = field[:semicolonIdx]
		}

		switch field {
		case "BEGIN":
			if value == "VEVENT" {
				current = &FeedEvent{}
			}
		case "END":
			if value == "VEVENT" && current != nil {
				// Only include events with valid dates
				if !current.Start.IsZero() && !current.End.IsZero() {
					events = append(events, *current)
				}
				current = nil
			}
		case "UID", "SUMMARY", "DTSTART", "DTEND":
			if current != nil {
				currentField = field
				multilineValue.WriteString(value)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading feed: %w", err)
	}

	return events, nil
}

// setEventField sets a field on a FeedEvent.
func setEventField(event *FeedEvent, field, value string) {
	// Unescape common iCal escape sequences
	value = strings.ReplaceAll(value, "\\n", "\n")
	value = strings.ReplaceAll(value, "\\,", ",")
	value = strings.ReplaceAll(value, "\\;", ";")
	value = strings.ReplaceAll(value, "\\\\", "\\")

	switch field {
	case "UID":
		event.UID = value
	case "SUMMARY":
		event.Summary = value
	case "DTSTART":
		event.Start, event.Floating = parseDateTime(value)
	case "DTEND":
		end, floating := parseDateTime(value)
		event.End = end
		event.Floating = event.Floating || floating
	}
}

// parseDateTime parses an iCal date/time value. Values without a trailing Z
// or any zone marker are floating.
func parseDateTime(value string) (time.Time, bool) {
	zoned := []string{
		"20060102T150405Z",     // UTC datetime
		"2006-01-02T15:04:05Z", // ISO 8601 with dashes
	}
	floating := []string{
		"20060102T150405", // Local datetime
		"20060102",        // Date only
		"2006-01-02",      // ISO 8601 date
	}

	for _, format := range zoned {
		if t, err := time.Parse(format, value); err == nil {
			return t, false
		}
	}
	for _, format := range floating {
		if t, err := time.Parse(format, value); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// FilterFutureEvents returns only events that haven't ended yet.
func FilterFutureEvents(events []FeedEvent, now time.Time) []FeedEvent {
	var future []FeedEvent
	for _, e := range events {
		if e.End.After(now) {
			future = append(future, e)
		}
	}
	return future
}
