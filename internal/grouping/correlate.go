package grouping

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"alert-digest/internal/digest"
)

// FormatTime appends am or pm to an HH:MM clock string. The hour is not
// converted to a 12-hour clock.
func FormatTime(clock string) string {
	suffix := "pm"
	if hour, err := strconv.Atoi(strings.SplitN(clock, ":", 2)[0]); err == nil && hour < 12 {
		suffix = "am"
	}
	return clock + " " + suffix
}

// state of one event after the pairing scan has seen it.
type state int

const (
	scanning state = iota
	matched
	deferred
)

// Correlate renders the entries of one subject group. Events must already
// be in chronological order.
//
// Groups made only of KindOther events collapse into one "(n) time" entry
// per distinct time. Otherwise activations wait on a pending list; each
// deactivation closes the first pending activation with the same alert
// name and emits "(2) start-end" at that point. Pending activations and
// unmatched events are emitted last as "(1) time".
func Correlate(events []digest.Event) []string {
	if allOther(events) {
		return collapseByTime(events)
	}

	var (
		entries  []string
		pending  []digest.Event
		leftover []digest.Event
	)
	step := func(ev digest.Event) state {
		switch ev.Kind {
		case digest.KindActivated:
			pending = append(pending, ev)
			return scanning
		case digest.KindDeactivated:
			for i, open := range pending {
				if open.AlertName != ev.AlertName {
					continue
				}
				entries = append(entries, fmt.Sprintf("(2) %s-%s", FormatTime(open.Time), FormatTime(ev.Time)))
				pending = append(pending[:i:i], pending[i+1:]...)
				return matched
			}
		}
		return deferred
	}

	for _, ev := range events {
		if step(ev) == deferred {
			leftover = append(leftover, ev)
		}
	}

	for _, ev := range append(pending, leftover...) {
		entries = append(entries, fmt.Sprintf("(1) %s", FormatTime(ev.Time)))
	}
	return entries
}

func allOther(events []digest.Event) bool {
	for _, ev := range events {
		if ev.Kind != digest.KindOther {
			return false
		}
	}
	return true
}

func collapseByTime(events []digest.Event) []string {
	counts := make(map[string]int)
	for _, ev := range events {
		counts[ev.Time]++
	}
	times := make([]string, 0, len(counts))
	for clock := range counts {
		times = append(times, clock)
	}
	sort.Strings(times)

	entries := make([]string, 0, len(times))
	for _, clock := range times {
		entries = append(entries, fmt.Sprintf("(%d) %s", counts[clock], FormatTime(clock)))
	}
	return entries
}
