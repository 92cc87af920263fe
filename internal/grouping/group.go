package grouping

import (
	"fmt"
	"sort"
	"strings"

	"alert-digest/internal/digest"
)

// subjectGroup holds the events of one normalized subject on one date.
type subjectGroup struct {
	subject string
	events  []digest.Event
}

// reference is the earliest time in the group.
func (g subjectGroup) reference() string {
	ref := g.events[0].Time
	for _, ev := range g.events[1:] {
		if ev.Time < ref {
			ref = ev.Time
		}
	}
	return ref
}

// dateGroup keeps subject groups in first-seen order.
type dateGroup struct {
	date     string
	subjects []*subjectGroup
	index    map[string]*subjectGroup
}

func (d *dateGroup) add(ev digest.Event) {
	g, ok := d.index[ev.NormalizedSubject]
	if !ok {
		g = &subjectGroup{subject: ev.NormalizedSubject}
		d.index[ev.NormalizedSubject] = g
		d.subjects = append(d.subjects, g)
	}
	g.events = append(g.events, ev)
}

// Build groups events by date, then by normalized subject, and renders one
// line per subject group. Dates appear in the order they are first seen in
// events. Within a date, subject groups are ordered by their earliest time,
// ties keeping first-seen order.
func Build(events []digest.Event) *digest.Report {
	var dates []*dateGroup
	byDate := make(map[string]*dateGroup)
	for _, ev := range events {
		d, ok := byDate[ev.Date]
		if !ok {
			d = &dateGroup{date: ev.Date, index: make(map[string]*subjectGroup)}
			byDate[ev.Date] = d
			dates = append(dates, d)
		}
		d.add(ev)
	}

	report := digest.NewReport()
	for _, d := range dates {
		report.Append(d.date, renderDate(d.subjects)...)
	}
	return report
}

// renderDate orders the subject groups of one date and renders their lines.
func renderDate(groups []*subjectGroup) []string {
	ordered := make([]*subjectGroup, len(groups))
	copy(ordered, groups)
	refs := make(map[*subjectGroup]string, len(ordered))
	for _, g := range ordered {
		refs[g] = g.reference()
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return refs[ordered[i]] < refs[ordered[j]]
	})

	lines := make([]string, 0, len(ordered))
	for _, g := range ordered {
		lines = append(lines, renderLine(g))
	}
	return lines
}

func renderLine(g *subjectGroup) string {
	events := make([]digest.Event, len(g.events))
	copy(events, g.events)
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].Time < events[j].Time
	})
	return fmt.Sprintf("%s [%s]", g.subject, strings.Join(Correlate(events), ", "))
}
