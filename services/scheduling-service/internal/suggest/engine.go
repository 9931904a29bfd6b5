// Package suggest ranks auto-scheduling proposals for unscheduled jobs. It
// scans a multi-day horizon across the roster, collects free slots per
// staff/day, and scores each candidate by skill relevance and how tightly it
// packs into the member's existing day.
package suggest

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/printdesk/printdesk/services/scheduling-service/internal/model"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/slots"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/timeutil"
)

// Scoring weights and shapes. These encode product judgment, not invariants;
// tune freely but keep relevance dominant.
const (
	relevanceWeight   = 0.7
	utilizationWeight = 0.3

	// Utilization: a slot within adjacencyMinutes of an existing event scores
	// utilizationMax, decaying linearly to utilizationFloor at decayMinutes.
	adjacencyMinutes = 15
	decayMinutes     = 60
	utilizationMax   = 100.0
	utilizationFloor = 20.0

	// An empty day peaks at idleDayMax for a slot at the window midpoint, so
	// packing an already-busy day always wins over starting a fresh one.
	idleDayMax = 60.0

	// neutralRelevance applies when a job type has no keyword set.
	neutralRelevance = 50.0

	defaultMaxSuggestions = 5
	defaultDaysToCheck    = 10
)

// jobSkillKeywords maps job types to the skill vocabulary used for staff
// filtering and relevance scoring. Types without an entry (and the central
// facility catch-all) admit every staff member.
var jobSkillKeywords = map[model.JobType][]string{
	model.JobEmbroidery:      {"embroidery", "sewing", "digitizing"},
	model.JobScreenPrinting:  {"screen", "printing", "press"},
	model.JobDigitalPrinting: {"digital", "printing", "prepress"},
	model.JobWideFormat:      {"wide", "format", "banner", "laminating"},
}

// Generate returns up to maxSuggestions ranked proposals for the job across
// the next daysToCheck days starting at now. Zero or negative arguments fall
// back to the defaults. An empty result is a normal outcome meaning nothing
// in the horizon fits; the caller should offer manual scheduling.
func Generate(job model.Job, staff []model.StaffMember, events []model.ScheduleEvent, maxSuggestions, daysToCheck int, now time.Time) []model.Suggestion {
	if maxSuggestions <= 0 {
		maxSuggestions = defaultMaxSuggestions
	}
	if daysToCheck <= 0 {
		daysToCheck = defaultDaysToCheck
	}

	keywords := jobSkillKeywords[job.Type]
	requiredMinutes := int(math.Ceil(job.EstimatedHours * 60))
	if requiredMinutes <= 0 {
		return []model.Suggestion{}
	}

	suggestions := []model.Suggestion{}
	for _, member := range staff {
		if !skillEligible(member, keywords) {
			continue
		}
		relevance := relevanceScore(member, keywords)

		for offset := 0; offset < daysToCheck; offset++ {
			day := now.AddDate(0, 0, offset)
			window, ok := member.WorkingWindow(day.Weekday())
			if !ok {
				continue
			}
			date := day.Format("2006-01-02")

			for _, slot := range slots.Find(member.ID, date, staff, events, requiredMinutes) {
				utilization := utilizationScore(member, date, slot, window, events)
				suggestions = append(suggestions, model.Suggestion{
					StaffID:     member.ID,
					StaffName:   member.Name,
					Date:        date,
					Start:       slot.Start,
					End:         slot.End,
					Relevance:   relevance,
					Utilization: utilization,
					Score:       relevanceWeight*relevance + utilizationWeight*utilization,
				})
			}
		}
	}

	// Stable sort keeps tied candidates in staff/day/slot enumeration order,
	// so repeated runs on the same input rank identically.
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}

// BuildEvent converts an accepted suggestion into the event payload to route
// through conflict detection before committing.
func BuildEvent(s model.Suggestion, job model.Job, id string) (model.ScheduleEvent, bool) {
	day, err := time.ParseInLocation("2006-01-02", s.Date, time.Local)
	if err != nil {
		return model.ScheduleEvent{}, false
	}
	startMin, ok := timeutil.ParseMinutes(s.Start)
	if !ok {
		return model.ScheduleEvent{}, false
	}
	endMin, ok := timeutil.ParseMinutes(s.End)
	if !ok {
		return model.ScheduleEvent{}, false
	}
	return model.ScheduleEvent{
		ID:            id,
		JobID:         job.ID,
		StaffID:       s.StaffID,
		Start:         day.Add(time.Duration(startMin) * time.Minute),
		End:           day.Add(time.Duration(endMin) * time.Minute),
		AutoScheduled: true,
	}, true
}

func skillEligible(member model.StaffMember, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	for _, skill := range member.Skills {
		for _, kw := range keywords {
			if matchWeight(skill, kw) > 0 {
				return true
			}
		}
	}
	return false
}

// matchWeight scores one skill against one keyword: 2 for an exact match,
// 1 for a substring match in either direction, 0 otherwise.
func matchWeight(skill, keyword string) int {
	s := strings.ToLower(strings.TrimSpace(skill))
	k := strings.ToLower(keyword)
	if s == "" {
		return 0
	}
	if s == k {
		return 2
	}
	if strings.Contains(s, k) || strings.Contains(k, s) {
		return 1
	}
	return 0
}

// relevanceScore combines a coverage term (how much of the member's skill
// list is relevant) with a quality term (how strong the matches are), each
// capped at 50 points.
func relevanceScore(member model.StaffMember, keywords []string) float64 {
	if len(keywords) == 0 {
		return neutralRelevance
	}
	if len(member.Skills) == 0 {
		return 0
	}

	matched := 0
	points := 0
	for _, skill := range member.Skills {
		best := 0
		for _, kw := range keywords {
			if w := matchWeight(skill, kw); w > best {
				best = w
			}
		}
		if best > 0 {
			matched++
			points += best
		}
	}

	coverage := math.Min(50, 50*float64(matched)/float64(len(member.Skills)))
	quality := math.Min(50, 50*float64(points)/float64(2*len(keywords)))
	return math.Round(coverage + quality)
}

// utilizationScore rates how well the slot packs the member's day. Empty days
// favor the middle of the working window; busy days favor slots adjacent to
// existing bookings, decaying with distance.
func utilizationScore(member model.StaffMember, date string, slot model.Slot, window model.DayWindow, events []model.ScheduleEvent) float64 {
	slotStart, ok := timeutil.ParseMinutes(slot.Start)
	if !ok {
		return 0
	}
	slotEnd, ok := timeutil.ParseMinutes(slot.End)
	if !ok {
		return 0
	}

	var dayEvents []model.ScheduleEvent
	for _, ev := range events {
		if ev.StaffID == member.ID && ev.Start.Format("2006-01-02") == date {
			dayEvents = append(dayEvents, ev)
		}
	}

	if len(dayEvents) == 0 {
		mid := float64(window.StartMinute+window.EndMinute) / 2
		half := float64(window.EndMinute-window.StartMinute) / 2
		if half <= 0 {
			return 0
		}
		norm := math.Min(1, math.Abs(float64(slotStart)-mid)/half)
		return math.Round((1 - norm) * idleDayMax)
	}

	gap := math.MaxInt32
	for _, ev := range dayEvents {
		evStart := ev.Start.Hour()*60 + ev.Start.Minute()
		evEnd := ev.End.Hour()*60 + ev.End.Minute()
		if d := abs(slotStart - evEnd); d < gap {
			gap = d
		}
		if d := abs(evStart - slotEnd); d < gap {
			gap = d
		}
	}

	switch {
	case gap <= adjacencyMinutes:
		return utilizationMax
	case gap <= decayMinutes:
		frac := float64(gap-adjacencyMinutes) / float64(decayMinutes-adjacencyMinutes)
		return math.Round(utilizationMax - frac*(utilizationMax-utilizationFloor))
	default:
		return utilizationFloor
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
