// Package thread builds the day-grouped render plan of a conversation.
package thread

import (
	"fmt"
	"sort"
	"time"

	"github.com/adi-253/Talkie/chatcore/internal/clock"
	"github.com/adi-253/Talkie/chatcore/internal/models"
)

const (
	dateLayout  = "Monday, January 2, 2006"
	clockLayout = "15:04"
)

// DayKey is a calendar date in the assembler's fixed location.
type DayKey struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// KeyOf buckets t into its calendar date in loc.
func KeyOf(t time.Time, loc *time.Location) DayKey {
	y, m, d := t.In(loc).Date()
	return DayKey{Year: y, Month: m, Day: d}
}

// Before reports whether k is an earlier date than other.
func (k DayKey) Before(other DayKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	if k.Month != other.Month {
		return k.Month < other.Month
	}
	return k.Day < other.Day
}

func (k DayKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", k.Year, int(k.Month), k.Day)
}

// Time returns midnight of the day in loc.
func (k DayKey) Time(loc *time.Location) time.Time {
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, loc)
}

// Entry is a message in the plan with its derived display time.
type Entry struct {
	models.Message
	DisplayTime string `json:"display_time"`
}

// Group is one day of the plan.
type Group struct {
	Key      string  `json:"key"`
	Label    string  `json:"label"`
	Messages []Entry `json:"messages"`

	day DayKey
}

// Day returns the group's calendar key.
func (g Group) Day() DayKey {
	return g.day
}

// Plan is the ordered render plan: groups ascend by day, entries by time.
type Plan struct {
	Groups []Group `json:"groups"`
}

// Position is the rendered location of a message. Row counts one header row
// per group plus one row per message, from the top of the thread.
type Position struct {
	MessageID string `json:"message_id"`
	Group     int    `json:"group"`
	Index     int    `json:"index"`
	Row       int    `json:"row"`
}

// Empty reports whether the plan has nothing to render.
func (p Plan) Empty() bool {
	return len(p.Groups) == 0
}

// Len returns the number of messages in the plan.
func (p Plan) Len() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Messages)
	}
	return n
}

// Rows returns the total number of rendered rows, headers included.
func (p Plan) Rows() int {
	return len(p.Groups) + p.Len()
}

// Locate finds the rendered position of a message.
func (p Plan) Locate(messageID string) (Position, bool) {
	row := 0
	for gi, g := range p.Groups {
		row++ // day header
		for mi, e := range g.Messages {
			if e.ID == messageID {
				return Position{MessageID: messageID, Group: gi, Index: mi, Row: row}, true
			}
			row++
		}
	}
	return Position{}, false
}

// Assembler turns a message snapshot into a Plan. Grouping uses a fixed
// location, never the host's local zone.
type Assembler struct {
	loc   *time.Location
	clock clock.Clock
}

// NewAssembler creates an Assembler. A nil location means UTC; a nil clock the real one.
func NewAssembler(loc *time.Location, c clock.Clock) *Assembler {
	if loc == nil {
		loc = time.UTC
	}
	if c == nil {
		c = clock.Real()
	}
	return &Assembler{loc: loc, clock: c}
}

// Assemble sorts messages by CreatedAt (stable for equal timestamps) and
// folds them into ascending day groups.
func (a *Assembler) Assemble(messages []models.Message) Plan {
	if len(messages) == 0 {
		return Plan{}
	}

	sorted := make([]models.Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	today := KeyOf(a.clock.Now(), a.loc)
	var plan Plan
	for _, msg := range sorted {
		key := KeyOf(msg.CreatedAt, a.loc)
		if n := len(plan.Groups); n == 0 || plan.Groups[n-1].day != key {
			plan.Groups = append(plan.Groups, Group{
				Key:   key.String(),
				Label: a.label(key, today),
				day:   key,
			})
		}
		g := &plan.Groups[len(plan.Groups)-1]
		g.Messages = append(g.Messages, Entry{Message: msg, DisplayTime: a.DisplayTime(msg.CreatedAt)})
	}
	return plan
}

func (a *Assembler) label(key, today DayKey) string {
	if key == today {
		return "Today"
	}
	if key == KeyOf(today.Time(a.loc).AddDate(0, 0, -1), a.loc) {
		return "Yesterday"
	}
	return key.Time(a.loc).Format(dateLayout)
}

// DisplayTime formats a timestamp for display. Never use it for ordering.
func (a *Assembler) DisplayTime(t time.Time) string {
	return t.In(a.loc).Format(clockLayout)
}
