package eas

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNoHeader reports that a candidate string is not a valid SAME header.
var ErrNoHeader = errors.New("eas: no valid header")

// headerPattern is the SAME header grammar:
//
//	ZCZC-ORG-EEE-PSSCCC(-PSSCCC)*+TTTT-JJJHHMM-LLLLLLLL-
//
// Every field width is fixed. The originator set is closed, up to 31
// location codes are allowed, and the sender is exactly eight characters of
// letters, digits, slash, or space. A string that resembles a header but
// breaks any width or charset constraint is rejected outright.
const headerPattern = `ZCZC-(EAS|CIV|WXR|PEP)-([A-Z]{3})-(\d{6}(?:-\d{6}){0,30})\+(\d{4})-(\d{7})-([A-Za-z0-9/ ]{8})-`

var (
	headerSearchRE = regexp.MustCompile(headerPattern)
	headerLineRE   = regexp.MustCompile(`^` + headerPattern + `$`)
)

// Header is one parsed ZCZC header. Raw keeps the matched text untouched
// for audit and display; everything else is derived from it.
type Header struct {
	Raw            string    `json:"raw_header"`
	Originator     string    `json:"originator_code"`
	OriginatorName string    `json:"originator_name"`
	EventCode      string    `json:"event_code"`
	EventName      string    `json:"event_name"`
	LocationCodes  []string  `json:"location_codes"`
	LocationNames  []string  `json:"location_names"`
	DurationMin    int       `json:"duration_minutes"`
	IssuedAt       time.Time `json:"start_time_utc"`
	IssuedAtLocal  time.Time `json:"start_time_local"`
	Sender         string    `json:"sender"`
}

// Parser turns raw ZCZC header strings into Header records. It carries the
// location directory and the display time zone so parsed headers come out
// fully resolved.
type Parser struct {
	dir *Directory
	loc *time.Location

	// now supplies the current year for the day-of-year timestamp, which
	// carries no year of its own.
	now func() time.Time
}

// NewParser builds a parser. A nil directory means every location resolves
// to the unknown placeholder; a nil location means local timestamps render
// in UTC.
func NewParser(dir *Directory, loc *time.Location) *Parser {
	if dir == nil {
		dir = NewDirectory()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{dir: dir, loc: loc, now: time.Now}
}

// Parse matches s against the full header grammar. The entire string must be
// a header; finding headers embedded in larger text is ResolveBlock's job.
func (p *Parser) Parse(s string) (*Header, error) {
	m := headerLineRE.FindStringSubmatch(s)
	if m == nil {
		return nil, ErrNoHeader
	}
	return p.build(m), nil
}

// build assembles a Header from regexp submatches. The grammar guarantees
// every numeric field is all digits, so the strconv calls cannot fail.
func (p *Parser) build(m []string) *Header {
	originator := m[1]
	event := m[2]
	codes := strings.Split(m[3], "-")
	duration, _ := strconv.Atoi(m[4])
	stamp := m[5]
	sender := strings.TrimRight(m[6], " ")

	names := make([]string, len(codes))
	for i, code := range codes {
		names[i] = p.dir.Resolve(code)
	}

	day, _ := strconv.Atoi(stamp[:3])
	hour, _ := strconv.Atoi(stamp[3:5])
	minute, _ := strconv.Atoi(stamp[5:])
	year := p.now().UTC().Year()
	issued := time.Date(year, time.January, 1, hour, minute, 0, 0, time.UTC).
		AddDate(0, 0, day-1)

	return &Header{
		Raw:            m[0],
		Originator:     originator,
		OriginatorName: OriginatorName(originator),
		EventCode:      event,
		EventName:      EventName(event),
		LocationCodes:  codes,
		LocationNames:  names,
		DurationMin:    (duration/100)*60 + duration%100,
		IssuedAt:       issued,
		IssuedAtLocal:  issued.In(p.loc),
		Sender:         sender,
	}
}
