package rapla

import (
	"strings"
	"testing"
	"time"

	"git.sr.ht/~mariusor/hestia/calendar"
)

const weekHeader = `<tr>
<td class="week_number">42</td>
<td class="week_header"><nobr>Mo 14.10.</nobr></td>
<td class="week_header"><nobr>Di 15.10.</nobr></td>
<td class="week_header"><nobr>Mi 16.10.</nobr></td>
</tr>`

func block(style, text, person, resource string) string {
	b := `<td class="week_block" style="` + style + `"><a href="#">` + text + `</a>`
	if person != "" {
		b += `<span class="person">` + person + `</span>`
	}
	if resource != "" {
		b += `<span class="resource">` + resource + `</span>`
	}
	return b + `</td>`
}

func weekTable(rows ...string) string {
	return `<html><body><table class="week_table">` + weekHeader + strings.Join(rows, "") + `</table></body></html>`
}

func parse(t *testing.T, html string) *calendar.Calendar {
	t.Helper()
	cal, err := NewParser(2026, nil, nil).Parse(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return cal
}

func TestParseSingleBlock(t *testing.T) {
	row := `<tr><td></td>` +
		block("background-color: #ff0000;", "08:15 -09:45 Mathematik", "Dr. Gauss", "B1.01") +
		`<td></td></tr>`
	cal := parse(t, weekTable(row))

	if cal.Len() != 1 {
		t.Fatalf("got %d lectures", cal.Len())
	}
	lec := cal.Entries()[0].(calendar.Lecture)
	if lec.Title != "Mathematik" {
		t.Errorf("title is %q", lec.Title)
	}
	if lec.Room != "B1.01" || lec.Lecturer != "Dr. Gauss" {
		t.Errorf("room/lecturer is %q/%q", lec.Room, lec.Lecturer)
	}
	if lec.Color != "#ff0000" {
		t.Errorf("color is %q", lec.Color)
	}
	want := time.Date(2026, 10, 14, 8, 15, 0, 0, time.Local)
	if !lec.Start.Equal(want) {
		t.Errorf("start is %s, wanted %s", lec.Start, want)
	}
	if !lec.End.Equal(time.Date(2026, 10, 14, 9, 45, 0, 0, time.Local)) {
		t.Errorf("end is %s", lec.End)
	}
}

func TestParseBlocktailKeepsDayAlignment(t *testing.T) {
	// Monday block, Tuesday tail of a spanning block, Wednesday block.
	// The tail group is one cell shorter; a walk that always advances
	// three cells would land the Wednesday lecture on the wrong day.
	row := `<tr><td></td>` +
		block("background-color: #ff0000;", "08:15 -09:45 Mathematik", "", "") +
		`<td></td><td></td><td class="week_blocktail"></td><td></td>` +
		block("background-color: #00ff00;", "10:00 -11:30 Physik", "", "") +
		`<td></td></tr>`
	cal := parse(t, weekTable(row))

	if cal.Len() != 2 {
		t.Fatalf("got %d lectures", cal.Len())
	}
	second := cal.Entries()[1].(calendar.Lecture)
	if second.Title != "Physik" {
		t.Fatalf("second lecture is %q", second.Title)
	}
	if second.Start.Day() != 16 {
		t.Errorf("Physik landed on day %d, wanted 16", second.Start.Day())
	}
}

func TestParseRecoversFromMalformedBlock(t *testing.T) {
	rows := []string{
		`<tr><td></td>` + block("background-color: #ff0000;", "8:15 - 9:45 Kaputt", "", "") + `<td></td></tr>`,
		`<tr><td></td>` + block("background-color: #ff0000;", "10:00 -11:30 Physik", "", "") + `<td></td></tr>`,
	}
	cal := parse(t, weekTable(rows...))

	if cal.Len() != 1 {
		t.Fatalf("got %d lectures", cal.Len())
	}
	if cal.Entries()[0].(calendar.Lecture).Title != "Physik" {
		t.Errorf("unexpected surviving lecture %s", cal.Entries()[0])
	}
}

func TestParseBlockValidation(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{"missing style", `<tr><td></td><td class="week_block"><a>08:15 -09:45 X</a></td><td></td></tr>`},
		{"short color", `<tr><td></td>` + block("background-color: #ff00;", "08:15 -09:45 X", "", "") + `<td></td></tr>`},
		{"no anchor", `<tr><td></td><td class="week_block" style="background-color: #ff0000;"></td><td></td></tr>`},
		{"text too short", `<tr><td></td>` + block("background-color: #ff0000;", "08:15 -09:45", "", "") + `<td></td></tr>`},
		{"end before start", `<tr><td></td>` + block("background-color: #ff0000;", "09:45 -08:15 X", "", "") + `<td></td></tr>`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if cal := parse(t, weekTable(tc.row)); cal.Len() != 0 {
				t.Errorf("malformed block survived: %s", cal.Entries()[0])
			}
		})
	}
}

func TestParseDefaultsLecturer(t *testing.T) {
	row := `<tr><td></td>` + block("background-color: #ff0000;", "08:15 -09:45 Mathematik", "", "B1.01") + `<td></td></tr>`
	cal := parse(t, weekTable(row))
	if cal.Len() != 1 {
		t.Fatal("expected one lecture")
	}
	if got := cal.Entries()[0].(calendar.Lecture).Lecturer; got != "-" {
		t.Errorf("lecturer is %q", got)
	}
}

func TestParseMalformedHeaderKeepsDayAlignment(t *testing.T) {
	// A broken Tuesday header must not shift the following weekdays
	// left. The Tuesday block is dropped, the Wednesday block still
	// lands on the 16th.
	header := `<tr>
<td class="week_number">42</td>
<td class="week_header"><nobr>Mo 14.10.</nobr></td>
<td class="week_header"><nobr>Di kaputt</nobr></td>
<td class="week_header"><nobr>Mi 16.10.</nobr></td>
</tr>`
	row := `<tr><td></td><td></td><td></td>` +
		`<td></td>` + block("background-color: #ff0000;", "08:15 -09:45 Mathematik", "", "") + `<td></td>` +
		`<td></td>` + block("background-color: #00ff00;", "10:00 -11:30 Physik", "", "") + `<td></td>` +
		`</tr>`
	html := `<html><body><table class="week_table">` + header + row + `</table></body></html>`
	cal := parse(t, html)

	if cal.Len() != 1 {
		t.Fatalf("got %d lectures", cal.Len())
	}
	lec := cal.Entries()[0].(calendar.Lecture)
	if lec.Title != "Physik" {
		t.Errorf("title is %q", lec.Title)
	}
	want := time.Date(2026, 10, 16, 10, 0, 0, 0, time.Local)
	if !lec.Start.Equal(want) {
		t.Errorf("start is %s, wanted %s", lec.Start, want)
	}
}

func TestParseShortRow(t *testing.T) {
	cal := parse(t, weekTable(`<tr><td></td></tr>`))
	if cal.Len() != 0 {
		t.Errorf("got %d lectures", cal.Len())
	}
}

func TestParseWithoutWeekTable(t *testing.T) {
	cal := parse(t, `<html><body><p>nichts</p></body></html>`)
	if cal == nil {
		t.Fatal("expected an empty calendar, not nil")
	}
	if cal.Len() != 0 {
		t.Errorf("got %d lectures", cal.Len())
	}
}

func TestHeaderDate(t *testing.T) {
	p := NewParser(2026, nil, nil)
	day, err := p.headerDate(" Mo 14.10. ")
	if err != nil {
		t.Fatal(err)
	}
	if day.Day() != 14 || day.Month() != time.October || day.Year() != 2026 {
		t.Errorf("got %s", day)
	}

	if _, err = p.headerDate("Mo"); err == nil {
		t.Error("missing date token accepted")
	}
	if _, err = p.headerDate("Mo 14.10"); err == nil {
		t.Error("date without trailing dot accepted")
	}
}

func TestGetCalendarURL(t *testing.T) {
	u, err := GetCalendarURL("", "abc", time.Date(2026, 10, 14, 0, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("key") != "abc" || q.Get("day") != "14" || q.Get("month") != "10" || q.Get("year") != "2026" {
		t.Errorf("unexpected query %s", u.RawQuery)
	}
	if !strings.HasPrefix(u.String(), DefaultBaseURI) {
		t.Errorf("unexpected base %s", u)
	}

	if _, err = GetCalendarURL("", "", time.Now()); err == nil {
		t.Error("empty key accepted")
	}
}
