package timeutil

import "testing"

func TestTo12Hour(t *testing.T) {
	cases := []struct{ in, want string }{
		{"00:05", "12:05 AM"},
		{"09:30", "9:30 AM"},
		{"12:00", "12:00 PM"},
		{"13:45", "1:45 PM"},
		{"23:00", "11:00 PM"},
	}
	for _, c := range cases {
		if got := To12Hour(c.in); got != c.want {
			t.Fatalf("To12Hour(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTo24Hour(t *testing.T) {
	cases := []struct{ in, want string }{
		{"12:05 AM", "00:05"},
		{"9:30 AM", "09:30"},
		{"12:00 PM", "12:00"},
		{"1:45 pm", "13:45"},
		{"11:00 PM", "23:00"},
	}
	for _, c := range cases {
		if got := To24Hour(c.in); got != c.want {
			t.Fatalf("To24Hour(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTimeOptionsEndsOnTheHour(t *testing.T) {
	opts := TimeOptions(8, 17, false)
	// 8:00 through 17:00 at half-hour steps, no 17:30.
	if len(opts) != 19 {
		t.Fatalf("expected 19 options, got %d", len(opts))
	}
	if opts[0] != "08:00" {
		t.Fatalf("expected first option 08:00, got %s", opts[0])
	}
	if opts[len(opts)-1] != "17:00" {
		t.Fatalf("expected last option 17:00, got %s", opts[len(opts)-1])
	}
	for i := 1; i < len(opts); i++ {
		a, _ := ParseMinutes(opts[i-1])
		b, _ := ParseMinutes(opts[i])
		if b-a != 30 {
			t.Fatalf("options not 30 minutes apart at %d: %s -> %s", i, opts[i-1], opts[i])
		}
	}
}

func TestTimeOptions12Hour(t *testing.T) {
	opts := TimeOptions(11, 13, true)
	want := []string{"11:00 AM", "11:30 AM", "12:00 PM", "12:30 PM", "1:00 PM"}
	if len(opts) != len(want) {
		t.Fatalf("expected %d options, got %d", len(want), len(opts))
	}
	for i := range want {
		if opts[i] != want[i] {
			t.Fatalf("option %d: got %s, want %s", i, opts[i], want[i])
		}
	}
}

func TestParseDisplayTime(t *testing.T) {
	cases := []struct{ in, want string }{
		{"14:30", "14:30"},
		{"9:05", "09:05"},
		{"2:30 PM", "14:30"},
		{"12:15 am", "00:15"},
		{"around 10.45", "10:45"},
		{"nonsense", "00:00"},
		{"", "00:00"},
	}
	for _, c := range cases {
		if got := ParseDisplayTime(c.in); got != c.want {
			t.Fatalf("ParseDisplayTime(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMinutesRoundTrip(t *testing.T) {
	for _, s := range []string{"00:00", "08:30", "12:00", "23:59"} {
		mins, ok := ParseMinutes(s)
		if !ok {
			t.Fatalf("ParseMinutes(%q) failed", s)
		}
		if got := FormatMinutes(mins); got != s {
			t.Fatalf("round trip %q -> %d -> %q", s, mins, got)
		}
	}
	if _, ok := ParseMinutes("25:00"); ok {
		t.Fatal("expected ParseMinutes to reject hour 25")
	}
}
