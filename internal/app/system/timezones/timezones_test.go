package timezones

import (
	"testing"
	"time"
)

func TestAll(t *testing.T) {
	zones, err := All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(zones) == 0 {
		t.Fatal("All() returned no zones")
	}
	for _, z := range zones {
		if z.ID == "" || z.Label == "" {
			t.Errorf("zone %+v missing ID or label", z)
		}
		if _, err := time.LoadLocation(z.ID); err != nil {
			t.Errorf("zone %q is not a loadable IANA zone: %v", z.ID, err)
		}
	}
}

func TestLabelAndValid(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"America/New_York", true},
		{"UTC", true},
		{"Invalid/Timezone", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.id); got != tt.valid {
			t.Errorf("Valid(%q) = %v, want %v", tt.id, got, tt.valid)
		}
		label := Label(tt.id)
		if !tt.valid && label != tt.id {
			t.Errorf("Label(%q) = %q, want the ID back", tt.id, label)
		}
		if tt.valid && label == "" {
			t.Errorf("Label(%q) is empty", tt.id)
		}
	}
}

func TestGroups_UTCFirst(t *testing.T) {
	gs, err := Groups()
	if err != nil {
		t.Fatalf("Groups() error = %v", err)
	}
	if len(gs) < 2 || gs[0].Region != "UTC" {
		t.Fatalf("first region = %q, want UTC", gs[0].Region)
	}
	for i := 2; i < len(gs); i++ {
		if gs[i-1].Region > gs[i].Region {
			t.Errorf("regions out of order: %q before %q", gs[i-1].Region, gs[i].Region)
		}
	}
}

func TestLocation(t *testing.T) {
	for _, id := range []string{"", "UTC"} {
		loc, err := Location(id)
		if err != nil || loc != time.UTC {
			t.Errorf("Location(%q) = %v, %v; want UTC", id, loc, err)
		}
	}
	if loc, err := Location("America/New_York"); err != nil || loc.String() != "America/New_York" {
		t.Errorf("Location(America/New_York) = %v, %v", loc, err)
	}
	if _, err := Location("Mars/Olympus_Mons"); err == nil {
		t.Error("Location should reject unknown zones")
	}
}
