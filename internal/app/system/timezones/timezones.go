// Package timezones exposes the curated list of IANA zones offered when
// scheduling study sessions.
package timezones

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

//go:embed timezonedata/timezones.json
var FS embed.FS

type Zone struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Region string `json:"region,omitempty"`
}

type ZoneGroup struct {
	Region string
	Zones  []Zone
}

// catalog is built once from the embedded JSON.
type catalog struct {
	zones  []Zone
	byID   map[string]Zone
	groups []ZoneGroup
}

var loadCatalog = sync.OnceValues(func() (*catalog, error) {
	data, err := FS.ReadFile("timezonedata/timezones.json")
	if err != nil {
		return nil, err
	}
	var list []Zone
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("timezones: decode: %w", err)
	}

	c := &catalog{zones: list, byID: make(map[string]Zone, len(list))}
	byRegion := make(map[string][]Zone)
	for _, z := range list {
		c.byID[z.ID] = z
		region := z.Region
		if region == "" {
			region = "Other"
		}
		byRegion[region] = append(byRegion[region], z)
	}
	for region, zs := range byRegion {
		sort.SliceStable(zs, func(i, j int) bool { return zs[i].Label < zs[j].Label })
		c.groups = append(c.groups, ZoneGroup{Region: region, Zones: zs})
	}
	// UTC leads; the rest are alphabetical.
	sort.SliceStable(c.groups, func(i, j int) bool {
		if c.groups[i].Region == "UTC" || c.groups[j].Region == "UTC" {
			return c.groups[i].Region == "UTC"
		}
		return c.groups[i].Region < c.groups[j].Region
	})
	return c, nil
})

// Load is optional: call it at startup to fail fast on a bad embed.
func Load() error {
	_, err := loadCatalog()
	return err
}

// All returns every curated zone in file order.
func All() ([]Zone, error) {
	c, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	return c.zones, nil
}

// Label returns the human-friendly label for an ID, or the ID itself if not found.
func Label(id string) string {
	c, err := loadCatalog()
	if err != nil {
		return id
	}
	if z, ok := c.byID[id]; ok && z.Label != "" {
		return z.Label
	}
	return id
}

// Valid reports whether the given ID exists in the curated list.
func Valid(id string) bool {
	c, err := loadCatalog()
	if err != nil {
		return false
	}
	_, ok := c.byID[id]
	return ok
}

// Location resolves a curated zone ID. "" resolves to UTC.
func Location(id string) (*time.Location, error) {
	if id == "" || id == "UTC" {
		return time.UTC, nil
	}
	if !Valid(id) {
		return nil, fmt.Errorf("timezones: unknown zone %q", id)
	}
	return time.LoadLocation(id)
}

// Groups returns the curated zones grouped by region for <optgroup> menus.
func Groups() ([]ZoneGroup, error) {
	c, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	return c.groups, nil
}
