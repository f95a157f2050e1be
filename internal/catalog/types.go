package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Ratings are scores in the 0-100 range.
type Ratings struct {
	Overall int `json:"overall" yaml:"overall"`
	Cost    int `json:"cost" yaml:"cost"`
	Safety  int `json:"safety" yaml:"safety"`
	Fun     int `json:"fun" yaml:"fun"`
	Food    int `json:"food" yaml:"food"`
}

// Facets are the boolean attributes used for exact-match filtering.
type Facets struct {
	Safe           bool `json:"safe" yaml:"safe"`
	FastInternet   bool `json:"fastInternet" yaml:"fastInternet"`
	CleanAir       bool `json:"cleanAir" yaml:"cleanAir"`
	HiddenGem      bool `json:"hiddenGem" yaml:"hiddenGem"`
	Popular        bool `json:"popular" yaml:"popular"`
	FamilyFriendly bool `json:"familyFriendly" yaml:"familyFriendly"`
	EcoFriendly    bool `json:"ecofriendly" yaml:"ecofriendly"`
	DogFriendly    bool `json:"dogfriendly" yaml:"dogfriendly"`
	LGBTQFriendly  bool `json:"lgbtqfriendly" yaml:"lgbtqfriendly"`
	LowRacism      bool `json:"lowRacism" yaml:"lowRacism"`
	MuslimFriendly bool `json:"muslimfriendly" yaml:"muslimfriendly"`
	AmazingFood    bool `json:"amazingFood" yaml:"amazingFood"`
	Nightlife      bool `json:"nightlife" yaml:"nightlife"`
	GreatForDating bool `json:"greatForDating" yaml:"greatForDating"`
}

// Attributes is the shape shared by countries and cities.
type Attributes struct {
	Ratings `yaml:",inline"`
	Facets  `yaml:",inline"`

	Mood         []string `json:"mood" yaml:"mood"`
	VacationGoal []string `json:"vacationgoal" yaml:"vacationgoal"`
	// WeeklyBudget is nil when the backend has no figure for the entity.
	WeeklyBudget *float64 `json:"weeklyBudget" yaml:"weeklyBudget"`
	// Rank orders listings; lower is more prominent.
	Rank      int    `json:"rank" yaml:"rank"`
	Image     string `json:"image,omitempty" yaml:"image"`
	Thumbnail string `json:"thumbnail,omitempty" yaml:"thumbnail"`
}

// Country is a destination country with its ranking and facet attributes.
type Country struct {
	ID         int    `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Continent  string `json:"continent" yaml:"continent"`
	Attributes `yaml:",inline"`
}

// City is a destination city. CountryID refers to a Country in the same dataset.
type City struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	// CountryID references Country.ID. Dangling references are tolerated.
	CountryID  int `json:"country" yaml:"country"`
	Attributes `yaml:",inline"`

	// Overview and ThingsToDo arrive as raw JSON, sometimes double-encoded as
	// a JSON string. Use ParseSections to read them.
	Overview   json.RawMessage `json:"overview,omitempty" yaml:"-"`
	ThingsToDo json.RawMessage `json:"thingstodo,omitempty" yaml:"-"`
}

// Section is one block of long-form city content.
type Section struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

var errMalformedSections = errors.New("malformed section content")

// ParseSections decodes a city content field. It accepts an array of
// sections, a single section object, or a JSON string wrapping either.
// Empty and null input yield no sections and no error.
func ParseSections(raw json.RawMessage) ([]Section, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformedSections, err)
		}
		inner = strings.TrimSpace(inner)
		if inner == "" {
			return nil, nil
		}
		raw = []byte(inner)
	}

	switch raw[0] {
	case '[':
		var out []Section
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformedSections, err)
		}
		return out, nil
	case '{':
		var one Section
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformedSections, err)
		}
		return []Section{one}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected leading %q", errMalformedSections, raw[0])
	}
}

// CountryPage is one page of the country listing.
type CountryPage struct {
	Countries []Country `json:"countries"`
	HasMore   bool      `json:"hasMore"`
	Total     int       `json:"total"`
}

// CityPage is one page of the city listing.
type CityPage struct {
	Cities  []City `json:"cities"`
	HasMore bool   `json:"hasMore"`
	Total   int    `json:"total"`
}

// Destination is a city together with its country and decoded content.
type Destination struct {
	Country    Country   `json:"country"`
	City       City      `json:"city"`
	Overview   []Section `json:"overviewSections,omitempty"`
	ThingsToDo []Section `json:"thingsToDoSections,omitempty"`
}

// HasMore reports whether rows remain after the zero-indexed page, that is
// whether page*limit+limit < total. It is evaluated without multiplying so
// large page indexes cannot overflow.
func HasMore(page, limit, total int) bool {
	if page < 0 || limit <= 0 || total <= 0 {
		return false
	}
	return page < (total-1)/limit
}
