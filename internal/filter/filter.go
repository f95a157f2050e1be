// Package filter evaluates the destination filter selection against countries
// and cities. Categories combine with AND; values inside a category combine
// with OR, except criteria and additional tags, which must all hold.
package filter

import (
	"net/url"
	"strings"

	"github.com/julianalert/expedition37-sub000/internal/catalog"
	"github.com/julianalert/expedition37-sub000/internal/validation"
)

// Budget is a weekly budget bucket.
type Budget string

const (
	BudgetAny      Budget = ""
	BudgetUnder500 Budget = "<500"
	BudgetUnder1k  Budget = "<1k"
	BudgetUnder2k  Budget = "<2k"
	BudgetUnder3k  Budget = "<3k"
)

var ceilings = map[Budget]float64{
	BudgetUnder500: 500,
	BudgetUnder1k:  1000,
	BudgetUnder2k:  2000,
	BudgetUnder3k:  3000,
}

// Ceiling returns the exclusive upper bound of b.
func (b Budget) Ceiling() (float64, bool) {
	c, ok := ceilings[b]
	return c, ok
}

// Type selects which listing a filter applies to.
type Type string

const (
	TypeCountries Type = "countries"
	TypePlaces    Type = "places"
)

// State is the active filter selection. The zero value matches everything.
type State struct {
	Continents    []string `query:"continent" validate:"dive,required,max=40"`
	Criteria      []string `query:"criteria" validate:"dive,required,max=40"`
	Additional    []string `query:"additional" validate:"dive,required,max=40"`
	Budget        Budget   `query:"budget" validate:"omitempty,oneof=<500 <1k <2k <3k"`
	VacationGoals []string `query:"goal" validate:"dive,required,max=40"`
	FilterType    Type     `query:"type" validate:"omitempty,oneof=countries places"`
}

// FromQuery binds a State from URL query values. List parameters may repeat
// or carry comma-separated values; "continents", "goals" and "vacationgoal"
// are accepted as aliases.
func FromQuery(q url.Values) (State, error) {
	s := State{
		Continents:    list(q, "continent", "continents"),
		Criteria:      list(q, "criteria"),
		Additional:    list(q, "additional"),
		Budget:        Budget(strings.TrimSpace(q.Get("budget"))),
		VacationGoals: list(q, "goal", "goals", "vacationgoal"),
		FilterType:    Type(strings.ToLower(strings.TrimSpace(q.Get("type")))),
	}
	if err := validation.Struct(s); err != nil {
		return State{}, err
	}
	return s, nil
}

func list(q url.Values, keys ...string) []string {
	var out []string
	for _, k := range keys {
		for _, v := range q[k] {
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		}
	}
	return out
}

// Empty reports whether no category constrains the result.
func (s State) Empty() bool {
	return len(s.Continents) == 0 && len(s.Criteria) == 0 && len(s.Additional) == 0 &&
		s.Budget == BudgetAny && len(s.VacationGoals) == 0
}

// Query encodes s back into URL parameters understood by FromQuery.
func (s State) Query() url.Values {
	q := url.Values{}
	set := func(k string, vs []string) {
		if len(vs) > 0 {
			q.Set(k, strings.Join(vs, ","))
		}
	}
	set("continent", s.Continents)
	set("criteria", s.Criteria)
	set("additional", s.Additional)
	set("goal", s.VacationGoals)
	if s.Budget != BudgetAny {
		q.Set("budget", string(s.Budget))
	}
	if s.FilterType != "" {
		q.Set("type", string(s.FilterType))
	}
	return q
}

// MatchCountry reports whether c satisfies s.
func MatchCountry(c catalog.Country, s State) bool {
	return matchContinent(c.Continent, true, s) && matchAttributes(c.Attributes, s)
}

// MatchCity reports whether city satisfies s. The continent comes from the
// city's country; a city whose country is not in countries never matches a
// continent selection.
func MatchCity(city catalog.City, countries map[int]catalog.Country, s State) bool {
	country, ok := countries[city.CountryID]
	return matchContinent(country.Continent, ok, s) && matchAttributes(city.Attributes, s)
}

// Countries returns the countries matching s, in input order.
func Countries(list []catalog.Country, s State) []catalog.Country {
	out := make([]catalog.Country, 0, len(list))
	for _, c := range list {
		if MatchCountry(c, s) {
			out = append(out, c)
		}
	}
	return out
}

// Cities returns the cities matching s, in input order.
func Cities(list []catalog.City, countries map[int]catalog.Country, s State) []catalog.City {
	out := make([]catalog.City, 0, len(list))
	for _, c := range list {
		if MatchCity(c, countries, s) {
			out = append(out, c)
		}
	}
	return out
}

func matchContinent(continent string, known bool, s State) bool {
	if len(s.Continents) == 0 {
		return true
	}
	if !known {
		return false
	}
	for _, want := range s.Continents {
		if strings.EqualFold(strings.TrimSpace(want), continent) {
			return true
		}
	}
	return false
}

func matchAttributes(a catalog.Attributes, s State) bool {
	return allTags(a, s.Criteria) &&
		allTags(a, s.Additional) &&
		matchBudget(a.WeeklyBudget, s.Budget) &&
		anyGoal(a.VacationGoal, s.VacationGoals)
}

func matchBudget(weekly *float64, b Budget) bool {
	ceiling, ok := b.Ceiling()
	if !ok {
		return true
	}
	return weekly != nil && *weekly < ceiling
}

func anyGoal(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		if containsFold(have, w) {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}
