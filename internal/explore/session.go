// Package explore is a terminal client for the directory API. It pages
// through countries or cities the way the browse view scrolls, applying
// the filter selection to what has been loaded.
package explore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/julianalert/expedition37-sub000/internal/catalog"
	"github.com/julianalert/expedition37-sub000/internal/feed"
	"github.com/julianalert/expedition37-sub000/internal/filter"
)

// Kind selects the listing a session scrolls through.
type Kind string

const (
	KindCountries Kind = "countries"
	KindCities    Kind = "cities"
)

// ErrQuit is returned by Execute when the user asks to leave.
var ErrQuit = errors.New("quit")

// Session holds one browsing session: a pager, the filter selection and
// the ids already printed.
type Session struct {
	client *Client
	kind   Kind
	limit  int
	out    io.Writer
	log    zerolog.Logger

	filter    filter.State
	countries *feed.Pager[catalog.Country]
	cities    *feed.Pager[catalog.City]
	byID      map[int]catalog.Country
	shown     map[int]bool
	origin    string
}

// NewSession creates a session for kind. Output goes to out.
func NewSession(c *Client, kind Kind, limit int, initial filter.State, out io.Writer, log zerolog.Logger) (*Session, error) {
	switch kind {
	case KindCountries, KindCities:
	default:
		return nil, fmt.Errorf("unknown listing %q", kind)
	}
	if limit < 1 || limit > catalog.MaxPageSize {
		return nil, fmt.Errorf("page size %d out of range 1..%d", limit, catalog.MaxPageSize)
	}
	s := &Session{
		client: c,
		kind:   kind,
		limit:  limit,
		out:    out,
		log:    log,
		filter: initial,
	}
	s.reset()
	return s, nil
}

// reset discards everything loaded and starts a fresh pager.
func (s *Session) reset() {
	s.shown = make(map[int]bool)
	switch s.kind {
	case KindCountries:
		s.countries = feed.New(func(ctx context.Context, page, limit int) (feed.Page[catalog.Country], error) {
			p, origin, err := s.client.CountriesPage(ctx, page, limit)
			s.origin = origin
			return p, err
		}, func(c catalog.Country) int { return c.ID }, s.limit)
	case KindCities:
		s.cities = feed.New(func(ctx context.Context, page, limit int) (feed.Page[catalog.City], error) {
			p, origin, err := s.client.CitiesPage(ctx, page, limit)
			s.origin = origin
			return p, err
		}, func(c catalog.City) int { return c.ID }, s.limit)
	}
}

// Start loads the first page and prints it.
func (s *Session) Start(ctx context.Context) error {
	var err error
	if s.kind == KindCountries {
		err = s.countries.Start(ctx)
	} else {
		err = s.cities.Start(ctx)
	}
	if err != nil {
		return err
	}
	return s.print(ctx, false)
}

// Execute runs one command line. An empty line loads more.
func (s *Session) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return s.more(ctx)
	}
	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "more", "m":
		return s.more(ctx)
	case "filter", "f":
		return s.applyFilter(ctx, args)
	case "clear":
		s.filter = filter.State{}
		return s.print(ctx, true)
	case "reset":
		s.reset()
		return s.Start(ctx)
	case "status", "s":
		s.status()
		return nil
	case "help", "h", "?":
		s.help()
		return nil
	case "quit", "exit", "q":
		return ErrQuit
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
}

func (s *Session) more(ctx context.Context) error {
	if s.state() == feed.StateExhausted {
		fmt.Fprintln(s.out, "-- end of list --")
		return nil
	}
	var err error
	if s.kind == KindCountries {
		err = s.countries.LoadMore(ctx)
	} else {
		err = s.cities.LoadMore(ctx)
	}
	if err != nil {
		return err
	}
	return s.print(ctx, false)
}

// applyFilter merges key=value arguments into the selection. An empty value
// clears that key.
func (s *Session) applyFilter(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(s.out, "filter: %s\n", describe(s.filter))
		return nil
	}
	q := s.filter.Query()
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return fmt.Errorf("expected key=value, got %q", arg)
		}
		if v == "" {
			q.Del(k)
			continue
		}
		q.Set(k, v)
	}
	next, err := filter.FromQuery(q)
	if err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}
	s.filter = next
	return s.print(ctx, true)
}

// print writes visible items not yet printed. With all set, every visible
// item is printed again.
func (s *Session) print(ctx context.Context, all bool) error {
	if all {
		s.shown = make(map[int]bool)
	}
	var lines []string
	var matching int
	switch s.kind {
	case KindCountries:
		visible := s.countries.Visible(func(c catalog.Country) bool { return filter.MatchCountry(c, s.filter) })
		matching = len(visible)
		for _, c := range visible {
			if !s.shown[c.ID] {
				s.shown[c.ID] = true
				lines = append(lines, fmt.Sprintf("%-28s %s%s", c.Name, c.Continent, budget(c.WeeklyBudget)))
			}
		}
	case KindCities:
		byID, err := s.countryIndex(ctx)
		if err != nil {
			return err
		}
		visible := s.cities.Visible(func(c catalog.City) bool { return filter.MatchCity(c, byID, s.filter) })
		matching = len(visible)
		for _, c := range visible {
			if !s.shown[c.ID] {
				s.shown[c.ID] = true
				country := byID[c.CountryID].Name
				if country == "" {
					country = "?"
				}
				lines = append(lines, fmt.Sprintf("%-28s %s%s", c.Name, country, budget(c.WeeklyBudget)))
			}
		}
	}
	for _, l := range lines {
		fmt.Fprintln(s.out, l)
	}
	if len(lines) == 0 && matching == 0 {
		fmt.Fprintln(s.out, "no matches loaded yet")
	}
	if s.origin == string(catalog.OriginFallback) {
		fmt.Fprintln(s.out, "(showing offline data)")
	}
	return nil
}

// countryIndex returns countries by id, fetched once and only when city rows
// need a country name or continent.
func (s *Session) countryIndex(ctx context.Context) (map[int]catalog.Country, error) {
	if s.byID != nil {
		return s.byID, nil
	}
	list, err := s.client.Countries(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading countries: %w", err)
	}
	s.byID = catalog.ByID(list)
	return s.byID, nil
}

func (s *Session) state() feed.State {
	if s.kind == KindCountries {
		return s.countries.State()
	}
	return s.cities.State()
}

func (s *Session) status() {
	var loaded, total int
	var err error
	if s.kind == KindCountries {
		loaded, total, err = len(s.countries.Items()), s.countries.Total(), s.countries.Err()
	} else {
		loaded, total, err = len(s.cities.Items()), s.cities.Total(), s.cities.Err()
	}
	fmt.Fprintf(s.out, "%s: %s, %d of %d loaded, %d shown, filter %s\n",
		s.kind, s.state(), loaded, total, len(s.shown), describe(s.filter))
	if err != nil {
		fmt.Fprintf(s.out, "last error: %v\n", err)
	}
}

func (s *Session) help() {
	fmt.Fprint(s.out, `commands:
  <enter>, more          load the next page
  filter key=value ...   set continent, criteria, additional, budget or goal
  filter key=            clear one key
  clear                  clear the whole filter
  reset                  reload from the first page
  status                 show paging state
  quit                   leave
`)
}

func describe(f filter.State) string {
	if f.Empty() {
		return "none"
	}
	q, _ := url.QueryUnescape(f.Query().Encode())
	return q
}

func budget(w *float64) string {
	if w == nil {
		return ""
	}
	return fmt.Sprintf("  ~%.0f/week", *w)
}
