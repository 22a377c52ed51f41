package value

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// State carries an optional integer code and an optional name; equality
// prefers the code, falling back to the name when no code is present on
// either side.
type State struct {
	hasCode bool
	code    int
	name    string
}

// NewStateCode builds a State with only a code.
func NewStateCode(code int) State { return State{hasCode: true, code: code} }

// NewStateName builds a State with only a name.
func NewStateName(name string) State { return State{name: name} }

// NewStateCodeName builds a State with both a code and a name.
func NewStateCodeName(code int, name string) State {
	return State{hasCode: true, code: code, name: name}
}

// Code returns the code and whether one is present.
func (s State) Code() (int, bool) { return s.code, s.hasCode }

// Name returns the name (empty if absent).
func (s State) Name() string { return s.name }

// String renders the canonical "<code>:<name>" form; either side may be
// empty but per the spec's invariant never both (an empty State is not a
// legal value, only an empty-name or empty-code one).
func (s State) String() string {
	var code string
	if s.hasCode {
		code = strconv.Itoa(s.code)
	}
	return code + ":" + s.name
}

// FromString parses the canonical form, tolerant of surrounding whitespace
// and of a bare name preceded by ':' with no code.
func FromString(str string) State {
	str = strings.TrimSpace(str)
	idx := strings.IndexByte(str, ':')
	if idx < 0 {
		// No separator: treat the whole token as a name, matching the
		// tolerant-parse requirement for malformed input.
		return State{name: str}
	}
	codePart := strings.TrimSpace(str[:idx])
	namePart := strings.TrimSpace(str[idx+1:])
	s := State{name: namePart}
	if codePart != "" {
		if n, err := strconv.Atoi(codePart); err == nil {
			s.hasCode = true
			s.code = n
		}
	}
	return s
}

// Equal compares by code when both sides have one and by name when neither
// has one; a State with a code never equals one without.
func (s State) Equal(o State) bool {
	if s.hasCode && o.hasCode {
		return s.code == o.code
	}
	if s.hasCode != o.hasCode {
		return false
	}
	return s.name == o.name
}

// Group indexes a set of States by code and by upper-cased, trimmed name,
// warning on duplicate registrations the way the source metadata loader
// warns on redundant declarations elsewhere.
type Group struct {
	byCode map[int]State
	byName map[string]State
	log    *logrus.Entry
}

// NewGroup returns an empty Group. A nil logger uses the standard logrus
// logger as configured.
func NewGroup(log *logrus.Entry) *Group {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Group{byCode: map[int]State{}, byName: map[string]State{}, log: log}
}

// Add registers s, warning (not failing) on a duplicate code or name.
func (g *Group) Add(s State) {
	if code, ok := s.Code(); ok {
		if _, dup := g.byCode[code]; dup {
			g.log.WithField("code", code).Warn("state group: duplicate code registration")
		}
		g.byCode[code] = s
	}
	if name := s.Name(); name != "" {
		key := strings.ToUpper(strings.TrimSpace(name))
		if _, dup := g.byName[key]; dup {
			g.log.WithField("name", key).Warn("state group: duplicate name registration")
		}
		g.byName[key] = s
	}
}

// ByCode looks up a previously added State by code.
func (g *Group) ByCode(code int) (State, bool) {
	s, ok := g.byCode[code]
	return s, ok
}

// ByName looks up a previously added State by name, case-insensitively.
func (g *Group) ByName(name string) (State, bool) {
	s, ok := g.byName[strings.ToUpper(strings.TrimSpace(name))]
	return s, ok
}
