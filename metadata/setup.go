package metadata

import "github.com/sirupsen/logrus"

// SetUp runs the idempotent per-point set-up pass: Transform args are
// cross-checked against declared input relations (excess inputs on a
// non-multiple arg, or missing inputs on a required arg, warn rather than
// fail — metadata loading tolerates imperfect declarations the way the
// teacher's set-up passes tolerate optional fields). A point's Store and
// NullRemoves are left as loaded: NullRemoves is whatever the point
// declared, and no default is taken from its Store. Behavior-chain
// instantiation is intentionally NOT done here: it is layered on top by
// behavior.Activate, which depends on metadata but must not be depended on
// by it.
func SetUp(arena *Arena, log *logrus.Entry) error {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	for _, p := range arena.All() {
		if p.Dropped {
			continue
		}
		setUpPoint(p, log)
	}
	return nil
}

func setUpPoint(p *Point, log *logrus.Entry) {
	if p.Transform == nil {
		return
	}
	args := p.Transform.Args()
	counts := make(map[string]int, len(args))
	for _, in := range p.Inputs {
		if in.ArgName != "" {
			counts[in.ArgName]++
		}
	}
	for _, arg := range args {
		n := counts[arg.Name]
		switch {
		case arg.Required && n == 0:
			log.WithFields(logrus.Fields{"point": p.String(), "arg": arg.Name}).
				Warn("metadata: required transform argument has no input relation")
		case !arg.Multiple && n > 1:
			log.WithFields(logrus.Fields{"point": p.String(), "arg": arg.Name, "count": n}).
				Warn("metadata: non-multiple transform argument has more than one input relation")
		}
	}
}
