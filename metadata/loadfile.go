package metadata

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// FileSpec is the on-disk shape of a point definitions file: a flat list
// of points plus their input/replicate relations, all referencing each
// other by UUID or name via PointRefSpec. Loaded through Viper (already
// the module's config-file library, per cli/root.go's pattern) rather than
// a bespoke YAML/JSON decoder.
type FileSpec struct {
	Points []PointSpec `mapstructure:"points"`
}

// PointSpec is one point's file-level declaration.
type PointSpec struct {
	UUID            string         `mapstructure:"uuid"`
	Name            string         `mapstructure:"name"`
	Transform       string         `mapstructure:"transform"`
	TransformParams map[string]any `mapstructure:"transform_params"`
	Volatile        bool           `mapstructure:"volatile"`
	NullRemoves     bool           `mapstructure:"null_removes"`
	RecalcLatest    bool           `mapstructure:"recalc_latest"`
	Inputs          []InputSpec    `mapstructure:"inputs"`
	Replicates      []ReplicateSpec `mapstructure:"replicates"`
}

// InputSpec is one file-level input relation.
type InputSpec struct {
	SourceUUID    string         `mapstructure:"source_uuid"`
	SourceName    string         `mapstructure:"source_name"`
	ArgName       string         `mapstructure:"arg"`
	BehaviorNames []string       `mapstructure:"behaviors"`
	Params        map[string]any `mapstructure:"params"`
	ControlInput  bool           `mapstructure:"control_input"`
}

// ReplicateSpec is one file-level replicate relation.
type ReplicateSpec struct {
	TargetUUID     string         `mapstructure:"target_uuid"`
	TargetName     string         `mapstructure:"target_name"`
	Convert        string         `mapstructure:"convert"`
	ConvertParams  map[string]any `mapstructure:"convert_params"`
}

// LoadFile reads path through a dedicated Viper instance, builds an Arena
// populated with every declared Point, resolves Transform references
// against reg, queues every input/replicate relation, and finally calls
// Tidy + AdjustLevel and freezes the Arena, so the returned Arena is ready
// for processor.New.
func LoadFile(path string, reg *TransformRegistry) (*Arena, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("metadata: read %s: %w", path, err)
	}

	var spec FileSpec
	if err := v.Unmarshal(&spec); err != nil {
		return nil, fmt.Errorf("metadata: decode %s: %w", path, err)
	}

	arena := NewArena()
	loader := NewLoader(arena)

	for _, ps := range spec.Points {
		id := uuid.New()
		if ps.UUID != "" {
			parsed, err := uuid.Parse(ps.UUID)
			if err != nil {
				return nil, fmt.Errorf("metadata: point %q: invalid uuid %q: %w", ps.Name, ps.UUID, err)
			}
			id = parsed
		}
		p := NewPoint(id, ps.Name)
		p.Volatile = ps.Volatile
		p.NullRemoves = ps.NullRemoves
		p.RecalcLatest = ps.RecalcLatest
		if ps.Transform != "" {
			t, err := reg.Build(ps.Transform, ps.TransformParams)
			if err != nil {
				return nil, fmt.Errorf("metadata: point %q: %w", p.String(), err)
			}
			p.Transform = t
		}
		if err := arena.Add(p); err != nil {
			return nil, err
		}
	}

	byIdentity := func(uuidStr, name string) PointRefSpec {
		return PointRefSpec{ByUUIDStr: uuidStr, ByName: name}
	}

	for i, ps := range spec.Points {
		owner := arena.At(i)
		for _, is := range ps.Inputs {
			loader.QueueInput(owner, byIdentity(is.SourceUUID, is.SourceName), nil, is.BehaviorNames, is.Params, is.ControlInput, is.ArgName)
		}
		for _, rs := range ps.Replicates {
			var convert Transform
			if rs.Convert != "" {
				t, err := reg.Build(rs.Convert, rs.ConvertParams)
				if err != nil {
					return nil, fmt.Errorf("metadata: point %q replicate: %w", owner.String(), err)
				}
				convert = t
			}
			loader.QueueReplicate(owner, byIdentity(rs.TargetUUID, rs.TargetName), convert)
		}
	}

	if err := loader.Tidy(); err != nil {
		return nil, err
	}
	if err := AdjustLevel(arena); err != nil {
		return nil, err
	}
	arena.Freeze()
	return arena, nil
}
