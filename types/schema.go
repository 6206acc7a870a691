package types

import (
	"github.com/juju/errors"
	"github.com/spf13/cast"
)

// SettingKind restricts the value shape of one setting key.
type SettingKind int32

const (
	SettingString SettingKind = 1
	SettingNumber SettingKind = 2
	SettingBool   SettingKind = 3
	// SettingEnum restricts the value to one of SettingSpec.Options.
	SettingEnum SettingKind = 4
)

// SettingSpec declares one recognized setting key of a node type.
type SettingSpec struct {
	Kind    SettingKind
	Default any
	// Options is the allowed value set for SettingEnum specs,
	// e.g. {"GPT-5 Mini", "GPT-5"} for a model picker.
	Options []string
}

/**
 * NodeTypeSchema declares the recognized setting keys and defaults of
 * one node type. Schemas are registered alongside executors and
 * checked during graph validation; the engine itself stays agnostic to
 * their contents and only asks the schema to validate a settings bag.
 * Unknown keys are rejected so a stale canvas cannot smuggle settings
 * a node type no longer recognizes.
 */
type NodeTypeSchema struct {
	TypeID   string
	Settings map[string]SettingSpec
}

// Validate checks a node's settings bag against the schema.
func (s *NodeTypeSchema) Validate(settings Data) error {
	for key, value := range settings {
		spec, recognized := s.Settings[key]
		if !recognized {
			return errors.BadRequestf("unknown setting %q for node type %s", key, s.TypeID)
		}
		if err := spec.check(value); err != nil {
			return errors.Annotatef(err, "setting %q of node type %s", key, s.TypeID)
		}
	}
	return nil
}

// ApplyDefaults fills declared defaults into a settings bag for every
// key the bag leaves unset. The bag is returned for chaining; a nil
// bag with at least one declared default becomes a fresh map.
func (s *NodeTypeSchema) ApplyDefaults(settings Data) Data {
	for key, spec := range s.Settings {
		if spec.Default == nil {
			continue
		}
		if settings == nil {
			settings = Data{}
		}
		if _, exists := settings[key]; !exists {
			settings[key] = spec.Default
		}
	}
	return settings
}

func (spec *SettingSpec) check(value any) error {
	switch spec.Kind {
	case SettingString:
		if _, err := cast.ToStringE(value); err != nil {
			return errors.BadRequestf("expect string, got %T", value)
		}

	case SettingNumber:
		if _, err := cast.ToFloat64E(value); err != nil {
			return errors.BadRequestf("expect number, got %T", value)
		}

	case SettingBool:
		if _, err := cast.ToBoolE(value); err != nil {
			return errors.BadRequestf("expect bool, got %T", value)
		}

	case SettingEnum:
		str, err := cast.ToStringE(value)
		if err != nil {
			return errors.BadRequestf("expect one of %v, got %T", spec.Options, value)
		}
		for _, opt := range spec.Options {
			if opt == str {
				return nil
			}
		}
		return errors.BadRequestf("value %q not in %v", str, spec.Options)

	default:
		return errors.NotSupportedf("setting kind %v", spec.Kind)
	}
	return nil
}
