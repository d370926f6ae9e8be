package validation

import (
	"fmt"

	"github.com/kbukum/wirekit/component"
	"github.com/kbukum/wirekit/di"
	"github.com/kbukum/wirekit/errors"
)

const maxNameLength = 256

// configKeyPattern matches dotted viper keys such as "cache.ttl".
const configKeyPattern = `^[A-Za-z0-9_\-]+(\.[A-Za-z0-9_\-]+)*$`

var phaseNames = []string{
	component.PhasePreInit.String(),
	component.PhasePostInit.String(),
	component.PhasePreShutdown.String(),
}

// ValidateDescriptor reports structural problems in a component descriptor
// before it is submitted. All problems are collected into one Validation error.
func ValidateDescriptor(d di.Descriptor) error {
	v := New()
	checkDescriptor(v, "", d)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// ValidateDescriptors validates each descriptor and rejects duplicate
// component names.
func ValidateDescriptors(descs []di.Descriptor) error {
	v := New()
	seen := make(map[string]int, len(descs))
	for i, d := range descs {
		prefix := fmt.Sprintf("components[%d].", i)
		checkDescriptor(v, prefix, d)
		name := descriptorName(d)
		if first, dup := seen[name]; dup && name != "" {
			v.AddError(prefix+"name", fmt.Sprintf("duplicates components[%d] (%s)", first, name))
			continue
		}
		seen[name] = i
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func checkDescriptor(v *Validator, prefix string, d di.Descriptor) {
	name := descriptorName(d)
	v.Custom(d.Type != nil, prefix+"type", "is required")
	v.Required(prefix+"name", name).MaxLength(prefix+"name", name, maxNameLength)
	v.Min(prefix+"constructors", len(d.Constructors), 1)

	for i, c := range d.Constructors {
		field := fmt.Sprintf("%sconstructors[%d]", prefix, i)
		v.Custom(c.Invoke != nil, field+".invoke", "is required")
		for j, p := range c.Params {
			checkPoint(v, fmt.Sprintf("%s.params[%d]", field, j), p.Point)
		}
	}

	for i, t := range d.As {
		ok := t != nil && d.Type != nil && d.Type.AssignableTo(t)
		v.Custom(ok, fmt.Sprintf("%sas[%d]", prefix, i), "must be assignable from the component type")
	}

	fields := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		field := fmt.Sprintf("%sfields[%s]", prefix, f.Name)
		v.Custom(!fields[f.Name], field, "is declared twice")
		fields[f.Name] = true
		v.Custom(f.Assign != nil, field+".assign", "is required")
		checkPoint(v, field, f.Point)
	}

	for _, s := range d.Setters {
		field := fmt.Sprintf("%ssetters[%s]", prefix, s.Name)
		v.Custom(s.Invoke != nil, field+".invoke", "is required")
		for j, p := range s.Params {
			checkPoint(v, fmt.Sprintf("%s.params[%d]", field, j), p)
		}
	}

	for _, f := range d.Factories {
		field := fmt.Sprintf("%sfactories[%s]", prefix, f.Name)
		v.Custom(f.Type != nil, field+".type", "is required")
		v.Custom(f.Type == nil || f.Type != d.Type, field+".type", "must differ from the component type")
		v.Custom(f.Invoke != nil, field+".invoke", "is required")
		for j, p := range f.Params {
			checkPoint(v, fmt.Sprintf("%s.params[%d]", field, j), p)
		}
	}

	for _, h := range d.Hooks {
		field := fmt.Sprintf("%shooks[%s]", prefix, h.Name)
		v.OneOf(field+".phase", h.Phase.String(), phaseNames)
		v.Custom(h.Invoke != nil, field+".invoke", "is required")
		v.Custom(h.Interval >= 0, field+".interval", "must not be negative")
		v.Custom(h.Interval == 0 || h.Phase == component.PhasePostInit, field+".interval", "is only allowed on POST_INIT hooks")
	}
}

func checkPoint(v *Validator, field string, p di.Point) {
	v.Custom(p.Type != nil, field+".type", "is required")
	if p.ConfigKey != "" {
		v.Pattern(field+".config_key", p.ConfigKey, configKeyPattern)
	}
}

func descriptorName(d di.Descriptor) string {
	if d.Name != "" {
		return d.Name
	}
	if d.Type != nil {
		return d.Type.String()
	}
	return ""
}

// IsValidation reports whether err is a validation failure produced by this
// package.
func IsValidation(err error) bool {
	appErr, ok := errors.AsAppError(err)
	return ok && appErr.Code == errors.ErrCodeInvalidInput
}
