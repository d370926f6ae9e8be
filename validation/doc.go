// Package validation checks component descriptors and configuration structs
// before wiring starts.
//
// ValidateDescriptor catches malformed hand-written descriptors (missing
// invokers, aliases the component cannot satisfy, periodic hooks outside
// POST_INIT) so they fail up front instead of mid-wiring:
//
//	if err := validation.ValidateDescriptors(descs); err != nil {
//	    return err
//	}
//
// Validate runs `validate` struct tags through the validator library and
// reports failures by configuration key:
//
//	type CacheConfig struct {
//	    Size int `mapstructure:"size" validate:"gte=1"`
//	}
//	err := validation.Validate(cfg)
//
// Both return a single *errors.AppError listing every problem found.
package validation
