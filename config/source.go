package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Source exposes a viper instance as a lookup table for configuration-valued
// injection points. Keys use viper's dotted notation ("cache.ttl").
type Source struct {
	v *viper.Viper
}

// NewSource wraps an existing viper instance. A nil instance yields an empty source.
func NewSource(v *viper.Viper) *Source {
	if v == nil {
		v = viper.New()
	}
	return &Source{v: v}
}

// LoadSource resolves config.yml and .env the same way LoadConfig does and
// returns the merged result as a Source.
func LoadSource(serviceName string, opts ...LoaderOption) (*Source, error) {
	lc := newLoaderConfig(opts)
	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(serviceName, lc)
	return NewSource(newViper(files, lc.FileSystem)), nil
}

// Viper returns the underlying viper instance.
func (s *Source) Viper() *viper.Viper { return s.v }

// Set overrides a key. Mostly useful in tests.
func (s *Source) Set(key string, value any) { s.v.Set(key, value) }

// Lookup returns the value under key converted to t.
func (s *Source) Lookup(key string, t reflect.Type) (any, bool, error) {
	if !s.v.IsSet(key) {
		return nil, false, nil
	}
	raw := s.v.Get(key)

	if t == durationType {
		d, err := cast.ToDurationE(raw)
		if err != nil {
			return nil, true, convertErr(key, t, err)
		}
		return d, true, nil
	}

	var (
		out any
		err error
	)
	switch t.Kind() {
	case reflect.String:
		out, err = cast.ToStringE(raw)
	case reflect.Bool:
		out, err = cast.ToBoolE(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		out, err = cast.ToInt64E(raw)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		out, err = cast.ToUint64E(raw)
	case reflect.Float32, reflect.Float64:
		out, err = cast.ToFloat64E(raw)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.String {
			out, err = cast.ToStringSliceE(raw)
			break
		}
		return s.unmarshal(key, t)
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return raw, true, nil
		}
		return nil, true, convertErr(key, t, fmt.Errorf("unsupported interface type"))
	default:
		return s.unmarshal(key, t)
	}
	if err != nil {
		return nil, true, convertErr(key, t, err)
	}
	return reflect.ValueOf(out).Convert(t).Interface(), true, nil
}

// unmarshal decodes structured values (structs, maps, pointers, non-string
// slices) through mapstructure.
func (s *Source) unmarshal(key string, t reflect.Type) (any, bool, error) {
	target := t
	if t.Kind() == reflect.Ptr {
		target = t.Elem()
	}
	ptr := reflect.New(target)
	if err := s.v.UnmarshalKey(key, ptr.Interface()); err != nil {
		return nil, true, convertErr(key, t, err)
	}
	if t.Kind() == reflect.Ptr {
		return ptr.Interface(), true, nil
	}
	return ptr.Elem().Interface(), true, nil
}

func convertErr(key string, t reflect.Type, err error) error {
	return fmt.Errorf("config key %q as %s: %w", key, t, err)
}
