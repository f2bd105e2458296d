package config

import (
	"fmt"
	"reflect"

	"github.com/dustin/go-humanize"
	"github.com/mitchellh/mapstructure"
	"gitlab.com/tozd/go/errors"
)

// ByteSize is a size in bytes. Config files may write it as a plain number or
// as a human string like "512KiB" or "2GB".
type ByteSize uint64

func (b ByteSize) String() string {
	if b == 0 {
		return "0"
	}
	return humanize.IBytes(uint64(b))
}

// MarshalYAML writes exact binary multiples with a unit and anything else as a number.
func (b ByteSize) MarshalYAML() (any, error) {
	units := []struct {
		size uint64
		name string
	}{{1 << 40, "TiB"}, {1 << 30, "GiB"}, {1 << 20, "MiB"}, {1 << 10, "KiB"}}
	for _, u := range units {
		if b > 0 && uint64(b)%u.size == 0 {
			return fmt.Sprintf("%d%s", uint64(b)/u.size, u.name), nil
		}
	}
	return uint64(b), nil
}

// byteSizeDecodeHook converts strings and numbers into ByteSize.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			n, err := humanize.ParseBytes(v)
			if err != nil {
				return nil, errors.Errorf("invalid byte size %q: %w", v, err)
			}
			return ByteSize(n), nil
		case int:
			if v < 0 {
				return nil, errors.Errorf("byte size cannot be negative: %d", v)
			}
			return ByteSize(v), nil
		case int64:
			if v < 0 {
				return nil, errors.Errorf("byte size cannot be negative: %d", v)
			}
			return ByteSize(v), nil
		case uint64:
			return ByteSize(v), nil
		case float64:
			if v < 0 {
				return nil, errors.Errorf("byte size cannot be negative: %v", v)
			}
			return ByteSize(v), nil
		}
		return data, nil
	}
}
