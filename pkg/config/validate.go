package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
	"gitlab.com/tozd/go/errors"

	"github.com/paulschiretz/pgl-ingest/pkg/util"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their config key.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration and normalizes its paths. With
// checkPaths it also requires sources and a target and checks that the
// sources exist.
func (c *Config) Validate(checkPaths bool) error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			key := strings.TrimPrefix(fe.Namespace(), "Config.")
			return errors.Errorf("invalid value %v for %s (%s=%s)", fe.Value(), key, fe.Tag(), fe.Param())
		}
		return errors.WithStack(err)
	}

	if checkPaths {
		if len(c.Sources) == 0 {
			return errors.New("sources cannot be empty")
		}
		if c.Target == "" {
			return errors.New("target path cannot be empty")
		}
	}

	var err error
	for i, s := range c.Sources {
		if c.Sources[i], err = cleanPath(s); err != nil {
			return errors.Errorf("could not expand source path: %w", err)
		}
		if checkPaths {
			if _, err := os.Stat(c.Sources[i]); err != nil {
				return errors.Errorf("source path '%s' is not accessible: %w", c.Sources[i], err)
			}
		}
	}
	if c.Target, err = cleanPath(c.Target); err != nil {
		return errors.Errorf("could not expand target path: %w", err)
	}
	if c.Backup, err = cleanPath(c.Backup); err != nil {
		return errors.Errorf("could not expand backup path: %w", err)
	}
	if c.Engine.MetricsTextfile, err = cleanPath(c.Engine.MetricsTextfile); err != nil {
		return errors.Errorf("could not expand metrics textfile path: %w", err)
	}

	if c.Backup != "" && c.Backup == c.Target {
		return errors.Errorf("backup and target cannot be the same directory: %s", c.Target)
	}
	if c.Runtime.BackupOnly && c.Backup == "" {
		return errors.New("backup path cannot be empty when running the backup pass only")
	}
	if c.Filter.MaxSize > 0 && c.Filter.MinSize > c.Filter.MaxSize {
		return errors.Errorf("filter.minSize (%s) is larger than filter.maxSize (%s)", c.Filter.MinSize, c.Filter.MaxSize)
	}
	if err := validateGlobPatterns("filter.excludeFiles", c.Filter.ExcludeFiles); err != nil {
		return err
	}
	return validateGlobPatterns("filter.excludeDirs", c.Filter.ExcludeDirs)
}

func cleanPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	p, err := util.ExpandPath(p)
	if err != nil {
		return "", err
	}
	return filepath.Clean(p), nil
}

func validateGlobPatterns(field string, patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return errors.Errorf("invalid glob pattern for %s: %q", field, p)
		}
	}
	return nil
}
