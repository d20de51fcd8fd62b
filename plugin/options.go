package plugin

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/amikos-tech/pure-plugin/dl"
)

// Option configures a Loader.
type Option func(*config) error

type config struct {
	flags             int
	logger            *zap.Logger
	expectedSHA256    string
	versionConstraint string
}

func defaultConfig() config {
	return config{
		flags:  dl.RTLDNow | dl.RTLDLocal,
		logger: zap.NewNop(),
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithOpenFlags sets the dl.RTLD flags passed to the OS loader. The default
// is dl.RTLDNow|dl.RTLDLocal, so unresolved references fail Load rather than
// a later call into the library. Flags are ignored on Windows.
func WithOpenFlags(flags int) Option {
	return func(cfg *config) error {
		if flags < 0 {
			return fmt.Errorf("open flags cannot be negative: %d", flags)
		}
		cfg.flags = flags
		return nil
	}
}

// WithExpectedSHA256 makes Load verify the SHA256 checksum of the library
// file before handing it to the OS loader. It requires the loader name to
// be a path to the file, not a bare name resolved through the search path.
func WithExpectedSHA256(checksum string) Option {
	return func(cfg *config) error {
		checksum = strings.TrimSpace(strings.ToLower(checksum))
		if checksum == "" {
			return fmt.Errorf("expected SHA256 checksum cannot be empty")
		}
		if len(checksum) != 64 {
			return fmt.Errorf("expected SHA256 checksum must be 64 hex characters")
		}
		for _, r := range checksum {
			if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
				return fmt.Errorf("expected SHA256 checksum must be lowercase hex")
			}
		}
		cfg.expectedSHA256 = checksum
		return nil
	}
}

// WithVersionConstraint makes Instance reject facades whose version does not
// satisfy the semantic version constraint, for example "~1.3". The build
// component of the version is not considered. The constraint only applies
// to facade types that report a version.
func WithVersionConstraint(constraint string) Option {
	return func(cfg *config) error {
		constraint = strings.TrimSpace(constraint)
		if constraint == "" {
			return fmt.Errorf("version constraint cannot be empty")
		}
		if _, err := semver.NewConstraint(constraint); err != nil {
			return fmt.Errorf("invalid version constraint %q: %w", constraint, err)
		}
		cfg.versionConstraint = constraint
		return nil
	}
}
