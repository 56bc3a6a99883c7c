package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/remotefs/internal/bytesize"
)

// MaxFrameSizeLimit is the largest record a connection may accept. Record
// marks carry 31 bits of length.
const MaxFrameSizeLimit = bytesize.ByteSize(1<<31 - 1)

var validate = validator.New()

// Validate checks struct tags first, then the rules that span fields.
// Log levels are accepted in any case; ApplyDefaults normalizes them.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry: endpoint is required when telemetry is enabled")
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return fmt.Errorf("telemetry.profiling: endpoint is required when profiling is enabled")
	}

	if cfg.Server.MaxFrameSize > MaxFrameSizeLimit {
		return fmt.Errorf("server.max_frame_size: %s exceeds the record limit of %s",
			cfg.Server.MaxFrameSize, MaxFrameSizeLimit)
	}
	if cfg.Server.Network == "unix" && !filepath.IsAbs(cfg.Server.Address) {
		return fmt.Errorf("server.address: unix socket path %q must be absolute", cfg.Server.Address)
	}

	switch cfg.Provider.Type {
	case "local":
		if cfg.Provider.Root == "" {
			return fmt.Errorf("provider.root: required for the local provider")
		}
		if !filepath.IsAbs(cfg.Provider.Root) {
			return fmt.Errorf("provider.root: %q must be an absolute path", cfg.Provider.Root)
		}
	case "memory":
		if cfg.Provider.Root != "" {
			return fmt.Errorf("provider.root: not used by the memory provider")
		}
	}

	return nil
}

// formatValidationError reports the first failing field by its namespace.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
