package config

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	moderrors "github.com/alexisbeaulieu97/modhost/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	extensionPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	dirnamePattern   = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("extension", func(fl validator.FieldLevel) bool {
			return extensionPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("dirname", func(fl validator.FieldLevel) bool {
			return dirnamePattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("regex", func(fl validator.FieldLevel) bool {
			_, err := regexp.Compile(fl.Field().String())
			return err == nil
		})

		validateInst = v
	})

	return validateInst
}

// GetValidator returns the shared validator for use outside the package.
func GetValidator() *validator.Validate {
	return validatorInstance()
}

// Validate performs schema and cross-field validation.
func Validate(cfg *Config) error {
	if cfg == nil {
		return moderrors.NewValidationError("config", "configuration is nil", nil)
	}

	if err := validatorInstance().Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	seen := make(map[string]int, len(cfg.Installer.Rules))
	for i, rule := range cfg.Installer.Rules {
		if first, dup := seen[rule.Name]; dup {
			return moderrors.NewValidationError(fmt.Sprintf("installer.rules[%d].name", i), fmt.Sprintf("duplicate rule %q (same as installer.rules[%d])", rule.Name, first), nil)
		}
		seen[rule.Name] = i
	}

	namespaces := map[string]string{cfg.Discovery.Namespace: cfg.Storage.ModulesDir}
	for i, root := range cfg.Discovery.Roots {
		if prev, dup := namespaces[root.Namespace]; dup {
			return moderrors.NewValidationError(fmt.Sprintf("discovery.roots[%d].namespace", i), fmt.Sprintf("namespace %q already used by %s", root.Namespace, prev), nil)
		}
		namespaces[root.Namespace] = root.Path
	}

	if cfg.Installer.PublicDir == cfg.Installer.VendorDir {
		return moderrors.NewValidationError("installer.vendor_dir", "must differ from installer.public_dir", nil)
	}
	return nil
}

// convertValidationError normalizes validator errors into configuration
// validation errors.
func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok && len(ves) > 0 {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return moderrors.NewValidationError(field, msg, err)
	}

	return moderrors.NewValidationError("config", err.Error(), err)
}

// yamlishFieldName turns Config.Installer.ScanExtensions[0] into
// installer.scan_extensions[0].
func yamlishFieldName(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, part := range parts {
		parts[i] = snake(part)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '[' {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
