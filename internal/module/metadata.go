package module

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	// IDPattern is the shape of a module id: the folder name of the package
	// root.
	IDPattern     = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
	semverPattern = regexp.MustCompile(`^v?\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
)

// Metadata describes a module's identity and loading behaviour.
type Metadata struct {
	Name        string `json:"name" yaml:"name" validate:"required,max=128"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" validate:"max=1024"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty" validate:"omitempty,module_version"`
	AuthorName  string `json:"author_name,omitempty" yaml:"author_name,omitempty"`
	AuthorURL   string `json:"author_url,omitempty" yaml:"author_url,omitempty" validate:"omitempty,url"`
	// Priority orders loading: higher values register and boot first.
	Priority int  `json:"priority" yaml:"priority"`
	IsCore   bool `json:"is_core" yaml:"is_core"`
	// Routes and Translations ask BeforeBoot to call the matching loader.
	Routes       bool `json:"routes" yaml:"routes"`
	Translations bool `json:"translations" yaml:"translations"`
}

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("module_version", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("module_id", func(fl validator.FieldLevel) bool {
			return IDPattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// Validate ensures metadata is well-formed.
func (m Metadata) Validate() error {
	if err := validatorInstance().Struct(m); err != nil {
		return convertValidationError(err)
	}
	return nil
}

// ValidID reports whether id can name a module.
func ValidID(id string) bool {
	return validatorInstance().Var(id, "required,module_id") == nil
}

func convertValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrs) == 0 {
		return err
	}

	messages := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		messages = append(messages, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("invalid module metadata: %s", strings.Join(messages, "; "))
}
