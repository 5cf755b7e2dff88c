package providers

import (
	"errors"
	"fmt"
	"safetywatch/internal/structures"

	"github.com/gookit/validate"
)

type CnfValidatorInterface interface {
	Validate() error
}

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) CnfValidatorInterface {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	sections := []any{
		&cv.conf.WebServer,
		&cv.conf.Logger,
		&cv.conf.Store,
		&cv.conf.Monitor,
	}
	for _, s := range sections {
		if err := validateStruct(s); err != nil {
			return err
		}
	}

	if len(cv.conf.Categories) == 0 {
		return errors.New("config: at least one category is required")
	}
	seen := make(map[string]struct{}, len(cv.conf.Categories))
	for i := range cv.conf.Categories {
		cat := &cv.conf.Categories[i]
		// Sub-types first: validating the category descends into them and
		// would report the failure under a generic SubTypes.N path.
		for j := range cat.SubTypes {
			if err := validateStruct(&cat.SubTypes[j]); err != nil {
				return fmt.Errorf("category #%d sub-type #%d: %w", i, j, err)
			}
		}
		if err := validateStruct(cat); err != nil {
			return fmt.Errorf("category #%d: %w", i, err)
		}
		if _, dup := seen[cat.Name]; dup {
			return fmt.Errorf("category %q declared twice", cat.Name)
		}
		seen[cat.Name] = struct{}{}
	}
	return nil
}

func validateStruct(s any) error {
	v := validate.Struct(s)
	if !v.Validate() {
		return v.Errors.OneError()
	}
	return nil
}
