package course

import (
	"github.com/manabi/lms/core"
)

var (
	levelTag  = "course_level"
	levelText = "{0} must be one of: beginner, intermediate, advanced"

	currencyTag  = "currency"
	currencyText = "unsupported currency"
)

// register custom validators
func init() {
	_ = core.Validate.RegisterValidation(levelTag, core.OneOfValidation(AllLevels...))
	core.RegisterCustomTranslation(levelTag, levelText)

	_ = core.Validate.RegisterValidation(currencyTag, core.OneOfValidation(AllCurrencies...))
	core.RegisterCustomTranslation(currencyTag, currencyText)
}
