package enrollment

import (
	"github.com/manabi/lms/core"
)

var (
	statusTag  = "enrollment_status"
	statusText = "{0} must be one of: active, completed, suspended"
)

// register custom validators
func init() {
	_ = core.Validate.RegisterValidation(statusTag, core.OneOfValidation(AllStatuses...))
	core.RegisterCustomTranslation(statusTag, statusText)
}
