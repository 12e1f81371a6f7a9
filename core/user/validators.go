package user

import (
	"github.com/manabi/lms/core"
)

var (
	roleTag  = "role"
	roleText = "invalid role"
)

// register custom validators
func init() {
	_ = core.Validate.RegisterValidation(roleTag, core.OneOfValidation(AllRoles...))
	core.RegisterCustomTranslation(roleTag, roleText)
}
