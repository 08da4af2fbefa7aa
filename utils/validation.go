package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	activityKindPattern = regexp.MustCompile(`^[A-Za-z_ ]{1,32}$`)
	rankingTypes        = map[string]bool{"highest": true, "recent": true, "level": true}
	validatorsOnce      sync.Once
)

// RegisterValidators installs the custom binding tags on gin's validator engine.
func RegisterValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("activity_kind", validateActivityKind)
		_ = v.RegisterValidation("ranking_type", validateRankingType)
	})
}

// activity kinds are free-form words; unknown kinds are accepted and simply earn nothing
func validateActivityKind(fl validator.FieldLevel) bool {
	return activityKindPattern.MatchString(fl.Field().String())
}

func validateRankingType(fl validator.FieldLevel) bool {
	return rankingTypes[strings.ToLower(fl.Field().String())]
}

// ValidationMessage renders the first binding error as a short client-facing message.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "activity_kind":
		return "invalid activity"
	case "ranking_type":
		return "type must be one of highest, recent, level"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	case "email":
		return "invalid email"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}
