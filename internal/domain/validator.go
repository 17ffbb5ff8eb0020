package domain

import (
	"errors"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Custom validation tags and their messages.
var (
	nameTag   = "tsam_name"
	nameText  = "{0} may only contain letters, digits, spaces and . & + # ' / ( ) -"
	nameRegex = regexp.MustCompile(`^[\p{L}0-9][\p{L}0-9 .&+#'/()-]*$`)

	phoneTag   = "tsam_phone"
	phoneText  = "{0} must be a valid 10 digit mobile number"
	phoneRegex = regexp.MustCompile(`^[6-9][0-9]{9}$`)

	nonNegativeTag  = "tsam_nonnegative"
	nonNegativeText = "{0} must not be negative"

	requiredText = "{0} is required"
)

// Validator validates entity records and search filters and renders field
// errors as readable English messages keyed by the field's wire name.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator builds a Validator with the TSAM rule set registered.
func NewValidator() *Validator {
	validate := validator.New()

	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report json (or form) names instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return ""
	})

	_ = validate.RegisterValidation(nameTag, regexValidation(nameRegex))
	_ = validate.RegisterValidation(phoneTag, regexValidation(phoneRegex))
	validate.RegisterStructValidation(salaryTrendValidation, SalaryTrend{})

	registerTranslation(validate, translator, nameTag, nameText, false)
	registerTranslation(validate, translator, phoneTag, phoneText, false)
	registerTranslation(validate, translator, nonNegativeTag, nonNegativeText, false)
	registerTranslation(validate, translator, "required", requiredText, true)

	return &Validator{validate: validate, translator: translator}
}

func registerTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override bool) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field(), fe.Param())
			return s
		},
	)
}

func regexValidation(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func salaryTrendValidation(sl validator.StructLevel) {
	st := sl.Current().Interface().(SalaryTrend)

	if st.MaximumExperience < st.MinimumExperience {
		sl.ReportError(st.MaximumExperience, "maximumExperience", "MaximumExperience", "gtefield", "minimumExperience")
	}
	if st.MinimumSalary.IsNegative() {
		sl.ReportError(st.MinimumSalary, "minimumSalary", "MinimumSalary", nonNegativeTag, "")
	}
	if st.MaximumSalary.IsNegative() {
		sl.ReportError(st.MaximumSalary, "maximumSalary", "MaximumSalary", nonNegativeTag, "")
	}
	if st.MaximumSalary.LessThan(st.MinimumSalary) {
		sl.ReportError(st.MaximumSalary, "maximumSalary", "MaximumSalary", "gtefield", "minimumSalary")
	}
}

// Struct validates v and returns the field errors keyed by wire name.
// A nil map means v is valid.
func (v *Validator) Struct(s any) map[string]string {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	return v.FieldErrors(err)
}

// FieldErrors converts a validator error into wire-name keyed messages.
// Errors that are not validation errors are reported under the "_" key.
func (v *Validator) FieldErrors(err error) map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		if _, exists := out[fe.Field()]; exists {
			continue
		}
		out[fe.Field()] = fe.Translate(v.translator)
	}
	return out
}

// ValidationError wraps field errors into a CodeValidation AppError.
func ValidationError(fields map[string]string) *AppError {
	msgs := make([]string, 0, len(fields))
	for _, m := range fields {
		msgs = append(msgs, m)
	}
	slices.Sort(msgs)
	return NewAppError(CodeValidation, strings.Join(msgs, "; "), nil)
}
