package Controllers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gofiber/fiber/v2"
)

var (
	validate   = validator.New()
	translator ut.Translator
)

func init() {
	english := en.New()
	translator, _ = ut.New(english, english).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report json names so messages match the request body.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// validationMessages flattens validator errors into readable messages.
func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, fe.Translate(translator))
	}
	return messages
}

func invalidArgument(c *fiber.Ctx, messages ...string) error {
	body := fiber.Map{"code": "invalid-argument", "error": "Invalid request"}
	if len(messages) > 0 {
		body["error"] = messages[0]
		body["details"] = messages
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}

// parseAndValidate decodes the body into dst and runs struct validation.
// On failure the 400 response has already been written and ok is false.
func parseAndValidate(c *fiber.Ctx, dst interface{}) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, invalidArgument(c, "Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return false, invalidArgument(c, validationMessages(err)...)
	}
	return true, nil
}

func internalError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"code":  "internal",
		"error": message,
	})
}
