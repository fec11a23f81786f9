package handlers

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/saos/service-desk/pkg/util/errorutil"
)

var payloadValidator = newPayloadValidator()

func newPayloadValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	registerNullTypes(v)
	return v
}

// registerNullTypes lets validator see inside null.* wrappers. An invalid
// value maps to nil so omitempty applies.
func registerNullTypes(v *validator.Validate) {
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if val, ok := field.Interface().(null.String); ok && val.Valid {
			return val.String
		}
		return nil
	}, null.String{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if val, ok := field.Interface().(null.Int64); ok && val.Valid {
			return val.Int64
		}
		return nil
	}, null.Int64{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if val, ok := field.Interface().(null.Bool); ok && val.Valid {
			return val.Bool
		}
		return nil
	}, null.Bool{})
}

// bindJSON parses the body into dst and runs its validate tags.
func bindJSON(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("payload inválido", nil)
	}
	return validatePayload(dst)
}

func validatePayload(dst any) error {
	err := payloadValidator.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError("payload inválido", nil)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[fe.Field()] = rule
	}
	return apperrors.NewValidationError("dados inválidos", map[string]any{"fields": fields})
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("identificador inválido", map[string]any{name: c.Params(name)})
	}
	return id, nil
}

func queryInt64(c *fiber.Ctx, key string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperrors.NewValidationError("parâmetro inválido", map[string]any{key: raw})
	}
	return &v, nil
}

const dateLayout = "2006-01-02"

// parseDateQuery reads YYYY-MM-DD in loc. endOfDay moves the instant to the
// last nanosecond of that day.
func parseDateQuery(c *fiber.Ctx, key string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return nil, apperrors.NewValidationError("data inválida, use AAAA-MM-DD", map[string]any{key: raw})
	}
	if endOfDay {
		day = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &day, nil
}

func clientIP(c *fiber.Ctx) *string {
	ip := c.IP()
	if ip == "" {
		return nil
	}
	return &ip
}
