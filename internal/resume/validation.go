package resume

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldError 描述单个字段的校验错误，Field 使用 JSON 路径（如 contacts.links[0].url）。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 聚合内容校验错误。
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	return "validation error"
}

// Fields 以 field -> message 的形式返回错误，同一字段保留第一条。
func (e *ValidationError) Fields() map[string]string {
	out := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		if _, ok := out[fe.Field]; ok {
			continue
		}
		out[fe.Field] = fe.Message
	}
	return out
}

var (
	validateOnce sync.Once
	validate     *validator.Validate

	// emailCheck 复用内置的 email 规则，供 trimmed_email 调用。
	emailCheck = validator.New()
)

func contentValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
			url := strings.TrimSpace(fl.Field().String())
			return url == "" || strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
		})
		_ = v.RegisterValidation("trimmed_email", func(fl validator.FieldLevel) bool {
			email := strings.TrimSpace(fl.Field().String())
			return email == "" || emailCheck.Var(email, "email") == nil
		})
		_ = v.RegisterValidation("image_mime", func(fl validator.FieldLevel) bool {
			mime := strings.ToLower(strings.TrimSpace(fl.Field().String()))
			return mime == "" || strings.HasPrefix(mime, "image/")
		})
		_ = v.RegisterValidation("photo_data", func(fl validator.FieldLevel) bool {
			data := fl.Field().String()
			if strings.TrimSpace(data) == "" {
				return true
			}
			_, err := DecodePhotoData(data)
			return err == nil
		})
		validate = v
	})
	return validate
}

// Validate 执行简历内容校验。只在渲染服务一侧使用，客户端不做内容校验。
func Validate(r Request) error {
	err := contentValidator().Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate resume: %w", err)
	}

	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: fieldMessage(fe),
		})
	}
	sort.SliceStable(ve.Errors, func(i, j int) bool {
		return ve.Errors[i].Field < ve.Errors[j].Field
	})
	return ve
}

// fieldPath 去掉命名空间中的根类型名。
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "notblank", "required", "required_with":
		return fmt.Sprintf("%s is required", label)
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Too many %s entries (max %s)", label, fe.Param())
		}
		return fmt.Sprintf("%s is too long (max %s characters)", label, fe.Param())
	case "trimmed_email":
		return "Invalid email format"
	case "httpurl":
		return "URL must start with http:// or https://"
	case "image_mime":
		return fmt.Sprintf("%s must start with image/", label)
	case "photo_data":
		return "Photo data must be base64 encoded"
	default:
		return fmt.Sprintf("%s failed %s validation", label, fe.Tag())
	}
}
