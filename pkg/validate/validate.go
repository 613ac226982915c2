package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

const notBlankTag = "notblank"

var (
	once       sync.Once
	setupErr   error
	translator ut.Translator
)

// Setup 配置 gin 绑定使用的校验器：
// 错误字段名取 json 标签，注册 notblank，并加载中文错误信息。
// 拒绝请求体中的未知字段。可重复调用。
func Setup() error {
	once.Do(func() {
		binding.EnableDecoderDisallowUnknownFields = true

		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			setupErr = errors.New("gin 校验引擎不是 validator/v10")
			return
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})

		if setupErr = v.RegisterValidation(notBlankTag, validators.NotBlank); setupErr != nil {
			return
		}

		locale := zh.New()
		translator, _ = ut.New(locale, locale).GetTranslator("zh")
		if setupErr = zh_translations.RegisterDefaultTranslations(v, translator); setupErr != nil {
			return
		}
		setupErr = v.RegisterTranslation(notBlankTag, translator,
			func(t ut.Translator) error { return t.Add(notBlankTag, "{0}不能为空白", true) },
			func(t ut.Translator, fe validator.FieldError) string {
				msg, _ := t.T(notBlankTag, fe.Field())
				return msg
			},
		)
	})
	return setupErr
}

// Translate 将绑定错误转换为可读描述；非校验错误原样返回
func Translate(err error) string {
	var verrs validator.ValidationErrors
	if translator == nil || !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Translate(translator))
	}
	return strings.Join(msgs, "; ")
}
