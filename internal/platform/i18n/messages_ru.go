package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.Russian

	message.SetString(lang, ReasonNotFound, "Запрашиваемый объект не найден.")
	message.SetString(lang, ReasonConflict, "Условия для выполнения операции не соблюдены.")
	message.SetString(lang, ReasonBadRequest, "Запрос составлен некорректно.")
	message.SetString(lang, ReasonInternal, "Внутренняя ошибка сервера.")
	message.SetString(lang, ReasonMalformedJSON, "Некорректный JSON в запросе")
	message.SetString(lang, ReasonInvalidArgument, "Некорректный параметр: %s")
}
