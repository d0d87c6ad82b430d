package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, ReasonNotFound, "The required object was not found.")
	message.SetString(lang, ReasonConflict, "For the requested operation the conditions are not met.")
	message.SetString(lang, ReasonBadRequest, "Incorrectly made request.")
	message.SetString(lang, ReasonInternal, "Internal server error.")
	message.SetString(lang, ReasonMalformedJSON, "Malformed JSON request")
	message.SetString(lang, ReasonInvalidArgument, "Invalid parameter: %s")
}
