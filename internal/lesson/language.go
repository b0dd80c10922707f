package lesson

import (
	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// DetectLanguage picks a display language for a topic the request did not
// pin. A topic typed in Bengali script gets a Bangla lesson; everything else
// defaults to English.
func DetectLanguage(topic string) language.Tag {
	info := whatlanggo.Detect(topic)
	if info.Lang == whatlanggo.Ben {
		return LanguageBangla
	}
	return LanguageEnglish
}
