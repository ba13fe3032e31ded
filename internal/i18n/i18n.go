package i18n

import (
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/Abu-al-Hun/telegram-security/resources"
)

var (
	once         sync.Once
	translations map[string]map[string]string
)

func load() {
	content, err := resources.FS.ReadFile("i18n/translations.yml")
	if err != nil {
		log.WithError(err).Errorln("cant load translations")
		return
	}
	dict := map[string]map[string]string{}
	if err := yaml.Unmarshal(content, &dict); err != nil {
		log.WithError(err).Errorln("cant unmarshal translations")
		return
	}
	translations = dict
}

// Get returns the translation of key for lang, falling back to the key
// itself. English keys double as the source text.
func Get(key, lang string) string {
	if strings.EqualFold(lang, "en") {
		return key
	}
	once.Do(load)
	if values, ok := translations[key]; ok {
		if value, ok := values[strings.ToUpper(lang)]; ok && strings.TrimSpace(value) != "" {
			return value
		}
	}
	log.Tracef("no translation for key %q", key)
	return key
}
