package dashboard

import "strings"

// defaultLocaleKey holds the text used when no locale in the chain matches.
const defaultLocaleKey = "default"

// ResolveLocalizedValue picks the translation for locale out of values.
// "fa-IR" and "fa_IR" try "fa-ir" first, then "fa", then the "default" key,
// and finally fallback. Keys are compared case-insensitively.
func ResolveLocalizedValue(values map[string]string, locale, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	for _, key := range localeChain(locale) {
		if text := lookupLocale(values, key); text != "" {
			return text
		}
	}
	return fallback
}

// NameForLocale returns the card title in locale, or Name.
func (def WidgetDefinition) NameForLocale(locale string) string {
	return ResolveLocalizedValue(def.NameLocalized, locale, def.Name)
}

// DescriptionForLocale returns the card description in locale, or Description.
func (def WidgetDefinition) DescriptionForLocale(locale string) string {
	return ResolveLocalizedValue(def.DescriptionLocalized, locale, def.Description)
}

// normalizeLocalizedFields lowercases the translation keys so lookups
// hit the map directly.
func (def *WidgetDefinition) normalizeLocalizedFields() {
	def.NameLocalized = canonicalLocales(def.NameLocalized)
	def.DescriptionLocalized = canonicalLocales(def.DescriptionLocalized)
}

func lookupLocale(values map[string]string, key string) string {
	if text := values[key]; text != "" {
		return text
	}
	for k, text := range values {
		if text != "" && canonicalLocale(k) == key {
			return text
		}
	}
	return ""
}

func localeChain(locale string) []string {
	locale = canonicalLocale(locale)
	chain := make([]string, 0, 3)
	if locale != "" {
		chain = append(chain, locale)
		if base, _, found := strings.Cut(locale, "-"); found && base != "" {
			chain = append(chain, base)
		}
	}
	return append(chain, defaultLocaleKey)
}

func canonicalLocales(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, text := range values {
		if k = canonicalLocale(k); k != "" && text != "" {
			out[k] = text
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func canonicalLocale(locale string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(locale)), "_", "-")
}
