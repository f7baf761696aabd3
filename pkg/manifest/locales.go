package manifest

import "encoding/json"

// I18N is the manifest i18n block.
type I18N struct {
	DefaultLocale string  `json:"defaultLocale"`
	Locales       Locales `json:"locales"`
}

// LocalesKind tags the shape the locale configuration was persisted in.
type LocalesKind int

const (
	LocalesUnknown LocalesKind = iota
	LocalesStringList
	LocalesSingleString
	LocalesCodesObject
)

// Locales is the locale configuration, decoded once into a tagged union
// instead of being re-probed at every call site. Historical manifests
// persisted it as a list of codes, a single code, or an object carrying a
// "codes" list; anything else is Unknown and yields no codes.
type Locales struct {
	Kind  LocalesKind
	codes []string
}

func (l *Locales) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		l.Kind = LocalesUnknown
		l.codes = nil
		return nil
	}
	var list []any
	if err := json.Unmarshal(b, &list); err == nil {
		l.Kind = LocalesStringList
		l.codes = stringsOf(list)
		return nil
	}
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		l.Kind = LocalesSingleString
		l.codes = []string{single}
		return nil
	}
	var obj struct {
		Codes []any `json:"codes"`
	}
	if err := json.Unmarshal(b, &obj); err == nil && obj.Codes != nil {
		l.Kind = LocalesCodesObject
		l.codes = stringsOf(obj.Codes)
		return nil
	}
	l.Kind = LocalesUnknown
	l.codes = nil
	return nil
}

// Codes returns the resolved locale code list; Unknown shapes yield an
// empty list.
func (l Locales) Codes() []string {
	if l.codes == nil {
		return []string{}
	}
	return l.codes
}

// stringsOf filters a decoded JSON array down to its string entries.
func stringsOf(vals []any) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
