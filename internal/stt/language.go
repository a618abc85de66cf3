package stt

const DefaultLocale = "en-US"

type Language struct {
	Tag  string `json:"tag"`
	Name string `json:"name"`
}

// Languages is the fixed set offered for recognition, in display order.
var Languages = []Language{
	{Tag: "en-US", Name: "English (US)"},
	{Tag: "en-GB", Name: "English (UK)"},
	{Tag: "hi-IN", Name: "Hindi (India)"},
	{Tag: "es-ES", Name: "Spanish"},
	{Tag: "fr-FR", Name: "French"},
	{Tag: "de-DE", Name: "German"},
	{Tag: "zh-CN", Name: "Chinese (Mandarin)"},
	{Tag: "ja-JP", Name: "Japanese"},
	{Tag: "ar-SA", Name: "Arabic"},
}

func LookupLanguage(tag string) (Language, bool) {
	for _, l := range Languages {
		if l.Tag == tag {
			return l, true
		}
	}
	return Language{}, false
}
