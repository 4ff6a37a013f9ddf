package engine

import "sort"

// DefaultVoice is used when a synthesis request names no voice
const DefaultVoice = "af_heart"

// languageCodes maps a catalog language to the single-letter code the speech
// model family uses internally
var languageCodes = map[string]string{
	"en-us": "a",
	"en":    "a",
	"en-gb": "b",
	"es":    "e",
	"fr":    "f",
	"hi":    "h",
	"it":    "i",
	"pt":    "p",
	"ja":    "j",
	"zh":    "z",
}

// voiceCatalog lists the voices shipped with the synthesis model per language
var voiceCatalog = map[string][]string{
	"en-us": {
		"af_heart", "af_alloy", "af_aoede", "af_bella", "af_jessica",
		"af_kore", "af_nicole", "af_nova", "af_river", "af_sarah", "af_sky",
		"am_adam", "am_echo", "am_eric", "am_fenrir", "am_liam",
		"am_michael", "am_onyx", "am_puck", "am_santa",
	},
	"en-gb": {
		"bf_alice", "bf_emma", "bf_isabella", "bf_lily",
		"bm_daniel", "bm_fable", "bm_george", "bm_lewis",
	},
	"zh": {
		"zf_xiaobei", "zf_xiaoni", "zf_xiaoxiao", "zf_xiaoyi",
		"zm_yunjian", "zm_yunxi", "zm_yunxia", "zm_yunyang",
	},
	"es": {"ef_dora", "em_alex", "em_santa"},
	"fr": {"ff_siwis"},
	"it": {"if_sara", "im_nicola"},
	"pt": {"pf_dora", "pm_alex", "pm_santa"},
	"hi": {"hf_alpha", "hf_beta", "hm_omega", "hm_psi"},
}

// voiceLanguages maps every voice back to its catalog language
var voiceLanguages = func() map[string]string {
	m := make(map[string]string)
	for lang, voices := range voiceCatalog {
		for _, voice := range voices {
			m[voice] = lang
		}
	}
	return m
}()

// Languages returns the supported synthesis languages, sorted
func Languages() []string {
	langs := make([]string, 0, len(voiceCatalog))
	for lang := range voiceCatalog {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Voices returns the voices for a language, or every voice when lang is
// empty. Unknown languages yield an empty list.
func Voices(lang string) []string {
	if lang != "" {
		voices := make([]string, len(voiceCatalog[lang]))
		copy(voices, voiceCatalog[lang])
		return voices
	}
	var all []string
	for _, voices := range voiceCatalog {
		all = append(all, voices...)
	}
	sort.Strings(all)
	return all
}

// ValidVoice reports whether voice exists in the catalog
func ValidVoice(voice string) bool {
	_, ok := voiceLanguages[voice]
	return ok
}

// VoiceLanguage returns the catalog language for a voice
func VoiceLanguage(voice string) (string, bool) {
	lang, ok := voiceLanguages[voice]
	return lang, ok
}

// LanguageCode returns the model-internal code for a catalog language
func LanguageCode(lang string) (string, bool) {
	code, ok := languageCodes[lang]
	return code, ok
}

// TranscriptionLanguage picks the recognition language used when captioning
// speech produced by the given voice. Only Portuguese gets a dedicated
// recognition model; everything else is transcribed as English.
func TranscriptionLanguage(voice string) string {
	if lang, ok := voiceLanguages[voice]; ok && lang == "pt" {
		return "pt"
	}
	return "en"
}
