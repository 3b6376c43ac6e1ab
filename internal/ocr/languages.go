package ocr

import "strings"

// tableLanguageCodes maps Tesseract codes to the two-letter codes used by table OCR services
var tableLanguageCodes = map[string]string{
	"eng":     "en",
	"fra":     "fr",
	"deu":     "de",
	"spa":     "es",
	"ita":     "it",
	"por":     "pt",
	"rus":     "ru",
	"jpn":     "ja",
	"kor":     "ko",
	"chi_sim": "ch",
	"chi_tra": "ch",
}

// TableLanguage maps a Tesseract language (first code of a "+" combination) to its short form.
// Unknown codes pass through unchanged.
func TableLanguage(language string) string {
	primary, _, _ := strings.Cut(language, "+")
	if code, ok := tableLanguageCodes[primary]; ok {
		return code
	}
	return primary
}
