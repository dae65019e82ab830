package feed

import (
	"regexp"
	"strings"

	"github.com/rewired-gh/oddswatch/internal/models"
)

// labelSet holds the localized event labels of one site language.
type labelSet struct {
	totals     string
	handicaps  string
	toWinMatch string
}

var translations = map[string]labelSet{
	"en": {totals: "Total match points", handicaps: "Match Handicap (Games)", toWinMatch: "To Win Match"},
	"es": {totals: "Partido: total de puntos", handicaps: "Handicap de partido (juegos)", toWinMatch: "Ganará el encuentro"},
	"cz": {totals: "Celkem bodů v zápasu", handicaps: "Sázky na handicep - Sety", toWinMatch: "Vyhraje utkaní"},
	"sk": {totals: "Celkový počet bodov v zápase", handicaps: "Stávky na hendikep - sety", toWinMatch: "Vyhrá zápas"},
}

// SupportedLanguage reports whether lang has a label translation table.
func SupportedLanguage(lang string) bool {
	_, ok := translations[strings.ToLower(lang)]
	return ok
}

// TranslateEventLabel maps a localized event label to its kind. keep is false for
// events that are never monitored (total match points).
func TranslateEventLabel(label, lang string) (kind models.EventKind, keep bool) {
	label = strings.TrimSpace(label)
	set, ok := translations[strings.ToLower(lang)]
	if !ok {
		set = translations["en"]
	}

	switch {
	case strings.EqualFold(label, set.totals):
		return models.EventKind{}, false
	case strings.EqualFold(label, set.toWinMatch):
		return models.ToWinMatch, true
	case strings.EqualFold(label, set.handicaps):
		return models.Handicaps, true
	}
	// already canonical, e.g. a feed that normalizes labels itself
	return models.ParseEventKind(label), true
}

var czechMonths = map[string]string{
	"led": "01", "úno": "02", "bře": "03", "dub": "04",
	"kvě": "05", "čer": "06", "čvc": "07", "srp": "08",
	"zář": "09", "říj": "10", "lis": "11", "pro": "12",
}

var czechDateRe = regexp.MustCompile(`([\p{L}\d_]+)\.?\s+(\d+)\.?\s+([\p{L}\d_]+)`)

// ParseCzechDate turns a market header such as "Po 14 říj" into "14-10".
func ParseCzechDate(text string) (string, bool) {
	m := czechDateRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	month, ok := czechMonths[strings.ToLower(m[3])]
	if !ok {
		return "", false
	}
	day := m[2]
	if len(day) == 1 {
		day = "0" + day
	}
	return day + "-" + month, true
}
