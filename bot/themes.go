package bot

import (
	"github.com/bcspragu/Sonar/sonar"
	"github.com/bcspragu/Sonar/vecdb"
	"gonum.org/v1/gonum/floats"
)

// themeKeywords are the words that define each theme. They're the same
// keywords the theme packs are generated from.
var themeKeywords = map[sonar.Language]map[sonar.Category][]string{
	sonar.English: {
		sonar.Sports:          {"sports", "game", "athlete", "competition", "stadium"},
		sonar.History:         {"history", "war", "king", "revolution", "century", "ancient"},
		sonar.Science:         {"science", "physics", "biology", "chemistry", "experiment", "discovery"},
		sonar.ComputerScience: {"computer", "programming", "software", "algorithm", "database"},
	},
	sonar.French: {
		sonar.Sports:          {"sport", "athletisme", "competition", "stade", "foot", "tennis"},
		sonar.History:         {"histoire", "medieval", "antique", "revolution", "dynastie", "archeologie", "historique"},
		sonar.Science:         {"science", "physique", "biologie", "chimie", "laboratoire", "astronomie", "scientifique"},
		sonar.ComputerScience: {"informatique", "ordinateur", "programmation", "logiciel", "algorithme", "code"},
	},
	sonar.Arabic: {
		sonar.Sports:          {"رياضة", "لعب", "لاعب", "منافسة", "ملعب", "كرة"},
		sonar.History:         {"تاريخ", "حرب", "ملك", "ثورة", "قرن", "قديم", "آثار"},
		sonar.Science:         {"علم", "فيزياء", "بيولوجيا", "كيمياء", "مختبر", "فضاء", "بحث"},
		sonar.ComputerScience: {"برمجة", "حاسوب", "مطور", "تطبيق", "خوارزمية", "بيانات"},
	},
}

// themeAnchor is the normalized mean of a theme's keyword vectors. Keywords
// missing from the index are ignored.
func themeAnchor(idx Index, lang sonar.Language, cat sonar.Category) (vecdb.Vector, bool) {
	var (
		anchor vecdb.Vector
		n      int
	)
	for _, kw := range themeKeywords[lang][cat] {
		v, ok := idx.Vector(kw, lang)
		if !ok {
			continue
		}
		if anchor == nil {
			anchor = make(vecdb.Vector, len(v))
		}
		floats.Add(anchor, v)
		n++
	}
	if n == 0 {
		return nil, false
	}
	floats.Scale(1/float64(n), anchor)
	return anchor, unit(anchor)
}
