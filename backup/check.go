package backup

import "libmvt/core"

// Matcher checks one string against one indicator category
type Matcher interface {
	MatchString(text string, cat core.IndicatorCategory) []core.Detection
}

// linkCategories are checked, in order, for every extracted link
var linkCategories = []core.IndicatorCategory{core.CategoryDomain, core.CategoryURL}

// CheckIndicators matches every link extracted from records against the
// domain and URL indicators. A nil matcher yields no detections.
func CheckIndicators(records []core.SmsRecord, m Matcher) []core.Detection {
	if m == nil {
		return nil
	}
	var dets []core.Detection
	for _, rec := range records {
		for _, link := range rec.Links() {
			for _, cat := range linkCategories {
				dets = append(dets, m.MatchString(link, cat)...)
			}
		}
	}
	return dets
}
