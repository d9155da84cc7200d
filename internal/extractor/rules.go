// Package extractor converts free-text tenant messages into structured
// field updates. Two strategies share one return contract: deterministic
// bilingual pattern matching, and schema-validated LLM extraction that
// degrades to the patterns on any failure.
package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"rental-genie/internal/models"
)

// ---------- package-level compiled patterns ----------

var agePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{1,2})\s*(?:years?\s*old|ans)\b`),
	regexp.MustCompile(`\bage[:\s]+(\d{1,2})\b`),
	regexp.MustCompile(`\bi\s*am\s*(\d{1,2})\b`),
	regexp.MustCompile(`\bj'ai\s*(\d{1,2})\b`),
}

var sexPatterns = []struct {
	re    *regexp.Regexp
	value string
}{
	{regexp.MustCompile(`\b(male|homme|man|masculin)\b`), "male"},
	{regexp.MustCompile(`\b(female|femme|woman|feminin|féminin)\b`), "female"},
}

var occupationKeywords = []string{
	"work as a", "work as an", "work as",
	"travaille comme", "je travaille en tant que",
	"i am a", "i am an", "i'm a", "i'm an",
	"je suis",
	"employed as", "employed at",
	"profession:", "occupation:", "job:",
}

var occupationEndPattern = regexp.MustCompile(`\.|,|!|\?|\sand\s|\sbut\s|\salso\s|\set\s|\smais\s`)

var moveInPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:move\s*-?\s*in|moving in|emménager|emmenager|déménager|demenager)\s+(?:on\s+|in\s+|en\s+|le\s+|à partir d[eu']\s*)?([^,.!?]+)`),
	regexp.MustCompile(`(?:à partir d[eu']|a partir d[eu'])\s*([^,.!?]+)`),
	regexp.MustCompile(`(\d{1,2}(?:st|nd|rd|th)?\s+(?:january|february|march|april|may|june|july|august|september|october|november|december))`),
	regexp.MustCompile(`\b((?:january|february|march|april|may|june|july|august|september|october|november|december|janvier|février|fevrier|mars|avril|mai|juin|juillet|août|aout|septembre|octobre|novembre|décembre|decembre)\s+\d{4})\b`),
	regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})`),
	regexp.MustCompile(`(\d{1,2}-\d{1,2}-\d{4})`),
	regexp.MustCompile(`(?:start|begin|commencer)\s+(?:on\s+|le\s+)?([^,.!?]+)`),
	regexp.MustCompile(`\b(asap|as soon as possible|dès que possible|des que possible)\b`),
}

var durationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{1,2})\s*(?:months?|mois)\b`),
	regexp.MustCompile(`(?:stay|rester)\s+(?:for\s+|pendant\s+)?(\d{1,2})\b`),
	regexp.MustCompile(`(?:duration|durée|duree)\s*(?:of\s+|de\s+)?(\d{1,2})\b`),
}

var guarantorPatterns = []struct {
	re     *regexp.Regexp
	status string
}{
	// Negatives and specifics first so "no guarantor" never resolves to yes.
	{regexp.MustCompile(`no\s+guarantor|don't\s+have\s+a\s+guarantor|without\s+(?:a\s+)?guarantor`), "no"},
	{regexp.MustCompile(`pas\s+de\s+garant|sans\s+garant`), "no"},
	{regexp.MustCompile(`need\s+(?:a\s+)?guarantor`), "need"},
	{regexp.MustCompile(`besoin\s+d'un\s+garant`), "need"},
	{regexp.MustCompile(`garantie\s+visale|visale\s+guarantee|\bvisale\b`), "visale"},
	{regexp.MustCompile(`have\s+a\s+guarantor|ai\s+un\s+garant`), "yes"},
	{regexp.MustCompile(`\b(?:guarantor|garant)\b`), "yes"},
}

var guarantorDetailPatterns = []struct {
	re     *regexp.Regexp
	detail string
}{
	{regexp.MustCompile(`\b(?:father|père|pere|dad|papa)\b`), "father"},
	{regexp.MustCompile(`\b(?:mother|mère|mere|mom|maman)\b`), "mother"},
	{regexp.MustCompile(`\b(?:parents?)\b`), "parent"},
	{regexp.MustCompile(`\b(?:accountant|comptable)\b`), "accountant"},
	{regexp.MustCompile(`\b(?:employer|employeur)\b`), "employer"},
	{regexp.MustCompile(`\b(?:friend|ami)\b`), "friend"},
	{regexp.MustCompile(`\b(?:sibling|frère|frere|sœur|soeur)\b`), "sibling"},
}

var viewingPatterns = []struct {
	re       *regexp.Regexp
	interest bool
}{
	{regexp.MustCompile(`(?:not interested|pas intéressé|pas interesse)`), false},
	{regexp.MustCompile(`(?:no viewing|pas de visite)`), false},
	{regexp.MustCompile(`(?:schedule|book|organiser|organise)\s+(?:a\s+|une\s+)?(?:viewing|visit|visite)`), true},
	{regexp.MustCompile(`(?:interested in|intéressé par|interesse par)\s+(?:a\s+|une\s+)?(?:viewing|visit|visite)`), true},
	{regexp.MustCompile(`(?:would like|souhaite|veux|j'aimerais)\s+(?:to\s+)?(?:see|visit|visiter|voir)\b`), true},
}

var availabilityPatterns = []struct {
	re    *regexp.Regexp
	fixed string
}{
	{regexp.MustCompile(`\b(?:weekends?|week-ends?)\b`), "weekends"},
	{regexp.MustCompile(`\b(?:weekdays|en semaine)\b`), "weekdays"},
	{regexp.MustCompile(`\b(?:evenings?|le soir|en soirée|en soiree)\b`), "evenings"},
	{regexp.MustCompile(`\b(?:mornings?|le matin|en matinée|en matinee)\b`), "mornings"},
	{regexp.MustCompile(`(?:available|disponible|free|libre)\s+(?:on\s+|from\s+|le\s+|à partir d[eu']\s*)?([^,.!?]+)`), ""},
}

// frenchMarkers and englishMarkers decide language preference by counting
// whole-word hits; a tie leaves the preference unset.
var (
	frenchMarkers  = []string{"bonjour", "salut", "merci", "oui", "non", "je", "suis", "veux", "peux", "avoir", "vous"}
	englishMarkers = []string{"hello", "hi", "thanks", "yes", "no", "i", "am", "want", "can", "have", "you"}
)

var wordSplitter = regexp.MustCompile(`[^\p{L}']+`)

// ExtractRules runs the deterministic bilingual patterns over one message.
// It is total: unmatched fields are simply absent from the result, and no
// input can make it fail. It is also the mandatory fallback for the LLM
// path, so it must never depend on any external capability.
func ExtractRules(message string) models.FieldUpdates {
	var updates models.FieldUpdates
	lower := strings.ToLower(message)

	// Age
	for _, re := range agePatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			if age, err := strconv.Atoi(m[1]); err == nil && age > 0 {
				updates.Age = models.Int(age)
				break
			}
		}
	}

	// Sex
	for _, p := range sexPatterns {
		if p.re.MatchString(lower) {
			updates.Sex = models.String(p.value)
			break
		}
	}

	// Occupation: capture after a keyword, bounded by sentence terminators.
	// Search and capture both run against lower: lowercasing can change byte
	// length for some runes, so an index found in lower must never be used to
	// slice the original message.
	for _, keyword := range occupationKeywords {
		idx := strings.Index(lower, keyword)
		if idx < 0 {
			continue
		}
		rest := lower[idx+len(keyword):]
		end := len(rest)
		if m := occupationEndPattern.FindStringIndex(rest); m != nil {
			end = m[0]
		}
		occupation := strings.TrimSpace(rest[:end])
		if len(occupation) > 2 {
			updates.Occupation = models.String(occupation)
			break
		}
	}

	// Move-in date: deliberately unparsed natural-language text.
	for _, re := range moveInPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			date := strings.TrimSpace(m[len(m)-1])
			if date != "" {
				updates.MoveInDate = models.String(date)
				break
			}
		}
	}

	// Rental duration, normalized to "<N> months" on a numeric match.
	for _, re := range durationPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			updates.RentalDuration = models.String(m[1] + " months")
			break
		}
	}

	// Guarantor status
	for _, p := range guarantorPatterns {
		if p.re.MatchString(lower) {
			updates.GuarantorStatus = models.String(p.status)
			break
		}
	}

	// Guarantor details only make sense when the status resolved to yes in
	// this same pass.
	if updates.GuarantorStatus != nil && *updates.GuarantorStatus == "yes" {
		for _, p := range guarantorDetailPatterns {
			if p.re.MatchString(lower) {
				updates.GuarantorDetails = models.String(p.detail)
				break
			}
		}
	}

	// Viewing interest
	for _, p := range viewingPatterns {
		if p.re.MatchString(lower) {
			updates.ViewingInterest = models.Bool(p.interest)
			break
		}
	}

	// Availability
	for _, p := range availabilityPatterns {
		m := p.re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if p.fixed != "" {
			updates.Availability = models.String(p.fixed)
		} else {
			captured := strings.TrimSpace(m[len(m)-1])
			if captured == "" {
				continue
			}
			updates.Availability = models.String(captured)
		}
		break
	}

	// Language preference: strict majority of marker words, ties unset.
	if lang := detectLanguage(lower); lang != "" {
		updates.LanguagePreference = models.String(lang)
	}

	return updates
}

func detectLanguage(lower string) string {
	words := map[string]bool{}
	for _, w := range wordSplitter.Split(lower, -1) {
		if w != "" {
			words[w] = true
		}
	}

	french, english := 0, 0
	for _, marker := range frenchMarkers {
		if words[marker] {
			french++
		}
	}
	for _, marker := range englishMarkers {
		if words[marker] {
			english++
		}
	}

	switch {
	case french > english:
		return "French"
	case english > french:
		return "English"
	}
	return ""
}
