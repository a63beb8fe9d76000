package score

import (
	"strings"

	"newsflow/internal/domain"
	"newsflow/internal/normalize"
)

// Signals is the outcome of the local keyword heuristic. It drives the tier
// mapping on the normal path and fully replaces enrichment verdicts when the
// service is unavailable.
type Signals struct {
	Score  float64
	Tier   domain.Tier
	Urgent bool
}

// Analyzer scores importance from keyword classes without any external
// call. Matching is substring-based over the cleaned lowercased text, which
// keeps it deterministic and language-tolerant.
type Analyzer struct {
	critical     []string
	highPriority []string
	entities     []string
	mundane      []string
	urgentMarks  []string
}

var criticalKeywords = []string{
	"war", "invasion", "attack", "strike", "bombing", "explosion",
	"terrorism", "terrorist", "coup", "revolution", "impeachment",
	"resignation", "sanctions", "embargo", "blockade", "earthquake",
	"tsunami", "flood", "hurricane", "eruption", "disaster", "collapse",
	"default", "recession", "crisis", "escalation", "cyberattack",
	"data breach", "outage",
	"война", "вторжение", "атака", "удар", "взрыв", "теракт", "переворот",
	"отставка", "санкции", "землетрясение", "наводнение", "катастрофа",
	"кризис", "обвал", "дефолт", "кибератака",
}

var highPriorityKeywords = []string{
	"president", "prime minister", "minister", "election", "referendum",
	"parliament", "congress", "senate", "inflation", "unemployment",
	"currency", "oil", "gas", "energy", "nato", "united nations", "summit",
	"negotiations", "diplomacy", "protests", "demonstrations", "unrest",
	"президент", "премьер", "министр", "выборы", "референдум", "парламент",
	"инфляция", "валюта", "нефть", "саммит", "переговоры", "протесты",
}

var entityKeywords = []string{
	"kremlin", "white house", "pentagon", "european parliament",
	"кремль", "белый дом", "пентагон", "европарламент",
}

var mundaneKeywords = []string{
	"celebrity", "actor", "actress", "singer", "movie", "tv show",
	"reality show", "wedding", "divorce", "anniversary", "award",
	"playoff", "championship", "city council", "mayor",
	"знаменитость", "актер", "актриса", "свадьба", "развод", "награда",
	"чемпионат", "мэр",
}

var urgentMarkers = []string{"breaking", "urgent", "срочно", "экстренно"}

// NewAnalyzer builds the analyzer with the built-in keyword classes.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		critical:     criticalKeywords,
		highPriority: highPriorityKeywords,
		entities:     entityKeywords,
		mundane:      mundaneKeywords,
		urgentMarks:  urgentMarkers,
	}
}

// Analyze computes an importance score in [0,1] and maps it onto a tier.
func (a *Analyzer) Analyze(title, body string) Signals {
	text := strings.ToLower(normalize.CleanText(title + " " + body))

	score := 0.0

	criticalHits := countMatches(text, a.critical)
	if criticalHits > 0 {
		score += 0.5
		if criticalHits >= 2 {
			score += 0.2
		}
	}

	if countMatches(text, a.highPriority) > 0 {
		score += 0.3
	}

	if countMatches(text, a.entities) > 0 {
		score += 0.2
	}

	urgent := countMatches(text, a.urgentMarks) > 0
	if urgent {
		score += 0.2
	}

	if len(body) > 500 {
		score += 0.1
	}

	if countMatches(text, a.mundane) >= 3 {
		score -= 0.5
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}

	return Signals{Score: score, Tier: tierForScore(score), Urgent: urgent}
}

func tierForScore(score float64) domain.Tier {
	switch {
	case score >= 0.7:
		return domain.TierCritical
	case score >= 0.5:
		return domain.TierHigh
	case score >= 0.3:
		return domain.TierMedium
	default:
		return domain.TierLow
	}
}

func countMatches(text string, keywords []string) int {
	matches := 0
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			matches++
		}
	}
	return matches
}

// deriveTier is the deterministic mapping from urgency, source priority and
// keyword signals onto the final tier. Urgent items are always critical;
// low-priority sources are demoted one step.
func deriveTier(urgent bool, sourcePriority int, keywordTier domain.Tier) domain.Tier {
	if urgent {
		return domain.TierCritical
	}

	tier := keywordTier
	if sourcePriority > 2 {
		tier = demote(tier)
	}
	return tier
}

func demote(tier domain.Tier) domain.Tier {
	switch tier {
	case domain.TierCritical:
		return domain.TierHigh
	case domain.TierHigh:
		return domain.TierMedium
	default:
		return domain.TierLow
	}
}
