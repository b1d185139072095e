package search

import (
	"fmt"
	"strings"
)

// Intent is a coarse classification of query purpose.
type Intent string

const (
	IntentCommand      Intent = "command"
	IntentTroubleshoot Intent = "troubleshoot"
	IntentConfig       Intent = "configuration"
	IntentExplanation  Intent = "explanation"
	IntentComparison   Intent = "comparison"
	IntentPerformance  Intent = "performance"
	IntentBestPractice Intent = "best_practice"
	IntentVerification Intent = "verification"
	IntentQuestion     Intent = "question"
	IntentGeneral      Intent = "general"
)

// intentPriority breaks score ties. Earlier entries win.
var intentPriority = []Intent{
	IntentTroubleshoot,
	IntentPerformance,
	IntentBestPractice,
	IntentVerification,
	IntentConfig,
	IntentExplanation,
	IntentComparison,
	IntentCommand,
	IntentQuestion,
	IntentGeneral,
}

// IntentResult is the classifier output: exactly one intent, its normalized
// confidence, the matched signals, and the derived retrieval parameters.
type IntentResult struct {
	Intent     Intent       `json:"intent"`
	Confidence float64      `json:"confidence"`
	Reasons    []string     `json:"reasons"`
	Params     IntentParams `json:"params"`
}

type intentRule struct {
	signal string
	weight float64
}

// Strong domain phrases weigh 2.0; generic question openers weigh 0.5 so a
// domain signal always dominates a phrasing signal.
var intentRules = map[Intent][]intentRule{
	IntentCommand: {
		{"command", 2.0}, {"cli", 2.0}, {"syntax", 2.0},
		{"what command", 2.5}, {"which command", 2.5}, {"how to run", 2.0},
	},
	IntentTroubleshoot: {
		{"error", 2.0}, {"fail", 2.0}, {"not working", 2.5}, {"doesn't work", 2.5},
		{"troubleshoot", 2.5}, {"debug", 2.0}, {"fix", 2.0}, {"crash", 2.0},
		{"issue", 2.0}, {"unable to", 2.0}, {"cannot", 2.0}, {"can't", 2.0},
	},
	IntentConfig: {
		{"configure", 2.0}, {"configuration", 2.0}, {"config", 2.0},
		{"set up", 2.0}, {"setup", 2.0}, {"enable", 2.0}, {"disable", 2.0},
		{"install", 2.0}, {"setting", 2.0}, {"parameter", 2.0},
	},
	IntentExplanation: {
		{"what is", 2.0}, {"what are", 2.0}, {"explain", 2.5},
		{"how does", 2.0}, {"meaning of", 2.0}, {"understand", 2.0}, {"concept", 2.0},
	},
	IntentComparison: {
		{"difference", 2.5}, {"compare", 2.5}, {" vs ", 2.0}, {"versus", 2.5},
		{"better than", 2.0}, {"pros and cons", 2.5}, {"which is better", 2.5},
	},
	IntentPerformance: {
		{"performance", 2.5}, {"slow", 2.0}, {"latency", 2.5}, {"optimize", 2.5},
		{"throughput", 2.5}, {"bottleneck", 2.5}, {"tuning", 2.0}, {"speed up", 2.0},
	},
	IntentBestPractice: {
		{"best practice", 2.5}, {"recommended", 2.0}, {"should i", 2.0},
		{"convention", 2.0}, {"guideline", 2.0}, {"proper way", 2.0}, {"idiomatic", 2.0},
	},
	IntentVerification: {
		{"verify", 2.5}, {"validate", 2.5}, {"confirm", 2.0}, {"is it correct", 2.5},
		{"check if", 2.0}, {"check whether", 2.0}, {"make sure", 2.0},
	},
	IntentQuestion: {
		{"how ", 0.5}, {"what ", 0.5}, {"why ", 0.5}, {"when ", 0.5},
		{"where ", 0.5}, {"who ", 0.5}, {"can i", 0.5}, {"do i", 0.5}, {"?", 0.5},
	},
}

// followUpMarkers identify short anaphoric follow-ups that lean on the
// previous turn for their subject.
var followUpMarkers = []string{"it", "that", "this", "its", "them", "those", "the same"}

// Classifier scores queries against the fixed intent taxonomy.
type Classifier struct {
	tuning Tuning
}

func NewClassifier(t Tuning) *Classifier {
	return &Classifier{tuning: t}
}

// Classify returns exactly one intent; IntentGeneral is the default when no
// rule fires. Recent conversation turns may boost a matching intent or lend
// their intent to a short anaphoric follow-up with reduced confidence.
func (c *Classifier) Classify(query string, history []Turn) IntentResult {
	res := c.scoreQuery(query)

	if len(history) > 0 {
		history = lastN(history, c.tuning.HistoryWindow)
		prev := c.previousIntent(history)

		switch {
		case prev != IntentGeneral && res.Intent == prev:
			// Consistent topic across turns: modest boost.
			res.Confidence = min(1.0, res.Confidence*1.1)
			res.Reasons = append(res.Reasons, "history:consistent")
		case prev != IntentGeneral && isFollowUp(query) && (res.Intent == IntentGeneral || res.Intent == IntentQuestion):
			// "what about that?" inherits the prior turn's intent.
			res.Intent = prev
			res.Confidence = 0.7 * max(res.Confidence, 0.5)
			res.Reasons = append(res.Reasons, fmt.Sprintf("history:inherited:%s", prev))
			res.Params = c.tuning.ParamsFor(prev)
		}
	}

	return res
}

func (c *Classifier) scoreQuery(query string) IntentResult {
	q := " " + strings.ToLower(strings.TrimSpace(query)) + " "

	scores := make(map[Intent]float64)
	reasons := make(map[Intent][]string)
	total := 0.0

	for intent, rules := range intentRules {
		for _, r := range rules {
			if strings.Contains(q, r.signal) {
				scores[intent] += r.weight
				reasons[intent] = append(reasons[intent], fmt.Sprintf("%s:%s", intent, strings.TrimSpace(r.signal)))
				total += r.weight
			}
		}
	}

	winner := IntentGeneral
	best := 0.0
	for _, intent := range intentPriority {
		if s, ok := scores[intent]; ok && s > best {
			winner = intent
			best = s
		}
	}

	if winner == IntentGeneral || total == 0 {
		return IntentResult{
			Intent:     IntentGeneral,
			Confidence: 0.2,
			Reasons:    []string{"default:no_rule_matched"},
			Params:     c.tuning.ParamsFor(IntentGeneral),
		}
	}

	return IntentResult{
		Intent:     winner,
		Confidence: best / total,
		Reasons:    reasons[winner],
		Params:     c.tuning.ParamsFor(winner),
	}
}

// previousIntent classifies the most recent user turn.
func (c *Classifier) previousIntent(history []Turn) Intent {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "assistant" {
			continue
		}
		return c.scoreQuery(history[i].Content).Intent
	}
	return IntentGeneral
}

func isFollowUp(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if len(strings.Fields(q)) > 6 {
		return false
	}
	for _, m := range followUpMarkers {
		if strings.Contains(" "+q+" ", " "+m+" ") {
			return true
		}
	}
	return false
}

func lastN(turns []Turn, n int) []Turn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
