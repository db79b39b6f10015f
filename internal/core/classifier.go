package core

import (
	"strings"
)

const (
	emptyBody       = "(empty body)"
	noSubject       = "(no subject)"
	redactedAddress = "***@***.***"
)

var (
	spamKeywords = []string{"unsubscribe", "click here", "limited time", "winner", "congratulations", "act now"}

	leadKeywords = []string{
		"acre", "land", "farm", "lease", "rent", "corn", "crop", "field",
		"tractor", "equipment", "irrigation", "soil", "seed", "planting",
	}

	partnershipKeywords = []string{
		"partner", "collaborat", "api", "data", "satellite", "sensor", "platform",
		"service", "supply", "sponsor", "farmpin", "digital earth",
	}

	questionIndicators = []string{
		"?", "how", "what", "when", "where", "can you", "do you", "is there",
		"hacker news", "hn", "cool project",
	}
)

// categoryRule maps a predicate over the lowercased text to a category
type categoryRule struct {
	category Category
	match    func(text string) bool
}

var categoryRules = []categoryRule{
	{CategorySpam, func(text string) bool {
		return containsAny(text, spamKeywords) && !strings.Contains(text, "corn")
	}},
	{CategoryLead, func(text string) bool { return containsAny(text, leadKeywords) }},
	{CategoryPartnership, func(text string) bool { return containsAny(text, partnershipKeywords) }},
	{CategoryQuestion, func(text string) bool { return containsAny(text, questionIndicators) }},
}

// NormalizedMessage holds the placeholder-filled fields a message is classified on
type NormalizedMessage struct {
	From    string
	Subject string
	Body    string
}

// Normalize replaces empty fields with placeholders so classification never sees blanks
func Normalize(from, subject, body string) NormalizedMessage {
	from = strings.TrimSpace(from)
	if from == "" {
		from = redactedAddress
	}
	if strings.TrimSpace(subject) == "" {
		subject = noSubject
	}
	if strings.TrimSpace(body) == "" {
		body = emptyBody
	}
	return NormalizedMessage{From: from, Subject: subject, Body: body}
}

// Classify runs the security check and then categorizes the message
func Classify(from, subject, body string) (SecurityVerdict, Category) {
	msg := Normalize(from, subject, body)
	verdict := CheckSecurity(msg.From, msg.Subject, msg.Body)
	return verdict, Categorize(msg.Subject, msg.Body, verdict)
}

// Categorize assigns a content category; the first matching rule wins
func Categorize(subject, body string, verdict SecurityVerdict) Category {
	if !verdict.IsSafe || verdict.Recommendation == RecommendBlock {
		return CategorySuspicious
	}

	combined := strings.ToLower(subject + " " + body)
	for _, rule := range categoryRules {
		if rule.match(combined) {
			return rule.category
		}
	}
	return CategoryOther
}

// IsHighValue reports whether a category warrants an operator alert
func (c Category) IsHighValue() bool {
	return c == CategoryLead || c == CategoryPartnership
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
