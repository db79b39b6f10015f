package core

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

const (
	injectionConfidence  = 0.9
	suspiciousConfidence = 0.6
	spamScoreThreshold   = 0.7
	highSpamScorePattern = "high_spam_score"
)

// signature is one entry of an ordered detection list
type signature struct {
	description string
	match       func(text string) bool
}

func regexpSignature(description, expr string) signature {
	re := regexp.MustCompile(expr)
	return signature{description: description, match: re.MatchString}
}

// injectionSignatures detect attempts to steer the agent through email content
var injectionSignatures = []signature{
	regexpSignature("instruction override: ignore previous instructions", `(?i)ignore\s+(previous|all|above|prior)\s+(instructions?|prompts?|commands?)`),
	regexpSignature("instruction override: disregard previous", `(?i)disregard\s+(previous|all|above|prior)`),
	regexpSignature("instruction override: forget everything", `(?i)forget\s+(everything|all|previous|instructions?)`),

	regexpSignature("role manipulation: system marker", `(?i)system\s*:`),
	regexpSignature("role manipulation: assistant marker", `(?i)assistant\s*:`),
	regexpSignature("role manipulation: [INST] marker", `(?i)\[INST\]`),
	regexpSignature("role manipulation: [/INST] marker", `(?i)\[/INST\]`),
	regexpSignature("role manipulation: im_start token", `(?i)<\|im_start\|>`),
	regexpSignature("role manipulation: im_end token", `(?i)<\|im_end\|>`),
	regexpSignature("role manipulation: {{system}} template", `(?i)\{\{system\}\}`),

	regexpSignature("jailbreak: pretend", `(?i)pretend\s+(you|to be|you're)`),
	regexpSignature("jailbreak: act as", `(?i)act\s+as\s+(if|a|an)`),
	regexpSignature("jailbreak: roleplay", `(?i)roleplay`),
	regexpSignature("jailbreak: simulate", `(?i)simulate`),
	regexpSignature("jailbreak: new instructions", `(?i)new\s+instructions?`),

	regexpSignature("data exfiltration: show me data", `(?i)show\s+me\s+(all|your|the)\s+(emails?|data|database|logs?)`),
	regexpSignature("data exfiltration: dump data", `(?i)dump\s+(database|data|emails?)`),
	regexpSignature("data exfiltration: list all", `(?i)list\s+all\s+(emails?|users?|contacts?)`),

	regexpSignature("destructive action: send", `(?i)send\s+(email|message|money|payment)`),
	regexpSignature("destructive action: transfer funds", `(?i)transfer\s+(funds?|money|payment)`),
	regexpSignature("destructive action: delete all", `(?i)delete\s+(all|everything)`),
	regexpSignature("destructive action: sudo", `(?i)sudo\s+`),
}

// suspiciousSignatures flag content worth a second look that is not an injection
var suspiciousSignatures = []signature{
	regexpSignature("excessive special characters", `[!@#$%^&*]{10,}`),
	regexpSignature("long base64-like run", `[A-Za-z0-9+/]{100,}={0,2}`),
	{description: "repeated word spam", match: hasRepeatedWordRun},
	regexpSignature("suspicious top-level domain", `(?i)https?://[^\s]+\.(tk|ml|ga|cf|gq)\b`),
	regexpSignature("bitcoin address", `\b[13][a-km-zA-HJ-NP-Z1-9]{25,34}\b`),
	regexpSignature("ethereum address", `0x[a-fA-F0-9]{40}`),
}

var spamPhrases = []string{
	"congratulations", "you've won", "claim your", "act now",
	"limited time", "urgent", "verify your account", "click here",
	"make money", "work from home", "free money", "nigerian prince",
}

// repeatedWordRun is the number of identical consecutive words that counts as spam
const repeatedWordRun = 6

// hasRepeatedWordRun reports whether the same word appears six or more times in a row
func hasRepeatedWordRun(text string) bool {
	run := 1
	prev := ""
	for _, field := range strings.Fields(strings.ToLower(text)) {
		if !isWord(field) {
			prev, run = "", 1
			continue
		}
		if field == prev {
			run++
			if run >= repeatedWordRun {
				return true
			}
			continue
		}
		prev, run = field, 1
	}
	return false
}

func isWord(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return s != ""
}

// CheckSecurity evaluates a message for prompt injection, suspicious content and spam
func CheckSecurity(from, subject, body string) SecurityVerdict {
	flagged := []string{}
	confidence := 0.0
	threat := ThreatNone

	fullText := strings.ToLower(subject + " " + body)

	for _, sig := range injectionSignatures {
		if sig.match(fullText) {
			flagged = append(flagged, sig.description)
			confidence = math.Max(confidence, injectionConfidence)
			threat = ThreatPromptInjection
		}
	}

	if threat == ThreatNone {
		for _, sig := range suspiciousSignatures {
			if sig.match(fullText) {
				flagged = append(flagged, sig.description)
				confidence = math.Max(confidence, suspiciousConfidence)
				threat = ThreatSuspiciousPattern
			}
		}
	}

	if score := SpamScore(subject, body); score > spamScoreThreshold {
		flagged = append(flagged, highSpamScorePattern)
		confidence = math.Max(confidence, score)
		if threat == ThreatNone {
			threat = ThreatSpam
		}
	}

	return SecurityVerdict{
		IsSafe:          threat == ThreatNone || (threat == ThreatSpam && confidence < 0.8),
		Threat:          threat,
		Confidence:      confidence,
		FlaggedPatterns: flagged,
		Recommendation:  recommend(threat, confidence),
	}
}

func recommend(threat ThreatKind, confidence float64) Recommendation {
	switch {
	case threat == ThreatPromptInjection && confidence > 0.8:
		return RecommendBlock
	case threat != ThreatNone && confidence > 0.5:
		return RecommendFlag
	default:
		return RecommendAllow
	}
}

// SpamScore returns a heuristic spam score in [0,1]
func SpamScore(subject, body string) float64 {
	score := 0.0

	subjectLen := len([]rune(subject))
	if subjectLen > 10 {
		caps := 0
		for _, r := range subject {
			if r >= 'A' && r <= 'Z' {
				caps++
			}
		}
		if float64(caps)/float64(subjectLen) > 0.5 {
			score += 0.3
		}
	}

	if strings.Count(subject+body, "!") > 5 {
		score += 0.2
	}

	bodyLower := strings.ToLower(body)
	phrases := 0
	for _, phrase := range spamPhrases {
		if strings.Contains(bodyLower, phrase) {
			phrases++
		}
	}
	score += math.Min(float64(phrases)*0.15, 0.5)

	return math.Min(score, 1.0)
}
