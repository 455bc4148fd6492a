package session

import (
	"regexp"
	"strings"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
	"github.com/kirillkom/support-agent-core/internal/core/textutil"
)

const clarificationMarker = "(clarification:"

var followUpIndicators = []string{
	"what about", "how about", "and what", "what else", "also", "too",
	"as well", "same for", "instead",
}

var continuationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?:and|but|also|what about|how about|ok and)\b`),
	regexp.MustCompile(`^(?:more|another|again)\b`),
}

var pronounPattern = regexp.MustCompile(`\b(?:it|that|this one|those|they|them)\b`)

// detectFollowUp flags utterances that only make sense against a prior turn.
// Clarification replies carry their own context and are never follow-ups.
func detectFollowUp(utterance string, state domain.SessionState) domain.FollowUpDetection {
	lowered := strings.ToLower(strings.TrimSpace(utterance))
	if lowered == "" || strings.Contains(lowered, clarificationMarker) {
		return domain.FollowUpDetection{}
	}
	if state.TurnCount == 0 {
		return domain.FollowUpDetection{}
	}

	confidence := 0.0
	for _, indicator := range followUpIndicators {
		if strings.Contains(lowered, indicator) {
			confidence = 0.8
			break
		}
	}
	for _, pattern := range continuationPatterns {
		if pattern.MatchString(lowered) {
			if 0.8 > confidence {
				confidence = 0.8
			}
			break
		}
	}
	if confidence < 0.6 && pronounPattern.MatchString(lowered) && len(strings.Fields(lowered)) <= 6 {
		confidence = 0.6
	}
	if confidence < 0.7 && topicOverlap(lowered, state.LastTopics) > 0.3 {
		confidence = 0.7
	}

	if confidence == 0 {
		return domain.FollowUpDetection{}
	}
	return domain.FollowUpDetection{
		IsFollowUp: true,
		Confidence: confidence,
		Topic:      strings.Join(state.LastTopics, " "),
	}
}

// resolveContextualQuery augments a follow-up with the prior topic. The
// original utterance stays verbatim at the front.
func resolveContextualQuery(utterance string, followUp domain.FollowUpDetection) string {
	if !followUp.IsFollowUp || followUp.Topic == "" {
		return utterance
	}
	return utterance + " (in the context of " + followUp.Topic + ")"
}

func topicOverlap(lowered string, topics []string) float64 {
	if len(topics) == 0 {
		return 0
	}
	current := textutil.ContentTokenSet(lowered)
	topicSet := make(map[string]struct{}, len(topics))
	for _, topic := range topics {
		topicSet[topic] = struct{}{}
	}
	return textutil.Overlap(current, topicSet)
}

// extractTopics keeps the most recent content tokens as the session's topic
// memory, newest first, capped at maxTopics.
func extractTopics(utterance string, previous []string, maxTopics int) []string {
	if maxTopics <= 0 {
		maxTopics = 5
	}
	tokens := textutil.ContentTokens(utterance)
	seen := make(map[string]struct{}, maxTopics)
	out := make([]string, 0, maxTopics)
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
		if len(out) == maxTopics {
			return out
		}
	}
	for _, token := range previous {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
		if len(out) == maxTopics {
			break
		}
	}
	return out
}
