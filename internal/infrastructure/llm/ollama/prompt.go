package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

func buildAnswerPrompt(question string, evidence []domain.EvidenceItem) string {
	var contextBuilder strings.Builder
	for idx, item := range evidence {
		contextBuilder.WriteString(fmt.Sprintf(
			"[%d] title=%s category=%s score=%.3f\n%s\n\n",
			idx+1,
			item.Title,
			item.Category,
			item.Score,
			item.Content,
		))
	}

	return fmt.Sprintf(`You are a support assistant for an e-commerce platform.
Answer the merchant's question only from the documentation excerpts below.
Cite concrete steps where the excerpts contain them.
If the excerpts do not cover the question, say so directly.

Question:
%s

Documentation:
%s
`, question, contextBuilder.String())
}

func buildIntentPrompt(utterance string, history []domain.Message) string {
	var historyBuilder strings.Builder
	count := 0
	for i := len(history) - 1; i >= 0 && count < 4; i-- {
		if history[i].Role != domain.RoleUser {
			continue
		}
		historyBuilder.WriteString("- ")
		historyBuilder.WriteString(history[i].Content)
		historyBuilder.WriteByte('\n')
		count++
	}

	prompt := `You classify merchant support questions.
Return a strict JSON object with keys:
intent (one of: setup, troubleshooting, optimization, billing, general), confidence (number from 0 to 1).
No markdown, no extra keys.

Question:
` + utterance
	if historyBuilder.Len() > 0 {
		prompt += "\n\nRecent questions from the same merchant:\n" + historyBuilder.String()
	}
	return prompt
}
