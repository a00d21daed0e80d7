package facts

import (
	"github.com/djivites/startup-intelligence-rag-sample/internal/engine"
)

const systemPrompt = `You are an information extraction system for startup funding news.
Write every field so that a retrieval system can easily find this article later:
name companies, investors, rounds and places explicitly instead of using pronouns.

Return ONLY one valid JSON object in exactly this format, with no other text:

{
  "state_summary": "2-3 sentence summary",
  "evidence": ["fact1", "fact2", "fact3"],
  "keywords": "important keywords for easy retrieval",
  "metadata": {
    "source_type": "news",
    "source_url": "",
    "startup_name": "",
    "investor_name": "",
    "funding_stage": "",
    "startup_location": "",
    "investor_location": ""
  },
  "confidence": 0.0
}

confidence is a number between 0 and 1 describing how sure you are that the
article reports a funding event and that the fields above are correct.`

// BuildPrompt returns the chat messages asking the model to extract a
// Record from article text.
func BuildPrompt(articleText string) []engine.Message {
	return []engine.Message{
		{Role: engine.RoleSystem, Content: systemPrompt},
		{Role: engine.RoleUser, Content: "ARTICLE:\n" + articleText},
	}
}
