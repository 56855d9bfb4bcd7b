package remote

import "fmt"

const analysisSystemPrompt = `You are a document analyst for an enterprise records system.
Reply with one JSON object and nothing else, using exactly these keys:
  summary_primary     3-4 sentence English summary
  summary_secondary   the same summary in %s
  document_kind       one of: contract, policy, circular, invoice, report, memo, other
  sensitivity         one of: low, medium, high, confidential
  recommended_roles   {"roles": [...], "confidence": 0.0-1.0, "reasoning": "..."}
                      roles drawn from LEADERSHIP, HR, FINANCE, ENGINEER
  tags                up to 8 short lowercase tags
  retention_days      integer days the document should be retained
  key_entities        people, organisations, amounts and dates mentioned
  primary_language    ISO 639-1 code of the document's language`

func analysisSystem(secondaryLanguage string) string {
	return fmt.Sprintf(analysisSystemPrompt, secondaryLanguage)
}

const detectSystemPrompt = `Identify the languages used in the text.
Reply with one JSON object mapping ISO 639-1 codes to confidence between 0 and 1, for example {"en": 0.9, "ml": 0.1}. No other text.`

func translateSystem(target string) string {
	return fmt.Sprintf("Translate the user's text into %s. Reply with the translation only, without notes or quotation marks.", target)
}

func askSystem(answerLanguage string) string {
	return fmt.Sprintf("Answer the question using only the document provided. If the document does not contain the answer, say so. Answer in %s in at most five sentences.", answerLanguage)
}

func askPrompt(document, question string) string {
	return fmt.Sprintf("Document:\n%s\n\nQuestion: %s", document, question)
}
