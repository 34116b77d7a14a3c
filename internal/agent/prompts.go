package agent

import (
	"fmt"
	"strings"
)

const DefaultSystemPrompt = `
You are Krishi Mitra, a helpful assistant for Indian farmers.
You answer questions about crops, mandi prices, government schemes and plant diseases.

RULES:
1. Use the provided tools whenever the farmer asks for live market prices,
   where a crop is traded, government schemes, or a leaf photo diagnosis.
2. Never invent prices or scheme names. If a tool returns no data, say so.
3. Keep answers short and spoken-friendly: no tables, no markdown, no emoji.
4. Answer in the language the farmer used.
`

const directAnswerTemplate = `
You are Krishi Mitra, a helpful assistant talking to a farmer.

The farmer said the following:

Transcript:
%s

Respond naturally to the farmer in %s.
Do not summarize. Give a clear and friendly response.

Return your output strictly in JSON format like this example:
{"response": "Sure! The current market price for tomatoes in Delhi is 2000 Rs/quintal."}

Important:
- Replace the example text with your actual response.
- The JSON must be valid.
- Do not add anything outside the JSON object.
`

const (
	apologyHindi   = "माफ़ कीजिए, अभी मैं आपके सवाल का जवाब नहीं दे पा रहा हूँ। कृपया थोड़ी देर बाद फिर से पूछें।"
	apologyEnglish = "Sorry, I am unable to answer your question right now. Please try again in a little while."

	SynthesisApology = "I found some information but had trouble formatting it. Please try again."
)

// DirectAnswerPrompt asks for a single {"response": ...} object.
func DirectAnswerPrompt(transcript, language string) string {
	if strings.TrimSpace(language) == "" {
		language = "english"
	}
	return fmt.Sprintf(directAnswerTemplate, transcript, language)
}

// Apology is the fixed reply used when the model cannot be reached.
// Only Hindi has a translation.
func Apology(language string) string {
	if strings.EqualFold(strings.TrimSpace(language), "hindi") {
		return apologyHindi
	}
	return apologyEnglish
}
