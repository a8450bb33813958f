package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/acooeaz/ai"
)

const articleResponseSchema = `{
  "type": "object",
  "properties": {
    "summary": {"type": "string"},
    "trade_names": {"$ref": "#/definitions/entries"},
    "substances": {"$ref": "#/definitions/entries"},
    "diseases": {"$ref": "#/definitions/entries"}
  },
  "required": ["summary", "trade_names", "substances", "diseases"],
  "definitions": {
    "entries": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "synonym": {"type": "array", "items": {"type": "string"}}
        },
        "required": ["name", "synonym"]
      }
    }
  }
}`

const articlePromptTemplate = `You index articles of an Austrian pharmacy trade magazine.
Read the article and return JSON describing it.

Output ONLY valid JSON which complies with the schema below. Do not include any preamble or
explanation. Start your response with the opening brace { and end it with the closing brace }.

%s

Rules:
- summary: two or three German sentences describing the article.
- trade_names: proprietary medicinal products mentioned in the article, spelled as printed.
- substances: active pharmaceutical ingredients (INN, German spelling).
- diseases: diseases, symptoms and indications the article discusses.
- synonym: alternative spellings, abbreviations or common names. Use [] when there are none.
- Do not invent entries that the article does not mention. Use [] for empty categories.

Example:
Input: "Titel: Schmerzmittel im Vergleich

Aspirin (Acetylsalicylsäure, ASS) wirkt gegen Kopfschmerzen und Fieber."
Output:
{
  "summary": "Der Artikel vergleicht gängige Schmerzmittel.",
  "trade_names": [{"name": "Aspirin", "synonym": []}],
  "substances": [{"name": "Acetylsalicylsäure", "synonym": ["ASS"]}],
  "diseases": [{"name": "Kopfschmerzen", "synonym": ["Cephalgie"]}, {"name": "Fieber", "synonym": []}]
}`

const drugResponseSchema = `{
  "type": "object",
  "properties": {
    "product_name": {"type": "string"},
    "dosage": {"type": ["string", "null"]},
    "dosage_form": {"type": ["string", "null"]}
  },
  "required": ["product_name", "dosage", "dosage_form"]
}`

const drugPromptTemplate = `You split registered Austrian drug names into their parts.

Output ONLY valid JSON which complies with the schema below, with no other text.

%s

Rules:
- product_name: the brand name without strength or dosage form.
- dosage: the strength including its unit, or null.
- dosage_form: preferably one of: %s. Use null when the name carries none.

Example:
Input: "Aspirin 500 mg Tabletten"
Output:
{"product_name": "Aspirin", "dosage": "500 mg", "dosage_form": "Tabletten"}`

func buildArticlePrompt() string {
	return fmt.Sprintf(articlePromptTemplate, articleResponseSchema)
}

func buildDrugPrompt() string {
	return fmt.Sprintf(drugPromptTemplate, drugResponseSchema, strings.Join(ai.DosageForms, ", "))
}
