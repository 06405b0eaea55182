package generate

const variationPrompt = `Rewrite the following WhatsApp message so it reads as a fresh, natural variation.
Keep the same tone, the same emojis in roughly the same places, and every link exactly as written.
Keep a similar length but change the wording.
Return ONLY the rewritten message, without quotation marks or extra formatting.

Message:
`

const strictVariationPrompt = `Rewrite the following WhatsApp message so it reads as a fresh, natural variation.
Rules, all mandatory:
- Preserve every URL and domain exactly, character for character.
- Preserve the tone and level of formality exactly.
- Keep every emoji that appears, in the same position relative to the sentence it belongs to. Do not add new emojis.
- Keep the greeting addressed to the same person.
- Stay within 10% of the original length.
- Change the wording so the text is not a copy of the original.
Return ONLY the rewritten message, without quotation marks, labels or extra formatting.

Message:
`

// variationRequestPrompt appends base verbatim so any '%' in either text
// reaches the model unchanged.
func variationRequestPrompt(base string, custom bool) string {
	if custom {
		return strictVariationPrompt + base
	}
	return variationPrompt + base
}
