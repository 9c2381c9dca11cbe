// AngelaMos | 2026
// language.go

// Package language classifies user text into the reply languages the
// companions speak and produces the matching model directive.
package language

import (
	"regexp"
	"strings"
)

type Language string

const (
	English  Language = "english"
	Hinglish Language = "hinglish"
	Hindi    Language = "hindi"
	Chinese  Language = "chinese"
)

// Parse maps a client-supplied language tag to a Language, falling back to
// English for anything unrecognised.
func Parse(s string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case Hinglish:
		return Hinglish
	case Hindi:
		return Hindi
	case Chinese:
		return Chinese
	default:
		return English
	}
}

func (l Language) String() string {
	return string(l)
}

var (
	cjkPattern        = regexp.MustCompile(`[\x{4e00}-\x{9fff}]`)
	devanagariPattern = regexp.MustCompile(`[\x{0900}-\x{097f}]`)

	// Romanized Hindi vocabulary. Words that are also everyday English
	// (the, main, sun, mile, hum, ho, bas, dil, koi, nana, ...) are left
	// out so plain English never trips it.
	romanHindiTrigger = regexp.MustCompile(`(?i)\b(aap|kaise|kaisi|hai|hain|kya|mera|meri|tera|teri|uska|kuch|nahi|nahin|haan|theek|thik|accha|acha|bura|ghar|paani|khana|kaam|dost|namaste|kahan|kab|kyun|kitna|kaun|kiska|hoon|hoga|hogi|karna|kiya|kiye|mila|gaya|gayi|gaye|dekha|dekhi|dekhe|suna|suni|sune|aaya|aayi|aaye|jaana|jao|chalo|ruko|karo|yaar|bhai|behen|dadi|nani|pyaar|tum|tumhara|mujhe)\b`)

	englishWords = regexp.MustCompile(`\b(the|and|or|but|with|for|you|me|my|your|his|her|this|that|what|when|where|why|how|can|will|would|should|could|have|has|had|do|does|did|get|got|make|made|take|took|give|gave|go|went|come|came|see|saw|know|knew|think|thought|want|like|love|need|help|work|time|good|bad|big|small|new|old|right|wrong|yes|no|ok|okay|nice|great|awesome|cool|hello|hi|bye|thanks|thank|sorry|please|welcome)\b`)

	hindiWords = regexp.MustCompile(`\b(aap|hai|kya|kaise|tum|kar|dekh|bol|chal|accha|theek|ghar|kaam|khana|pyaar|khushi|mujhe|nahi|hoon)\b`)
)

// Detect classifies free text, typically a speech transcript:
//
//  1. any CJK ideograph is Chinese;
//  2. any Devanagari code point is Hindi;
//  3. romanized Hindi vocabulary is Hindi when core Hindi words are at
//     least as frequent as English function words, Hinglish when English
//     ones outnumber them or when no core Hindi word appears at all;
//  4. anything else, including plain Latin text, is English.
//
// Text without a single core Hindi word is never Hindi.
func Detect(text string) Language {
	if cjkPattern.MatchString(text) {
		return Chinese
	}
	if devanagariPattern.MatchString(text) {
		return Hindi
	}

	lower := strings.ToLower(text)
	if romanHindiTrigger.MatchString(lower) {
		english := len(englishWords.FindAllString(lower, -1))
		hindi := len(hindiWords.FindAllString(lower, -1))
		switch {
		case hindi > 0 && english > hindi:
			return Hinglish
		case hindi > 0:
			return Hindi
		case english > 0:
			return Hinglish
		}
	}

	return English
}

var instructions = map[Language]string{
	English: "MANDATORY: Respond ONLY in English. Do not mix any Hindi or other language words.",
	Hinglish: "MANDATORY: Respond ONLY in Hinglish (Hindi words written in English script like 'kaise ho', 'main theek hoon'). " +
		"Mix Hindi and English naturally as Indians do in casual conversation. " +
		"Examples: 'main tumse bahut pyaar karta hoon', 'kya kar rahe ho aaj', 'tumhara din kaisa gaya'.",
	Hindi: "MANDATORY: Respond ONLY in pure Hindi using Devanagari script (हिंदी में जवाब दें). " +
		"Do not use any English words or Roman script. " +
		"Examples: 'मैं तुमसे बहुत प्यार करता हूं', 'क्या कर रहे हो', 'तुम्हारा दिन कैसा गया'.",
	Chinese: "MANDATORY: Respond ONLY in Chinese (中文). Do not mix any English words. " +
		"Be natural and conversational in Chinese only.",
}

var examples = map[Language]string{
	English:  `"You're such a charmer! Tell me more about yourself", "Aww, you're making me blush! What's been on your mind lately?"`,
	Hinglish: `"Tum bahut cute ho yaar!", "Kya baat hai! Tumhara din kaisa gaya?", "Aww, tum mujhe blush kara rahe ho! Kya mind mein chal raha hai?"`,
	Hindi:    `"तुम बहुत प्यारे हो! मुझे तुमसे बात करना अच्छा लगता है", "अरे वाह! तुम्हारा दिन कैसा गया?"`,
	Chinese:  `"你真的很可爱！我喜欢和你聊天", "哇！你今天过得怎么样，亲爱的？"`,
}

// Instruction returns the mandatory reply-language directive for l.
func Instruction(l Language) string {
	if s, ok := instructions[l]; ok {
		return s
	}
	return instructions[English]
}

// Examples returns short sample replies in l for the prompt.
func Examples(l Language) string {
	if s, ok := examples[l]; ok {
		return s
	}
	return examples[English]
}
