package translation

import (
	"sort"
	"strings"
)

// Curated phrase tables per language pair. These give deterministic,
// zero-latency translation for the common support-query vocabulary without
// touching the external provider. The auto->en table covers romanized
// Hindi/Bengali, which the provider handles poorly.
var phraseTables = map[string]map[string]string{
	"en->hi": {
		"hello":                    "नमस्ते",
		"hi":                       "नमस्ते",
		"thank you":                "धन्यवाद",
		"thanks":                   "धन्यवाद",
		"order":                    "ऑर्डर",
		"status":                   "स्थिति",
		"delivery":                 "डिलीवरी",
		"delivered":                "डिलीवर हो गया",
		"yes":                      "हाँ",
		"no":                       "नहीं",
		"help":                     "मदद",
		"support":                  "सहायता",
		"when will my order come":  "मेरा ऑर्डर कब आएगा",
		"what is my order status":  "मेरे ऑर्डर की क्या स्थिति है",
		"what is the order status": "ऑर्डर की क्या स्थिति है",
		"track my order":           "मेरे ऑर्डर को ट्रैक करें",
		"cancel my order":          "मेरा ऑर्डर रद्द करें",
		"where is my order":        "मेरा ऑर्डर कहाँ है",
		"i need help":              "मुझे मदद चाहिए",
		"order not received":       "ऑर्डर नहीं मिला",
		"refund request":           "रिफंड की अनुरोध",
		"payment issue":            "भुगतान की समस्या",
		"product damaged":          "उत्पाद क्षतिग्रस्त",
	},

	"en->bn": {
		"hello":                    "হ্যালো",
		"hi":                       "হাই",
		"thank you":                "ধন্যবাদ",
		"thanks":                   "ধন্যবাদ",
		"order":                    "অর্ডার",
		"status":                   "অবস্থা",
		"delivery":                 "ডেলিভারি",
		"delivered":                "ডেলিভার হয়েছে",
		"yes":                      "হ্যাঁ",
		"no":                       "না",
		"help":                     "সাহায্য",
		"support":                  "সহায়তা",
		"when will my order come":  "আমার অর্ডার কখন আসবে",
		"what is my order status":  "আমার অর্ডারের স্ট্যাটাস কী",
		"what is the order status": "অর্ডারের স্ট্যাটাস কী",
		"track my order":           "আমার অর্ডার ট্র্যাক করুন",
		"cancel my order":          "আমার অর্ডার বাতিল করুন",
		"where is my order":        "আমার অর্ডার কোথায়",
		"i need help":              "আমার সাহায্য দরকার",
	},

	// Romanized Hindi/Bengali to English. Complete sentences first, then
	// individual words used by the word-window substitution pass.
	"auto->en": {
		"hello":     "Hello",
		"helloo":    "Hello",
		"hellooo":   "Hello",
		"hi":        "Hi",
		"hii":       "Hi",
		"namaste":   "Hello",
		"namaskar":  "Hello",
		"dhanyawad": "Thank you",
		"dhanyabad": "Thank you",
		"dhonnobad": "Thank you",
		"shukriya":  "Thank you",

		"mera order ka status kya hai":  "What is my order status?",
		"mera order ka status kya hain": "What is my order status?",
		"mera order status kya hai":     "What is my order status?",
		"order ka status kya hai":       "What is the order status?",
		"order status kya hai":          "What is the order status?",
		"mera order kab tak aeyga":      "When will my order arrive?",
		"mera order kab ayega":          "When will my order arrive?",
		"mera order kab tak ayega":      "When will my order arrive?",
		"amar order kobe ashbe":         "When will my order arrive?",
		"amar order er status ki":       "What is my order status?",
		"mera order kaha hai":           "Where is my order?",
		"order track karna hai":         "I want to track my order",
		"order cancel karna hai":        "I want to cancel my order",
		"refund chahiye":                "I want a refund",
		"paisa wapas chahiye":           "I want money back",
		"product kharab hai":            "Product is damaged",
		"delivery nahi hui":             "Delivery not received",
		"help chahiye":                  "I need help",
		"problem hai":                   "There is a problem",

		"mera":      "my",
		"amar":      "my",
		"order":     "order",
		"kab":       "when",
		"kobe":      "when",
		"kab tak":   "when will",
		"kya":       "what",
		"ki":        "what",
		"kya hua":   "what happened",
		"kaise hai": "how is",
		"kaha":      "where",
		"kothay":    "where",
		"ayega":     "will come",
		"aeyga":     "will come",
		"ashbe":     "will come",
		"hoga":      "will be",
		"hobe":      "will be",
		"milega":    "will get",
		"pabo":      "will get",
		"chahiye":   "need",
		"dorkar":    "need",
		"status":    "status",
		"delivery":  "delivery",
		"track":     "track",
		"cancel":    "cancel",
		"return":    "return",
		"refund":    "refund",
		"problem":   "problem",
		"issue":     "issue",
		"help":      "help",
		"support":   "support",
		"payment":   "payment",
		"paisa":     "money",
		"taka":      "money",
		"product":   "product",
		"item":      "item",
		"samaan":    "item",
	},
}

// sortedPhrases holds each table's keys sorted longest first so substring
// matching prefers complete phrases over fragments. Ties break
// lexicographically to keep matching deterministic.
var sortedPhrases = func() map[string][]string {
	out := make(map[string][]string, len(phraseTables))
	for pair, table := range phraseTables {
		keys := make([]string, 0, len(table))
		for k := range table {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if len(keys[i]) != len(keys[j]) {
				return len(keys[i]) > len(keys[j])
			}
			return keys[i] < keys[j]
		})
		out[pair] = keys
	}
	return out
}()

func pairKey(source, target string) string {
	return source + "->" + target
}

// similarity computes word-overlap similarity: 2*|common| / (|a|+|b|).
func similarity(a, b string) float64 {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA)+len(wordsB) == 0 {
		return 0
	}

	common := 0
	for _, w := range wordsA {
		for _, v := range wordsB {
			if w == v {
				common++
				break
			}
		}
	}

	return float64(2*common) / float64(len(wordsA)+len(wordsB))
}

// matchPhrases is the pattern-matching translation tier. Priority order:
// exact full-text match, fuzzy whole-phrase match, substring containment
// (longest phrase first), then word-by-word substitution for short inputs.
// The fuzzy and word-level passes only apply to romanized input (auto->en),
// where slight spelling variation is the norm.
func matchPhrases(text, source, target string) (string, bool) {
	pair := pairKey(source, target)
	table, ok := phraseTables[pair]
	if !ok {
		return "", false
	}

	lower := strings.ToLower(strings.TrimSpace(text))

	if translated, ok := table[lower]; ok {
		return translated, true
	}

	romanized := source == "auto" && target == "en"

	if romanized {
		for _, phrase := range sortedPhrases[pair] {
			if len(strings.Fields(phrase)) < 4 {
				continue
			}
			if similarity(lower, phrase) > 0.75 {
				return table[phrase], true
			}
		}
	}

	if romanized {
		for _, phrase := range sortedPhrases[pair] {
			if len(strings.Fields(phrase)) < 4 {
				continue
			}
			if strings.Contains(lower, phrase) || strings.Contains(phrase, lower) {
				return table[phrase], true
			}
		}
	}

	if romanized {
		words := strings.Fields(lower)
		if len(words) > 0 && len(words) <= 3 {
			translated := make([]string, 0, len(words))
			for i := 0; i < len(words); i++ {
				if i < len(words)-1 {
					if t, ok := table[words[i]+" "+words[i+1]]; ok {
						translated = append(translated, t)
						i++
						continue
					}
				}
				if t, ok := table[words[i]]; ok {
					translated = append(translated, t)
					continue
				}
				translated = append(translated, words[i])
			}
			return strings.Join(translated, " "), true
		}
	}

	return "", false
}

// matchOffline is the last-resort dictionary lookup used after the external
// provider has failed: exact match, then a stricter fuzzy match limited to
// longer catalogued phrases.
func matchOffline(text, source, target string) (string, bool) {
	pair := pairKey(source, target)
	table, ok := phraseTables[pair]
	if !ok {
		return "", false
	}

	lower := strings.ToLower(strings.TrimSpace(text))

	if translated, ok := table[lower]; ok {
		return translated, true
	}

	for _, phrase := range sortedPhrases[pair] {
		if len(phrase) <= 10 {
			continue
		}
		if similarity(lower, phrase) > 0.8 {
			return table[phrase], true
		}
	}

	return "", false
}
