package mood

import (
	"strings"
)

// Label 表示客户在会话中的整体情绪。
type Label string

const (
	Neutral    Label = "neutral"
	Satisfied  Label = "satisfied"
	Frustrated Label = "frustrated"
	Confused   Label = "confused"
	Urgent     Label = "urgent"
)

// Decision 给出识别结果及其得分，得分为0表示没有明显信号。
type Decision struct {
	Mood  Label
	Score int
}

var keywordBuckets = map[Label][]string{
	Satisfied: {
		"thanks", "thank you", "great", "perfect", "awesome", "that worked", "works now", "solved",
		"appreciate", "helpful", "excellent", "谢谢", "太好了", "解决了", "好的", "满意", "感谢",
	},
	Frustrated: {
		"still not", "doesn't work", "does not work", "not working", "broken", "ridiculous", "terrible",
		"again", "waste", "refund", "cancel", "annoyed", "angry", "unacceptable", "worst",
		"还是不行", "没用", "生气", "退款", "投诉", "受够了", "太差",
	},
	Confused: {
		"how do i", "how can i", "i don't understand", "confused", "what does", "not sure", "where is",
		"which one", "怎么", "不明白", "不懂", "在哪", "什么意思",
	},
	Urgent: {
		"asap", "urgent", "immediately", "right now", "emergency", "deadline", "today",
		"紧急", "马上", "立刻", "尽快",
	},
}

// Analyze 根据客户的发言推断情绪，越靠后的消息权重越高。
func Analyze(customerTexts []string) Decision {
	scores := make(map[Label]int)
	for i, text := range customerTexts {
		weight := 1
		if i >= len(customerTexts)-3 {
			weight = 2
		}
		for label, s := range scoreText(text) {
			scores[label] += s * weight
		}
	}

	best := Decision{Mood: Neutral}
	// 固定顺序保证同分时结果稳定
	for _, label := range []Label{Frustrated, Urgent, Confused, Satisfied} {
		if scores[label] > best.Score {
			best = Decision{Mood: label, Score: scores[label]}
		}
	}
	return best
}

func scoreText(text string) map[Label]int {
	normalized := strings.TrimSpace(strings.ToLower(text))
	scores := make(map[Label]int)
	if normalized == "" {
		return scores
	}

	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				scores[label] += 3
			}
		}
	}

	if strings.Count(text, "!") >= 2 {
		scores[Frustrated] += 2
		scores[Urgent] += 1
	}
	if strings.Count(text, "?") >= 2 {
		scores[Confused] += 2
	}
	return scores
}
