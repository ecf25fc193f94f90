package mood

import "testing"

func TestAnalyzeFrustratedCustomer(t *testing.T) {
	decision := Analyze([]string{"hi", "my order is still not here", "this is ridiculous!!"})
	if decision.Mood != Frustrated {
		t.Fatalf("expected frustrated, got %s", decision.Mood)
	}
}

func TestAnalyzeLaterMessagesWeighMore(t *testing.T) {
	decision := Analyze([]string{
		"it doesn't work",
		"ok",
		"let me try",
		"hmm",
		"that worked, thank you",
		"great",
	})
	if decision.Mood != Satisfied {
		t.Fatalf("expected satisfied, got %s (score %d)", decision.Mood, decision.Score)
	}
}

func TestAnalyzeNeutral(t *testing.T) {
	decision := Analyze([]string{"hello", "my order number is 42"})
	if decision.Mood != Neutral || decision.Score != 0 {
		t.Fatalf("expected neutral, got %s (score %d)", decision.Mood, decision.Score)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	if got := Analyze(nil); got.Mood != Neutral {
		t.Fatalf("expected neutral for empty history, got %s", got.Mood)
	}
}
