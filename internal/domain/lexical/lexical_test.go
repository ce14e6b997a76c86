package lexical

import (
	"math"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Cat sat, on the MAT!", []string{"cat", "sat", "on", "the", "mat"}},
		{"snake_case and 42 apples", []string{"snake_case", "and", "42", "apples"}},
		{"Été à Paris", []string{"été", "à", "paris"}},
		{"  ...  ", nil},
		{"", nil},
	}
	for _, tc := range tests {
		got := Tokenize(tc.in)
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestIsBlank(t *testing.T) {
	if !IsBlank(TokenizeAll([]string{"", "  ", "?!"})) {
		t.Error("punctuation-only corpus should be blank")
	}
	if IsBlank(TokenizeAll([]string{"", "dog"})) {
		t.Error("corpus with one token is not blank")
	}
	if !IsBlank(nil) {
		t.Error("empty corpus is blank")
	}
}

func testCorpus() [][]string {
	return TokenizeAll([]string{"cat sat on mat", "dog ran in park", "bird in tree"})
}

func TestOkapi_Scores(t *testing.T) {
	bm := NewOkapi(testCorpus())
	scores := bm.Scores(Tokenize("cat"))

	if len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	if math.Abs(scores[0]-0.4907495) > 1e-6 {
		t.Errorf("scores[0] = %v, want ~0.4907495", scores[0])
	}
	if scores[1] != 0 || scores[2] != 0 {
		t.Errorf("non-matching docs must score 0, got %v", scores[1:])
	}
}

func TestOkapi_NegativeIDFFloor(t *testing.T) {
	bm := NewOkapi(testCorpus())

	// "in" appears in 2 of 3 docs; its raw IDF is negative.
	want := 0.25 * (8 * (math.Log(2.5) - math.Log(1.5))) / 10
	if got := bm.IDF("in"); math.Abs(got-want) > 1e-9 {
		t.Errorf("IDF(in) = %v, want %v", got, want)
	}
	if bm.IDF("unseen") != 0 {
		t.Error("unseen term must have zero IDF")
	}
}

func TestOkapi_UnknownQuery(t *testing.T) {
	bm := NewOkapi(testCorpus())
	for i, s := range bm.Scores([]string{"zebra"}) {
		if s != 0 {
			t.Errorf("scores[%d] = %v, want 0", i, s)
		}
	}
}

func TestOkapi_EmptyCorpus(t *testing.T) {
	bm := NewOkapi(nil)
	if got := bm.Scores([]string{"cat"}); len(got) != 0 {
		t.Errorf("expected no scores, got %v", got)
	}

	blank := NewOkapi([][]string{nil, nil})
	for _, s := range blank.Scores([]string{"cat"}) {
		if s != 0 || math.IsNaN(s) {
			t.Errorf("blank corpus must score 0, got %v", s)
		}
	}
}

func TestOkapi_Options(t *testing.T) {
	corpus := testCorpus()
	base := NewOkapi(corpus).Scores([]string{"cat"})[0]
	tuned := NewOkapi(corpus, WithK1(1.2), WithB(0), WithEpsilon(0.5)).Scores([]string{"cat"})[0]
	if base == tuned {
		t.Error("options should change the score")
	}
}
