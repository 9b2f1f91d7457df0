package conversation

import (
	"context"
	"testing"
)

func TestKeywordExtractor(t *testing.T) {
	extractor := NewKeywordExtractor(DefaultVocabulary())

	tests := []struct {
		name    string
		message string
		want    Extraction
	}{
		{
			name:    "drinkAndSize",
			message: "Large cappuccino",
			want:    Extraction{Drink: "cappuccino", Size: "large"},
		},
		{
			name:    "multiWordMilk",
			message: "oat milk",
			want:    Extraction{Milk: "oat"},
		},
		{
			name:    "fullOrder",
			message: "Can I get a small flat white with almond milk?",
			want:    Extraction{Drink: "flat white", Milk: "almond", Size: "small"},
		},
		{
			name:    "synonyms",
			message: "venti chai, no milk",
			want:    Extraction{Drink: "chai latte", Milk: "none", Size: "large"},
		},
		{
			name:    "longestPhraseWins",
			message: "green tea please",
			want:    Extraction{Drink: "tea"},
		},
		{
			name:    "yes",
			message: "Yes please",
			want:    Extraction{Answer: AnswerYes},
		},
		{
			name:    "soundsGood",
			message: "sounds good",
			want:    Extraction{Answer: AnswerYes},
		},
		{
			name:    "noWithCorrection",
			message: "no, soy",
			want:    Extraction{Milk: "soy", Answer: AnswerNo},
		},
		{
			name:    "noInsideWordIgnored",
			message: "I'm ready now",
			want:    Extraction{},
		},
		{
			name:    "restart",
			message: "actually start over",
			want:    Extraction{Restart: true},
		},
		{
			name:    "someoneElse",
			message: "it's for someone else",
			want:    Extraction{ForSomeoneElse: true},
		},
		{
			name:    "friendByName",
			message: "a mocha for Priya",
			want:    Extraction{Drink: "mocha", FriendName: "Priya", ForSomeoneElse: true},
		},
		{
			name:    "friendRelationAndName",
			message: "for my friend sam",
			want:    Extraction{FriendName: "Sam", ForSomeoneElse: true},
		},
		{
			name:    "forHereIsNotAFriend",
			message: "latte for here",
			want:    Extraction{Drink: "latte"},
		},
		{
			name:    "forPickupIsNotAFriend",
			message: "large latte with oat milk for pickup",
			want:    Extraction{Drink: "latte", Milk: "oat", Size: "large"},
		},
		{
			name:    "forTheRoadIsNotAFriend",
			message: "small mocha for the road",
			want:    Extraction{Drink: "mocha", Size: "small"},
		},
		{
			name:    "forBreakfastIsNotAFriend",
			message: "Cappuccino for breakfast",
			want:    Extraction{Drink: "cappuccino"},
		},
		{
			name:    "lowercaseWordAfterForIsNotAName",
			message: "latte for sure",
			want:    Extraction{Drink: "latte", Answer: AnswerYes},
		},
		{
			name:    "forNumberIsNotAName",
			message: "espresso for 2",
			want:    Extraction{Drink: "espresso"},
		},
		{
			name:    "explicitNameLowercase",
			message: "her name is dana",
			want:    Extraction{FriendName: "Dana", ForSomeoneElse: true},
		},
		{
			name:    "usual",
			message: "the usual",
			want:    Extraction{Usual: true},
		},
		{
			name:    "empty",
			message: "",
			want:    Extraction{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractor.Extract(context.Background(), tt.message, Partial{})
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Extract(%q) = %+v, want %+v", tt.message, got, tt.want)
			}
		})
	}
}

func TestNameFromText(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{message: "alice", want: "Alice"},
		{message: "It's for bob smith", want: "Bob Smith"},
		{message: "my friend Jo", want: "Jo"},
		{message: "Mary Ann Lee", want: "Mary Ann"},
		{message: "me", want: ""},
		{message: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := NameFromText(tt.message); got != tt.want {
				t.Errorf("NameFromText(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestExtractionHasFields(t *testing.T) {
	if (Extraction{Answer: AnswerYes, Restart: true}).HasFields() {
		t.Error("intent only extraction reported fields")
	}
	if !(Extraction{Milk: "oat"}).HasFields() {
		t.Error("milk not reported as a field")
	}
}
