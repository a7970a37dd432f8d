package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		text   string
		want   int64
		wantOK bool
	}{
		{"+10", 10, true},
		{"-5", -5, true},
		{"держи +15 за мем", 15, true},
		{"ну ты -20 и +30", -20, true},
		{"+0", 0, true},
		{"10", 0, false},
		{"просто текст", 0, false},
		{"", 0, false},
		{"+99999999999999999999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParseAmount(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsLaughter(t *testing.T) {
	yes := []string{"ахахах", "ХАХА", "лол", "ору!", "Кек)", "lol", "LMAO", "😂", "ну ты 🤣"}
	no := []string{"", "привет", "колокол", "хорошо", "спасибо"}

	for _, s := range yes {
		assert.True(t, IsLaughter(s), s)
	}
	for _, s := range no {
		assert.False(t, IsLaughter(s), s)
	}
}
