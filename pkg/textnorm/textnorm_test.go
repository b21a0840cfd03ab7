package textnorm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shpitdev/fiofix/pkg/textnorm"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "петров", want: "Петров"},
		{in: "ПЕТРОВ", want: "Петров"},
		{in: "  иВАН ", want: "Иван"},
		{in: "ёлкин", want: "Ёлкин"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, textnorm.Title(tt.in))
		})
	}
}

func TestTitleComposesDecomposedLetters(t *testing.T) {
	// "и" + combining breve is the decomposed form of "й".
	decomposed := "андре\u0438\u0306"
	assert.Equal(t, "Андрей", textnorm.Title(decomposed))
}

func TestFirstLetterAndSingleLetter(t *testing.T) {
	assert.Equal(t, "И", textnorm.FirstLetter("иван"))
	assert.Equal(t, "", textnorm.FirstLetter(""))

	assert.True(t, textnorm.IsSingleLetter("Б"))
	assert.False(t, textnorm.IsSingleLetter("B"))
	assert.False(t, textnorm.IsSingleLetter("Бо"))
}
