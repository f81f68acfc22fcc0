package assign

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloseMatches(t *testing.T) {
	candidates := []string{"Ivan Ivanov", "Petr Petrov", "Anna Smirnova"}

	got := closeMatches("Petr Petrof", candidates, 3, 0.6)
	assert.Equal(t, []string{"Petr Petrov"}, got)

	// совсем непохожее имя не предлагается
	got = closeMatches("Zzzz", candidates, 3, 0.6)
	assert.Empty(t, got)
}

func TestCloseMatches_LimitAndOrder(t *testing.T) {
	candidates := []string{"Ivan Petrov", "Ivan Petrova", "Ivan Petrov ", "Ivan Petrovich"}
	got := closeMatches("Ivan Petrov", candidates, 2, 0.6)
	assert.Len(t, got, 2)
	// точное совпадение первым
	assert.Equal(t, "Ivan Petrov", got[0])
}

func TestCloseMatches_EmptyInput(t *testing.T) {
	assert.Nil(t, closeMatches("  ", []string{"Ivan"}, 3, 0.6))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein([]rune("abc"), []rune("abc")))
	assert.Equal(t, 1, levenshtein([]rune("abc"), []rune("abd")))
	assert.Equal(t, 3, levenshtein([]rune(""), []rune("abc")))
	assert.Equal(t, 3, levenshtein([]rune("kitten"), []rune("sitting")))
}
