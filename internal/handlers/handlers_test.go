package handlers

import (
	"errors"
	"testing"

	"github.com/evn/driver_botl/internal/assign"
	"github.com/evn/driver_botl/models"
	"github.com/stretchr/testify/assert"
)

func TestSplitNames(t *testing.T) {
	got := splitNames("Ivan Ivanov\nPetr Petrov, Anna Smirnova")
	assert.Equal(t, []string{"Ivan Ivanov", "Petr Petrov", "Anna Smirnova"}, got)
}

func TestSplitNames_DedupeKeepsOrder(t *testing.T) {
	got := splitNames("Ivan Ivanov\nivan ivanov\nPetr Petrov")
	assert.Equal(t, []string{"Ivan Ivanov", "Petr Petrov"}, got)
}

func TestSplitNames_Empty(t *testing.T) {
	assert.Empty(t, splitNames("  \n , ,\n"))
}

func TestProtectedOrGeneric(t *testing.T) {
	protected := []assign.StepFailure{
		{Step: "employee backref", Name: "Petr Petrov", Err: models.ErrSheetProtected},
	}
	assert.Contains(t, protectedOrGeneric(protected), "защищена")

	generic := []assign.StepFailure{
		{Step: "employee backref", Name: "Petr Petrov", Err: errors.New("boom")},
	}
	msg := protectedOrGeneric(generic)
	assert.Contains(t, msg, "Petr Petrov")
	assert.NotContains(t, msg, "защищена")
}
