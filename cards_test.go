package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinDealHand(t *testing.T) {
	src := NewBuiltinCardSource()

	t.Run("unknown category", func(t *testing.T) {
		_, err := src.DealHand("no-such-category")
		assert.ErrorIs(t, err, ErrBadPayload)
	})

	t.Run("deals distinct spectrums", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			hand, err := src.DealHand("startup")
			require.NoError(t, err)
			require.Len(t, hand, handSize)

			seen := make(map[string]bool)
			for _, c := range hand {
				assert.True(t, strings.HasPrefix(c.CardID, "startup_"))
				assert.False(t, seen[c.CardID], "duplicate card %s", c.CardID)
				seen[c.CardID] = true
				assert.Contains(t, c.Label, " ↔ ")
			}
		}
	})
}

func TestBuiltinCategories(t *testing.T) {
	src := NewBuiltinCardSource()

	cats := src.Categories()
	require.Len(t, cats, 3)
	assert.Equal(t, []string{"dating", "startup", "rap-group"}, []string{cats[0].ID, cats[1].ID, cats[2].ID})

	for _, cat := range cats {
		assert.NotEmpty(t, cat.Name)
		assert.NotEmpty(t, cat.LoserMessage)

		info, ok := src.CategoryInfo(cat.ID)
		require.True(t, ok)
		assert.Equal(t, cat, info)
	}

	_, ok := src.CategoryInfo("polka-band")
	assert.False(t, ok)
}
