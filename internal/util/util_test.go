package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCreateInlineMarkup(t *testing.T) {
	markup := CreateInlineMarkup(2,
		CreateDefaultButton("a", "A"),
		CreateDefaultButton("b", "B"),
		CreateDefaultButton("c", "C"),
	)

	assert.Len(t, markup.InlineKeyboard, 2)
	assert.Len(t, markup.InlineKeyboard[0], 2)
	assert.Equal(t, "c", markup.InlineKeyboard[1][0].CallbackData)
}

func TestCreateDefaultButtonsReplay(t *testing.T) {
	markup := CreateDefaultButtonsReplay(3, "one", "two", "three", "four")

	assert.True(t, markup.ResizeKeyboard)
	assert.Len(t, markup.Keyboard, 2)
	assert.Equal(t, "four", markup.Keyboard[1][0].Text)
}

func TestGenerateNextBackMenu(t *testing.T) {
	item := CreateDefaultButton("item", "Item")

	first := GenerateNextBackMenu(0, 3, "next", "back", "close", item)
	assert.Len(t, first.InlineKeyboard, 2)
	nav := first.InlineKeyboard[1]
	assert.Equal(t, []string{"close", "next"}, []string{nav[0].CallbackData, nav[1].CallbackData})

	last := GenerateNextBackMenu(2, 3, "next", "back", "close")
	nav = last.InlineKeyboard[0]
	assert.Equal(t, []string{"back", "close"}, []string{nav[0].CallbackData, nav[1].CallbackData})
}

func TestPages(t *testing.T) {
	p := NewPages()

	assert.Equal(t, 0, p.Back(1))
	assert.Equal(t, 1, p.Next(1, 3))
	assert.Equal(t, 2, p.Next(1, 3))
	assert.Equal(t, 2, p.Next(1, 3))
	assert.Equal(t, 0, p.Current(2))

	p.Reset(1)
	assert.Equal(t, 0, p.Current(1))
}

func TestPages_ForgetIdleChats(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p := NewPagesWithTTL(time.Hour, func() time.Time { return now })

	assert.Equal(t, 1, p.Next(1, 3))
	assert.Equal(t, 1, p.Next(2, 3))

	now = now.Add(30 * time.Minute)
	assert.Equal(t, 2, p.Next(2, 3))

	now = now.Add(31 * time.Minute)
	assert.Equal(t, 0, p.Current(1))
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, 2, p.Current(2))

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 0, p.Back(2))
	assert.Equal(t, 1, p.Len())

	p.Reset(2)
	assert.Equal(t, 0, p.Len())
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 5))
	assert.Equal(t, 1, TotalPages(5, 5))
	assert.Equal(t, 3, TotalPages(11, 5))
}
