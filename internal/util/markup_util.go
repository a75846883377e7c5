package util

import (
	"github.com/go-telegram/bot/models"
)

// rows splits items into rows of at most perRow.
func rows[T any](perRow int, items []T) [][]T {
	if perRow <= 0 {
		perRow = 1
	}
	res := make([][]T, 0, (len(items)+perRow-1)/perRow)
	for start := 0; start < len(items); start += perRow {
		end := min(start+perRow, len(items))
		res = append(res, items[start:end])
	}
	return res
}

func CreateInlineMarkup(numberButtonInRow int, buttons ...models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: rows(numberButtonInRow, buttons),
	}
}

func CreateDefaultButton(idButton, text string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: idButton,
	}
}

func CreateDefaultButtonsReplay(numberButtonInRow int, textButton ...string) *models.ReplyKeyboardMarkup {
	keys := make([]models.KeyboardButton, 0, len(textButton))
	for _, text := range textButton {
		keys = append(keys, models.KeyboardButton{Text: text})
	}

	return &models.ReplyKeyboardMarkup{
		Keyboard:       rows(numberButtonInRow, keys),
		ResizeKeyboard: true,
	}
}

// GenerateNextBackMenu lays out the page navigation row under the given
// buttons. Back is hidden on the first page and next on the last one.
func GenerateNextBackMenu(page, totalPages int, nextId, backId, closeId string, buttons ...models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	markup := rows(1, buttons)

	nav := make([]models.InlineKeyboardButton, 0, 3)
	if page > 0 {
		nav = append(nav, CreateDefaultButton(backId, "⬅️"))
	}
	nav = append(nav, CreateDefaultButton(closeId, "✖️"))
	if page+1 < totalPages {
		nav = append(nav, CreateDefaultButton(nextId, "➡️"))
	}
	markup = append(markup, nav)

	return &models.InlineKeyboardMarkup{InlineKeyboard: markup}
}
