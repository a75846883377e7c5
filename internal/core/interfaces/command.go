package interfaces

import (
	"context"

	"github.com/go-telegram/bot/models"
)

// Command handles one bot interaction; T is a message or a callback query.
type Command[T any] interface {
	Execute(ctx context.Context, args T)
}

// PagedCommand is a list view that can be moved through with callbacks.
type PagedCommand interface {
	Command[*models.Message]
	NextPage(ctx context.Context, callback *models.CallbackQuery)
	BackPage(ctx context.Context, callback *models.CallbackQuery)
	CloseList(ctx context.Context, callback *models.CallbackQuery)
}
