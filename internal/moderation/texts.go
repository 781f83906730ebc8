package moderation

// Notices posted in the bot-status topic when a message is removed. A
// removed message always gets exactly one explanation, never a silent
// deletion.
const (
	textDeletedUnregistered = "%s, ваше повідомлення видалено. " +
		"Щоб писати у групі, спочатку напишіть боту хоча б одне особисте повідомлення."

	textDeletedNight = "%s, зараз режим тиші. " +
		"Ваше повідомлення перенесено до топіку «НІЧНІ ПОВІДОМЛЕННЯ» і повернеться вранці."
)
