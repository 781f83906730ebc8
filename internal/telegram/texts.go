package telegram

// Replies of the private registration flow and the group welcome.
const (
	textNotActivist = `Ви не є активістом ГО "Батько МАЄ ПРАВО"`

	textRegistrationThanks = "Дякую за реєстрацію"

	textNoCommands = "Я поки не вмію виконувати команди.\n" +
		"Якщо у вас є пропозиції корисних команд, напишіть, будь ласка, моєму [розробнику](tg://user?id=%d)"

	// textWelcome greets a new member in the status topic:
	// mention, then the bot's username to write to.
	textWelcome = "Вітаємо, %s!\n" +
		"Щоб мати змогу писати у групі, напишіть, будь ласка, боту @%s хоча б одне особисте повідомлення."
)
