package night

// Announcements posted in the group's default thread at the regime
// boundaries.
const (
	textNightStart = "Батьки, оголошується режим тиші з %d:00 до %d:00 (завтра — %s).\n" +
		"Всі повідомлення у цей час будуть автоматично переноситися до топіку «НІЧНІ ПОВІДОМЛЕННЯ» " +
		"і повернуться вранці.\n" +
		"У топіках %s можна писати без часових обмежень."

	textNightEnd = "Батьки, режим тиші закінчився.\n" +
		"Щоб покращити роботу бота, необхідно, щоб кожен активіст написав йому хоча б раз особисте повідомлення.\n" +
		"Наразі це зробили лише %d активістів із %d.\n" +
		"Дякую за розуміння."

	textUnregisteredList = "\nЩе не зареєструвалися: %s"

	textPaymentReminder = "Батьки, нагадуємо про необхідність сплатити членські внески. Дякуємо всім, хто вже це зробив!"

	textWeekday = "будній день"
	textWeekend = "вихідний"
)
