package rating

import "math/rand/v2"

// lowBalancePhrases: ответы, когда плюсов осталось мало.
var lowBalancePhrases = []string{
	"😬 Осторожно, баллы на исходе",
	"🪫 Ты почти пуст",
	"🐭 Балансовая диета",
	"⚠️ Ещё немного — и всё",
	"🥲 Баллы тают",
	"📉 Финансовый кризис",
	"🧮 Математика плачет",
	"💸 Почти банкрот",
	"😏 Щедрость дорого стоит",
	"🪦 Тут похоронены баллы",
	"🫠 Осталось совсем чуть-чуть",
	"😮‍💨 Последние силы",
	"📛 Балльный SOS",
	"🪙 Мелочь звенит",
	"😈 Баланс страдает",
	"🥴 Почти ноль",
	"🧠 Подумай, прежде чем тратить",
	"🫣 Стыдно мало",
	"🦴 Грызёшь остатки",
	"⚰️ Баллам плохо",
}

func randomLowBalancePhrase() string {
	return lowBalancePhrases[rand.IntN(len(lowBalancePhrases))]
}
