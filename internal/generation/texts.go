package generation

import "fmt"

// DefaultProgressMessages rotate on the progress cadence while a card is
// being generated.
var DefaultProgressMessages = []string{
	"⏳ Бабушка подбирает рамочку...",
	"🌸 Добавляем цветочки и блёстки...",
	"💐 Бабуля выбирает лучшие пожелания...",
	"✨ Украшаем открытку с любовью...",
	"🎨 Наносим бабушкин шарм...",
	"💝 Добавляем теплоты и уюта...",
}

const (
	failureText = "❌ Не удалось создать открытку. Попробуйте еще раз!"
	timeoutText = "⏱ Генерация заняла слишком много времени. Попробуйте еще раз!"
)

func quotaExceededText(limit int) string {
	return fmt.Sprintf("❌ Ты исчерпал лимит на сегодня (%d/%d).\nПриходи завтра! 🌅", limit, limit)
}

func successCaption(used, limit int) string {
	return fmt.Sprintf("✅ Готово!\n📊 Использовано: %d/%d", used, limit)
}
