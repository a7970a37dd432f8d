// Package common (pluralize.go) содержит вспомогательные функции
// для форматирования сумм со знаком и больших чисел.
package common

import "fmt"

// FormatSignedPoints создаёт строку вида "+100 баллов" или "-50 баллов".
// Знак «+» или «-» добавляется автоматически.
//
// Примеры:
//
//	FormatSignedPoints(100)  → "+100 баллов"
//	FormatSignedPoints(-50)  → "-50 баллов"
//	FormatSignedPoints(1)    → "+1 балл"
func FormatSignedPoints(amount int64) string {
	if amount >= 0 {
		return fmt.Sprintf("+%d %s", amount, PluralizePoints(amount))
	}
	return fmt.Sprintf("%d %s", amount, PluralizePoints(amount))
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}
