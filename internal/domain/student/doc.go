// Package student содержит доменную модель студента и его оценок.
//
// Пакет определяет:
//
//   - Сущность Student: идентификатор, имя и упорядоченный список предметов
//   - Value Objects: Subject (предмет с оценкой), Grade (оценка 0-100)
//   - Текстовое представление студента для отображения и для хранения
//
// # Архитектурные принципы
//
//  1. Нулевые внешние зависимости - только стандартная библиотека Go
//  2. Инварианты проверяются в момент ввода: некорректная оценка никогда не сохраняется
//  3. ID неизменяем после создания
//
// # Пример использования
//
//	s, err := student.New("s-001", "Айгерим")
//	if err != nil {
//	    return err
//	}
//
//	// Добавление или обновление оценки (имя предмета без учёта регистра)
//	if err := s.AddOrUpdateSubject("Math", 80); err != nil {
//	    return err // shared.ErrInvalidGrade
//	}
//	_ = s.AddOrUpdateSubject("math", 90) // обновит "Math", не добавит дубликат
//
//	fmt.Println(s.AverageGrade()) // 90
//
// # Формат хранения
//
// MarshalText кодирует студента в одну строку:
//
//	<id>\t<name>\t<subject>=<grade>\t...
//
// Символы-разделители внутри полей экранируются в стиле percent-encoding
// (%09, %0A, %0D, %23, %25, %3D), поэтому любая строка декодируется однозначно.
package student
