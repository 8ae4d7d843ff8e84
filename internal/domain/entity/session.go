package entity

// Session состояние диалога в чате бота
type Session struct {
	ChatID   int64    // Telegram Chat ID
	Awaiting FileKind // каким типом зарегистрировать следующий документ, пусто — по расширению
}

// NewSession создаёт сессию без ожидаемого типа файла
func NewSession(chatID int64) *Session {
	return &Session{ChatID: chatID}
}

// Expect запоминает, каким типом зарегистрировать следующий документ
func (s *Session) Expect(kind FileKind) {
	s.Awaiting = kind
}

// Consume возвращает ожидаемый тип и сбрасывает его
func (s *Session) Consume() (FileKind, bool) {
	kind := s.Awaiting
	s.Awaiting = ""
	return kind, kind != ""
}
