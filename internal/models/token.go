package models

// TokenKind — вид токена в паре. Каждый вид подписывается собственным
// секретом и живёт свой срок, поэтому токен одного вида никогда не пройдёт
// проверку как токен другого.
type TokenKind string

const (
	// KindAccess — короткоживущий токен доступа; проверяется только
	// криптографически, без обращения к хранилищу.
	KindAccess TokenKind = "access"
	// KindRefresh — долгоживущий токен обновления; помимо подписи и срока
	// должен бит-в-бит совпадать со слотом пользователя в хранилище.
	KindRefresh TokenKind = "refresh"
)
