package models

// Settings — настройки аккаунта.
type Settings struct {
	NotificationsEnabled bool
}

// DefaultSettings — настройки пользователя, который их ещё не менял.
func DefaultSettings() Settings {
	return Settings{NotificationsEnabled: true}
}
