package config

// ConfigBackend stores quill's settings in whatever the host platform
// provides: UserDefaults through the `defaults` CLI on macOS, an XDG JSON
// file elsewhere. Tokens never pass through it; see the keychain readers.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
