package core

// Logger is any logging service.
// Args may contain an error, a map[string]interface{} of extra data and the authenticated user.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the user an event is reported for.
type Person interface {
	PersonID() string
	PersonName() string
	PersonEmail() string
}
