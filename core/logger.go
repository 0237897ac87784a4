package core

// Logger is any service that reports application events.
// args may carry an error, a map[string]interface{} of extra data or the acting core.Person.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the user on whose behalf something was logged.
type Person struct {
	ID       string
	Username string
	Email    string
}
