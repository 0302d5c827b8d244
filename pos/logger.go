package pos

import "log"

// Logger is the observability contract shared by the automation layers.
// The control service plugs in a buffered implementation so operators can
// follow every step in real time.
type Logger interface {
	Printf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// SimpleLogger writes through the standard logger.
type SimpleLogger struct{}

func (sl *SimpleLogger) Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
}

func (sl *SimpleLogger) Errorf(format string, v ...interface{}) {
	log.Printf("ERROR: "+format, v...)
}
