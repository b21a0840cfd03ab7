package version

// Current is the released version of fiofix.
const Current = "0.1.0"

// UserAgent identifies fiofix in requests to the cabinet.
func UserAgent() string {
	return "fiofix/" + Current
}
