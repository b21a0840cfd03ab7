package portal

import (
	"fmt"
	"os"
	"strings"
)

// Credentials authenticate the cabinet session.
type Credentials struct {
	Email    string
	Password string
}

// LoadCredentials reads EMAIL and PASSWORD. Each may hold the secret itself
// or a path to a file containing it.
func LoadCredentials() (Credentials, error) {
	email, err := readValueOrFile(os.Getenv("EMAIL"), "EMAIL")
	if err != nil {
		return Credentials{}, err
	}
	password, err := readValueOrFile(os.Getenv("PASSWORD"), "PASSWORD")
	if err != nil {
		return Credentials{}, err
	}
	if email == "" || password == "" {
		return Credentials{}, fmt.Errorf("EMAIL and PASSWORD are required for portal access")
	}
	return Credentials{Email: email, Password: password}, nil
}

func readValueOrFile(v string, varName string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	if strings.ContainsAny(v, "\r\n") {
		return v, nil
	}
	if fi, err := os.Stat(v); err == nil && !fi.IsDir() {
		b, err := os.ReadFile(v)
		if err != nil {
			return "", fmt.Errorf("read %s file: %w", varName, err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return v, nil
}
