package utils

import "github.com/sethvargo/go-password/password"

// GeneratePIN returns a random 6-digit PIN used to gate the HTTP API.
func GeneratePIN() (string, error) {
	return password.Generate(6, 6, 0, false, true)
}
